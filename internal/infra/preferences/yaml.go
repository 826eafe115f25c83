// Package preferences keeps the user-edited timer settings in a YAML file.
package preferences

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/osa030/medtimer/internal/domain/meditation"
)

// fileData is the on-disk layout. Pointers tell a missing key from a zero.
type fileData struct {
	CountdownSeconds *int     `yaml:"countdown_seconds,omitempty"`
	IntervalUnit     *int     `yaml:"interval_unit,omitempty"`
	NumIntervals     *int     `yaml:"num_intervals,omitempty"`
	WhiteNoiseVolume *float64 `yaml:"white_noise_volume,omitempty"`
	Debug            *bool    `yaml:"debug,omitempty"`
}

// YAMLStore reads and writes settings at a fixed path.
type YAMLStore struct {
	path string
}

// NewYAMLStore creates a store for path. An empty path disables
// persistence: Load returns the fallback and Save does nothing.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// Path returns the backing file path.
func (s *YAMLStore) Path() string {
	return s.path
}

// Load reads the settings file. Keys missing from the file keep the value
// from fallback, and out-of-range values are clamped. A missing file is not
// an error.
func (s *YAMLStore) Load(fallback meditation.Settings) (meditation.Settings, error) {
	if s.path == "" {
		return fallback, nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fallback, nil
		}
		return fallback, errors.Wrap(err, "failed to read preferences file")
	}

	var data fileData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fallback, errors.Wrap(err, "failed to parse preferences file")
	}

	settings := fallback
	if data.CountdownSeconds != nil {
		settings.CountdownSeconds = *data.CountdownSeconds
	}
	if data.IntervalUnit != nil {
		settings.IntervalUnit = *data.IntervalUnit
	}
	if data.NumIntervals != nil {
		settings.NumIntervals = *data.NumIntervals
	}
	if data.WhiteNoiseVolume != nil {
		settings.WhiteNoiseVolume = *data.WhiteNoiseVolume
	}
	if data.Debug != nil {
		settings.Debug = *data.Debug
	}
	return settings.Clamped(), nil
}

// Save writes settings, replacing the file atomically.
func (s *YAMLStore) Save(settings meditation.Settings) error {
	if s.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create preferences directory")
	}

	serialized, err := yaml.Marshal(fileData{
		CountdownSeconds: &settings.CountdownSeconds,
		IntervalUnit:     &settings.IntervalUnit,
		NumIntervals:     &settings.NumIntervals,
		WhiteNoiseVolume: &settings.WhiteNoiseVolume,
		Debug:            &settings.Debug,
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal preferences")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, serialized, 0o644); err != nil {
		return errors.Wrap(err, "failed to write preferences file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "failed to replace preferences file")
	}
	return nil
}
