package audio

import (
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/medtimer/internal/infra/config"
)

// NewBackendFromConfig creates the configured backend.
func NewBackendFromConfig(cfg config.AudioConfig) (Backend, error) {
	files := Files{
		Interval: cfg.IntervalCue,
		Final:    cfg.FinalCue,
		Ambience: cfg.Ambience,
	}

	zlog.Debug().Msgf("creating audio backend: type=%s settings=%+v", cfg.Backend, cfg.Settings)

	switch cfg.Backend {
	case "silent":
		var c SilentBackendConfig
		if err := decodeSettings(cfg.Settings, &c); err != nil {
			return nil, err
		}
		return NewSilentBackend(c), nil

	case "command":
		var c CommandBackendConfig
		if err := decodeSettings(cfg.Settings, &c); err != nil {
			return nil, err
		}
		return NewCommandBackend(c, files)

	case "speaker":
		var c SpeakerBackendConfig
		if err := decodeSettings(cfg.Settings, &c); err != nil {
			return nil, err
		}
		return newSpeakerBackend(c, files)

	default:
		return nil, errors.Newf("unsupported audio backend: %s", cfg.Backend)
	}
}

// decodeSettings fills out from a free-form settings map, applies defaults
// and validates the result.
func decodeSettings(settings map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
