// Package meditation provides the user-editable timer configuration.
package meditation

import (
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// Ranges accepted at the input boundary.
const (
	MinCountdownSeconds = 1
	MaxCountdownSeconds = 30
	MinIntervalUnit     = 1
	MaxIntervalUnit     = 15
	MinNumIntervals     = 1
	MaxNumIntervals     = 10
	MinVolume           = 0.0
	MaxVolume           = 1.0
)

// Settings is the timer configuration. IntervalUnit counts minutes, or
// seconds when Debug is set.
type Settings struct {
	CountdownSeconds int     `yaml:"countdown_seconds" mapstructure:"countdown_seconds" default:"10" validate:"gte=1,lte=30"`
	IntervalUnit     int     `yaml:"interval_unit" mapstructure:"interval_unit" default:"7" validate:"gte=1,lte=15"`
	NumIntervals     int     `yaml:"num_intervals" mapstructure:"num_intervals" default:"4" validate:"gte=1,lte=10"`
	WhiteNoiseVolume float64 `yaml:"white_noise_volume" mapstructure:"white_noise_volume" validate:"gte=0,lte=1"`
	Debug            bool    `yaml:"debug" mapstructure:"debug"`
}

// DefaultSettings returns the out-of-the-box configuration.
func DefaultSettings() Settings {
	return Settings{
		CountdownSeconds: 10,
		IntervalUnit:     7,
		NumIntervals:     4,
	}
}

// IntervalSeconds returns the length of one interval in seconds.
func (s Settings) IntervalSeconds() int {
	if s.Debug {
		return s.IntervalUnit
	}
	return s.IntervalUnit * 60
}

// TotalMeditationSeconds returns the length of the meditation phase.
func (s Settings) TotalMeditationSeconds() int {
	return s.IntervalSeconds() * s.NumIntervals
}

// Validate checks every field against its range.
func (s Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return errors.Wrap(err, "invalid timer settings")
	}
	return nil
}

// Clamped returns a copy with every field forced into range.
func (s Settings) Clamped() Settings {
	s.CountdownSeconds = ClampCountdownSeconds(s.CountdownSeconds)
	s.IntervalUnit = ClampIntervalUnit(s.IntervalUnit)
	s.NumIntervals = ClampNumIntervals(s.NumIntervals)
	s.WhiteNoiseVolume = ClampVolume(s.WhiteNoiseVolume)
	return s
}

func ClampCountdownSeconds(n int) int {
	return clampInt(n, MinCountdownSeconds, MaxCountdownSeconds)
}

func ClampIntervalUnit(n int) int {
	return clampInt(n, MinIntervalUnit, MaxIntervalUnit)
}

func ClampNumIntervals(n int) int {
	return clampInt(n, MinNumIntervals, MaxNumIntervals)
}

// ClampVolume forces v into [0, 1]. NaN is treated as silence.
func ClampVolume(v float64) float64 {
	if v != v || v < MinVolume {
		return MinVolume
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
