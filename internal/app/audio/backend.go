// Package audio provides the cue player: interval and final bells plus a
// gapless looping ambience track.
package audio

import (
	"time"

	"github.com/cockroachdb/errors"
)

// ErrSpeakerUnavailable is returned for the speaker backend by builds
// without the speaker tag, which leave out the cgo sound card driver.
var ErrSpeakerUnavailable = errors.New("speaker backend not built in: rebuild with -tags speaker")

// Sound identifies one of the three clips the player knows about.
type Sound int

const (
	SoundInterval Sound = iota // Bell between intervals
	SoundFinal                 // Bell at the end of a session
	SoundAmbience              // Looping background track
)

// String returns the string representation of the sound.
func (s Sound) String() string {
	switch s {
	case SoundInterval:
		return "interval"
	case SoundFinal:
		return "final"
	case SoundAmbience:
		return "ambience"
	default:
		return "unknown"
	}
}

// Handle is one playing instance of a sound.
type Handle interface {
	// Stop ends playback. Safe to call more than once.
	Stop()
	// SetVolume changes the gain of a sounding handle, 0..1.
	SetVolume(volume float64)
	// Done is closed when playback ends for any reason.
	Done() <-chan struct{}
}

// Backend plays sounds. Play must return as soon as playback has begun.
type Backend interface {
	Play(sound Sound, volume float64) (Handle, error)
	// Duration returns the length of one pass over the sound.
	Duration(sound Sound) (time.Duration, error)
	Close() error
}

// Files lists the clip paths handed to file-based backends.
type Files struct {
	Interval string
	Final    string
	Ambience string
}

// Path returns the file for s.
func (f Files) Path(s Sound) string {
	switch s {
	case SoundInterval:
		return f.Interval
	case SoundFinal:
		return f.Final
	case SoundAmbience:
		return f.Ambience
	default:
		return ""
	}
}

// SpeakerBackendConfig configures direct playback through the sound card.
type SpeakerBackendConfig struct {
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate" default:"44100" validate:"oneof=22050 44100 48000"`
	BufferMs   int `yaml:"buffer_ms" mapstructure:"buffer_ms" default:"100" validate:"gte=10,lte=1000"`
}
