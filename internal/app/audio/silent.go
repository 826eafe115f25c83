package audio

import (
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// SilentBackendConfig configures the silent backend.
type SilentBackendConfig struct {
	CueDurationMs       int `yaml:"cue_duration_ms" mapstructure:"cue_duration_ms" default:"3000" validate:"gte=1"`
	AmbienceDurationSec int `yaml:"ambience_duration_sec" mapstructure:"ambience_duration_sec" default:"60" validate:"gte=1"`
}

// SilentBackend logs instead of playing. Used on headless hosts.
type SilentBackend struct {
	config SilentBackendConfig
}

// NewSilentBackend creates a silent backend.
func NewSilentBackend(config SilentBackendConfig) *SilentBackend {
	return &SilentBackend{config: config}
}

func (b *SilentBackend) Play(sound Sound, volume float64) (Handle, error) {
	d, _ := b.Duration(sound)
	zlog.Info().Msgf("audio: (silent) %s volume=%.2f", sound, volume)
	return newTimedHandle(d), nil
}

func (b *SilentBackend) Duration(sound Sound) (time.Duration, error) {
	if sound == SoundAmbience {
		return time.Duration(b.config.AmbienceDurationSec) * time.Second, nil
	}
	return time.Duration(b.config.CueDurationMs) * time.Millisecond, nil
}

func (b *SilentBackend) Close() error {
	return nil
}

// timedHandle finishes on its own after a fixed duration.
type timedHandle struct {
	once  sync.Once
	done  chan struct{}
	timer *time.Timer
}

func newTimedHandle(d time.Duration) *timedHandle {
	h := &timedHandle{done: make(chan struct{})}
	h.timer = time.AfterFunc(d, h.Stop)
	return h
}

func (h *timedHandle) Stop() {
	h.once.Do(func() {
		h.timer.Stop()
		close(h.done)
	})
}

func (h *timedHandle) SetVolume(float64) {}

func (h *timedHandle) Done() <-chan struct{} {
	return h.done
}
