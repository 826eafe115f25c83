//go:build speaker

package audio

import (
	"math"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	zlog "github.com/rs/zerolog/log"
)

// SpeakerBackend decodes WAV clips into memory once and mixes them on the
// default output device.
type SpeakerBackend struct {
	sampleRate beep.SampleRate
	buffers    map[Sound]*beep.Buffer
}

// NewSpeakerBackend initialises the speaker and loads every configured clip.
func NewSpeakerBackend(config SpeakerBackendConfig, files Files) (*SpeakerBackend, error) {
	sr := beep.SampleRate(config.SampleRate)
	bufferSize := sr.N(time.Duration(config.BufferMs) * time.Millisecond)
	if err := speaker.Init(sr, bufferSize); err != nil {
		return nil, errors.Wrap(err, "failed to initialise speaker")
	}

	b := &SpeakerBackend{sampleRate: sr, buffers: make(map[Sound]*beep.Buffer)}
	for _, sound := range []Sound{SoundInterval, SoundFinal, SoundAmbience} {
		path := files.Path(sound)
		if path == "" {
			continue
		}
		buf, err := loadWAV(path, sr)
		if err != nil {
			speaker.Close()
			return nil, errors.Wrapf(err, "failed to load %s clip", sound)
		}
		b.buffers[sound] = buf
		zlog.Debug().Msgf("audio: loaded %s clip: file=%s length=%v", sound, path, sr.D(buf.Len()))
	}
	return b, nil
}

func newSpeakerBackend(config SpeakerBackendConfig, files Files) (Backend, error) {
	b, err := NewSpeakerBackend(config, files)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func loadWAV(path string, target beep.SampleRate) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open clip")
	}
	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to decode wav")
	}
	defer streamer.Close()

	var src beep.Streamer = streamer
	if format.SampleRate != target {
		src = beep.Resample(4, format.SampleRate, target, streamer)
	}

	buf := beep.NewBuffer(beep.Format{SampleRate: target, NumChannels: 2, Precision: 2})
	buf.Append(src)
	return buf, nil
}

func (b *SpeakerBackend) Play(sound Sound, volume float64) (Handle, error) {
	buf, ok := b.buffers[sound]
	if !ok {
		return nil, errors.Newf("no clip loaded for %s", sound)
	}

	h := &speakerHandle{done: make(chan struct{})}
	h.ctrl = &beep.Ctrl{Streamer: buf.Streamer(0, buf.Len())}
	h.volume = &effects.Volume{Streamer: h.ctrl, Base: 2}
	applyGain(h.volume, volume)

	speaker.Play(beep.Seq(h.volume, beep.Callback(h.finish)))
	return h, nil
}

func (b *SpeakerBackend) Duration(sound Sound) (time.Duration, error) {
	buf, ok := b.buffers[sound]
	if !ok {
		return 0, errors.Newf("no clip loaded for %s", sound)
	}
	return b.sampleRate.D(buf.Len()), nil
}

func (b *SpeakerBackend) Close() error {
	speaker.Clear()
	speaker.Close()
	return nil
}

// applyGain maps a linear 0..1 volume onto beep's exponential volume.
func applyGain(v *effects.Volume, volume float64) {
	if volume <= 0 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(math.Min(volume, 1))
}

// speakerHandle is one streamer on the speaker mixer.
type speakerHandle struct {
	once   sync.Once
	ctrl   *beep.Ctrl
	volume *effects.Volume
	done   chan struct{}
}

func (h *speakerHandle) Stop() {
	speaker.Lock()
	h.ctrl.Streamer = nil
	speaker.Unlock()
	h.finish()
}

func (h *speakerHandle) SetVolume(volume float64) {
	speaker.Lock()
	applyGain(h.volume, volume)
	speaker.Unlock()
}

func (h *speakerHandle) finish() {
	h.once.Do(func() { close(h.done) })
}

func (h *speakerHandle) Done() <-chan struct{} {
	return h.done
}
