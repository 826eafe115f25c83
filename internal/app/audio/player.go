package audio

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// scheduleFunc runs f after d and returns a cancel function.
type scheduleFunc func(d time.Duration, f func()) (cancel func())

func afterFunc(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

// Player implements the cue contract on top of a Backend. Playback errors
// are logged and swallowed; a failed bell never reaches the caller.
type Player struct {
	mu sync.Mutex

	backend  Backend
	overlap  time.Duration
	schedule scheduleFunc

	cues     map[Sound]Handle
	ambience *ambienceLoop
}

// ambienceLoop alternates two handles so the next pass is already sounding
// before the current one ends.
type ambienceLoop struct {
	volume  float64
	period  time.Duration
	handles [2]Handle
	next    int
	cancel  func()
}

// NewPlayer creates a player. overlap is how early each ambience pass is
// started before the previous one ends.
func NewPlayer(backend Backend, overlap time.Duration) *Player {
	return &Player{
		backend:  backend,
		overlap:  overlap,
		schedule: afterFunc,
		cues:     make(map[Sound]Handle),
	}
}

// PlayIntervalCue plays the interval bell.
func (p *Player) PlayIntervalCue() {
	p.playCue(SoundInterval)
}

// PlayFinalCue plays the end-of-session bell.
func (p *Player) PlayFinalCue() {
	p.playCue(SoundFinal)
}

func (p *Player) playCue(sound Sound) {
	p.mu.Lock()
	defer p.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			zlog.Warn().Msgf("audio: %s cue panicked: %v", sound, r)
		}
	}()

	if prev, ok := p.cues[sound]; ok {
		prev.Stop()
		delete(p.cues, sound)
	}

	h, err := p.backend.Play(sound, 1)
	if err != nil {
		zlog.Warn().Err(err).Msgf("audio: failed to play %s cue", sound)
		return
	}
	p.cues[sound] = h
	zlog.Debug().Msgf("audio: playing %s cue", sound)
}

// StartAmbience begins looping the ambience track. If it is already
// looping only the volume changes.
func (p *Player) StartAmbience(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ambience != nil {
		p.setAmbienceVolumeLocked(volume)
		return
	}

	period, err := p.ambiencePeriod()
	if err != nil {
		zlog.Warn().Err(err).Msg("audio: ambience disabled")
		return
	}

	loop := &ambienceLoop{volume: volume, period: period}
	p.ambience = loop
	p.startPassLocked(loop)
	zlog.Debug().Msgf("audio: ambience started: volume=%.2f period=%v", volume, period)
}

func (p *Player) ambiencePeriod() (time.Duration, error) {
	d, err := p.backend.Duration(SoundAmbience)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read ambience duration")
	}
	if d <= 0 {
		return 0, errors.Newf("ambience has no length: %v", d)
	}
	if d > p.overlap {
		return d - p.overlap, nil
	}
	return d, nil
}

// startPassLocked starts the next pass into the free slot and schedules the
// one after it.
func (p *Player) startPassLocked(loop *ambienceLoop) {
	slot := loop.next
	if old := loop.handles[slot]; old != nil {
		old.Stop()
		loop.handles[slot] = nil
	}

	h, err := p.backend.Play(SoundAmbience, loop.volume)
	if err != nil {
		// Keep the loop alive; the next pass may succeed.
		zlog.Warn().Err(err).Msg("audio: failed to play ambience pass")
	} else {
		loop.handles[slot] = h
	}
	loop.next = 1 - slot

	loop.cancel = p.schedule(loop.period, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.ambience != loop {
			return
		}
		p.startPassLocked(loop)
	})
}

// SetAmbienceVolume changes the volume of every sounding ambience handle.
func (p *Player) SetAmbienceVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setAmbienceVolumeLocked(volume)
}

func (p *Player) setAmbienceVolumeLocked(volume float64) {
	if p.ambience == nil {
		return
	}
	p.ambience.volume = volume
	for _, h := range p.ambience.handles {
		if h != nil {
			h.SetVolume(volume)
		}
	}
}

// StopAmbience stops the loop and both handles.
func (p *Player) StopAmbience() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopAmbienceLocked()
}

func (p *Player) stopAmbienceLocked() {
	loop := p.ambience
	if loop == nil {
		return
	}
	p.ambience = nil
	if loop.cancel != nil {
		loop.cancel()
	}
	for i, h := range loop.handles {
		if h != nil {
			h.Stop()
			loop.handles[i] = nil
		}
	}
	zlog.Debug().Msg("audio: ambience stopped")
}

// AmbiencePlaying reports whether the ambience loop is active.
func (p *Player) AmbiencePlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ambience != nil
}

// ReleaseAll stops everything and closes the backend.
func (p *Player) ReleaseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopAmbienceLocked()
	for sound, h := range p.cues {
		h.Stop()
		delete(p.cues, sound)
	}
	if err := p.backend.Close(); err != nil {
		zlog.Warn().Err(err).Msg("audio: failed to close backend")
	}
}
