package timer

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/medtimer/internal/domain/meditation"
	"github.com/osa030/medtimer/internal/domain/session"
)

// Errors
var (
	ErrNoStopPending = errors.New("no stop request pending")
	ErrClosed        = errors.New("engine closed")
)

// CuePlayer plays the bells and the ambience loop. Implementations must not
// block and must swallow their own failures.
type CuePlayer interface {
	PlayIntervalCue()
	PlayFinalCue()
	StartAmbience(volume float64)
	SetAmbienceVolume(volume float64)
	StopAmbience()
}

// Recorder persists finished sessions without blocking the caller.
type Recorder interface {
	Record(s session.Session)
}

// Inhibitor keeps the host awake while a run is active.
type Inhibitor interface {
	Acquire() error
	Release()
}

// Config holds engine configuration.
type Config struct {
	PollInterval time.Duration // How often the loop samples the clock
	EventBuffer  int           // Capacity of the event channel
	Clock        Clock
}

// Engine runs one meditation at a time. Remaining time is always derived
// from the anchor (monotonic time at phase entry or resume), never from a
// per-tick decrement, so late or coalesced ticks converge on the right value.
type Engine struct {
	mu sync.Mutex

	config    Config
	clock     Clock
	player    CuePlayer
	recorder  Recorder
	inhibitor Inhibitor

	// Run state
	phase              Phase
	paused             bool
	settings           meditation.Settings
	secondsRemaining   int
	intervalsCompleted int
	sessionStart       time.Time
	pausedRemaining    int
	ambienceOn         bool

	// Anchor
	anchor          time.Time
	anchorRemaining int

	// Loop
	loopCancel context.CancelFunc

	// Events
	eventCh chan Event

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// NewEngine creates an idle engine.
func NewEngine(config Config, player CuePlayer, recorder Recorder, inhibitor Inhibitor) *Engine {
	if config.PollInterval <= 0 {
		config.PollInterval = 100 * time.Millisecond
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 64
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		config:    config,
		clock:     config.Clock,
		player:    player,
		recorder:  recorder,
		inhibitor: inhibitor,
		phase:     PhaseIdle,
		eventCh:   make(chan Event, config.EventBuffer),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Events returns the event channel. It is closed by Close.
func (e *Engine) Events() <-chan Event {
	return e.eventCh
}

// Snapshot returns a copy of the current run state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Phase:              e.phase,
		Paused:             e.paused,
		SecondsRemaining:   e.secondsRemaining,
		IntervalsCompleted: e.intervalsCompleted,
		SessionStart:       e.sessionStart,
		Settings:           e.settings,
	}
}

// Start begins a countdown with a snapshot of settings. It returns false,
// doing nothing, unless the engine is idle.
func (e *Engine) Start(settings meditation.Settings) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.phase != PhaseIdle {
		return false
	}

	settings = settings.Clamped()
	if err := e.inhibitor.Acquire(); err != nil {
		zlog.Warn().Err(err).Msg("timer: failed to inhibit sleep, continuing without")
	}

	e.settings = settings
	e.phase = PhaseCountdown
	e.paused = false
	e.secondsRemaining = settings.CountdownSeconds
	e.intervalsCompleted = 0
	e.sessionStart = time.Time{}
	e.pausedRemaining = 0
	e.ambienceOn = false
	e.reanchorLocked(settings.CountdownSeconds)

	zlog.Info().Msgf("timer: countdown started: countdown=%ds interval=%ds intervals=%d volume=%.2f",
		settings.CountdownSeconds, settings.IntervalSeconds(), settings.NumIntervals, settings.WhiteNoiseVolume)

	e.sendPhaseLocked()
	e.startLoopLocked()
	return true
}

// RequestStop cancels a countdown outright, or pauses a meditation until
// ConfirmStop or DismissStopDialog.
func (e *Engine) RequestStop() StopResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.phase {
	case PhaseCountdown:
		zlog.Info().Msg("timer: countdown cancelled")
		e.endRunLocked()
		return StopCancelled

	case PhaseMeditating:
		if e.paused {
			return StopAwaitingConfirmation
		}
		e.stopLoopLocked()
		e.paused = true
		e.pausedRemaining = e.secondsRemaining
		zlog.Info().Msgf("timer: paused for stop confirmation: remaining=%ds", e.pausedRemaining)
		e.sendPhaseLocked()
		return StopAwaitingConfirmation

	default:
		return StopIgnored
	}
}

// ConfirmStop resolves a pending stop request. With keepSession the time
// meditated so far is recorded, if any.
func (e *Engine) ConfirmStop(keepSession bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.stopPendingLocked() {
		return ErrNoStopPending
	}

	elapsed := e.settings.TotalMeditationSeconds() - e.pausedRemaining
	if keepSession && elapsed > 0 {
		e.recorder.Record(session.New(e.sessionStart, elapsed))
		zlog.Info().Msgf("timer: stopped, session kept: elapsed=%ds", elapsed)
	} else {
		zlog.Info().Msgf("timer: stopped, session discarded: elapsed=%ds keep=%t", elapsed, keepSession)
	}

	e.endRunLocked()
	return nil
}

// DismissStopDialog resumes a paused meditation from where it stopped.
// The pause itself is not counted.
func (e *Engine) DismissStopDialog() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.stopPendingLocked() {
		return ErrNoStopPending
	}

	e.paused = false
	e.secondsRemaining = e.pausedRemaining
	e.reanchorLocked(e.pausedRemaining)
	zlog.Info().Msgf("timer: resumed: remaining=%ds", e.secondsRemaining)

	e.sendPhaseLocked()
	e.startLoopLocked()
	return nil
}

// SetAmbienceVolume changes the ambience volume of the current run. Raising
// it from zero mid-meditation starts the loop.
func (e *Engine) SetAmbienceVolume(volume float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.phase == PhaseIdle {
		return
	}
	volume = meditation.ClampVolume(volume)
	e.settings.WhiteNoiseVolume = volume

	if e.phase != PhaseMeditating {
		return
	}
	switch {
	case e.ambienceOn:
		e.player.SetAmbienceVolume(volume)
	case volume > 0:
		e.player.StartAmbience(volume)
		e.ambienceOn = true
	}
}

// Close tears the engine down: the loop stops, ambience stops and the
// inhibitor is released whatever the phase.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	if e.phase != PhaseIdle {
		zlog.Warn().Msgf("timer: closing during %s, run abandoned", e.phase)
	}

	e.stopLoopLocked()
	e.player.StopAmbience()
	e.inhibitor.Release()
	e.phase = PhaseIdle
	e.paused = false

	e.closed = true
	e.cancel()
	close(e.eventCh)
}

func (e *Engine) stopPendingLocked() bool {
	return !e.closed && e.phase == PhaseMeditating && e.paused
}

func (e *Engine) startLoopLocked() {
	e.stopLoopLocked()

	ctx, cancel := context.WithCancel(e.ctx)
	e.loopCancel = cancel
	ticker := e.clock.NewTicker(e.config.PollInterval)

	go e.run(ctx, ticker)
}

func (e *Engine) stopLoopLocked() {
	if e.loopCancel != nil {
		e.loopCancel()
		e.loopCancel = nil
	}
}

func (e *Engine) run(ctx context.Context, ticker Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			e.mu.Lock()
			// The loop may have been cancelled while waiting for the lock.
			if ctx.Err() == nil {
				e.tickLocked()
			}
			e.mu.Unlock()
		}
	}
}

func (e *Engine) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickLocked()
}

func (e *Engine) tickLocked() {
	switch e.phase {
	case PhaseCountdown:
		e.tickCountdownLocked()
	case PhaseMeditating:
		if !e.paused {
			e.tickMeditatingLocked()
		}
	}
}

func (e *Engine) tickCountdownLocked() {
	remaining := e.remainingLocked()
	if remaining != e.secondsRemaining {
		e.secondsRemaining = remaining
		e.sendTickLocked()
	}
	if remaining <= 0 {
		e.beginMeditationLocked()
	}
}

func (e *Engine) beginMeditationLocked() {
	e.player.PlayIntervalCue()
	if e.settings.WhiteNoiseVolume > 0 {
		e.player.StartAmbience(e.settings.WhiteNoiseVolume)
		e.ambienceOn = true
	}

	total := e.settings.TotalMeditationSeconds()
	e.sessionStart = e.clock.Now()
	e.phase = PhaseMeditating
	e.secondsRemaining = total
	e.intervalsCompleted = 0
	e.reanchorLocked(total)

	zlog.Info().Msgf("timer: meditation started: total=%ds", total)
	e.sendPhaseLocked()
}

func (e *Engine) tickMeditatingLocked() {
	total := e.settings.TotalMeditationSeconds()
	interval := e.settings.IntervalSeconds()
	num := e.settings.NumIntervals

	remaining := e.remainingLocked()
	changed := remaining != e.secondsRemaining
	e.secondsRemaining = remaining

	// One bell per boundary crossed since the last tick, however many.
	expected := (total - remaining) / interval
	if expected > num {
		expected = num
	}
	done := false
	for e.intervalsCompleted < expected {
		e.intervalsCompleted++
		if e.intervalsCompleted >= num {
			done = true
			break
		}
		zlog.Debug().Msgf("timer: interval %d/%d complete", e.intervalsCompleted, num)
		e.player.PlayIntervalCue()
	}

	if changed {
		e.sendTickLocked()
	}
	if done || remaining <= 0 {
		e.finishLocked()
	}
}

func (e *Engine) finishLocked() {
	total := e.settings.TotalMeditationSeconds()

	e.player.PlayFinalCue()
	e.stopLoopLocked()
	e.player.StopAmbience()
	e.ambienceOn = false

	e.phase = PhaseFinished
	e.secondsRemaining = 0
	e.intervalsCompleted = e.settings.NumIntervals
	zlog.Info().Msgf("timer: meditation finished: total=%ds", total)
	e.sendPhaseLocked()

	e.recorder.Record(session.New(e.sessionStart, total))
	e.endRunLocked()
}

// endRunLocked releases run resources and returns to idle.
func (e *Engine) endRunLocked() {
	e.stopLoopLocked()
	e.player.StopAmbience()
	e.inhibitor.Release()

	e.phase = PhaseIdle
	e.paused = false
	e.secondsRemaining = 0
	e.intervalsCompleted = 0
	e.sessionStart = time.Time{}
	e.pausedRemaining = 0
	e.ambienceOn = false

	e.sendPhaseLocked()
}

func (e *Engine) reanchorLocked(remaining int) {
	e.anchor = e.clock.Now()
	e.anchorRemaining = remaining
}

func (e *Engine) remainingLocked() int {
	elapsed := int(e.clock.Since(e.anchor) / time.Second)
	remaining := e.anchorRemaining - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (e *Engine) sendTickLocked() {
	e.sendEventLocked(Event{
		Type:               EventTick,
		Phase:              e.phase,
		Paused:             e.paused,
		SecondsRemaining:   e.secondsRemaining,
		IntervalsCompleted: e.intervalsCompleted,
		SessionStart:       e.sessionStart,
	})
}

func (e *Engine) sendPhaseLocked() {
	e.sendEventLocked(Event{
		Type:               EventPhaseChanged,
		Phase:              e.phase,
		Paused:             e.paused,
		SecondsRemaining:   e.secondsRemaining,
		IntervalsCompleted: e.intervalsCompleted,
		SessionStart:       e.sessionStart,
	})
}

// sendEventLocked sends an event without blocking. A full channel drops the
// event; subscribers resynchronise from the next one.
func (e *Engine) sendEventLocked(ev Event) {
	if e.closed {
		return
	}
	select {
	case e.eventCh <- ev:
	case <-e.ctx.Done():
	default:
		zlog.Debug().Msgf("timer: event channel full, dropped %s", ev.Type)
	}
}
