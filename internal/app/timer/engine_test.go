package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/medtimer/internal/domain/meditation"
	"github.com/osa030/medtimer/internal/domain/session"
)

// manualClock only moves when told to. Its tickers never fire, so tests
// drive the engine with tick().
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 1, 6, 30, 0, 0, time.Local)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Since(t time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(t)
}

func (c *manualClock) NewTicker(time.Duration) Ticker {
	return idleTicker{c: make(chan time.Time)}
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type idleTicker struct {
	c chan time.Time
}

func (t idleTicker) C() <-chan time.Time { return t.c }

func (t idleTicker) Stop() {}

type fakePlayer struct {
	mu             sync.Mutex
	intervalCues   int
	finalCues      int
	ambienceStarts []float64
	volumes        []float64
	ambienceStops  int
}

func (p *fakePlayer) PlayIntervalCue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intervalCues++
}

func (p *fakePlayer) PlayFinalCue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finalCues++
}

func (p *fakePlayer) StartAmbience(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ambienceStarts = append(p.ambienceStarts, volume)
}

func (p *fakePlayer) SetAmbienceVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volumes = append(p.volumes, volume)
}

func (p *fakePlayer) StopAmbience() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ambienceStops++
}

func (p *fakePlayer) cues() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.intervalCues, p.finalCues
}

type fakeRecorder struct {
	mu       sync.Mutex
	sessions []session.Session
}

func (r *fakeRecorder) Record(s session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
}

func (r *fakeRecorder) recorded() []session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.Session(nil), r.sessions...)
}

type fakeInhibitor struct {
	mu       sync.Mutex
	acquired int
	released int
	err      error
}

func (i *fakeInhibitor) Acquire() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.acquired++
	return i.err
}

func (i *fakeInhibitor) Release() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.released++
}

type harness struct {
	engine    *Engine
	clock     *manualClock
	player    *fakePlayer
	recorder  *fakeRecorder
	inhibitor *fakeInhibitor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:     newManualClock(),
		player:    &fakePlayer{},
		recorder:  &fakeRecorder{},
		inhibitor: &fakeInhibitor{},
	}
	h.engine = NewEngine(Config{EventBuffer: 4096, Clock: h.clock}, h.player, h.recorder, h.inhibitor)
	t.Cleanup(h.engine.Close)
	return h
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.engine.tick()
}

// startMeditating starts a default run and lets the countdown elapse.
func (h *harness) startMeditating(t *testing.T, settings meditation.Settings) {
	t.Helper()
	require.True(t, h.engine.Start(settings))
	h.advance(time.Duration(settings.CountdownSeconds) * time.Second)
	require.Equal(t, PhaseMeditating, h.engine.Snapshot().Phase)
}

func drain(ch <-chan Event) []Event {
	var events []Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}

func phaseEvents(events []Event) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == EventPhaseChanged {
			out = append(out, ev)
		}
	}
	return out
}

func TestEngine_StartEntersCountdown(t *testing.T) {
	h := newHarness(t)

	require.True(t, h.engine.Start(meditation.DefaultSettings()))

	snap := h.engine.Snapshot()
	assert.Equal(t, PhaseCountdown, snap.Phase)
	assert.Equal(t, 10, snap.SecondsRemaining)
	assert.Equal(t, 0, snap.IntervalsCompleted)
	assert.True(t, snap.SessionStart.IsZero())
	assert.Equal(t, 1, h.inhibitor.acquired)

	events := drain(h.engine.Events())
	require.Len(t, events, 1)
	assert.Equal(t, EventPhaseChanged, events[0].Type)
	assert.Equal(t, PhaseCountdown, events[0].Phase)
}

func TestEngine_StartIgnoredUnlessIdle(t *testing.T) {
	h := newHarness(t)

	require.True(t, h.engine.Start(meditation.DefaultSettings()))
	assert.False(t, h.engine.Start(meditation.DefaultSettings()))

	h.advance(10 * time.Second)
	assert.False(t, h.engine.Start(meditation.DefaultSettings()))
	assert.Equal(t, 1, h.inhibitor.acquired)
}

func TestEngine_StartClampsSettings(t *testing.T) {
	h := newHarness(t)

	require.True(t, h.engine.Start(meditation.Settings{
		CountdownSeconds: 90,
		IntervalUnit:     0,
		NumIntervals:     50,
		WhiteNoiseVolume: 3,
	}))

	snap := h.engine.Snapshot()
	assert.Equal(t, 30, snap.SecondsRemaining)
	assert.Equal(t, 1, snap.Settings.IntervalUnit)
	assert.Equal(t, 10, snap.Settings.NumIntervals)
	assert.Equal(t, 1.0, snap.Settings.WhiteNoiseVolume)
}

func TestEngine_CountdownTicksOncePerSecond(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.engine.Start(meditation.DefaultSettings()))
	drain(h.engine.Events())

	// Several polls inside the same second produce a single tick.
	h.advance(400 * time.Millisecond)
	h.advance(400 * time.Millisecond)
	h.advance(400 * time.Millisecond)

	events := drain(h.engine.Events())
	require.Len(t, events, 1)
	assert.Equal(t, EventTick, events[0].Type)
	assert.Equal(t, 9, events[0].SecondsRemaining)
}

func TestEngine_CountdownElapsesIntoMeditation(t *testing.T) {
	h := newHarness(t)
	settings := meditation.DefaultSettings()
	settings.WhiteNoiseVolume = 0.5

	require.True(t, h.engine.Start(settings))
	h.advance(10 * time.Second)

	snap := h.engine.Snapshot()
	assert.Equal(t, PhaseMeditating, snap.Phase)
	assert.Equal(t, 7*60*4, snap.SecondsRemaining)
	assert.Equal(t, 0, snap.IntervalsCompleted)
	assert.Equal(t, h.clock.Now(), snap.SessionStart)

	interval, final := h.player.cues()
	assert.Equal(t, 1, interval)
	assert.Equal(t, 0, final)
	assert.Equal(t, []float64{0.5}, h.player.ambienceStarts)
}

func TestEngine_SilentAmbienceNotStarted(t *testing.T) {
	h := newHarness(t)
	h.startMeditating(t, meditation.DefaultSettings())

	assert.Empty(t, h.player.ambienceStarts)
}

func TestEngine_FullRun(t *testing.T) {
	h := newHarness(t)
	h.startMeditating(t, meditation.DefaultSettings())
	start := h.clock.Now()
	drain(h.engine.Events())

	for i, want := range []int{1, 2, 3} {
		h.advance(420 * time.Second)
		snap := h.engine.Snapshot()
		assert.Equal(t, want, snap.IntervalsCompleted, "boundary %d", i+1)
		assert.Equal(t, 1680-420*want, snap.SecondsRemaining)
	}
	interval, final := h.player.cues()
	assert.Equal(t, 4, interval)
	assert.Equal(t, 0, final)
	assert.Empty(t, h.recorder.recorded())

	h.advance(420 * time.Second)

	interval, final = h.player.cues()
	assert.Equal(t, 4, interval)
	assert.Equal(t, 1, final)

	sessions := h.recorder.recorded()
	require.Len(t, sessions, 1)
	assert.Equal(t, 1680, sessions[0].ElapsedSeconds)
	assert.Equal(t, start.Format(session.DateLayout), sessions[0].Date)
	assert.Equal(t, start.Format(session.TimeLayout), sessions[0].StartTime)

	snap := h.engine.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Equal(t, 1, h.inhibitor.released)

	phases := phaseEvents(drain(h.engine.Events()))
	require.Len(t, phases, 2)
	assert.Equal(t, PhaseFinished, phases[0].Phase)
	assert.Equal(t, 4, phases[0].IntervalsCompleted)
	assert.Equal(t, PhaseIdle, phases[1].Phase)
}

func TestEngine_CoarseTickRingsEveryCrossedBoundary(t *testing.T) {
	h := newHarness(t)
	h.startMeditating(t, meditation.DefaultSettings())

	h.advance(1300 * time.Second)

	snap := h.engine.Snapshot()
	assert.Equal(t, 3, snap.IntervalsCompleted)
	assert.Equal(t, 380, snap.SecondsRemaining)

	interval, final := h.player.cues()
	assert.Equal(t, 1+3, interval)
	assert.Equal(t, 0, final)
}

func TestEngine_OvershootFinishesOnce(t *testing.T) {
	h := newHarness(t)
	h.startMeditating(t, meditation.DefaultSettings())

	h.advance(2 * time.Hour)
	h.advance(time.Second)

	interval, final := h.player.cues()
	assert.Equal(t, 1+3, interval)
	assert.Equal(t, 1, final)

	sessions := h.recorder.recorded()
	require.Len(t, sessions, 1)
	assert.Equal(t, 1680, sessions[0].ElapsedSeconds)
}

func TestEngine_StopDuringCountdownCancels(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.engine.Start(meditation.DefaultSettings()))
	h.advance(3 * time.Second)

	assert.Equal(t, StopCancelled, h.engine.RequestStop())

	snap := h.engine.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Equal(t, 1, h.inhibitor.released)

	h.advance(time.Minute)
	assert.Equal(t, PhaseIdle, h.engine.Snapshot().Phase)
	assert.Empty(t, h.recorder.recorded())
	interval, _ := h.player.cues()
	assert.Equal(t, 0, interval)
}

func TestEngine_StopWhileIdleIgnored(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, StopIgnored, h.engine.RequestStop())
	assert.ErrorIs(t, h.engine.ConfirmStop(true), ErrNoStopPending)
	assert.ErrorIs(t, h.engine.DismissStopDialog(), ErrNoStopPending)
}

func TestEngine_PauseFreezesAndResumeContinues(t *testing.T) {
	h := newHarness(t)
	h.startMeditating(t, meditation.DefaultSettings())

	h.advance(100 * time.Second)
	require.Equal(t, StopAwaitingConfirmation, h.engine.RequestStop())

	snap := h.engine.Snapshot()
	assert.True(t, snap.Paused)
	assert.Equal(t, 1580, snap.SecondsRemaining)

	// A second request while the dialog is up changes nothing.
	assert.Equal(t, StopAwaitingConfirmation, h.engine.RequestStop())

	h.advance(10 * time.Minute)
	assert.Equal(t, 1580, h.engine.Snapshot().SecondsRemaining)
	interval, _ := h.player.cues()
	assert.Equal(t, 1, interval)

	require.NoError(t, h.engine.DismissStopDialog())
	snap = h.engine.Snapshot()
	assert.False(t, snap.Paused)
	assert.Equal(t, 1580, snap.SecondsRemaining)

	h.advance(320 * time.Second)
	snap = h.engine.Snapshot()
	assert.Equal(t, 1260, snap.SecondsRemaining)
	assert.Equal(t, 1, snap.IntervalsCompleted)
	interval, _ = h.player.cues()
	assert.Equal(t, 2, interval)
}

func TestEngine_PauseEmitsPhaseEvents(t *testing.T) {
	h := newHarness(t)
	h.startMeditating(t, meditation.DefaultSettings())
	drain(h.engine.Events())

	h.engine.RequestStop()
	require.NoError(t, h.engine.DismissStopDialog())

	phases := phaseEvents(drain(h.engine.Events()))
	require.Len(t, phases, 2)
	assert.True(t, phases[0].Paused)
	assert.False(t, phases[1].Paused)
	assert.Equal(t, PhaseMeditating, phases[1].Phase)
}

func TestEngine_ConfirmStop(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  time.Duration
		keep     bool
		recorded []int
	}{
		{name: "keep records elapsed", elapsed: 100 * time.Second, keep: true, recorded: []int{100}},
		{name: "discard records nothing", elapsed: 100 * time.Second, keep: false},
		{name: "keep with nothing elapsed records nothing", elapsed: 0, keep: true},
		{name: "sub-second elapsed records nothing", elapsed: 900 * time.Millisecond, keep: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.startMeditating(t, meditation.DefaultSettings())

			h.advance(tt.elapsed)
			require.Equal(t, StopAwaitingConfirmation, h.engine.RequestStop())
			require.NoError(t, h.engine.ConfirmStop(tt.keep))

			var got []int
			for _, s := range h.recorder.recorded() {
				got = append(got, s.ElapsedSeconds)
			}
			assert.Equal(t, tt.recorded, got)

			snap := h.engine.Snapshot()
			assert.Equal(t, PhaseIdle, snap.Phase)
			assert.False(t, snap.Paused)
			assert.Equal(t, 1, h.inhibitor.released)
			assert.GreaterOrEqual(t, h.player.ambienceStops, 1)

			assert.ErrorIs(t, h.engine.ConfirmStop(true), ErrNoStopPending)
		})
	}
}

func TestEngine_ConfirmStopRequiresPause(t *testing.T) {
	h := newHarness(t)
	h.startMeditating(t, meditation.DefaultSettings())

	err := h.engine.ConfirmStop(true)
	assert.True(t, errors.Is(err, ErrNoStopPending))
	assert.Equal(t, PhaseMeditating, h.engine.Snapshot().Phase)
}

func TestEngine_SetAmbienceVolume(t *testing.T) {
	h := newHarness(t)

	// Ignored while idle.
	h.engine.SetAmbienceVolume(0.3)
	assert.Empty(t, h.player.volumes)

	h.startMeditating(t, meditation.DefaultSettings())

	h.engine.SetAmbienceVolume(0.4)
	assert.Equal(t, []float64{0.4}, h.player.ambienceStarts)

	h.engine.SetAmbienceVolume(1.7)
	assert.Equal(t, []float64{1.0}, h.player.volumes)
	assert.Equal(t, 1.0, h.engine.Snapshot().Settings.WhiteNoiseVolume)
}

func TestEngine_InhibitorFailureDoesNotBlockStart(t *testing.T) {
	h := newHarness(t)
	h.inhibitor.err = errors.New("no session bus")

	assert.True(t, h.engine.Start(meditation.DefaultSettings()))
	assert.Equal(t, PhaseCountdown, h.engine.Snapshot().Phase)
}

func TestEngine_CloseReleasesEverything(t *testing.T) {
	h := newHarness(t)
	h.startMeditating(t, meditation.DefaultSettings())

	h.engine.Close()
	h.engine.Close()

	assert.Equal(t, 1, h.inhibitor.released)
	assert.GreaterOrEqual(t, h.player.ambienceStops, 1)
	assert.False(t, h.engine.Start(meditation.DefaultSettings()))

	drain(h.engine.Events())
	_, ok := <-h.engine.Events()
	assert.False(t, ok)
}

func TestEngine_RealClockDebugRun(t *testing.T) {
	player := &fakePlayer{}
	recorder := &fakeRecorder{}
	inhibitor := &fakeInhibitor{}
	e := NewEngine(Config{PollInterval: 10 * time.Millisecond}, player, recorder, inhibitor)
	defer e.Close()

	require.True(t, e.Start(meditation.Settings{
		CountdownSeconds: 1,
		IntervalUnit:     1,
		NumIntervals:     2,
		Debug:            true,
	}))

	assert.Eventually(t, func() bool {
		return len(recorder.recorded()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	sessions := recorder.recorded()
	require.Len(t, sessions, 1)
	assert.Equal(t, 2, sessions[0].ElapsedSeconds)

	interval, final := player.cues()
	assert.Equal(t, 2, interval)
	assert.Equal(t, 1, final)
	assert.Eventually(t, func() bool {
		return e.Snapshot().Phase == PhaseIdle
	}, time.Second, 10*time.Millisecond)
}
