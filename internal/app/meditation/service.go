// Package meditation provides the control surface of the timer: the
// editable settings, commands forwarded to the engine, the session log and
// the event fan-out to subscribers.
package meditation

import (
	"context"
	"sync"

	zlog "github.com/rs/zerolog/log"

	medtimerv1 "github.com/osa030/medtimer/internal/api/medtimerv1"
	"github.com/osa030/medtimer/internal/app/history"
	"github.com/osa030/medtimer/internal/app/notification"
	"github.com/osa030/medtimer/internal/app/timer"
	domain "github.com/osa030/medtimer/internal/domain/meditation"
	"github.com/osa030/medtimer/internal/domain/session"
)

// PreferencesStore persists the editable settings between runs.
type PreferencesStore interface {
	Load(fallback domain.Settings) (domain.Settings, error)
	Save(settings domain.Settings) error
}

// SettingsUpdate carries the settings fields to change. Nil fields are left
// alone.
type SettingsUpdate struct {
	CountdownSeconds *int
	IntervalUnit     *int
	NumIntervals     *int
	WhiteNoiseVolume *float64
	Debug            *bool
}

// Service is the control surface over one engine.
type Service struct {
	// mu guards settings and serializes Start against settings edits, so an
	// edit can never slip in between the idle check and the start.
	mu       sync.Mutex
	settings domain.Settings

	engine       *timer.Engine
	history      *history.Log
	prefs        PreferencesStore
	notification *notification.Manager

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	closed sync.Once
}

// NewService creates the service and starts pumping engine events to
// subscribers. Saved preferences override defaults.
func NewService(
	engine *timer.Engine,
	log *history.Log,
	prefs PreferencesStore,
	defaults domain.Settings,
) *Service {
	settings, err := prefs.Load(defaults.Clamped())
	if err != nil {
		zlog.Warn().Err(err).Msg("meditation: failed to load preferences, using defaults")
		settings = defaults.Clamped()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		settings:     settings,
		engine:       engine,
		history:      log,
		prefs:        prefs,
		notification: notification.NewManager(),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	go s.eventLoop()
	return s
}

// Start begins a run with the current settings. It returns false when a
// run is already in progress.
func (s *Service) Start() (bool, timer.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.engine.Start(s.settings)
	if !started {
		zlog.Debug().Msg("meditation: start ignored, run in progress")
	}
	return started, s.stateLocked()
}

// RequestStop cancels a countdown or asks for confirmation during meditation.
func (s *Service) RequestStop() timer.StopResult {
	return s.engine.RequestStop()
}

// ConfirmStop ends a paused meditation, keeping or discarding the session.
func (s *Service) ConfirmStop(keepSession bool) error {
	return s.engine.ConfirmStop(keepSession)
}

// DismissStopDialog resumes a paused meditation.
func (s *Service) DismissStopDialog() error {
	return s.engine.DismissStopDialog()
}

// SetCountdownSeconds changes the countdown length. Ignored unless idle.
func (s *Service) SetCountdownSeconds(n int) bool {
	return s.Update(SettingsUpdate{CountdownSeconds: &n}).applied
}

// SetIntervalUnit changes the interval length. Ignored unless idle.
func (s *Service) SetIntervalUnit(n int) bool {
	return s.Update(SettingsUpdate{IntervalUnit: &n}).applied
}

// SetNumIntervals changes the number of intervals. Ignored unless idle.
func (s *Service) SetNumIntervals(n int) bool {
	return s.Update(SettingsUpdate{NumIntervals: &n}).applied
}

// SetDebug toggles second-based intervals. Ignored unless idle.
func (s *Service) SetDebug(debug bool) bool {
	return s.Update(SettingsUpdate{Debug: &debug}).applied
}

// SetWhiteNoiseVolume changes the ambience volume, live if meditating.
func (s *Service) SetWhiteNoiseVolume(v float64) {
	s.Update(SettingsUpdate{WhiteNoiseVolume: &v})
}

// UpdateResult reports what Update did.
type UpdateResult struct {
	Settings domain.Settings
	applied  bool
}

// Applied reports whether any field changed.
func (r UpdateResult) Applied() bool {
	return r.applied
}

// Update applies the given fields, clamped to range. Structural fields are
// dropped while a run is in progress; the volume is always accepted.
func (s *Service) Update(u SettingsUpdate) UpdateResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	idle := s.engine.Snapshot().Phase == timer.PhaseIdle

	structural := u.CountdownSeconds != nil || u.IntervalUnit != nil || u.NumIntervals != nil || u.Debug != nil
	if structural && !idle {
		zlog.Debug().Msg("meditation: settings change ignored while a run is in progress")
	}
	if idle {
		if u.CountdownSeconds != nil {
			next.CountdownSeconds = domain.ClampCountdownSeconds(*u.CountdownSeconds)
		}
		if u.IntervalUnit != nil {
			next.IntervalUnit = domain.ClampIntervalUnit(*u.IntervalUnit)
		}
		if u.NumIntervals != nil {
			next.NumIntervals = domain.ClampNumIntervals(*u.NumIntervals)
		}
		if u.Debug != nil {
			next.Debug = *u.Debug
		}
	}
	if u.WhiteNoiseVolume != nil {
		next.WhiteNoiseVolume = domain.ClampVolume(*u.WhiteNoiseVolume)
		s.engine.SetAmbienceVolume(next.WhiteNoiseVolume)
	}

	if next == s.settings {
		return UpdateResult{Settings: next}
	}

	s.settings = next
	if err := s.prefs.Save(next); err != nil {
		zlog.Warn().Err(err).Msg("meditation: failed to save preferences")
	}
	zlog.Info().Msgf("meditation: settings updated: countdown=%ds unit=%d intervals=%d volume=%.2f debug=%t",
		next.CountdownSeconds, next.IntervalUnit, next.NumIntervals, next.WhiteNoiseVolume, next.Debug)
	return UpdateResult{Settings: next, applied: true}
}

// Settings returns the editable settings.
func (s *Service) Settings() domain.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// State returns the engine state. While idle, Settings holds the editable
// settings the next run will use.
func (s *Service) State() timer.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Service) stateLocked() timer.Snapshot {
	snap := s.engine.Snapshot()
	if snap.Phase == timer.PhaseIdle {
		snap.Settings = s.settings
	}
	return snap
}

// Sessions returns every stored session, newest first.
func (s *Service) Sessions(ctx context.Context) ([]session.Session, error) {
	return s.history.Snapshot(ctx)
}

// Stats returns the aggregate count and duration of stored sessions.
func (s *Service) Stats(ctx context.Context) (session.Stats, error) {
	return s.history.Stats(ctx)
}

// DeleteSession removes one session.
func (s *Service) DeleteSession(ctx context.Context, id int64) error {
	if err := s.history.Delete(ctx, id); err != nil {
		return err
	}
	zlog.Info().Msgf("meditation: session deleted: id=%d", id)
	return nil
}

// ClearAllSessions removes every session.
func (s *Service) ClearAllSessions(ctx context.Context) error {
	if err := s.history.DeleteAll(ctx); err != nil {
		return err
	}
	zlog.Info().Msg("meditation: all sessions deleted")
	return nil
}

// ExportCSV renders the session log as CSV.
func (s *Service) ExportCSV(ctx context.Context) (string, error) {
	return s.history.ExportCSV(ctx)
}

// WatchSessions streams the session list: the current one first, then a
// fresh one after every change, until ctx is done.
func (s *Service) WatchSessions(ctx context.Context) (<-chan []session.Session, error) {
	return s.history.Watch(ctx)
}

// Subscribe registers stream for timer events. The current state arrives
// first, followed by every later tick and phase change.
func (s *Service) Subscribe(stream notification.Stream) *notification.Subscription {
	return s.notification.SubscribeWithInitial(stream, func() *medtimerv1.Event {
		return StateEvent(s.State())
	})
}

// Unsubscribe ends an event subscription.
func (s *Service) Unsubscribe(id string) {
	s.notification.Unsubscribe(id)
}

// Done is closed when the service shuts down.
func (s *Service) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Close stops the engine, waits for the event pump and pending writes.
func (s *Service) Close() {
	s.closed.Do(func() {
		s.cancel()
		s.engine.Close()
		<-s.done
		s.notification.Close()
		s.history.Wait()
	})
}

// eventLoop forwards engine events to subscribers until the engine closes
// its channel.
func (s *Service) eventLoop() {
	defer close(s.done)

	for ev := range s.engine.Events() {
		zlog.Debug().Msgf("meditation: event: type=%s phase=%s paused=%t remaining=%d",
			ev.Type, ev.Phase, ev.Paused, ev.SecondsRemaining)
		s.notification.Broadcast(EventMessage(ev))
	}
}
