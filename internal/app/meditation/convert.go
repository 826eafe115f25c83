package meditation

import (
	"time"

	medtimerv1 "github.com/osa030/medtimer/internal/api/medtimerv1"
	"github.com/osa030/medtimer/internal/app/timer"
	domain "github.com/osa030/medtimer/internal/domain/meditation"
	"github.com/osa030/medtimer/internal/domain/session"
)

// EventMessage converts an engine event to its wire form.
func EventMessage(ev timer.Event) *medtimerv1.Event {
	eventType := medtimerv1.EventTypeTick
	if ev.Type == timer.EventPhaseChanged {
		eventType = medtimerv1.EventTypePhaseChanged
	}
	date, start := sessionStamp(ev.SessionStart)
	return &medtimerv1.Event{
		Type:               eventType,
		Phase:              ev.Phase.String(),
		Paused:             ev.Paused,
		SecondsRemaining:   int32(ev.SecondsRemaining),
		IntervalsCompleted: int32(ev.IntervalsCompleted),
		SessionDate:        date,
		SessionStartTime:   start,
	}
}

// StateEvent converts a snapshot to an initial-state event.
func StateEvent(snap timer.Snapshot) *medtimerv1.Event {
	date, start := sessionStamp(snap.SessionStart)
	return &medtimerv1.Event{
		Type:               medtimerv1.EventTypeInitialState,
		Phase:              snap.Phase.String(),
		Paused:             snap.Paused,
		SecondsRemaining:   int32(snap.SecondsRemaining),
		IntervalsCompleted: int32(snap.IntervalsCompleted),
		SessionDate:        date,
		SessionStartTime:   start,
	}
}

// StateMessage converts a snapshot to its wire form.
func StateMessage(snap timer.Snapshot) *medtimerv1.TimerState {
	date, start := sessionStamp(snap.SessionStart)
	return &medtimerv1.TimerState{
		Phase:              snap.Phase.String(),
		Paused:             snap.Paused,
		SecondsRemaining:   int32(snap.SecondsRemaining),
		IntervalsCompleted: int32(snap.IntervalsCompleted),
		SessionDate:        date,
		SessionStartTime:   start,
		Settings:           SettingsMessage(snap.Settings),
	}
}

// SettingsMessage converts settings to their wire form.
func SettingsMessage(s domain.Settings) *medtimerv1.Settings {
	return &medtimerv1.Settings{
		CountdownSeconds:       int32(s.CountdownSeconds),
		IntervalUnit:           int32(s.IntervalUnit),
		NumIntervals:           int32(s.NumIntervals),
		WhiteNoiseVolume:       s.WhiteNoiseVolume,
		Debug:                  s.Debug,
		IntervalSeconds:        int32(s.IntervalSeconds()),
		TotalMeditationSeconds: int32(s.TotalMeditationSeconds()),
	}
}

// SessionMessage converts a stored session to its wire form.
func SessionMessage(s session.Session) *medtimerv1.Session {
	return &medtimerv1.Session{
		Id:                s.ID,
		Date:              s.Date,
		StartTime:         s.StartTime,
		ElapsedSeconds:    int32(s.ElapsedSeconds),
		FormattedDuration: s.FormattedDuration(),
	}
}

// SessionListMessage converts the session log and its totals.
func SessionListMessage(sessions []session.Session, stats session.Stats) *medtimerv1.ListSessionsResponse {
	msgs := make([]*medtimerv1.Session, 0, len(sessions))
	for _, s := range sessions {
		msgs = append(msgs, SessionMessage(s))
	}
	return &medtimerv1.ListSessionsResponse{
		Sessions:     msgs,
		Count:        int32(stats.Count),
		TotalSeconds: int64(stats.TotalSeconds),
	}
}

// UpdateFromMessage converts an UpdateSettings request.
func UpdateFromMessage(req *medtimerv1.UpdateSettingsRequest) SettingsUpdate {
	var u SettingsUpdate
	if req.CountdownSeconds != nil {
		n := int(*req.CountdownSeconds)
		u.CountdownSeconds = &n
	}
	if req.IntervalUnit != nil {
		n := int(*req.IntervalUnit)
		u.IntervalUnit = &n
	}
	if req.NumIntervals != nil {
		n := int(*req.NumIntervals)
		u.NumIntervals = &n
	}
	u.WhiteNoiseVolume = req.WhiteNoiseVolume
	u.Debug = req.Debug
	return u
}

func sessionStamp(start time.Time) (string, string) {
	if start.IsZero() {
		return "", ""
	}
	return start.Format(session.DateLayout), start.Format(session.TimeLayout)
}
