package timer

import (
	"time"

	"github.com/osa030/medtimer/internal/domain/meditation"
)

// EventType represents a timer event type.
type EventType int

const (
	EventTick         EventType = iota // The whole-second remaining value changed
	EventPhaseChanged                  // Phase or paused sub-state changed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTick:
		return "tick"
	case EventPhaseChanged:
		return "phase_changed"
	default:
		return "unknown"
	}
}

// Event is an immutable snapshot published by the engine.
type Event struct {
	Type               EventType
	Phase              Phase
	Paused             bool
	SecondsRemaining   int
	IntervalsCompleted int
	SessionStart       time.Time // Zero until meditation begins
}

// Snapshot is a read-only copy of the engine's run state.
type Snapshot struct {
	Phase              Phase
	Paused             bool
	SecondsRemaining   int
	IntervalsCompleted int
	SessionStart       time.Time
	Settings           meditation.Settings // Settings of the current run
}
