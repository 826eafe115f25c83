// Package timer provides the meditation timer engine: countdown, then a
// meditation period split into equal intervals marked by bells.
package timer

// Phase represents the engine phase.
type Phase int

const (
	PhaseIdle       Phase = iota // No run in progress
	PhaseCountdown               // Counting down to the first bell
	PhaseMeditating              // Meditation running (or paused on a stop request)
	PhaseFinished                // Momentary: the run completed and is being recorded
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCountdown:
		return "countdown"
	case PhaseMeditating:
		return "meditating"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// ParsePhase is the inverse of String. Unknown names map to PhaseIdle.
func ParsePhase(s string) Phase {
	switch s {
	case "countdown":
		return PhaseCountdown
	case "meditating":
		return PhaseMeditating
	case "finished":
		return PhaseFinished
	default:
		return PhaseIdle
	}
}

// StopResult tells the caller what a stop request did.
type StopResult int

const (
	StopIgnored              StopResult = iota // Nothing was running
	StopCancelled                              // Countdown cancelled, back to idle
	StopAwaitingConfirmation                   // Meditation paused until ConfirmStop or DismissStopDialog
)

// String returns the string representation of the stop result.
func (r StopResult) String() string {
	switch r {
	case StopIgnored:
		return "ignored"
	case StopCancelled:
		return "cancelled"
	case StopAwaitingConfirmation:
		return "awaiting_confirmation"
	default:
		return "unknown"
	}
}
