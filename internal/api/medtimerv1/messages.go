// Package medtimerv1 defines the messages of the medtimer.v1 RPC API.
//
// Messages are plain structs carried by the JSON codec in this package, so
// clients in any language can speak the API with the Connect protocol and
// application/json bodies.
package medtimerv1

// Event types carried by Event.Type.
const (
	EventTypeInitialState = "initial_state"
	EventTypeTick         = "tick"
	EventTypePhaseChanged = "phase_changed"
)

// Stop results carried by RequestStopResponse.Result.
const (
	StopResultIgnored              = "ignored"
	StopResultCancelled            = "cancelled"
	StopResultAwaitingConfirmation = "awaiting_confirmation"
)

// Settings is the timer configuration.
type Settings struct {
	CountdownSeconds       int32   `json:"countdown_seconds"`
	IntervalUnit           int32   `json:"interval_unit"`
	NumIntervals           int32   `json:"num_intervals"`
	WhiteNoiseVolume       float64 `json:"white_noise_volume"`
	Debug                  bool    `json:"debug"`
	IntervalSeconds        int32   `json:"interval_seconds"`
	TotalMeditationSeconds int32   `json:"total_meditation_seconds"`
}

// TimerState is a snapshot of the running timer.
type TimerState struct {
	Phase              string    `json:"phase"`
	Paused             bool      `json:"paused"`
	SecondsRemaining   int32     `json:"seconds_remaining"`
	IntervalsCompleted int32     `json:"intervals_completed"`
	SessionDate        string    `json:"session_date,omitempty"`
	SessionStartTime   string    `json:"session_start_time,omitempty"`
	Settings           *Settings `json:"settings,omitempty"`
}

// Event is one entry of the SubscribeEvents stream.
type Event struct {
	Type               string `json:"type"`
	SequenceNo         uint64 `json:"seq"`
	Phase              string `json:"phase"`
	Paused             bool   `json:"paused"`
	SecondsRemaining   int32  `json:"seconds_remaining"`
	IntervalsCompleted int32  `json:"intervals_completed"`
	SessionDate        string `json:"session_date,omitempty"`
	SessionStartTime   string `json:"session_start_time,omitempty"`
}

// Session is one stored meditation.
type Session struct {
	Id                int64  `json:"id"`
	Date              string `json:"date"`
	StartTime         string `json:"start_time"`
	ElapsedSeconds    int32  `json:"elapsed_seconds"`
	FormattedDuration string `json:"formatted_duration"`
}

type StartRequest struct{}

type StartResponse struct {
	Started bool        `json:"started"`
	State   *TimerState `json:"state"`
}

type RequestStopRequest struct{}

type RequestStopResponse struct {
	Result string      `json:"result"`
	State  *TimerState `json:"state"`
}

type ConfirmStopRequest struct {
	KeepSession bool `json:"keep_session"`
}

type ConfirmStopResponse struct {
	State *TimerState `json:"state"`
}

type DismissStopDialogRequest struct{}

type DismissStopDialogResponse struct {
	State *TimerState `json:"state"`
}

// UpdateSettingsRequest changes only the fields that are set. Everything
// but the volume is ignored while a run is in progress.
type UpdateSettingsRequest struct {
	CountdownSeconds *int32   `json:"countdown_seconds,omitempty"`
	IntervalUnit     *int32   `json:"interval_unit,omitempty"`
	NumIntervals     *int32   `json:"num_intervals,omitempty"`
	WhiteNoiseVolume *float64 `json:"white_noise_volume,omitempty"`
	Debug            *bool    `json:"debug,omitempty"`
}

type UpdateSettingsResponse struct {
	Settings *Settings `json:"settings"`
}

type GetStateRequest struct{}

type GetStateResponse struct {
	State *TimerState `json:"state"`
}

type ListSessionsRequest struct{}

type ListSessionsResponse struct {
	Sessions     []*Session `json:"sessions"`
	Count        int32      `json:"count"`
	TotalSeconds int64      `json:"total_seconds"`
}

type DeleteSessionRequest struct {
	Id int64 `json:"id"`
}

type DeleteSessionResponse struct{}

type ClearAllSessionsRequest struct{}

type ClearAllSessionsResponse struct{}

type ExportCsvRequest struct{}

type ExportCsvResponse struct {
	Csv string `json:"csv"`
}

type SubscribeEventsRequest struct{}

type WatchSessionsRequest struct{}
