package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	medtimerv1 "github.com/osa030/medtimer/internal/api/medtimerv1"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   int32
		want string
	}{
		{0, "0:00"},
		{9, "0:09"},
		{420, "7:00"},
		{1680, "28:00"},
		{3725, "1:02:05"},
		{-5, "0:00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatClock(tt.in))
	}
}

func TestRenderSessions(t *testing.T) {
	out := renderSessions(&medtimerv1.ListSessionsResponse{
		Sessions: []*medtimerv1.Session{
			{Id: 12, Date: "2026-03-02", StartTime: "06:30:10", ElapsedSeconds: 1680, FormattedDuration: "28m 0s"},
			{Id: 3, Date: "2026-03-01", StartTime: "21:05:00", ElapsedSeconds: 42, FormattedDuration: "42s"},
		},
		Count:        2,
		TotalSeconds: 1722,
	})

	lines := strings.Split(out, "\n")
	assert.Contains(t, lines[0], "DURATION")
	assert.Contains(t, lines[1], "2026-03-02")
	assert.Contains(t, lines[1], "28m 0s")
	assert.Contains(t, lines[2], "42s")
	assert.Contains(t, out, "2 sessions, 28:42 in total")
}

func TestRenderSessions_Empty(t *testing.T) {
	assert.Contains(t, renderSessions(&medtimerv1.ListSessionsResponse{}), "No sessions yet.")
}

func TestRenderState(t *testing.T) {
	out := renderState(&medtimerv1.TimerState{
		Phase:              "meditating",
		Paused:             true,
		SecondsRemaining:   1580,
		IntervalsCompleted: 0,
		SessionDate:        "2026-03-01",
		SessionStartTime:   "06:30:10",
		Settings:           &medtimerv1.Settings{NumIntervals: 4},
	})

	assert.Contains(t, out, "meditating (paused)")
	assert.Contains(t, out, "26:20")
	assert.Contains(t, out, "0/4")
	assert.Contains(t, out, "2026-03-01 06:30:10")

	idle := renderState(&medtimerv1.TimerState{Phase: "idle"})
	assert.NotContains(t, idle, "remaining")
}
