package session

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	start := time.Date(2026, 3, 14, 6, 5, 9, 123, time.Local)

	s := New(start, 1680)

	assert.Equal(t, "2026-03-14", s.Date)
	assert.Equal(t, "06:05:09", s.StartTime)
	assert.Equal(t, 1680, s.ElapsedSeconds)
	assert.Zero(t, s.ID)
}

func TestSession_Validate(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		wantErr error
		invalid bool
	}{
		{
			name:    "valid",
			session: Session{Date: "2026-03-14", StartTime: "06:05:09", ElapsedSeconds: 1},
		},
		{
			name:    "zero elapsed",
			session: Session{Date: "2026-03-14", StartTime: "06:05:09", ElapsedSeconds: 0},
			wantErr: ErrEmptySession,
			invalid: true,
		},
		{
			name:    "negative elapsed",
			session: Session{Date: "2026-03-14", StartTime: "06:05:09", ElapsedSeconds: -4},
			wantErr: ErrEmptySession,
			invalid: true,
		},
		{
			name:    "bad date",
			session: Session{Date: "14/03/2026", StartTime: "06:05:09", ElapsedSeconds: 60},
			invalid: true,
		},
		{
			name:    "bad time",
			session: Session{Date: "2026-03-14", StartTime: "6am", ElapsedSeconds: 60},
			invalid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.session.Validate()
			if !tt.invalid {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			}
		})
	}
}

func TestSession_CSVRow(t *testing.T) {
	s := Session{ID: 9, Date: "2026-03-14", StartTime: "06:05:09", ElapsedSeconds: 1680}

	assert.Equal(t, "2026-03-14,06:05:09,1680", s.CSVRow())
	assert.Equal(t, "date,start_time,elapsed_seconds", CSVHeader)
}

func TestSession_Formatting(t *testing.T) {
	s := Session{Date: "2026-03-14", StartTime: "18:30:00", ElapsedSeconds: 423}

	assert.Equal(t, "7m 3s", s.FormattedDuration())
	assert.Equal(t, "Mar 14, 2026", s.FormattedDate())
	assert.Equal(t, "6:30 PM", s.FormattedStartTime())

	assert.Equal(t, "42s", Session{ElapsedSeconds: 42}.FormattedDuration())
	assert.Equal(t, "garbage", Session{Date: "garbage"}.FormattedDate())
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Stats{}, Summarize(nil))
	assert.Equal(t, Stats{Count: 2, TotalSeconds: 462}, Summarize([]Session{
		{ElapsedSeconds: 420},
		{ElapsedSeconds: 42},
	}))
}
