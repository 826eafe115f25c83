// Package session provides the completed meditation Session entity.
package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ISO layouts used for storage and export.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// CSVHeader is the first line of an export.
const CSVHeader = "date,start_time,elapsed_seconds"

// ErrEmptySession is returned for sessions that lasted zero seconds or less.
var ErrEmptySession = errors.New("session has no elapsed time")

// Session is one completed (or kept) meditation run. Immutable once stored.
type Session struct {
	ID             int64  // Assigned by the store
	Date           string // YYYY-MM-DD
	StartTime      string // HH:MM:SS
	ElapsedSeconds int
}

// New builds a session that started at start and lasted elapsedSeconds.
func New(start time.Time, elapsedSeconds int) Session {
	return Session{
		Date:           start.Format(DateLayout),
		StartTime:      start.Format(TimeLayout),
		ElapsedSeconds: elapsedSeconds,
	}
}

// Validate enforces the persisted-session invariants.
func (s Session) Validate() error {
	if s.ElapsedSeconds <= 0 {
		return errors.Wrapf(ErrEmptySession, "elapsed_seconds=%d", s.ElapsedSeconds)
	}
	if _, err := time.Parse(DateLayout, s.Date); err != nil {
		return errors.Wrapf(err, "invalid date %q", s.Date)
	}
	if _, err := time.Parse(TimeLayout, s.StartTime); err != nil {
		return errors.Wrapf(err, "invalid start time %q", s.StartTime)
	}
	return nil
}

// CSVRow renders the session as one export line, without newline.
func (s Session) CSVRow() string {
	return strings.Join([]string{s.Date, s.StartTime, strconv.Itoa(s.ElapsedSeconds)}, ",")
}

// FormattedDuration renders the duration as "7m 3s", or "42s" under a minute.
func (s Session) FormattedDuration() string {
	minutes := s.ElapsedSeconds / 60
	seconds := s.ElapsedSeconds % 60
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// FormattedDate renders the date as "Jan 2, 2006", falling back to the raw value.
func (s Session) FormattedDate() string {
	d, err := time.Parse(DateLayout, s.Date)
	if err != nil {
		return s.Date
	}
	return d.Format("Jan 2, 2006")
}

// FormattedStartTime renders the start time as "3:04 PM", falling back to the raw value.
func (s Session) FormattedStartTime() string {
	t, err := time.Parse(TimeLayout, s.StartTime)
	if err != nil {
		return s.StartTime
	}
	return t.Format("3:04 PM")
}

// Stats aggregates the whole session log.
type Stats struct {
	Count        int
	TotalSeconds int
}

// Summarize computes Stats over sessions.
func Summarize(sessions []Session) Stats {
	stats := Stats{Count: len(sessions)}
	for _, s := range sessions {
		stats.TotalSeconds += s.ElapsedSeconds
	}
	return stats
}
