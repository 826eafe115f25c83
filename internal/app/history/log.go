// Package history provides the observable session log on top of the store.
package history

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/medtimer/internal/domain/session"
	"github.com/osa030/medtimer/internal/infra/store"
)

// writeTimeout bounds a fire-and-forget write.
const writeTimeout = 10 * time.Second

// Log wraps a store.Repository and republishes the full list after every
// mutation.
type Log struct {
	repo store.Repository

	// mu is held across the list query when publishing, so a watcher never
	// sees an older list after a newer one.
	mu       sync.Mutex
	watchers map[string]chan []session.Session

	wg sync.WaitGroup
}

// NewLog creates a session log backed by repo.
func NewLog(repo store.Repository) *Log {
	return &Log{
		repo:     repo,
		watchers: make(map[string]chan []session.Session),
	}
}

// Append stores s and notifies watchers.
func (l *Log) Append(ctx context.Context, s session.Session) (session.Session, error) {
	stored, err := l.repo.Append(ctx, s)
	if err != nil {
		return session.Session{}, err
	}
	l.publish(ctx)
	return stored, nil
}

// Record appends s in the background. Failures are logged and dropped: the
// caller never waits on persistence.
func (l *Log) Record(s session.Session) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		stored, err := l.Append(ctx, s)
		if err != nil {
			zlog.Error().Err(err).Msgf("history: failed to record session: date=%s start=%s elapsed=%d",
				s.Date, s.StartTime, s.ElapsedSeconds)
			return
		}
		zlog.Info().Msgf("history: recorded session: id=%d elapsed=%s", stored.ID, stored.FormattedDuration())
	}()
}

// Delete removes one session.
func (l *Log) Delete(ctx context.Context, id int64) error {
	if err := l.repo.Delete(ctx, id); err != nil {
		return err
	}
	l.publish(ctx)
	return nil
}

// DeleteAll removes every session.
func (l *Log) DeleteAll(ctx context.Context) error {
	if err := l.repo.DeleteAll(ctx); err != nil {
		return err
	}
	l.publish(ctx)
	return nil
}

// Snapshot returns the point-in-time list, newest first.
func (l *Log) Snapshot(ctx context.Context) ([]session.Session, error) {
	return l.repo.ListAll(ctx)
}

// Stats returns the aggregate count and duration.
func (l *Log) Stats(ctx context.Context) (session.Stats, error) {
	return l.repo.Stats(ctx)
}

// ExportCSV renders the whole log, newest first, one line per session.
func (l *Log) ExportCSV(ctx context.Context) (string, error) {
	sessions, err := l.repo.ListAll(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to list sessions for export")
	}
	return FormatCSV(sessions), nil
}

// FormatCSV renders sessions in export format.
func FormatCSV(sessions []session.Session) string {
	var sb strings.Builder
	sb.WriteString(session.CSVHeader)
	sb.WriteByte('\n')
	for _, s := range sessions {
		sb.WriteString(s.CSVRow())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Watch delivers the current list immediately and a fresh list after each
// mutation until ctx is done. A slow reader only ever sees the latest list.
func (l *Log) Watch(ctx context.Context) (<-chan []session.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	initial, err := l.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan []session.Session, 1)
	ch <- initial

	id := uuid.New().String()
	l.watchers[id] = ch

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		delete(l.watchers, id)
		close(ch)
		l.mu.Unlock()
	}()

	return ch, nil
}

// Wait blocks until pending background writes finish.
func (l *Log) Wait() {
	l.wg.Wait()
}

func (l *Log) publish(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.watchers) == 0 {
		return
	}

	sessions, err := l.repo.ListAll(ctx)
	if err != nil {
		zlog.Warn().Err(err).Msg("history: failed to refresh watchers")
		return
	}

	for _, ch := range l.watchers {
		// Replace a stale unread list with the new one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- sessions:
		default:
		}
	}
}
