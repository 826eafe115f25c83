package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/medtimer/internal/domain/session"
	"github.com/osa030/medtimer/internal/infra/store"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	repo, err := store.NewSQLiteRepository(filepath.Join(t.TempDir(), "medtimer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return NewLog(repo)
}

func TestLog_ExportCSV(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()

	_, err := log.Append(ctx, session.Session{Date: "2026-02-01", StartTime: "06:30:00", ElapsedSeconds: 1680})
	require.NoError(t, err)
	_, err = log.Append(ctx, session.Session{Date: "2026-02-02", StartTime: "07:00:05", ElapsedSeconds: 95})
	require.NoError(t, err)

	csv, err := log.ExportCSV(ctx)
	require.NoError(t, err)

	assert.Equal(t,
		"date,start_time,elapsed_seconds\n"+
			"2026-02-02,07:00:05,95\n"+
			"2026-02-01,06:30:00,1680\n",
		csv)
}

func TestLog_ExportCSVEmpty(t *testing.T) {
	log := newTestLog(t)

	csv, err := log.ExportCSV(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "date,start_time,elapsed_seconds\n", csv)
}

func TestLog_WatchDeliversListAfterEachMutation(t *testing.T) {
	log := newTestLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := log.Watch(ctx)
	require.NoError(t, err)

	assert.Empty(t, receive(t, ch))

	stored, err := log.Append(ctx, session.Session{Date: "2026-02-01", StartTime: "06:30:00", ElapsedSeconds: 60})
	require.NoError(t, err)
	list := receive(t, ch)
	require.Len(t, list, 1)
	assert.Equal(t, stored.ID, list[0].ID)

	require.NoError(t, log.Delete(ctx, stored.ID))
	assert.Empty(t, receive(t, ch))

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-ch
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestLog_RecordIsFireAndForget(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()

	log.Record(session.Session{Date: "2026-02-01", StartTime: "06:30:00", ElapsedSeconds: 60})
	log.Record(session.Session{Date: "2026-02-01", StartTime: "06:40:00", ElapsedSeconds: 0})
	log.Wait()

	all, err := log.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 60, all[0].ElapsedSeconds)

	stats, err := log.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Stats{Count: 1, TotalSeconds: 60}, stats)
}

type failingRepo struct {
	store.Repository
}

func (failingRepo) Append(context.Context, session.Session) (session.Session, error) {
	return session.Session{}, errors.New("disk full")
}

func TestLog_RecordSwallowsStoreFailure(t *testing.T) {
	log := NewLog(failingRepo{})

	assert.NotPanics(t, func() {
		log.Record(session.Session{Date: "2026-02-01", StartTime: "06:30:00", ElapsedSeconds: 60})
		log.Wait()
	})
}

func receive(t *testing.T, ch <-chan []session.Session) []session.Session {
	t.Helper()
	select {
	case list := <-ch:
		return list
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for history update")
		return nil
	}
}
