package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/medtimer/internal/domain/session"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "medtimer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteRepository_AppendAssignsID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.Append(ctx, session.Session{Date: "2026-01-01", StartTime: "07:00:00", ElapsedSeconds: 600})
	require.NoError(t, err)
	second, err := repo.Append(ctx, session.Session{Date: "2026-01-02", StartTime: "07:00:00", ElapsedSeconds: 300})
	require.NoError(t, err)

	assert.NotZero(t, first.ID)
	assert.Greater(t, second.ID, first.ID)
}

func TestSQLiteRepository_AppendRejectsEmptySession(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Append(ctx, session.Session{Date: "2026-01-01", StartTime: "07:00:00", ElapsedSeconds: 0})
	assert.True(t, errors.Is(err, session.ErrEmptySession))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLiteRepository_ListAllNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, s := range []session.Session{
		{Date: "2026-01-02", StartTime: "06:00:00", ElapsedSeconds: 60},
		{Date: "2026-01-03", StartTime: "05:00:00", ElapsedSeconds: 70},
		{Date: "2026-01-02", StartTime: "21:15:00", ElapsedSeconds: 80},
		{Date: "2025-12-31", StartTime: "23:59:59", ElapsedSeconds: 90},
	} {
		_, err := repo.Append(ctx, s)
		require.NoError(t, err)
	}

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)

	got := make([]int, len(all))
	for i, s := range all {
		got[i] = s.ElapsedSeconds
	}
	assert.Equal(t, []int{70, 80, 60, 90}, got)
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	kept, err := repo.Append(ctx, session.Session{Date: "2026-01-01", StartTime: "07:00:00", ElapsedSeconds: 60})
	require.NoError(t, err)
	gone, err := repo.Append(ctx, session.Session{Date: "2026-01-02", StartTime: "07:00:00", ElapsedSeconds: 60})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, gone.ID))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, kept.ID, all[0].ID)

	err = repo.Delete(ctx, gone.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteRepository_DeleteAllAndStats(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Stats{}, stats)

	for _, secs := range []int{60, 120, 1680} {
		_, err := repo.Append(ctx, session.Session{Date: "2026-01-01", StartTime: "07:00:00", ElapsedSeconds: secs})
		require.NoError(t, err)
	}

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Stats{Count: 3, TotalSeconds: 1860}, stats)

	require.NoError(t, repo.DeleteAll(ctx))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
