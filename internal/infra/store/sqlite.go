package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"

	"github.com/osa030/medtimer/internal/domain/session"
)

// SQLiteRepository stores sessions in a single SQLite table.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (or creates) the database at dbPath.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	repo := &SQLiteRepository{db: db}
	if err := repo.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *SQLiteRepository) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		elapsed_seconds INTEGER NOT NULL CHECK (elapsed_seconds > 0)
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_date_start ON sessions(date, start_time);
	`

	if _, err := r.db.Exec(schema); err != nil {
		return errors.Wrap(err, "failed to create schema")
	}
	return nil
}

func (r *SQLiteRepository) Append(ctx context.Context, s session.Session) (session.Session, error) {
	if err := s.Validate(); err != nil {
		return session.Session{}, err
	}

	query := `
		INSERT INTO sessions (date, start_time, elapsed_seconds)
		VALUES (?, ?, ?)
	`

	res, err := r.db.ExecContext(ctx, query, s.Date, s.StartTime, s.ElapsedSeconds)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "failed to insert session")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return session.Session{}, errors.Wrap(err, "failed to read session id")
	}
	s.ID = id
	return s, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete session %d", id)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "id=%d", id)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return errors.Wrap(err, "failed to delete sessions")
	}
	return nil
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]session.Session, error) {
	query := `
		SELECT id, date, start_time, elapsed_seconds
		FROM sessions
		ORDER BY date DESC, start_time DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query sessions")
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (r *SQLiteRepository) Stats(ctx context.Context) (session.Stats, error) {
	var stats session.Stats
	var total sql.NullInt64

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(elapsed_seconds) FROM sessions`,
	).Scan(&stats.Count, &total)
	if err != nil {
		return session.Stats{}, errors.Wrap(err, "failed to query stats")
	}

	if total.Valid {
		stats.TotalSeconds = int(total.Int64)
	}
	return stats, nil
}

func scanSessions(rows *sql.Rows) ([]session.Session, error) {
	records := make([]session.Session, 0)

	for rows.Next() {
		var s session.Session
		if err := rows.Scan(&s.ID, &s.Date, &s.StartTime, &s.ElapsedSeconds); err != nil {
			return nil, errors.Wrap(err, "failed to scan session")
		}
		records = append(records, s)
	}

	return records, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
