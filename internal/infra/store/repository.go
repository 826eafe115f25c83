// Package store persists the session log.
package store

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/medtimer/internal/domain/session"
)

// ErrNotFound is returned when deleting a session that does not exist.
var ErrNotFound = errors.New("session not found")

// Repository is the append-only session log. Sessions are never updated.
type Repository interface {
	Append(ctx context.Context, s session.Session) (session.Session, error)

	Delete(ctx context.Context, id int64) error

	DeleteAll(ctx context.Context) error

	// ListAll returns every session, newest first.
	ListAll(ctx context.Context) ([]session.Session, error)

	Stats(ctx context.Context) (session.Stats, error)

	Close() error
}
