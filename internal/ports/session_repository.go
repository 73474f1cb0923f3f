package ports

import (
	"context"

	"washbay/internal/domain"
)

// SessionReader reads session data
type SessionReader interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	ListSessions(ctx context.Context, filter domain.SessionFilter) ([]domain.Session, error)
	// ListQueue returns in_queue sessions in FIFO order (created_at, then id).
	ListQueue(ctx context.Context) ([]domain.Session, error)
}

// SessionWriter persists sessions. UpdateSession is a compare-and-swap on
// Version: it fails with domain.ErrConflict when the stored row has moved on,
// and increments s.Version on success.
type SessionWriter interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	UpdateSession(ctx context.Context, s *domain.Session) error
}

// SessionRepository is the composite interface
type SessionRepository interface {
	SessionReader
	SessionWriter
}
