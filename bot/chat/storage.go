package chat

import (
	"context"
	"time"
)

// SessionRepository defines the database operations for sessions.
type SessionRepository interface {
	SaveSession(ctx context.Context, s *Session) error
	LoadSession(ctx context.Context, phone string) (*Session, error)
	ListIdleSessions(ctx context.Context, before time.Time, exclude []FlowID) ([]*Session, error)
}

// RepositoryStorage adapts a database repository to the SessionStorage interface.
type RepositoryStorage struct {
	repo SessionRepository
}

// NewRepositoryStorage creates a repository-backed session storage.
func NewRepositoryStorage(repo SessionRepository) *RepositoryStorage {
	return &RepositoryStorage{repo: repo}
}

func (r *RepositoryStorage) Save(ctx context.Context, s *Session) error {
	return r.repo.SaveSession(ctx, s)
}

func (r *RepositoryStorage) Load(ctx context.Context, phone string) (*Session, error) {
	return r.repo.LoadSession(ctx, phone)
}

func (r *RepositoryStorage) ListIdle(ctx context.Context, before time.Time, exclude ...FlowID) ([]*Session, error) {
	return r.repo.ListIdleSessions(ctx, before, exclude)
}
