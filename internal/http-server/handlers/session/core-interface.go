package session

import (
	"context"
	"time"

	"Panikkar/bot/chat"
)

type Core interface {
	GetSession(ctx context.Context, phone string) (*chat.Session, error)
	ResetSession(ctx context.Context, phone string) (*chat.Session, error)
	IdleSessions(ctx context.Context, idle time.Duration) ([]*chat.Session, error)
	SessionMedia(ctx context.Context, phone string) (string, error)
}
