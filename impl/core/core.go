package core

import (
	"context"
	"io"
	"log/slog"
	"time"

	"Panikkar/bot/chat"
	"Panikkar/internal/lib/sl"
)

type Repository interface {
	CheckApiKey(key string) (string, error)
	GenerateApiKey(username string) (string, error)
}

// Engine is the part of the flow engine used by admin operations.
type Engine interface {
	HandleTimeout(ctx context.Context, m chat.Messenger, s *chat.Session) error
	DefaultFlow() chat.FlowID
}

type MediaService interface {
	Open(fileID string) (string, string, io.ReadCloser, error)
}

type Core struct {
	repo        Repository
	storage     chat.SessionStorage
	engine      Engine
	media       MediaService
	authKey     string
	mediaSecret string
	mediaTTL    time.Duration
	log         *slog.Logger
}

func New(storage chat.SessionStorage, engine Engine, log *slog.Logger) *Core {
	return &Core{
		storage:  storage,
		engine:   engine,
		mediaTTL: 15 * time.Minute,
		log:      log.With(sl.Module("core")),
	}
}

func (c *Core) SetRepository(repo Repository) {
	c.repo = repo
}

func (c *Core) SetAuthKey(key string) {
	c.authKey = key
}

func (c *Core) SetMediaService(media MediaService) {
	c.media = media
}

// SetMediaSigning configures signed media links. An empty secret disables them.
func (c *Core) SetMediaSigning(secret string, ttl time.Duration) {
	c.mediaSecret = secret
	if ttl > 0 {
		c.mediaTTL = ttl
	}
}
