// Package timeout resets conversations abandoned in the middle of a flow.
package timeout

import (
	"context"
	"log/slog"
	"time"

	"Panikkar/bot/chat"
	"Panikkar/internal/lib/sl"
)

// Engine is the part of the flow engine the sweeper drives.
type Engine interface {
	HandleTimeout(ctx context.Context, m chat.Messenger, s *chat.Session) error
	DefaultFlow() chat.FlowID
}

type Sweeper struct {
	storage   chat.SessionStorage
	engine    Engine
	messenger chat.Messenger
	idle      time.Duration
	interval  time.Duration
	now       func() time.Time
	log       *slog.Logger
}

func NewSweeper(storage chat.SessionStorage, engine Engine, messenger chat.Messenger, idle, interval time.Duration, log *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		storage:   storage,
		engine:    engine,
		messenger: messenger,
		idle:      idle,
		interval:  interval,
		now:       time.Now,
		log:       log.With(sl.Module("timeout")),
	}
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("session sweeper started",
		slog.Duration("idle", s.idle),
		slog.Duration("interval", s.interval),
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error("sweep failed", sl.Err(err))
			}
		}
	}
}

// Sweep resets every session idle for longer than the timeout, outside the
// default flow, and returns how many were reset.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.idle)
	var exclude []chat.FlowID
	if def := s.engine.DefaultFlow(); def != "" {
		exclude = append(exclude, def)
	}

	sessions, err := s.storage.ListIdle(ctx, cutoff, exclude...)
	if err != nil {
		return 0, err
	}

	reset := 0
	for _, session := range sessions {
		if ctx.Err() != nil {
			return reset, ctx.Err()
		}
		if err := s.engine.HandleTimeout(ctx, s.messenger, session); err != nil {
			s.log.Warn("session timeout failed",
				slog.String("phone", session.Phone),
				slog.String("flow", string(session.FlowType)),
				sl.Err(err),
			)
			continue
		}
		reset++
	}
	if reset > 0 {
		s.log.Debug("idle sessions reset", slog.Int("count", reset))
	}
	return reset, nil
}
