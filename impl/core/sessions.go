package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"Panikkar/bot/chat"
	"Panikkar/bot/chat/registration"
)

// GetSession returns nil when the phone never wrote to the bot.
func (c *Core) GetSession(ctx context.Context, phone string) (*chat.Session, error) {
	return c.storage.Load(ctx, chat.NormalizePhone(phone))
}

// ResetSession abandons the current run the way a timeout does, without
// messaging the user. It returns nil when there is no session.
func (c *Core) ResetSession(ctx context.Context, phone string) (*chat.Session, error) {
	s, err := c.GetSession(ctx, phone)
	if err != nil || s == nil {
		return s, err
	}
	flow := s.FlowType
	if err := c.engine.HandleTimeout(ctx, nil, s); err != nil {
		return nil, fmt.Errorf("reset session: %w", err)
	}
	c.log.Info("session reset",
		slog.String("phone", s.Phone),
		slog.String("flow", string(flow)),
	)
	return s, nil
}

// IdleSessions lists sessions stuck in a flow for at least the given duration.
func (c *Core) IdleSessions(ctx context.Context, idle time.Duration) ([]*chat.Session, error) {
	var exclude []chat.FlowID
	if def := c.engine.DefaultFlow(); def != "" {
		exclude = append(exclude, def)
	}
	return c.storage.ListIdle(ctx, time.Now().Add(-idle), exclude...)
}

// SessionMedia returns a signed link to the photo uploaded in the current
// registration run, or "" when there is none.
func (c *Core) SessionMedia(ctx context.Context, phone string) (string, error) {
	s, err := c.GetSession(ctx, phone)
	if err != nil || s == nil {
		return "", err
	}
	fileID := s.GetString(registration.KeyPhotoID)
	if fileID == "" {
		return "", nil
	}
	return c.MediaLink(fileID)
}

// HandleResetSession serves reset requests from dashboard websocket clients.
func (c *Core) HandleResetSession(ctx context.Context, username, phone string) error {
	s, err := c.ResetSession(ctx, phone)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("no session for %s", phone)
	}
	c.log.Debug("reset requested from dashboard", slog.String("user", username))
	return nil
}
