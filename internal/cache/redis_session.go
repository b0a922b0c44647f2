// Package cache keeps conversation sessions in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"Panikkar/bot/chat"
)

const activeSessionsKey = "sessions:active"

// DefaultSessionTTL bounds how long an untouched session survives in Redis.
const DefaultSessionTTL = 30 * 24 * time.Hour

// RedisSessionStorage stores each session as JSON under session:<phone> and
// indexes sessions that are inside a flow by last update time.
type RedisSessionStorage struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisSessionStorage(client *redis.Client, ttl time.Duration) *RedisSessionStorage {
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	return &RedisSessionStorage{redis: client, ttl: ttl}
}

func sessionKey(phone string) string {
	return fmt.Sprintf("session:%s", phone)
}

func (r *RedisSessionStorage) Save(ctx context.Context, s *chat.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("cache: failed to marshal session: %w", err)
	}

	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(s.Phone), data, r.ttl)
		if s.Idle() {
			pipe.ZRem(ctx, activeSessionsKey, s.Phone)
		} else {
			pipe.ZAdd(ctx, activeSessionsKey, redis.Z{Score: float64(s.UpdatedAt.Unix()), Member: s.Phone})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache: failed to persist session: %w", err)
	}
	return nil
}

func (r *RedisSessionStorage) Load(ctx context.Context, phone string) (*chat.Session, error) {
	data, err := r.redis.Get(ctx, sessionKey(phone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: failed to load session: %w", err)
	}

	var s chat.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("cache: failed to decode session: %w", err)
	}
	if s.TempData == nil {
		s.TempData = make(map[string]any)
	}
	return &s, nil
}

func (r *RedisSessionStorage) ListIdle(ctx context.Context, before time.Time, exclude ...chat.FlowID) ([]*chat.Session, error) {
	phones, err := r.redis.ZRangeByScore(ctx, activeSessionsKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: failed to list active sessions: %w", err)
	}

	var sessions []*chat.Session
	for _, phone := range phones {
		s, err := r.Load(ctx, phone)
		if err != nil {
			return nil, err
		}
		if s == nil || s.Idle() {
			// expired or reset elsewhere
			r.redis.ZRem(ctx, activeSessionsKey, phone)
			continue
		}
		if slices.Contains(exclude, s.FlowType) {
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}
