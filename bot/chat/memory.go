package chat

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// MemoryStorage keeps sessions in process memory. Loaded sessions are copies,
// so callers observe the same load-modify-save contract as with a database.
type MemoryStorage struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{sessions: make(map[string]*Session)}
}

func (ms *MemoryStorage) Load(_ context.Context, phone string) (*Session, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	s, ok := ms.sessions[phone]
	if !ok {
		return nil, nil
	}
	return s.clone(), nil
}

func (ms *MemoryStorage) Save(_ context.Context, s *Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.sessions[s.Phone] = s.clone()
	return nil
}

// ListIdle returns active sessions not updated since before, oldest first.
func (ms *MemoryStorage) ListIdle(_ context.Context, before time.Time, exclude ...FlowID) ([]*Session, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []*Session
	for _, s := range ms.sessions {
		if s.Idle() || slices.Contains(exclude, s.FlowType) {
			continue
		}
		if s.UpdatedAt.Before(before) {
			out = append(out, s.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}
