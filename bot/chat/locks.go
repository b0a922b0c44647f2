package chat

import "sync"

// PhoneLocks hands out one mutex per phone so every writer of a session,
// inbound messages and timeouts alike, runs strictly one at a time.
type PhoneLocks struct {
	mu    sync.Mutex
	locks map[string]*phoneLock
}

type phoneLock struct {
	mu   sync.Mutex
	refs int
}

func NewPhoneLocks() *PhoneLocks {
	return &PhoneLocks{locks: make(map[string]*phoneLock)}
}

// Lock blocks until phone is free and returns the matching unlock.
func (l *PhoneLocks) Lock(phone string) func() {
	l.mu.Lock()
	entry, ok := l.locks[phone]
	if !ok {
		entry = &phoneLock{}
		l.locks[phone] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, phone)
		}
		l.mu.Unlock()
	}
}
