package whatsapp

import "sync"

// recentIDs remembers the last few message ids; WhatsApp redelivers a webhook
// when the acknowledgement is slow.
type recentIDs struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	order []string
	max   int
}

func newRecentIDs(max int) *recentIDs {
	return &recentIDs{ids: make(map[string]struct{}, max), max: max}
}

// add reports false if id was already seen.
func (r *recentIDs) add(id string) bool {
	if id == "" {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[id]; ok {
		return false
	}
	if len(r.order) >= r.max {
		delete(r.ids, r.order[0])
		r.order = r.order[1:]
	}
	r.ids[id] = struct{}{}
	r.order = append(r.order, id)
	return true
}
