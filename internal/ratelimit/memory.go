package ratelimit

import (
	"sync"
	"time"
)

type record struct {
	count   int
	resetAt time.Time
}

// memoryStore is the in-process backing. Behaviorally equivalent to
// the Redis path for a single process: a window starts at the first
// request and the record is replaced, not incremented, once it lapses.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]*record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]*record)}
}

func (s *memoryStore) check(identity string, limit int, window time.Duration) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	rec, ok := s.records[identity]
	if !ok || now.After(rec.resetAt) {
		rec = &record{count: 0, resetAt: now.Add(window)}
		s.records[identity] = rec
	}

	if rec.count >= limit {
		return Result{Allowed: false, Limit: limit, Remaining: 0, ResetAt: rec.resetAt.UnixMilli()}
	}

	rec.count++
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - rec.count,
		ResetAt:   rec.resetAt.UnixMilli(),
	}
}
