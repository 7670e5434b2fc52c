package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store is a fixed-window counter keyed by an arbitrary string. Incr
// atomically bumps the counter for the current window and returns the
// new count; a fresh window starts at 1. Implementations must make the
// check-and-increment atomic with respect to concurrent callers so a
// race can never admit more hits than the configured limit.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type memoryCounter struct {
	count      int64
	windowFrom time.Time
}

// MemoryStore is the process-local default. Counters are not persisted
// across restarts; that is acceptable for a single instance.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[string]*memoryCounter
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counts: make(map[string]*memoryCounter),
		now:    time.Now,
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counts[key]
	if !ok || now.Sub(c.windowFrom) >= window {
		s.counts[key] = &memoryCounter{count: 1, windowFrom: now}
		return 1, nil
	}
	c.count++
	return c.count, nil
}

// Sweep drops counters whose window started more than maxAge ago.
// Called periodically by the jobs package to keep the map bounded.
func (s *MemoryStore) Sweep(maxAge time.Duration) int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, c := range s.counts {
		if now.Sub(c.windowFrom) > maxAge {
			delete(s.counts, key)
			removed++
		}
	}
	return removed
}
