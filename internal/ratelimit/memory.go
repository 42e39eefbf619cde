package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	count     int
	expiresAt time.Time
	timer     *time.Timer
}

// MemoryStore keeps windows in a map. Each window schedules its own eviction.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memEntry
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memEntry)}
}

func (s *MemoryStore) Hit(_ context.Context, key string, limit int, window time.Duration) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, ok := s.entries[key]
	// an expired entry whose timer has not fired yet is treated as gone
	if !ok || !now.Before(e.expiresAt) {
		if ok {
			e.timer.Stop()
		}
		e = &memEntry{count: 1, expiresAt: now.Add(window)}
		e.timer = time.AfterFunc(window, func() { s.evict(key, e) })
		s.entries[key] = e
		return Window{Count: 1, Allowed: limit >= 1, TTL: window}, nil
	}

	ttl := e.expiresAt.Sub(now)
	if e.count >= limit {
		return Window{Count: e.count, Allowed: false, TTL: ttl}, nil
	}
	e.count++
	return Window{Count: e.count, Allowed: true, TTL: ttl}, nil
}

func (s *MemoryStore) evict(key string, e *memEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[key] == e {
		delete(s.entries, key)
	}
}

// Len returns the number of live windows
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops all pending eviction timers and drops every window
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.timer.Stop()
	}
	s.entries = make(map[string]*memEntry)
	return nil
}
