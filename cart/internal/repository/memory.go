package repository

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value    []byte
	deadline time.Time
}

// MemoryStore keeps values in process with per-key deadlines. Updates hold the
// lock for their whole duration so they never conflict.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now, entries: map[string]memoryEntry{}}
}

func (s *MemoryStore) get(key string) ([]byte, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.deadline.IsZero() && !s.now().Before(entry.deadline) {
		delete(s.entries, key)
		return nil, false
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true
}

func (s *MemoryStore) set(key string, value []byte, ttl time.Duration) {
	entry := memoryEntry{value: make([]byte, len(value))}
	copy(entry.value, value)
	if ttl > 0 {
		entry.deadline = s.now().Add(ttl)
	}
	s.entries[key] = entry
}

func (s *MemoryStore) Get(c context.Context, key string) ([]byte, error) {
	if err := c.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.get(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	return value, nil
}

func (s *MemoryStore) Set(c context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(key, value, ttl)
	return nil
}

func (s *MemoryStore) Del(c context.Context, key string) error {
	if err := c.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Update(c context.Context, key string, ttl time.Duration, fn UpdateFunc) error {
	if err := c.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, found := s.get(key)
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	s.set(key, next, ttl)
	return nil
}

func (s *MemoryStore) Ping(c context.Context) error {
	return c.Err()
}

// TTL returns the remaining lifetime of key, or zero when it is absent or has
// no deadline.
func (s *MemoryStore) TTL(key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok || entry.deadline.IsZero() {
		return 0
	}
	return entry.deadline.Sub(s.now())
}
