package lockout

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

type memoryEntry struct {
	record    Record
	expiresAt time.Time
}

// MemoryStore keeps records in process memory. State is lost on restart and
// is not shared between instances.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, key string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveLocked(key), nil
}

func (s *MemoryStore) Update(_ context.Context, key string, ttl time.Duration, fn func(Record) Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := fn(s.liveLocked(key))
	s.entries[key] = memoryEntry{record: next, expiresAt: s.now().Add(ttl)}
	return next, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) liveLocked(key string) Record {
	e, ok := s.entries[key]
	if !ok {
		return Record{}
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return Record{}
	}
	return e.record
}
