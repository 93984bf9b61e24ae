package abuse

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is a process-local CounterStore. It is used when Redis is not
// configured; counters are not shared across instances. Expired entries are
// dropped on read and by a full sweep at most once per sweepEvery.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	now        func() time.Time
	sweepEvery time.Duration
	nextSweep  time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now, sweepEvery: RateWindow}
}

func (s *MemoryStore) Peek(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live(key)
	if !ok {
		return 0, nil
	}
	return entry.count, nil
}

func (s *MemoryStore) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	entry, ok := s.live(key)
	if !ok {
		entry = memoryEntry{}
		if ttl > 0 {
			entry.expiresAt = s.now().Add(ttl)
		}
	}
	entry.count++
	s.entries[key] = entry
	return entry.count, nil
}

// live returns the entry for key, evicting it when expired. Caller holds mu.
func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

// sweep removes every expired entry once the sweep interval has passed.
// Caller holds mu.
func (s *MemoryStore) sweep() {
	now := s.now()
	if now.Before(s.nextSweep) {
		return
	}
	s.nextSweep = now.Add(s.sweepEvery)
	for key, entry := range s.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}
