// Package cache provides the verification result cache and a persistent
// embedding cache that cuts repeat provider calls.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/engagekit/verity/internal/domain"
	"github.com/engagekit/verity/internal/ports"
)

// memoryEntry pairs a cached result with its expiry.
type memoryEntry struct {
	result    *domain.VerificationResult
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is an in-process implementation of ports.CacheStore.
// Entries are write-once: a Set on a key holding an unexpired entry is a
// no-op, so concurrent verifications of the same input race benignly.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty result cache.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Get retrieves a cached result. Expired entries are removed on access.
func (s *MemoryStore) Get(_ context.Context, key string) (*domain.VerificationResult, bool, error) {
	now := time.Now()

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if entry.expired(now) {
		s.mu.Lock()
		// Re-check under the write lock; another writer may have
		// replaced the expired entry already.
		if current, ok := s.entries[key]; ok && current.expired(now) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.result, true, nil
}

// Set stores a result unless the key already holds an unexpired entry.
// A zero TTL means the entry never expires.
func (s *MemoryStore) Set(_ context.Context, key string, result *domain.VerificationResult, ttl time.Duration) error {
	now := time.Now()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.entries[key]; ok && !current.expired(now) {
		return nil
	}
	s.entries[key] = memoryEntry{result: result, expiresAt: expiresAt}
	return nil
}

// Delete removes an entry. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Sweep drops all expired entries and reports how many were removed.
// Callers that care about memory can run it on a timer; Get already
// drops expired entries lazily.
func (s *MemoryStore) Sweep() int {
	now := time.Now()
	removed := 0

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries currently held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ ports.CacheStore = (*MemoryStore)(nil)
