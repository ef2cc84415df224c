package store

import (
	"context"
	"sync"
	"time"

	"github.com/mishannn/tinkoff/ports"
)

// MemoryStore is an in-memory implementation of the Store interface
type MemoryStore struct {
	claimed map[string]time.Time
	mu      sync.Mutex
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.Store {
	return &MemoryStore{
		claimed: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Claim reserves a confirmation unless a live claim exists
func (s *MemoryStore) Claim(ctx context.Context, confirmationID string, expiry time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	// Drop expired entries
	for id, until := range s.claimed {
		if now.After(until) {
			delete(s.claimed, id)
		}
	}

	if _, exists := s.claimed[confirmationID]; exists {
		return false, nil
	}

	s.claimed[confirmationID] = now.Add(expiry)
	return true, nil
}

// Release drops the claim on a confirmation
func (s *MemoryStore) Release(ctx context.Context, confirmationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.claimed, confirmationID)
	return nil
}
