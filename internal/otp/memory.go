package otp

import (
	"context"
	"sync"
	"time"

	"github.com/arthive/arthive/internal/models"
)

type memoryEntry struct {
	pending   models.PendingAuth
	expiresAt time.Time
}

// MemoryStore is an in-process SessionStore for tests and single-node dev
// setups. State does not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Put stores or overwrites the pending entry for an email.
func (s *MemoryStore) Put(ctx context.Context, email string, pending *models.PendingAuth, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[email] = memoryEntry{pending: *pending, expiresAt: s.now().Add(ttl)}
	return nil
}

// Get returns a copy of the pending entry, or ErrNoSession when absent or
// expired. Expired entries are removed lazily.
func (s *MemoryStore) Get(ctx context.Context, email string) (*models.PendingAuth, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[email]
	if !ok {
		return nil, ErrNoSession
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, email)
		return nil, ErrNoSession
	}

	pending := entry.pending
	return &pending, nil
}

// Delete removes the pending entry. Absent entries are ignored.
func (s *MemoryStore) Delete(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, email)
	return nil
}
