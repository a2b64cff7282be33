package memory

import (
	"context"
	"sync"

	"yarikuri/internal/core"
)

// Store is an in-memory ledger mirror used in tests and local runs
// without Google credentials.
type Store struct {
	mu      sync.Mutex
	events  []core.MonetaryEvent
	mirrors int
}

func New() *Store {
	return &Store{}
}

// MirrorEvents replaces the stored copy of the ledger.
func (s *Store) MirrorEvents(_ context.Context, events []core.MonetaryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append([]core.MonetaryEvent(nil), events...)
	s.mirrors++
	return nil
}

// Events returns the last mirrored ledger.
func (s *Store) Events() []core.MonetaryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.MonetaryEvent(nil), s.events...)
}

// MirrorCount returns how many times the mirror was overwritten.
func (s *Store) MirrorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirrors
}
