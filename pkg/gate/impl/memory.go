package impl

import (
	"context"
	"sync"

	"github.com/textileio/go-autopay/pkg/gate"
)

// MemoryStore keeps the subscription state in memory. The state is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	state gate.SubscriptionState
}

var _ gate.StateStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the current state.
func (s *MemoryStore) Load(_ context.Context) (gate.SubscriptionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}

// Save replaces the current state.
func (s *MemoryStore) Save(_ context.Context, state gate.SubscriptionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}
