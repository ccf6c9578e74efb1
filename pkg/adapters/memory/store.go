package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/voyage/pkg/domain"
)

// Store keeps conversations in a map guarded by a RWMutex.
// States are cloned on the way in and on the way out, so callers never share
// message slices with the store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.State
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*domain.State)}
}

func (s *Store) Save(ctx context.Context, sessionID string, state *domain.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := state.Clone()

	s.mu.Lock()
	s.sessions[sessionID] = snapshot
	s.mu.Unlock()
	return nil
}

func (s *Store) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	state, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state.Clone(), nil
}

func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// List returns the stored session ids in lexical order.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.sessions)), nil
}
