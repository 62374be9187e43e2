package memory

import (
	"context"
	"sync"

	"github.com/aretw0/callflow/pkg/domain"
)

// Store implements ports.CallStateStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]string
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]string),
	}
}

// Get retrieves the node of a call.
func (s *Store) Get(ctx context.Context, callID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.data[callID]
	if !ok {
		return "", domain.ErrCallNotFound
	}
	return node, nil
}

// Set stores the node of a call.
func (s *Store) Set(ctx context.Context, callID, nodeName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[callID] = nodeName
	return nil
}

// Delete removes a call.
func (s *Store) Delete(ctx context.Context, callID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, callID)
	return nil
}

// List returns known calls.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	calls := make([]string, 0, len(s.data))
	for id := range s.data {
		calls = append(calls, id)
	}
	return calls, nil
}
