package file

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/callflow/pkg/domain"
)

// DefaultCallStateFile is the document name used inside a data directory.
const DefaultCallStateFile = "call_states.json"

// Store implements ports.CallStateStore as a single JSON document
// mapping call id to node name. Every write rewrites the document atomically.
type Store struct {
	path string

	mu     sync.RWMutex
	states map[string]string
}

// Open loads the call-state document at path, creating an empty one if absent.
// A document that exists but cannot be decoded yields domain.ErrStorageCorruption;
// the file is left untouched.
func Open(path string) (*Store, error) {
	if path == "" {
		path = filepath.Join(".callflow", DefaultCallStateFile)
	}
	s := &Store{path: path, states: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read call states: %w", err)
		}
		if err := s.flush(s.states); err != nil {
			return nil, err
		}
		return s, nil
	}

	if err := json.Unmarshal(data, &s.states); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrStorageCorruption, path, err)
	}
	if s.states == nil {
		return nil, fmt.Errorf("%w: %s: expected a JSON object", domain.ErrStorageCorruption, path)
	}
	return s, nil
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Get retrieves the node of a call.
func (s *Store) Get(ctx context.Context, callID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.states[callID]
	if !ok {
		return "", domain.ErrCallNotFound
	}
	return node, nil
}

// Set stores the node of a call and persists the document.
func (s *Store) Set(ctx context.Context, callID, nodeName string) error {
	if callID == "" {
		return fmt.Errorf("callID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.states)
	next[callID] = nodeName
	if err := s.flush(next); err != nil {
		return err
	}
	s.states = next
	return nil
}

// Delete removes a call and persists the document.
func (s *Store) Delete(ctx context.Context, callID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.states[callID]; !ok {
		return nil
	}
	next := maps.Clone(s.states)
	delete(next, callID)
	if err := s.flush(next); err != nil {
		return err
	}
	s.states = next
	return nil
}

// List returns all known calls.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	calls := make([]string, 0, len(s.states))
	for id := range s.states {
		calls = append(calls, id)
	}
	return calls, nil
}

// Snapshot returns a copy of the whole mapping.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.states)
}

func (s *Store) flush(states map[string]string) error {
	data, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("failed to marshal call states: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to persist call states: %w", err)
	}
	return nil
}
