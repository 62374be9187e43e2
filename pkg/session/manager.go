package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/callflow/internal/logging"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/pathway"
	"github.com/aretw0/callflow/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates call-state access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.CallStateStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager over the given store.
func NewManager(store ports.CallStateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(callID) after unlocking.
func (m *Manager) acquire(callID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[callID]
	if !exists {
		entry = &lockEntry{}
		m.locks[callID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(callID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[callID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, callID)
	}
}

// CurrentNode returns the node a call is at. An unseen call is assigned the
// graph's entry node, which is persisted before returning.
func (m *Manager) CurrentNode(ctx context.Context, callID string, graph *pathway.Graph) (string, error) {
	var node string
	err := m.WithLock(ctx, callID, func(ctx context.Context) error {
		var err error
		node, err = m.currentNode(ctx, callID, graph)
		return err
	})
	return node, err
}

// SetNode overwrites the node of a call. The name is not validated against the graph.
func (m *Manager) SetNode(ctx context.Context, callID, nodeName string) error {
	return m.WithLock(ctx, callID, func(ctx context.Context) error {
		return m.store.Set(ctx, callID, nodeName)
	})
}

// Advance resolves the current node of a call and moves it to the node's first
// destination, if that destination exists. Both steps happen in one critical section.
//
// When the stored node is not part of the graph, Advance returns domain.ErrNodeNotFound
// and leaves the state untouched.
func (m *Manager) Advance(ctx context.Context, callID string, graph *pathway.Graph) (current, next string, advanced bool, err error) {
	err = m.WithLock(ctx, callID, func(ctx context.Context) error {
		var err error
		current, err = m.currentNode(ctx, callID, graph)
		if err != nil {
			return err
		}
		if !graph.Has(current) {
			return fmt.Errorf("%w: %q", domain.ErrNodeNotFound, current)
		}

		next, advanced = graph.Next(current)
		if !advanced {
			return nil
		}
		if err := m.store.Set(ctx, callID, next); err != nil {
			return fmt.Errorf("failed to advance call: %w", err)
		}
		return nil
	})
	if err != nil {
		return current, "", false, err
	}
	return current, next, advanced, nil
}

// Reset forgets a call. The next turn starts over at the entry node.
func (m *Manager) Reset(ctx context.Context, callID string) error {
	return m.WithLock(ctx, callID, func(ctx context.Context) error {
		return m.store.Delete(ctx, callID)
	})
}

// Lookup returns the stored node of a call without initializing it.
func (m *Manager) Lookup(ctx context.Context, callID string) (string, error) {
	return m.store.Get(ctx, callID)
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying call-state store.
func (m *Manager) Store() ports.CallStateStore {
	return m.store
}

func (m *Manager) currentNode(ctx context.Context, callID string, graph *pathway.Graph) (string, error) {
	node, err := m.store.Get(ctx, callID)
	if err == nil && node != "" {
		return node, nil
	}
	if err != nil && !errors.Is(err, domain.ErrCallNotFound) {
		return "", fmt.Errorf("failed to load call state: %w", err)
	}

	node = graph.Start()
	if err := m.store.Set(ctx, callID, node); err != nil {
		return "", fmt.Errorf("failed to initialize call state: %w", err)
	}
	m.logger.Debug("Call initialized", "call_id", callID, "node", node)
	return node, nil
}

// WithLock executes a function while holding the lock for the call.
func (m *Manager) WithLock(ctx context.Context, callID string, fn func(context.Context) error) error {
	entry := m.acquire(callID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(callID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, callID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"call_id", callID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
