package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/callflow/pkg/domain"
)

// nopStore accepts every write and never finds a call.
type nopStore struct{}

func (nopStore) Get(ctx context.Context, callID string) (string, error) {
	return "", domain.ErrCallNotFound
}
func (nopStore) Set(ctx context.Context, callID, nodeName string) error { return nil }
func (nopStore) Delete(ctx context.Context, callID string) error        { return nil }
func (nopStore) List(ctx context.Context) ([]string, error)             { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		cid := fmt.Sprintf("call-%d", i)
		_ = mgr.SetNode(ctx, cid, "start")
		_ = mgr.Reset(ctx, cid)
	}

	lockCount := len(mgr.locks)
	t.Logf("Calls Created: %d, Locks Leaked: %d", count, lockCount)

	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Reset", lockCount)
	}
}
