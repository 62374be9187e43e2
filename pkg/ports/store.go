package ports

import (
	"context"

	"github.com/aretw0/callflow/pkg/domain"
)

// CallStateStore persists the current pathway node of each call.
type CallStateStore interface {
	// Get returns the stored node name for a call.
	// Returns domain.ErrCallNotFound if the call has no entry.
	Get(ctx context.Context, callID string) (string, error)

	// Set overwrites the node name for a call.
	Set(ctx context.Context, callID, nodeName string) error

	// Delete removes the entry for a call. Deleting a missing call is not an error.
	Delete(ctx context.Context, callID string) error

	// List returns all known call identifiers.
	List(ctx context.Context) ([]string, error)
}

// ConfigRepository persists the assistant configuration document.
type ConfigRepository interface {
	// Load returns the stored configuration, or domain.ErrStorageCorruption
	// (wrapped) if the stored document cannot be decoded.
	Load(ctx context.Context) (domain.AssistantConfig, error)

	// Save replaces the stored configuration.
	Save(ctx context.Context, cfg domain.AssistantConfig) error
}
