package memory

import (
	"context"
	"sync"

	"github.com/aretw0/callflow/pkg/domain"
)

// ConfigRepository implements ports.ConfigRepository in memory.
type ConfigRepository struct {
	mu  sync.RWMutex
	cfg domain.AssistantConfig
}

// NewConfigRepository creates a repository seeded with cfg.
func NewConfigRepository(cfg domain.AssistantConfig) *ConfigRepository {
	return &ConfigRepository{cfg: cfg.Clone()}
}

// Load returns a copy of the stored configuration.
func (r *ConfigRepository) Load(ctx context.Context) (domain.AssistantConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg.Clone(), nil
}

// Save replaces the stored configuration.
func (r *ConfigRepository) Save(ctx context.Context, cfg domain.AssistantConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg.Clone()
	return nil
}
