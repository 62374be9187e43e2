package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/callflow/pkg/domain"
)

// DefaultConfigFile is the document name used inside a data directory.
const DefaultConfigFile = "assistant_config.json"

// ConfigRepository implements ports.ConfigRepository on a JSON file.
type ConfigRepository struct {
	path string
}

// OpenConfig returns a repository at path, writing the default configuration if absent.
func OpenConfig(path string) (*ConfigRepository, error) {
	r := &ConfigRepository{path: path}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config: %w", err)
		}
		if err := r.Save(context.Background(), domain.DefaultAssistantConfig()); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Load reads and decodes the configuration document.
func (r *ConfigRepository) Load(ctx context.Context) (domain.AssistantConfig, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return domain.AssistantConfig{}, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg domain.AssistantConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.AssistantConfig{}, fmt.Errorf("%w: %s: %v", domain.ErrStorageCorruption, r.path, err)
	}
	return cfg, nil
}

// Save writes the configuration with two-space indentation.
func (r *ConfigRepository) Save(ctx context.Context, cfg domain.AssistantConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := writeAtomic(r.path, data); err != nil {
		return fmt.Errorf("failed to persist config: %w", err)
	}
	return nil
}
