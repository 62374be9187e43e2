// Package config holds the mutable runtime configuration of the assistant.
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/callflow/internal/logging"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/ports"
)

// TransferFunctionName is the function the model calls to request a transfer.
const TransferFunctionName = "transferCall"

// InvalidConfigError reports why an update payload was rejected.
type InvalidConfigError struct {
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

func (e *InvalidConfigError) Unwrap() error {
	return domain.ErrInvalidConfig
}

// Store serves the assistant configuration from memory and writes every
// accepted update through to its repository.
type Store struct {
	repo ports.ConfigRepository

	mu     sync.RWMutex
	cfg    domain.AssistantConfig
	logger *slog.Logger

	// writeMu serializes merge-and-persist so updates never interleave.
	writeMu sync.Mutex
}

// Option configures the Store.
type Option func(*Store)

// WithLogger configures a logger for the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open loads the configuration from repo.
func Open(ctx context.Context, repo ports.ConfigRepository, opts ...Option) (*Store, error) {
	s := &Store{
		repo:   repo,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	cfg, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load assistant config: %w", err)
	}
	s.cfg = cfg
	return s, nil
}

// Get returns a snapshot of the current configuration.
func (s *Store) Get() domain.AssistantConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Update merges the top-level keys of partial into the configuration and
// persists the result. Nested objects are replaced wholesale.
func (s *Store) Update(ctx context.Context, partial []byte) (domain.AssistantConfig, error) {
	patch, err := decodePatch(partial)
	if err != nil {
		return domain.AssistantConfig{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	merged, err := s.Get().Merge(patch)
	if err != nil {
		return domain.AssistantConfig{}, &InvalidConfigError{Reason: err.Error()}
	}

	if err := s.repo.Save(ctx, merged); err != nil {
		return domain.AssistantConfig{}, fmt.Errorf("failed to persist assistant config: %w", err)
	}

	s.mu.Lock()
	s.cfg = merged
	s.mu.Unlock()

	s.logger.Info("Assistant config updated",
		"provider", merged.Model.Provider,
		"model", merged.Model.Model,
		"transfer_enabled", merged.TransferEnabled(),
	)
	return merged.Clone(), nil
}

// Functions returns the function descriptors advertised to the model
// under the current configuration.
func (s *Store) Functions() []domain.FunctionSpec {
	return FunctionsFor(s.Get())
}

// FunctionsFor returns the function descriptors advertised under cfg.
// It is empty unless a forwarding number is configured.
func FunctionsFor(cfg domain.AssistantConfig) []domain.FunctionSpec {
	if !cfg.TransferEnabled() {
		return nil
	}
	return []domain.FunctionSpec{TransferFunction()}
}

// TransferFunction describes transferCall(destination).
func TransferFunction() domain.FunctionSpec {
	return domain.FunctionSpec{
		Name:        TransferFunctionName,
		Description: "Transfer the call to a human agent or another phone number.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"destination": map[string]any{
					"type":        "string",
					"description": "The phone number to transfer the call to.",
				},
			},
			"required": []string{"destination"},
		},
	}
}

func decodePatch(partial []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(partial)
	if len(trimmed) == 0 {
		return nil, &InvalidConfigError{Reason: "empty body"}
	}
	if trimmed[0] != '{' {
		return nil, &InvalidConfigError{Reason: "body must be a JSON object"}
	}

	var patch map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &patch); err != nil {
		return nil, &InvalidConfigError{Reason: err.Error()}
	}
	if len(patch) == 0 {
		return nil, &InvalidConfigError{Reason: "empty object"}
	}
	return patch, nil
}
