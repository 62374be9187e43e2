package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	anthropicOption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aretw0/callflow"
	anthropicAdapter "github.com/aretw0/callflow/pkg/adapters/anthropic"
	"github.com/aretw0/callflow/pkg/adapters/file"
	"github.com/aretw0/callflow/pkg/adapters/memory"
	openaiAdapter "github.com/aretw0/callflow/pkg/adapters/openai"
	"github.com/aretw0/callflow/pkg/adapters/redis"
	"github.com/aretw0/callflow/pkg/adapters/sqlite"
	"github.com/aretw0/callflow/pkg/dispatch"
	"github.com/aretw0/callflow/pkg/observability"
	openaiOption "github.com/openai/openai-go/option"
)

// BuildApp wires a callflow.App from settings.
// The caller owns the returned App and must Close it.
func BuildApp(ctx context.Context, s Settings, logger *slog.Logger, metrics *observability.Metrics) (*callflow.App, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	opts := []callflow.Option{
		callflow.WithLogger(logger),
		callflow.WithProviders(buildProviders(s.Provider)),
		callflow.WithProviderTimeout(s.Provider.Timeout),
		callflow.WithMetrics(metrics),
	}

	if s.PathwayFile != "" {
		loader, err := file.OpenPathway(s.PathwayFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, callflow.WithPathwaySource(loader))
	}

	storeOpts, closer, err := buildStateStore(ctx, s, logger)
	if err != nil {
		return nil, err
	}
	opts = append(opts, storeOpts...)

	app, err := callflow.New(ctx, s.DataDir, opts...)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	return app, nil
}

func buildStateStore(ctx context.Context, s Settings, logger *slog.Logger) ([]callflow.Option, io.Closer, error) {
	switch s.Backend {
	case BackendMemory:
		logger.Warn("Using in-memory call states; they are lost on restart")
		return []callflow.Option{callflow.WithCallStateStore(memory.NewStore())}, nil, nil

	case BackendRedis:
		store := redis.New(s.Redis.Addr, s.Redis.Password, s.Redis.DB,
			redis.WithPrefix(s.Redis.Prefix),
			redis.WithTTL(s.Redis.TTL),
		)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", s.Redis.Addr, err)
		}
		opts := []callflow.Option{
			callflow.WithCallStateStore(store),
			callflow.WithCloser(store),
		}
		if s.Redis.Lock {
			opts = append(opts, callflow.WithLocker(redis.NewLocker(store.Client(), store.Prefix())))
		}
		return opts, store, nil

	case BackendSQLite:
		path := s.SQLitePath
		if path == "" {
			path = filepath.Join(s.DataDir, sqlite.DefaultDatabaseFile)
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return []callflow.Option{
			callflow.WithCallStateStore(store),
			callflow.WithCloser(store),
		}, store, nil

	default:
		// File backend is the App default.
		return nil, nil, nil
	}
}

func buildProviders(s ProviderSettings) dispatch.ProviderSet {
	oaOpts := []openaiOption.RequestOption{openaiOption.WithMaxRetries(s.MaxRetries)}
	if s.OpenAIBaseURL != "" {
		oaOpts = append(oaOpts, openaiOption.WithBaseURL(s.OpenAIBaseURL))
	}

	anOpts := []anthropicOption.RequestOption{anthropicOption.WithMaxRetries(s.MaxRetries)}
	if s.AnthropicBaseURL != "" {
		anOpts = append(anOpts, anthropicOption.WithBaseURL(s.AnthropicBaseURL))
	}

	return dispatch.ProviderSet{
		openaiAdapter.Name:    openaiAdapter.New(oaOpts...),
		anthropicAdapter.Name: anthropicAdapter.New(anOpts...),
	}
}
