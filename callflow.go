package callflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/callflow/internal/logging"
	"github.com/aretw0/callflow/pkg/adapters/anthropic"
	"github.com/aretw0/callflow/pkg/adapters/file"
	"github.com/aretw0/callflow/pkg/adapters/openai"
	"github.com/aretw0/callflow/pkg/config"
	"github.com/aretw0/callflow/pkg/dispatch"
	"github.com/aretw0/callflow/pkg/observability"
	"github.com/aretw0/callflow/pkg/pathway"
	"github.com/aretw0/callflow/pkg/persistence/middleware"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/aretw0/callflow/pkg/session"
)

// App is the high-level entry point for the callflow library.
// It wires the pathway, call-state store, config store and dispatcher.
type App struct {
	Graph      *pathway.Graph
	Sessions   *session.Manager
	Config     *config.Store
	Dispatcher *dispatch.Dispatcher
	Metrics    *observability.Metrics
	Name       string

	source    ports.PathwaySource
	states    ports.CallStateStore
	configRep ports.ConfigRepository
	providers dispatch.ProviderSet
	locker    ports.DistributedLocker
	timeout   time.Duration
	logger    *slog.Logger
	closers   []io.Closer
}

// Option defines a functional option for configuring the App.
type Option func(*App)

// WithPathwaySource injects a custom pathway source instead of <dataDir>/pathways.json.
func WithPathwaySource(src ports.PathwaySource) Option {
	return func(a *App) {
		a.source = src
	}
}

// WithCallStateStore injects a custom call-state store instead of <dataDir>/call_states.json.
func WithCallStateStore(store ports.CallStateStore) Option {
	return func(a *App) {
		a.states = store
	}
}

// WithConfigRepository injects a custom config repository instead of <dataDir>/assistant_config.json.
func WithConfigRepository(repo ports.ConfigRepository) Option {
	return func(a *App) {
		a.configRep = repo
	}
}

// WithProviders replaces the default provider set (openai and anthropic, configured from the environment).
func WithProviders(providers dispatch.ProviderSet) Option {
	return func(a *App) {
		a.providers = providers
	}
}

// WithLocker enables distributed per-call locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(a *App) {
		a.locker = locker
	}
}

// WithProviderTimeout bounds every provider call.
func WithProviderTimeout(timeout time.Duration) Option {
	return func(a *App) {
		a.timeout = timeout
	}
}

// WithMetrics records dispatcher metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *App) {
		a.Metrics = m
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithCloser registers a resource released by Close.
func WithCloser(c io.Closer) Option {
	return func(a *App) {
		a.closers = append(a.closers, c)
	}
}

// New initializes an App.
// Collaborators that are not injected default to JSON files in dataDir, each
// bootstrapped with its default content when absent. Corrupted files are fatal.
func New(ctx context.Context, dataDir string, opts ...Option) (*App, error) {
	app := &App{}
	for _, opt := range opts {
		opt(app)
	}

	if app.logger == nil {
		app.logger = logging.NewNop()
	}

	needsDir := app.source == nil || app.states == nil || app.configRep == nil
	if needsDir {
		if dataDir == "" {
			return nil, fmt.Errorf("dataDir is required when collaborators are not injected")
		}
		absPath, err := filepath.Abs(dataDir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		if err := os.MkdirAll(absPath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		dataDir = absPath
		app.Name = filepath.Base(absPath)
	}

	if app.source == nil {
		loader, err := file.OpenPathway(filepath.Join(dataDir, file.DefaultPathwayFile))
		if err != nil {
			return nil, err
		}
		app.source = loader
	}
	if app.states == nil {
		store, err := file.Open(filepath.Join(dataDir, file.DefaultCallStateFile))
		if err != nil {
			return nil, err
		}
		app.states = store
	}
	if app.configRep == nil {
		repo, err := file.OpenConfig(filepath.Join(dataDir, file.DefaultConfigFile))
		if err != nil {
			return nil, err
		}
		app.configRep = repo
	}
	if app.providers == nil {
		app.providers = DefaultProviders()
	}

	if app.Name != "" {
		app.logger = app.logger.With("app", app.Name)
	}

	graph, err := LoadPathway(app.source)
	if err != nil {
		return nil, err
	}
	app.Graph = graph

	states := middleware.Chain(app.states, middleware.NewMetricsMiddleware(app.Metrics))

	sessionOpts := []session.Option{session.WithLogger(app.logger)}
	if app.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(app.locker))
	}
	app.Sessions = session.NewManager(states, sessionOpts...)

	app.Config, err = config.Open(ctx, app.configRep, config.WithLogger(app.logger))
	if err != nil {
		return nil, err
	}

	app.Dispatcher = dispatch.New(app.Graph, app.Sessions, app.Config, app.providers,
		dispatch.WithLogger(app.logger),
		dispatch.WithMetrics(app.Metrics),
		dispatch.WithProviderTimeout(app.timeout),
	)

	app.logger.Debug("App initialized", "nodes", graph.Len(), "entry", graph.Start())
	return app, nil
}

// DefaultProviders returns the openai and anthropic adapters, configured from the environment.
func DefaultProviders() dispatch.ProviderSet {
	return dispatch.ProviderSet{
		openai.Name:    openai.New(),
		anthropic.Name: anthropic.New(),
	}
}

// LoadPathway reads and parses a pathway from src.
func LoadPathway(src ports.PathwaySource) (*pathway.Graph, error) {
	data, format, err := src.ReadPathway()
	if err != nil {
		return nil, fmt.Errorf("failed to read pathway: %w", err)
	}
	return pathway.LoadGraph(data, pathway.Format(format))
}

// Close releases registered resources.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
