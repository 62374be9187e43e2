package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/callflow/internal/logging"
	"github.com/aretw0/callflow/pkg/config"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/observability"
	"github.com/aretw0/callflow/pkg/pathway"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/aretw0/callflow/pkg/session"
	"github.com/google/uuid"
)

const (
	// MaxTokens bounds every provider completion.
	MaxTokens int64 = 1000
	// Temperature is the sampling temperature of every provider call.
	Temperature = 0.2
	// FunctionCallMode lets the model decide whether to call a function.
	FunctionCallMode = "auto"
	// DefaultProvider serves turns when model.provider is unset.
	DefaultProvider = "openai"
	// DefaultProviderTimeout bounds a provider call, including the whole stream.
	DefaultProviderTimeout = 60 * time.Second

	transferHint = "\nIf the user requests a transfer, you can transfer them using the transferCall function."
)

// ProviderSet maps model.provider values to provider adapters.
type ProviderSet map[string]ports.Provider

// Lookup returns the provider registered under name.
func (s ProviderSet) Lookup(name string) (ports.Provider, error) {
	p, ok := s[name]
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, name)
	}
	return p, nil
}

// Result is the outcome of one dispatched turn.
// Exactly one of Completion and Frames is set, depending on the request's stream flag.
type Result struct {
	TurnID   string
	CallID   string
	Node     string
	NextNode string
	Advanced bool

	Completion domain.Completion
	Frames     *FrameStream
}

// Dispatcher serves chat turns against a pathway.
type Dispatcher struct {
	graph     *pathway.Graph
	sessions  *session.Manager
	config    *config.Store
	providers ProviderSet

	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithLogger configures a logger for the Dispatcher.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics records dispatch metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithProviderTimeout sets the deadline of provider calls. Non-positive values keep the default.
func WithProviderTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// New creates a Dispatcher.
func New(graph *pathway.Graph, sessions *session.Manager, cfg *config.Store, providers ProviderSet, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		graph:     graph,
		sessions:  sessions,
		config:    cfg,
		providers: providers,
		timeout:   DefaultProviderTimeout,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Graph returns the pathway the dispatcher walks.
func (d *Dispatcher) Graph() *pathway.Graph {
	return d.graph
}

// Dispatch serves one turn.
//
// The call is advanced before the provider is contacted. A provider failure
// therefore leaves the call at its next node.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.ChatRequest) (*Result, error) {
	callID := req.CallID()
	if callID == "" {
		return nil, fmt.Errorf("%w: call id is required", domain.ErrBadRequest)
	}

	cfg := d.config.Get()
	providerName := cfg.Model.Provider
	if providerName == "" {
		providerName = DefaultProvider
	}
	provider, err := d.providers.Lookup(providerName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBadRequest, err)
	}

	current, next, advanced, err := d.sessions.Advance(ctx, callID, d.graph)
	if err != nil {
		if errors.Is(err, domain.ErrNodeNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrBadRequest, err)
		}
		return nil, err
	}
	node, _ := d.graph.Lookup(current)

	res := &Result{
		TurnID:   uuid.NewString(),
		CallID:   callID,
		Node:     current,
		NextNode: next,
		Advanced: advanced,
	}
	logger := d.logger.With(
		"turn_id", res.TurnID,
		"call_id", callID,
		"node", current,
		"provider", providerName,
	)
	if advanced {
		logger.Info("Call advanced", "next_node", next)
	} else {
		logger.Debug("Call stays at node")
	}

	preq := BuildProviderRequest(cfg, node, req, config.FunctionsFor(cfg))
	d.metrics.Dispatched(current, providerName, req.Stream)

	pctx, cancel := context.WithTimeout(ctx, d.timeout)
	started := time.Now()

	if !req.Stream {
		defer cancel()
		completion, err := provider.Complete(pctx, preq)
		d.metrics.ObserveProvider(providerName, time.Since(started))
		if err != nil {
			return nil, d.providerFailure(ctx, pctx, logger, providerName, advanced, err)
		}
		res.Completion = completion
		return res, nil
	}

	src, err := provider.Stream(pctx, preq)
	if err != nil {
		cancel()
		return nil, d.providerFailure(ctx, pctx, logger, providerName, advanced, err)
	}

	res.Frames = &FrameStream{
		src:        src,
		cancel:     cancel,
		parent:     ctx,
		pctx:       pctx,
		forwarding: cfg.ForwardingPhoneNumber,
		provider:   providerName,
		started:    started,
		logger:     logger,
		metrics:    d.metrics,
		advanced:   advanced,
	}
	return res, nil
}

// BuildProviderRequest assembles the provider input for a turn at node.
// Only the last caller message is forwarded after the system prompt.
func BuildProviderRequest(cfg domain.AssistantConfig, node domain.PathwayNode, req domain.ChatRequest, functions []domain.FunctionSpec) domain.ProviderRequest {
	system := node.Instruction
	if cfg.TransferEnabled() {
		system += transferHint
	}

	messages := []domain.Message{{Role: "system", Content: system}}
	if n := len(req.Messages); n > 0 {
		messages = append(messages, req.Messages[n-1])
	}

	preq := domain.ProviderRequest{
		Model:       cfg.Model.Model,
		Messages:    messages,
		MaxTokens:   MaxTokens,
		Temperature: Temperature,
		Stream:      req.Stream,
	}
	if cfg.TransferEnabled() && len(functions) > 0 {
		preq.Functions = functions
		preq.FunctionCall = FunctionCallMode
	}
	return preq
}

// providerFailure maps a provider error to ErrProviderTimeout, ErrProvider or
// the caller's own cancellation.
func (d *Dispatcher) providerFailure(parent, pctx context.Context, logger *slog.Logger, provider string, advanced bool, err error) error {
	mapped := mapProviderError(parent, pctx, err)

	switch {
	case errors.Is(mapped, domain.ErrProviderTimeout):
		d.metrics.ProviderFailed(provider, "timeout")
	case errors.Is(mapped, domain.ErrProvider):
		d.metrics.ProviderFailed(provider, "error")
	}

	if advanced {
		logger.Warn("Provider failed after the call was advanced", "err", mapped)
	} else {
		logger.Warn("Provider failed", "err", mapped)
	}
	return mapped
}

func mapProviderError(parent, pctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(pctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrProviderTimeout, err)
	}
	if errors.Is(err, domain.ErrProvider) || errors.Is(err, domain.ErrProviderTimeout) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrProvider, err)
}
