package testutils

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/callflow/pkg/adapters/memory"
	"github.com/aretw0/callflow/pkg/config"
	"github.com/aretw0/callflow/pkg/dispatch"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/pathway"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/aretw0/callflow/pkg/session"
	"github.com/stretchr/testify/require"
)

// FakeProvider is a scripted ports.Provider that records every request.
type FakeProvider struct {
	Completion domain.Completion
	Fragments  []domain.Fragment
	// StreamErr is reported by the stream after all fragments were consumed.
	StreamErr error
	// Err fails Complete and Stream immediately.
	Err error
	// Block makes calls wait for ctx to be done.
	Block bool

	mu       sync.Mutex
	requests []domain.ProviderRequest
}

func (p *FakeProvider) record(req domain.ProviderRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
}

// Requests returns the requests received so far.
func (p *FakeProvider) Requests() []domain.ProviderRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ProviderRequest(nil), p.requests...)
}

// LastRequest returns the most recent request. It fails the test if none was made.
func (p *FakeProvider) LastRequest(t *testing.T) domain.ProviderRequest {
	t.Helper()
	reqs := p.Requests()
	require.NotEmpty(t, reqs, "provider was never called")
	return reqs[len(reqs)-1]
}

func (p *FakeProvider) Complete(ctx context.Context, req domain.ProviderRequest) (domain.Completion, error) {
	p.record(req)
	if p.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Completion == nil {
		return domain.Completion(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`), nil
	}
	return p.Completion, nil
}

func (p *FakeProvider) Stream(ctx context.Context, req domain.ProviderRequest) (ports.FragmentStream, error) {
	p.record(req)
	if p.Err != nil {
		return nil, p.Err
	}
	return &FakeStream{ctx: ctx, fragments: p.Fragments, err: p.StreamErr, block: p.Block}, nil
}

// FakeStream replays a fixed list of fragments.
type FakeStream struct {
	ctx       context.Context
	fragments []domain.Fragment
	err       error
	block     bool

	pos     int
	current domain.Fragment
	failed  error
	Closed  bool
}

func (s *FakeStream) Next() bool {
	if s.failed != nil {
		return false
	}
	if s.ctx.Err() != nil {
		s.failed = s.ctx.Err()
		return false
	}
	if s.pos >= len(s.fragments) {
		if s.block {
			<-s.ctx.Done()
			s.failed = s.ctx.Err()
			return false
		}
		s.failed = s.err
		return false
	}
	s.current = s.fragments[s.pos]
	s.pos++
	return true
}

func (s *FakeStream) Current() domain.Fragment { return s.current }
func (s *FakeStream) Err() error               { return s.failed }

func (s *FakeStream) Close() error {
	s.Closed = true
	return nil
}

// Fixture bundles a dispatcher with in-memory collaborators.
type Fixture struct {
	Graph      *pathway.Graph
	States     *memory.Store
	Sessions   *session.Manager
	Config     *config.Store
	Provider   *FakeProvider
	Dispatcher *dispatch.Dispatcher
}

// NewFixture builds a Fixture over graph with the default assistant config,
// served by a FakeProvider registered as "openai".
func NewFixture(t *testing.T, graph *pathway.Graph, opts ...dispatch.Option) *Fixture {
	t.Helper()

	states := memory.NewStore()
	sessions := session.NewManager(states)
	cfg, err := config.Open(context.Background(), memory.NewConfigRepository(domain.DefaultAssistantConfig()))
	require.NoError(t, err)

	provider := &FakeProvider{}
	d := dispatch.New(graph, sessions, cfg, dispatch.ProviderSet{"openai": provider}, opts...)

	return &Fixture{
		Graph:      graph,
		States:     states,
		Sessions:   sessions,
		Config:     cfg,
		Provider:   provider,
		Dispatcher: d,
	}
}

// UpdateConfig applies a config patch or fails the test.
func (f *Fixture) UpdateConfig(t *testing.T, patch string) {
	t.Helper()
	_, err := f.Config.Update(context.Background(), []byte(patch))
	require.NoError(t, err)
}

// StoredNode returns the persisted node of callID or fails the test.
func (f *Fixture) StoredNode(t *testing.T, callID string) string {
	t.Helper()
	node, err := f.States.Get(context.Background(), callID)
	require.NoError(t, err)
	return node
}
