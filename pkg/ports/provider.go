package ports

import (
	"context"

	"github.com/aretw0/callflow/pkg/domain"
)

// Provider is the language-model capability consumed by the dispatcher.
type Provider interface {
	// Complete returns the provider's completion object verbatim.
	Complete(ctx context.Context, req domain.ProviderRequest) (domain.Completion, error)

	// Stream opens a token stream. The stream stops when ctx is canceled.
	Stream(ctx context.Context, req domain.ProviderRequest) (FragmentStream, error)
}

// FragmentStream is a pull-based sequence of provider fragments.
// Usage mirrors SDK streams: for s.Next() { f := s.Current() }; s.Err(); s.Close().
type FragmentStream interface {
	Next() bool
	Current() domain.Fragment
	Err() error
	Close() error
}
