package memory

import (
	"fmt"

	"github.com/aretw0/callflow/internal/compiler"
	"github.com/aretw0/callflow/pkg/domain"
)

// Loader implements ports.PathwaySource over an in-memory document.
type Loader struct {
	data   []byte
	format string
}

// NewLoader creates a Loader from a raw document.
func NewLoader(data []byte, format string) *Loader {
	return &Loader{data: data, format: format}
}

// NewFromNodes creates a Loader from domain nodes.
// This handles serialization automatically, improving DX for tests.
func NewFromNodes(nodes ...domain.PathwayNode) (*Loader, error) {
	data, err := compiler.NewParser().Encode(nodes, compiler.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to encode nodes: %w", err)
	}
	return &Loader{data: data, format: string(compiler.FormatJSON)}, nil
}

// ReadPathway returns the stored document.
func (l *Loader) ReadPathway() ([]byte, string, error) {
	return l.data, l.format, nil
}
