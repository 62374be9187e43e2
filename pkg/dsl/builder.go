package dsl

import (
	"fmt"

	"github.com/aretw0/callflow/pkg/adapters/memory"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/pathway"
)

// Builder manages the pathway construction.
// Nodes keep the order in which they were first added; with no "start" node
// the first one added is the entry.
type Builder struct {
	order []string
	nodes map[string]*NodeBuilder
}

// New creates a new pathway builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the pathway.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(name string) *NodeBuilder {
	if nb, ok := b.nodes[name]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.PathwayNode{
			Name:         name,
			Instruction:  domain.DefaultInstruction,
			Destinations: []string{},
		},
	}
	b.order = append(b.order, name)
	b.nodes[name] = nb
	return nb
}

func (b *Builder) domainNodes() []domain.PathwayNode {
	nodes := make([]domain.PathwayNode, 0, len(b.order))
	for _, name := range b.order {
		nodes = append(nodes, b.nodes[name].Build())
	}
	return nodes
}

// Graph returns the pathway as a graph, skipping serialization.
func (b *Builder) Graph() *pathway.Graph {
	return pathway.New(b.domainNodes()...)
}

// Build compiles the pathway into an in-memory pathway source.
func (b *Builder) Build() (*memory.Loader, error) {
	if len(b.order) == 0 {
		return nil, fmt.Errorf("pathway has no nodes")
	}
	loader, err := memory.NewFromNodes(b.domainNodes()...)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}
