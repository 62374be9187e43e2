package dsl

import (
	"slices"

	"github.com/aretw0/callflow/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node domain.PathwayNode
}

// Instruction sets the system prompt sent while a call is at this node.
func (n *NodeBuilder) Instruction(text string) *NodeBuilder {
	n.node.Instruction = text
	return n
}

// Go appends a destination. The first destination is the one calls advance to;
// later ones are kept as candidates only.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.node.Destinations = append(n.node.Destinations, target)
	return n
}

// Loop makes the node its own successor, so calls stay on it.
func (n *NodeBuilder) Loop() *NodeBuilder {
	n.node.Destinations = append([]string{n.node.Name}, n.node.Destinations...)
	return n
}

// Terminal removes all destinations (end of the pathway).
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.node.Destinations = []string{}
	return n
}

// Build returns a copy of the underlying domain.PathwayNode.
func (n *NodeBuilder) Build() domain.PathwayNode {
	out := n.node
	out.Destinations = slices.Clone(n.node.Destinations)
	return out
}
