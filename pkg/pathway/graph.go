package pathway

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/callflow/internal/compiler"
	"github.com/aretw0/callflow/pkg/domain"
)

// Format identifies the encoding of a pathway document.
type Format = compiler.Format

const (
	JSON = compiler.FormatJSON
	YAML = compiler.FormatYAML
)

// MalformedGraphError reports why a pathway document was rejected.
type MalformedGraphError struct {
	Reason string
}

func (e *MalformedGraphError) Error() string {
	return fmt.Sprintf("%s: %s", domain.ErrMalformedGraph, e.Reason)
}

// Unwrap allows errors.Is(err, domain.ErrMalformedGraph).
func (e *MalformedGraphError) Unwrap() error {
	return domain.ErrMalformedGraph
}

// Graph is an ordered, read-only collection of pathway nodes.
type Graph struct {
	order []string
	nodes map[string]domain.PathwayNode
}

// LoadGraph parses a pathway document.
// A later node with an already-seen name replaces the earlier one in place.
func LoadGraph(data []byte, format Format) (*Graph, error) {
	nodes, err := compiler.NewParser().Parse(data, format)
	if err != nil {
		var entryErr *compiler.EntryError
		if errors.As(err, &entryErr) {
			return nil, &MalformedGraphError{Reason: entryErr.Error()}
		}
		return nil, &MalformedGraphError{Reason: err.Error()}
	}
	if len(nodes) == 0 {
		return nil, &MalformedGraphError{Reason: "pathway has no nodes"}
	}
	return New(nodes...), nil
}

// New builds a graph from nodes in enumeration order.
func New(nodes ...domain.PathwayNode) *Graph {
	g := &Graph{
		order: make([]string, 0, len(nodes)),
		nodes: make(map[string]domain.PathwayNode, len(nodes)),
	}
	for _, n := range nodes {
		if _, seen := g.nodes[n.Name]; !seen {
			g.order = append(g.order, n.Name)
		}
		g.nodes[n.Name] = n
	}
	return g
}

// Default returns the first-run pathway: a single self-looping start node.
func Default() *Graph {
	return New(domain.PathwayNode{
		Name:         domain.StartNodeName,
		Instruction:  "You are a helpful assistant. Help users with their questions and transfer them when requested.",
		Destinations: []string{domain.StartNodeName},
	})
}

// FormatFromPath infers the document format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// Encode serializes a graph in the same shape LoadGraph accepts.
func Encode(g *Graph, format Format) ([]byte, error) {
	return compiler.NewParser().Encode(g.Nodes(), format)
}

// Lookup returns the node with the given name.
func (g *Graph) Lookup(name string) (domain.PathwayNode, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Has reports whether a node exists.
func (g *Graph) Has(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Start returns the entry node: "start" if present, else the first enumerated node.
func (g *Graph) Start() string {
	if g.Has(domain.StartNodeName) {
		return domain.StartNodeName
	}
	if len(g.order) == 0 {
		return ""
	}
	return g.order[0]
}

// Next returns the successor of a node: its first destination, if that destination exists.
// The walk is unconditional; conversation content never influences it.
func (g *Graph) Next(name string) (string, bool) {
	n, ok := g.nodes[name]
	if !ok || len(n.Destinations) == 0 {
		return "", false
	}
	next := n.Destinations[0]
	if next == "" || !g.Has(next) {
		return "", false
	}
	return next, true
}

// Nodes returns all nodes in enumeration order.
func (g *Graph) Nodes() []domain.PathwayNode {
	out := make([]domain.PathwayNode, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}
