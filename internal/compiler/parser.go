package compiler

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/callflow/internal/dto"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a pathway document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// EntryError describes why one entry of a pathway document was rejected.
type EntryError struct {
	Index  int
	Reason string
}

func (e *EntryError) Error() string {
	if e.Index < 0 {
		return e.Reason
	}
	return fmt.Sprintf("entry %d: %s", e.Index, e.Reason)
}

// Parser converts raw pathway documents into domain nodes.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a document that must be a sequence of objects, each with a non-empty name.
// Nodes are returned in document order.
func (p *Parser) Parse(data []byte, format Format) ([]domain.PathwayNode, error) {
	var raw any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &EntryError{Index: -1, Reason: fmt.Sprintf("invalid yaml: %v", err)}
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, &EntryError{Index: -1, Reason: fmt.Sprintf("invalid json: %v", err)}
		}
	}

	entries, ok := raw.([]any)
	if !ok {
		return nil, &EntryError{Index: -1, Reason: fmt.Sprintf("expected a list of nodes, got %T", raw)}
	}

	nodes := make([]domain.PathwayNode, 0, len(entries))
	for i, entry := range entries {
		fields, ok := entry.(map[string]any)
		if !ok {
			return nil, &EntryError{Index: i, Reason: fmt.Sprintf("expected an object, got %T", entry)}
		}
		name, ok := fields["name"].(string)
		if !ok || name == "" {
			return nil, &EntryError{Index: i, Reason: "missing name"}
		}

		var doc dto.PathwayNode
		if err := mapstructure.Decode(fields, &doc); err != nil {
			return nil, &EntryError{Index: i, Reason: err.Error()}
		}
		nodes = append(nodes, toDomain(doc))
	}
	return nodes, nil
}

// Encode is the inverse of Parse.
func (p *Parser) Encode(nodes []domain.PathwayNode, format Format) ([]byte, error) {
	docs := make([]dto.PathwayNode, len(nodes))
	for i, n := range nodes {
		docs[i] = fromDomain(n)
	}
	if format == FormatYAML {
		return yaml.Marshal(docs)
	}
	return json.MarshalIndent(docs, "", "  ")
}

func toDomain(doc dto.PathwayNode) domain.PathwayNode {
	node := domain.PathwayNode{
		Name:         doc.Name,
		Instruction:  domain.DefaultInstruction,
		Destinations: make([]string, 0, len(doc.Destinations)),
	}
	if doc.Block != nil && doc.Block.Instruction != nil {
		node.Instruction = *doc.Block.Instruction
	}
	for _, d := range doc.Destinations {
		node.Destinations = append(node.Destinations, d.StepName)
	}
	return node
}

func fromDomain(node domain.PathwayNode) dto.PathwayNode {
	instruction := node.Instruction
	doc := dto.PathwayNode{
		Name:         node.Name,
		Block:        &dto.Block{Instruction: &instruction},
		Destinations: make([]dto.Destination, len(node.Destinations)),
	}
	for i, d := range node.Destinations {
		doc.Destinations[i] = dto.Destination{StepName: d}
	}
	return doc
}
