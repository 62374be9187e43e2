package domain

// DefaultInstruction is used when a node carries no instruction block.
const DefaultInstruction = "No instructions available."

// StartNodeName is the conventional entry node of a pathway.
const StartNodeName = "start"

// PathwayNode represents a named step in the conversation graph.
type PathwayNode struct {
	Name        string `json:"name" yaml:"name"`
	Instruction string `json:"instruction" yaml:"instruction"`

	// Destinations lists candidate next nodes in order.
	// Only the first entry is used as the successor.
	Destinations []string `json:"destinations" yaml:"destinations"`
}
