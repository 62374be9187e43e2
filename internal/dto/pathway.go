package dto

// PathwayNode is the persisted shape of a pathway node.
// It uses "mapstructure" tags so JSON and YAML documents decode through the same path.
type PathwayNode struct {
	Name         string        `json:"name" yaml:"name" mapstructure:"name"`
	Block        *Block        `json:"block,omitempty" yaml:"block,omitempty" mapstructure:"block"`
	Destinations []Destination `json:"destinations" yaml:"destinations" mapstructure:"destinations"`
}

// Block carries the node's prompt data.
type Block struct {
	Instruction *string `json:"instruction,omitempty" yaml:"instruction,omitempty" mapstructure:"instruction"`
}

// Destination references a candidate next node.
type Destination struct {
	StepName string `json:"stepName" yaml:"stepName" mapstructure:"stepName"`
}
