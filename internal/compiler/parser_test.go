package compiler

import (
	"testing"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_ParseJSON(t *testing.T) {
	p := NewParser()
	data := []byte(`[
		{"name": "start", "block": {"instruction": "Greet"}, "destinations": [{"stepName": "collect"}, {"stepName": "end"}]},
		{"name": "collect", "destinations": [{"stepName": "end"}], "extra": true},
		{"name": "end", "block": {}}
	]`)

	nodes, err := p.Parse(data, FormatJSON)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	assert.Equal(t, domain.PathwayNode{Name: "start", Instruction: "Greet", Destinations: []string{"collect", "end"}}, nodes[0])
	assert.Equal(t, domain.DefaultInstruction, nodes[1].Instruction, "missing block falls back to the default instruction")
	assert.Equal(t, domain.DefaultInstruction, nodes[2].Instruction, "missing instruction falls back to the default instruction")
	assert.Empty(t, nodes[2].Destinations)
}

func TestParser_ParseYAML(t *testing.T) {
	p := NewParser()
	data := []byte(`
- name: start
  block:
    instruction: Say hello
  destinations:
    - stepName: start
`)
	nodes, err := p.Parse(data, FormatYAML)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Say hello", nodes[0].Instruction)
	assert.Equal(t, []string{"start"}, nodes[0].Destinations)
}

func TestParser_Rejects(t *testing.T) {
	p := NewParser()
	tests := []struct {
		name string
		data string
		want string
	}{
		{"Not JSON", `{`, "invalid json"},
		{"Object instead of list", `{"name": "start"}`, "expected a list"},
		{"Entry is not an object", `["start"]`, "entry 0"},
		{"Missing name", `[{"name": "a"}, {"block": {}}]`, "entry 1: missing name"},
		{"Empty name", `[{"name": ""}]`, "missing name"},
		{"Name is not a string", `[{"name": 7}]`, "missing name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse([]byte(tt.data), FormatJSON)
			var entryErr *EntryError
			require.ErrorAs(t, err, &entryErr)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParser_EncodeIsParseable(t *testing.T) {
	p := NewParser()
	nodes := []domain.PathwayNode{
		{Name: "start", Instruction: "Hi", Destinations: []string{"end"}},
		{Name: "end", Instruction: "Bye", Destinations: []string{}},
	}
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			data, err := p.Encode(nodes, format)
			require.NoError(t, err)
			got, err := p.Parse(data, format)
			require.NoError(t, err)
			assert.Equal(t, nodes, got)
		})
	}
}
