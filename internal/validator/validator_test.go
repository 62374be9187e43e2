package validator

import (
	"testing"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/pathway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(name string, dests ...string) domain.PathwayNode {
	return domain.PathwayNode{Name: name, Instruction: name, Destinations: dests}
}

func TestValidateGraph(t *testing.T) {
	t.Run("Linear pathway is clean", func(t *testing.T) {
		g := pathway.New(node("start", "a"), node("a", "b"), node("b"))

		r, err := ValidateGraph(g)
		require.NoError(t, err)
		assert.True(t, r.Clean())
		assert.NoError(t, r.Err())
		assert.Equal(t, []string{"start", "a", "b"}, r.Walk)
		assert.Equal(t, []string{"b"}, r.Terminal)
	})

	t.Run("Self loop stops the walk", func(t *testing.T) {
		r, err := ValidateGraph(pathway.Default())
		require.NoError(t, err)
		assert.Equal(t, []string{"start"}, r.Walk)
		assert.Empty(t, r.Terminal)
	})

	t.Run("Dangling destination", func(t *testing.T) {
		g := pathway.New(node("start", "ghost_node"))

		r, err := ValidateGraph(g)
		require.NoError(t, err)
		assert.Equal(t, map[string][]string{"start": {"ghost_node"}}, r.Dangling)
		assert.ErrorContains(t, r.Err(), "Dangling destination(s) on 'start': ghost_node")
	})

	t.Run("Only the first destination counts for reachability", func(t *testing.T) {
		g := pathway.New(node("start", "a", "side"), node("a"), node("side"))

		r, err := ValidateGraph(g)
		require.NoError(t, err)
		assert.Equal(t, []string{"side"}, r.Unreachable)
		assert.ErrorContains(t, r.Err(), "Unreachable node: 'side'")
	})

	t.Run("Entry falls back to the first node", func(t *testing.T) {
		g := pathway.New(node("greeting", "close"), node("close"))

		r, err := ValidateGraph(g)
		require.NoError(t, err)
		assert.Equal(t, "greeting", r.Entry)
		assert.True(t, r.Clean())
	})

	t.Run("Empty pathway", func(t *testing.T) {
		_, err := ValidateGraph(pathway.New())
		assert.Error(t, err)
	})
}
