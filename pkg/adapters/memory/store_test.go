package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/callflow/pkg/adapters/memory"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/pathway"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunCallStateStoreContract(t, memory.NewStore())
}

func TestConfigRepository_Isolation(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewConfigRepository(domain.DefaultAssistantConfig())

	cfg, err := repo.Load(ctx)
	require.NoError(t, err)
	cfg.Model.Messages[0].Content = "mutated"

	again, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again.Model.Messages[0].Content, "Load must return a copy")
}

func TestLoader_NewFromNodes(t *testing.T) {
	loader, err := memory.NewFromNodes(
		domain.PathwayNode{Name: "start", Instruction: "Hi", Destinations: []string{"end"}},
		domain.PathwayNode{Name: "end", Instruction: "Bye"},
	)
	require.NoError(t, err)

	data, format, err := loader.ReadPathway()
	require.NoError(t, err)

	g, err := pathway.LoadGraph(data, pathway.Format(format))
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	next, ok := g.Next("start")
	assert.True(t, ok)
	assert.Equal(t, "end", next)
}
