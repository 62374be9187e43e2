package file_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/callflow/pkg/adapters/file"
	"github.com/aretw0/callflow/pkg/config"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRepository_BootstrapsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), file.DefaultConfigFile)

	repo, err := file.OpenConfig(path)
	require.NoError(t, err)

	cfg, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAssistantConfig(), cfg)
}

func TestConfigRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), file.DefaultConfigFile)
	repo, err := file.OpenConfig(path)
	require.NoError(t, err)

	cfg := domain.DefaultAssistantConfig()
	cfg.Model.Model = "gpt-4o-mini"
	cfg.Extra = map[string]json.RawMessage{"voice": json.RawMessage(`{"id":"alloy"}`)}
	require.NoError(t, repo.Save(ctx, cfg))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg.Model, loaded.Model)
	assert.Equal(t, cfg.ForwardingPhoneNumber, loaded.ForwardingPhoneNumber)
	assert.JSONEq(t, `{"id":"alloy"}`, string(loaded.Extra["voice"]))
}

func TestConfigRepository_Corruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), file.DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(`{"model": `), 0644))

	repo, err := file.OpenConfig(path)
	require.NoError(t, err)

	_, err = repo.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorageCorruption)
}

func TestConfigRepository_UpdateKeepsNestedExtras(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), file.DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(`{
		"model": {
			"provider": "openai",
			"model": "gpt-4o",
			"temperature": 0.3,
			"maxTokens": 250,
			"messages": [{"role": "system", "content": "Be brief.", "name": "scaffold"}]
		},
		"forwardingPhoneNumber": "+40761983263",
		"voice": {"provider": "11labs", "voiceId": "paula"}
	}`), 0644))

	repo, err := file.OpenConfig(path)
	require.NoError(t, err)
	store, err := config.Open(ctx, repo)
	require.NoError(t, err)

	_, err = store.Update(ctx, []byte(`{"forwardingPhoneNumber":"+15550001111"}`))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"model": {
			"provider": "openai",
			"model": "gpt-4o",
			"temperature": 0.3,
			"maxTokens": 250,
			"messages": [{"role": "system", "content": "Be brief.", "name": "scaffold"}]
		},
		"forwardingPhoneNumber": "+15550001111",
		"voice": {"provider": "11labs", "voiceId": "paula"}
	}`, string(data))
}
