package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patch(t *testing.T, s string) map[string]json.RawMessage {
	t.Helper()
	var p map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &p))
	return p
}

func TestAssistantConfig_Merge(t *testing.T) {
	base := DefaultAssistantConfig()

	t.Run("Nested objects are replaced wholesale", func(t *testing.T) {
		out, err := base.Merge(patch(t, `{"model": {"provider": "anthropic", "model": "claude-3-haiku"}}`))
		require.NoError(t, err)
		assert.Equal(t, "anthropic", out.Model.Provider)
		assert.Empty(t, out.Model.Messages, "messages are not deep-merged")
		assert.Equal(t, base.ForwardingPhoneNumber, out.ForwardingPhoneNumber)
	})

	t.Run("Null forwarding number disables transfer", func(t *testing.T) {
		out, err := base.Merge(patch(t, `{"forwardingPhoneNumber": null}`))
		require.NoError(t, err)
		assert.False(t, out.TransferEnabled())
		assert.True(t, base.TransferEnabled(), "receiver is untouched")
	})

	t.Run("Unknown keys are kept verbatim", func(t *testing.T) {
		out, err := base.Merge(patch(t, `{"voice": {"id": "v1"}}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"id": "v1"}`, string(out.Extra["voice"]))
	})

	t.Run("Invalid known keys", func(t *testing.T) {
		for _, p := range []string{`{"model": null}`, `{"model": "gpt"}`, `{"forwardingPhoneNumber": 5}`} {
			_, err := base.Merge(patch(t, p))
			assert.ErrorIs(t, err, ErrInvalidConfig, p)
		}
	})
}

func TestAssistantConfig_JSON(t *testing.T) {
	cfg, err := DefaultAssistantConfig().Merge(patch(t, `{"voice": "alloy"}`))
	require.NoError(t, err)

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"model": {"provider": "openai", "model": "gpt-4o", "messages": [{"role": "system", "content": "You are an assistant. When the user asks to be transferred, use the transferCall function."}]},
		"forwardingPhoneNumber": "+40761983263",
		"voice": "alloy"
	}`, string(data))

	var back AssistantConfig
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, cfg, back)

	assert.Error(t, json.Unmarshal([]byte(`null`), &back))
}

func TestAssistantConfig_CloneIsolation(t *testing.T) {
	cfg, err := DefaultAssistantConfig().Merge(patch(t, `{"voice": "alloy"}`))
	require.NoError(t, err)

	c := cfg.Clone()
	c.Model.Messages[0].Content = "changed"
	c.Extra["voice"][0] = 'X'

	assert.NotEqual(t, "changed", cfg.Model.Messages[0].Content)
	assert.Equal(t, `"alloy"`, string(cfg.Extra["voice"]))
}

func TestAssistantConfig_NestedExtrasRoundTrip(t *testing.T) {
	doc := `{
		"model": {
			"provider": "openai",
			"model": "gpt-4o",
			"temperature": 0.2,
			"tools": [{"type": "endCall"}],
			"messages": [{"role": "system", "content": "hi", "name": "intro"}]
		},
		"forwardingPhoneNumber": "+1555"
	}`
	var cfg AssistantConfig
	require.NoError(t, json.Unmarshal([]byte(doc), &cfg))
	assert.Equal(t, "gpt-4o", cfg.Model.Model)
	assert.JSONEq(t, `0.2`, string(cfg.Model.Extra["temperature"]))
	assert.JSONEq(t, `"intro"`, string(cfg.Model.Messages[0].Extra["name"]))

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(data))

	c := cfg.Clone()
	c.Model.Extra["temperature"][0] = 'X'
	c.Model.Messages[0].Extra["name"][1] = 'X'
	assert.JSONEq(t, `0.2`, string(cfg.Model.Extra["temperature"]))
	assert.JSONEq(t, `"intro"`, string(cfg.Model.Messages[0].Extra["name"]))
}

func TestAssistantConfig_EmptyForwardingIsKept(t *testing.T) {
	out, err := DefaultAssistantConfig().Merge(patch(t, `{"forwardingPhoneNumber": ""}`))
	require.NoError(t, err)
	assert.False(t, out.TransferEnabled())

	data, err := json.Marshal(out)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, `""`, string(doc["forwardingPhoneNumber"]))

	cleared, err := out.Merge(patch(t, `{"forwardingPhoneNumber": null}`))
	require.NoError(t, err)
	data, err = json.Marshal(cleared)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "forwardingPhoneNumber")
}
