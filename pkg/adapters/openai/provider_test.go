package openai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/callflow/pkg/adapters/openai"
	"github.com/aretw0/callflow/pkg/config"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T, handler http.HandlerFunc) *openai.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return openai.New(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
}

func request(stream bool) domain.ProviderRequest {
	return domain.ProviderRequest{
		Model: "gpt-4o",
		Messages: []domain.Message{
			{Role: "system", Content: "Hi"},
			{Role: "user", Content: "transfer me"},
		},
		MaxTokens:    1000,
		Temperature:  0.2,
		Stream:       stream,
		Functions:    []domain.FunctionSpec{config.TransferFunction()},
		FunctionCall: "auto",
	}
}

func TestProvider_CompletePassthrough(t *testing.T) {
	const body = `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Hello"}}]}`

	var captured map[string]any
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	})

	completion, err := p.Complete(context.Background(), request(false))
	require.NoError(t, err)
	assert.JSONEq(t, body, string(completion))

	assert.Equal(t, "gpt-4o", captured["model"])
	assert.Equal(t, 0.2, captured["temperature"])
	assert.Equal(t, float64(1000), captured["max_completion_tokens"])
	assert.Equal(t, "auto", captured["tool_choice"])

	tools, ok := captured["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "transferCall", fn["name"])

	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestProvider_CompleteWithoutFunctions(t *testing.T) {
	var captured map[string]any
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","choices":[]}`)
	})

	req := request(false)
	req.Functions = nil
	req.FunctionCall = ""

	_, err := p.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.NotContains(t, captured, "tools")
	assert.NotContains(t, captured, "tool_choice")
}

func TestProvider_CompleteUpstreamError(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})

	_, err := p.Complete(context.Background(), request(false))
	assert.Error(t, err)
}

func chunk(delta string, finish string) string {
	finishJSON := "null"
	if finish != "" {
		finishJSON = fmt.Sprintf("%q", finish)
	}
	return fmt.Sprintf(`{"id":"c","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":%s,"finish_reason":%s}]}`, delta, finishJSON)
}

func TestProvider_StreamAggregatesToolCalls(t *testing.T) {
	events := []string{
		chunk(`{"role":"assistant","content":"Sure"}`, ""),
		chunk(`{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"transferCall","arguments":""}}]}`, ""),
		chunk(`{"tool_calls":[{"index":0,"function":{"arguments":"{\"destination\":"}}]}`, ""),
		chunk(`{"tool_calls":[{"index":0,"function":{"arguments":"\"+15551234567\"}"}}]}`, ""),
		chunk(`{}`, "tool_calls"),
	}

	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, e := range events {
			fmt.Fprintf(w, "data: %s\n\n", e)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stream, err := p.Stream(context.Background(), request(true))
	require.NoError(t, err)
	defer stream.Close()

	var fragments []domain.Fragment
	for stream.Next() {
		fragments = append(fragments, stream.Current())
	}
	require.NoError(t, stream.Err())

	require.Len(t, fragments, 2)
	assert.Equal(t, "Sure", fragments[0].Content)
	require.NotNil(t, fragments[1].FunctionCall)
	assert.Equal(t, "transferCall", fragments[1].FunctionCall.Name)
	assert.JSONEq(t, `{"destination":"+15551234567"}`, fragments[1].FunctionCall.Arguments)
}

func TestProvider_StreamOpenFailure(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom"}}`)
	})

	_, err := p.Stream(context.Background(), request(true))
	assert.Error(t, err)
}
