package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/callflow/internal/testutils"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/observability"
	"github.com/aretw0/callflow/pkg/pathway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, graph *pathway.Graph) (*testutils.Fixture, http.Handler) {
	t.Helper()
	f := testutils.NewFixture(t, graph)
	h := NewHandler(f.Dispatcher, f.Config, f.Sessions,
		WithMetrics(observability.NewMetrics()),
		WithVersion("1.2.3\n"),
	)
	return f, h
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRoot(t *testing.T) {
	_, h := newTestHandler(t, pathway.Default())

	w := do(h, "GET", "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, Greeting, w.Body.String())
}

func TestHealthAndInfo(t *testing.T) {
	_, h := newTestHandler(t, pathway.Default())

	w := do(h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(h, "GET", "/info", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"app":"callflow-http","version":"1.2.3","nodes":1}`, w.Body.String())
}

func TestChatCompletions_MissingCallID(t *testing.T) {
	f, h := newTestHandler(t, pathway.Default())

	w := do(h, "POST", "/chat/completions", `{"messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)
	assert.Empty(t, f.Provider.Requests())
}

func TestChatCompletions_InvalidBody(t *testing.T) {
	_, h := newTestHandler(t, pathway.Default())

	w := do(h, "POST", "/chat/completions", `{"call":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatCompletions_NonStream(t *testing.T) {
	f, h := newTestHandler(t, pathway.Default())
	f.Provider.Completion = domain.Completion(`{"id":"cmpl-9","choices":[{"message":{"content":"hey"}}]}`)

	w := do(h, "POST", "/chat/completions", `{"call":{"id":"abc"},"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"cmpl-9","choices":[{"message":{"content":"hey"}}]}`, w.Body.String())
	assert.Equal(t, "start", f.StoredNode(t, "abc"))
}

func TestChatCompletions_ProviderErrorStatuses(t *testing.T) {
	f, h := newTestHandler(t, pathway.Default())
	f.Provider.Err = errors.New("upstream down")

	w := do(h, "POST", "/chat/completions", `{"call":{"id":"abc"},"messages":[]}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	f.Provider.Err = domain.ErrProviderTimeout
	w = do(h, "POST", "/chat/completions", `{"call":{"id":"abc"},"messages":[]}`)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestChatCompletions_Stream(t *testing.T) {
	f, h := newTestHandler(t, pathway.Default())
	f.Provider.Fragments = []domain.Fragment{
		{Content: "Transferring"},
		{FunctionCall: &domain.FunctionCall{Name: "transferCall", Arguments: `{"destination":"+15550001111"}`}},
		{FunctionCall: &domain.FunctionCall{Name: "transferCall", Arguments: `not json`}},
	}

	w := do(h, "POST", "/chat/completions", `{"call":{"id":"abc"},"stream":true,"messages":[{"role":"user","content":"transfer"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	var frames []string
	scanner := bufio.NewScanner(strings.NewReader(w.Body.String()))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			frames = append(frames, strings.TrimPrefix(line, "data: "))
		}
	}

	require.Len(t, frames, 2)
	assert.JSONEq(t, `{"choices":[{"delta":{"content":"Transferring"}}]}`, frames[0])
	assert.JSONEq(t, `{"function_call":{"name":"transferCall","arguments":{"destination":"+15550001111"}}}`, frames[1])
	assert.NotContains(t, w.Body.String(), "[DONE]")
}

func TestConfigEndpoints(t *testing.T) {
	_, h := newTestHandler(t, pathway.Default())

	w := do(h, "GET", "/config", "")
	require.Equal(t, http.StatusOK, w.Code)
	var cfg map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Equal(t, "+40761983263", cfg["forwardingPhoneNumber"])

	w = do(h, "POST", "/config", `{"forwardingPhoneNumber":"+15559998888"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","message":"Configuration updated"}`, w.Body.String())

	w = do(h, "GET", "/config", "")
	assert.Contains(t, w.Body.String(), "+15559998888")

	for _, bad := range []string{"", "{}", "[1,2]", "nope"} {
		w = do(h, "POST", "/config", bad)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", bad)
		assert.JSONEq(t, `{"status":"error","message":"Invalid configuration"}`, w.Body.String())
	}
}

func TestGetPathways(t *testing.T) {
	_, h := newTestHandler(t, pathway.Default())

	w := do(h, "GET", "/pathways", "")
	require.Equal(t, http.StatusOK, w.Code)

	g, err := pathway.LoadGraph(w.Body.Bytes(), pathway.JSON)
	require.NoError(t, err)
	assert.Equal(t, pathway.Default().Nodes(), g.Nodes())
}

func TestGetCall(t *testing.T) {
	f, h := newTestHandler(t, pathway.Default())

	w := do(h, "GET", "/calls/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, f.States.Set(context.Background(), "abc", "start"))
	w = do(h, "GET", "/calls/abc", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"call_id":"abc","node":"start"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	_, h := newTestHandler(t, pathway.Default())

	_ = do(h, "POST", "/chat/completions", `{"call":{"id":"abc"},"messages":[]}`)

	w := do(h, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `callflow_dispatch_total{node="start",provider="openai",stream="false"} 1`)
}

func TestSubscribeEvents_Call(t *testing.T) {
	_, h := newTestHandler(t, pathway.Default())
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/calls/abc/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	post, err := http.Post(srv.URL+"/chat/completions", "application/json",
		strings.NewReader(`{"call":{"id":"abc"},"messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	post.Body.Close()

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			break
		}
	}

	var event CallEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &event))
	assert.Equal(t, "abc", event.CallID)
	assert.Equal(t, "start", event.Node)
	assert.True(t, event.Advanced)
}

func TestCORSPreflight(t *testing.T) {
	_, h := newTestHandler(t, pathway.Default())

	w := do(h, "OPTIONS", "/chat/completions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
