package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/callflow/pkg/adapters/memory"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/observability"
	"github.com/aretw0/callflow/pkg/persistence/middleware"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	ports.CallStateStore
}

func (failingStore) Set(ctx context.Context, callID, nodeName string) error {
	return errors.New("disk full")
}

func TestMetricsMiddleware(t *testing.T) {
	ctx := context.Background()
	m := observability.NewMetrics()
	store := middleware.Chain(memory.NewStore(), middleware.NewMetricsMiddleware(m))

	_, err := store.Get(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrCallNotFound)
	require.NoError(t, store.Set(ctx, "c1", "start"))
	node, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "start", node)
	require.NoError(t, store.Delete(ctx, "c1"))
	_, err = store.List(ctx)
	require.NoError(t, err)

	failing := middleware.Chain(failingStore{memory.NewStore()}, middleware.NewMetricsMiddleware(m))
	assert.Error(t, failing.Set(ctx, "c2", "start"))

	text := scrape(t, m)
	assert.Contains(t, text, `callflow_store_operations_total{op="get",result="miss"} 1`)
	assert.Contains(t, text, `callflow_store_operations_total{op="get",result="ok"} 1`)
	assert.Contains(t, text, `callflow_store_operations_total{op="set",result="ok"} 1`)
	assert.Contains(t, text, `callflow_store_operations_total{op="set",result="error"} 1`)
	assert.Contains(t, text, `callflow_store_operations_total{op="delete",result="ok"} 1`)
	assert.Contains(t, text, `callflow_store_operations_total{op="list",result="ok"} 1`)
	assert.Contains(t, text, `callflow_store_operation_duration_seconds_count{op="get"} 2`)
}

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetricsMiddleware_NilMetricsIsPassthrough(t *testing.T) {
	inner := memory.NewStore()
	assert.Same(t, ports.CallStateStore(inner), middleware.NewMetricsMiddleware(nil)(inner))
}

func TestChain_Order(t *testing.T) {
	var trace []string
	tag := func(name string) middleware.Middleware {
		return func(next ports.CallStateStore) ports.CallStateStore {
			return tracingStore{CallStateStore: next, name: name, trace: &trace}
		}
	}

	store := middleware.Chain(memory.NewStore(), tag("outer"), tag("inner"))
	require.NoError(t, store.Set(context.Background(), "c1", "start"))
	assert.Equal(t, []string{"outer", "inner"}, trace)
}

type tracingStore struct {
	ports.CallStateStore
	name  string
	trace *[]string
}

func (s tracingStore) Set(ctx context.Context, callID, nodeName string) error {
	*s.trace = append(*s.trace, s.name)
	return s.CallStateStore.Set(ctx, callID, nodeName)
}
