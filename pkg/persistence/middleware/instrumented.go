package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/observability"
	"github.com/aretw0/callflow/pkg/ports"
)

type metricsMiddleware struct {
	next    ports.CallStateStore
	metrics *observability.Metrics
}

// NewMetricsMiddleware records the latency and outcome of every store operation.
// A Get of an unknown call counts as "miss", not as an error.
func NewMetricsMiddleware(m *observability.Metrics) Middleware {
	return func(next ports.CallStateStore) ports.CallStateStore {
		if m == nil {
			return next
		}
		return &metricsMiddleware{next: next, metrics: m}
	}
}

func (s *metricsMiddleware) observe(op string, started time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, domain.ErrCallNotFound):
		result = "miss"
	case err != nil:
		result = "error"
	}
	s.metrics.ObserveStore(op, result, time.Since(started))
}

func (s *metricsMiddleware) Get(ctx context.Context, callID string) (string, error) {
	started := time.Now()
	node, err := s.next.Get(ctx, callID)
	s.observe("get", started, err)
	return node, err
}

func (s *metricsMiddleware) Set(ctx context.Context, callID, nodeName string) error {
	started := time.Now()
	err := s.next.Set(ctx, callID, nodeName)
	s.observe("set", started, err)
	return err
}

func (s *metricsMiddleware) Delete(ctx context.Context, callID string) error {
	started := time.Now()
	err := s.next.Delete(ctx, callID)
	s.observe("delete", started, err)
	return err
}

func (s *metricsMiddleware) List(ctx context.Context) ([]string, error) {
	started := time.Now()
	ids, err := s.next.List(ctx)
	s.observe("list", started, err)
	return ids, err
}
