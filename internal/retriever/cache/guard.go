package cache

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/resilience"
)

const defaultOpTimeout = 50 * time.Millisecond

// GuardedStore bounds every call to the backing Store with a deadline and
// trips a circuit breaker after repeated failures, so a slow or absent
// Redis costs searches at most one short timeout. Key misses and the
// caller's own cancellation or deadline do not count as failures.
type GuardedStore struct {
	next    Store
	breaker *resilience.CircuitBreaker
	timeout time.Duration
}

// NewGuardedStore wraps next. A non-positive timeout uses 50ms. m may be nil.
func NewGuardedStore(next Store, timeout time.Duration, m *metrics.Metrics) *GuardedStore {
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	cfg := resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     10 * time.Second,
		IsFailure:        isBackendFailure,
	}
	if m != nil {
		m.CircuitBreakerState.WithLabelValues("query-cache").Set(float64(resilience.StateClosed))
		cfg.OnStateChange = func(name string, _, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &GuardedStore{
		next:    next,
		breaker: resilience.NewCircuitBreaker("query-cache", cfg),
		timeout: timeout,
	}
}

func (g *GuardedStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := g.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, g.timeout, "cache get", func(ctx context.Context) error {
			var err error
			data, err = g.next.Get(ctx, key)
			return err
		})
	})
	return data, err
}

func (g *GuardedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, g.timeout, "cache set", func(ctx context.Context) error {
			return g.next.Set(ctx, key, value, ttl)
		})
	})
}

// FlushByPattern bypasses the timeout; a full scan can legitimately be slow.
func (g *GuardedStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var n int64
	err := g.breaker.Execute(func() error {
		var err error
		n, err = g.next.FlushByPattern(ctx, pattern)
		return err
	})
	return n, err
}

// isBackendFailure reports whether err should count against the breaker.
// Timeouts from the per-call deadline count; context errors that reach here
// unwrapped by ErrTimeout came from the caller.
func isBackendFailure(err error) bool {
	switch {
	case err == nil, pkgredis.IsNilError(err):
		return false
	case errors.Is(err, apperrors.ErrTimeout):
		return true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// State reports the breaker state.
func (g *GuardedStore) State() resilience.State {
	return g.breaker.GetState()
}
