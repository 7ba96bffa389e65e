package cache

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/resilience"
)

// breakerBackend routes every backend call through a circuit breaker so an
// unreachable Redis fails fast instead of adding its dial timeout to each
// scoring request.
type breakerBackend struct {
	next    Backend
	breaker *resilience.CircuitBreaker
}

// WithBreaker wraps backend in a circuit breaker. A cache miss caused by an
// open circuit is indistinguishable from a Redis error to ScoreCache.
func WithBreaker(backend Backend, cfg resilience.CircuitBreakerConfig) Backend {
	return &breakerBackend{
		next:    backend,
		breaker: resilience.NewCircuitBreaker("score-cache", cfg),
	}
}

func (b *breakerBackend) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	var found bool
	err := b.breaker.Execute(func() error {
		var err error
		found, err = b.next.GetJSON(ctx, key, dst)
		return err
	})
	return found, err
}

func (b *breakerBackend) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	return b.breaker.Execute(func() error {
		return b.next.SetJSON(ctx, key, value, ttl)
	})
}

func (b *breakerBackend) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var n int64
	err := b.breaker.Execute(func() error {
		var err error
		n, err = b.next.FlushByPattern(ctx, pattern)
		return err
	})
	return n, err
}
