package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/errors"
)

// Within returns fn's result if it arrives before timeout. On overrun the
// error wraps both apperrors.ErrTimeout and context.DeadlineExceeded, and fn
// is left to notice its cancelled context on its own. A timeout <= 0 calls fn
// directly.
func Within[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	type result struct {
		val T
		err error
	}
	bounded, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan result, 1)
	go func() {
		v, err := fn(bounded)
		ch <- result{v, err}
	}()

	var zero T
	select {
	case r := <-ch:
		return r.val, r.err
	case <-bounded.Done():
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%s: %w", name, err)
		}
		return zero, fmt.Errorf("%s: %w after %v: %w", name, apperrors.ErrTimeout, timeout, context.DeadlineExceeded)
	}
}

// WithTimeout is Within for functions that only return an error.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	_, err := Within(ctx, timeout, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
