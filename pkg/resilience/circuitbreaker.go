// Package resilience guards calls to Redis, PostgreSQL and Kafka: retry with
// exponential backoff and jitter, a circuit breaker, and a timeout wrapper.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current phase of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig controls failure thresholds and recovery timing.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	// IsFailure decides which errors count against the backend. The default
	// ignores context cancellation, which is the caller giving up rather than
	// the dependency misbehaving.
	IsFailure func(error) bool
	// OnStateChange runs after the transition, outside the breaker lock.
	OnStateChange func(name string, from, to State)
}

func countsAsFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// CircuitBreaker trips open after FailureThreshold consecutive failures.
// Once ResetTimeout has elapsed it lets up to HalfOpenMaxRequests probes
// through; a successful probe closes it and a failed one re-opens it.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probes   int
	// generation changes on every transition so that a call admitted under an
	// older state cannot affect the current one.
	generation uint64
}

// NewCircuitBreaker creates a CircuitBreaker with the given config, filling
// in defaults for zero values.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = countsAsFailure
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Execute runs fn if the circuit allows it, recording success or failure.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	gen, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.record(gen, err)
	return err
}

// State returns the current State of the circuit breaker.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the circuit breaker back to the Closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from, changed := cb.transition(StateClosed)
	cb.failures = 0
	cb.mu.Unlock()
	cb.logger.Info("circuit manually reset")
	cb.notify(from, StateClosed, changed)
}

func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	var (
		from    State
		changed bool
	)
	if cb.state == StateOpen {
		wait := cb.cfg.ResetTimeout - time.Since(cb.openedAt)
		if wait > 0 {
			cb.mu.Unlock()
			return 0, fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
		}
		from, changed = cb.transition(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.probes >= cb.cfg.HalfOpenMaxRequests {
			cb.mu.Unlock()
			return 0, fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
		}
		cb.probes++
	}
	gen := cb.generation
	cb.mu.Unlock()

	if changed {
		cb.logger.Info("circuit half-open, probing")
	}
	cb.notify(from, StateHalfOpen, changed)
	return gen, nil
}

func (cb *CircuitBreaker) record(gen uint64, err error) {
	cb.mu.Lock()
	if gen != cb.generation {
		cb.mu.Unlock()
		return
	}
	failed := err != nil && cb.cfg.IsFailure(err)
	var (
		from    State
		to      = cb.state
		changed bool
	)
	switch {
	case !failed && cb.state == StateHalfOpen:
		to = StateClosed
		from, changed = cb.transition(to)
	case !failed:
		cb.failures = 0
	case cb.state == StateHalfOpen:
		to = StateOpen
		from, changed = cb.transition(to)
	default:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			to = StateOpen
			from, changed = cb.transition(to)
		}
	}
	failures := cb.failures
	cb.mu.Unlock()

	if changed {
		cb.logger.Info("circuit state changed",
			"from", from.String(),
			"to", to.String(),
			"consecutive_failures", failures,
		)
	}
	cb.notify(from, to, changed)
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(to State) (from State, changed bool) {
	from = cb.state
	if from == to {
		return from, false
	}
	cb.state = to
	cb.generation++
	cb.probes = 0
	switch to {
	case StateOpen:
		cb.openedAt = time.Now()
	case StateClosed:
		cb.failures = 0
	}
	return from, true
}

func (cb *CircuitBreaker) notify(from, to State, changed bool) {
	if changed && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}
