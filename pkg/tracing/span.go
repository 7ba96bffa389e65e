// Package tracing times the stages of an analysis run. Spans travel in the
// context and form a tree under a root span; when the root ends, the tree is
// logged if the trace was sampled.
package tracing

import (
	"context"
	"log/slog"
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/google/uuid"
)

type spanKey struct{}

// sampleRate holds the float64 bits of the fraction of root spans logged.
// Spans are always timed; sampling only decides whether the tree is logged.
var sampleRate atomic.Uint64

func init() {
	Configure(config.TracingConfig{Enabled: true, SampleRate: 1})
}

// Configure sets process-wide sampling from cfg. A disabled config logs
// nothing.
func Configure(cfg config.TracingConfig) {
	rate := min(max(cfg.SampleRate, 0), 1)
	if !cfg.Enabled {
		rate = 0
	}
	sampleRate.Store(math.Float64bits(rate))
}

// Span is one timed stage of a trace.
type Span struct {
	Name    string
	TraceID string
	Start   time.Time

	mu       sync.Mutex
	duration time.Duration
	ended    bool
	attrs    map[string]any
	children []*Span
	parent   *Span
	sampled  bool
}

// StartSpan creates a new root span and stores it in the returned context.
// An empty traceID is replaced with a random UUID.
func StartSpan(ctx context.Context, name string, traceID string) (context.Context, *Span) {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	span := &Span{
		Name:    name,
		TraceID: traceID,
		Start:   time.Now(),
		sampled: rand.Float64() < math.Float64frombits(sampleRate.Load()),
	}
	return context.WithValue(ctx, spanKey{}, span), span
}

// StartChildSpan creates a child of the span in ctx. Without a parent it
// starts a new trace.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent := FromContext(ctx)
	if parent == nil {
		return StartSpan(ctx, name, "")
	}
	child := &Span{
		Name:    name,
		TraceID: parent.TraceID,
		Start:   time.Now(),
		parent:  parent,
		sampled: parent.sampled,
	}
	parent.mu.Lock()
	parent.children = append(parent.children, child)
	parent.mu.Unlock()
	return context.WithValue(ctx, spanKey{}, child), child
}

// FromContext returns the current span, or nil.
func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(spanKey{}).(*Span)
	return span
}

// End fixes the span's duration. Only the first call counts. Ending a sampled
// root span logs the tree.
func (s *Span) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.duration = time.Since(s.Start)
	s.mu.Unlock()

	if s.parent == nil && s.sampled {
		s.log(slog.Default(), 0)
	}
}

// Duration is the span's length once ended, or the time elapsed so far.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return s.duration
	}
	return time.Since(s.Start)
}

// SetAttr attaches a key-value attribute to the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attrs == nil {
		s.attrs = make(map[string]any)
	}
	s.attrs[key] = value
}

// StageDurations maps the name of each ended direct child to its duration in
// milliseconds. Repeated names are summed.
func (s *Span) StageDurations() map[string]int64 {
	s.mu.Lock()
	children := slices.Clone(s.children)
	s.mu.Unlock()

	out := make(map[string]int64, len(children))
	for _, c := range children {
		c.mu.Lock()
		if c.ended {
			out[c.Name] += c.duration.Milliseconds()
		}
		c.mu.Unlock()
	}
	return out
}

func (s *Span) log(l *slog.Logger, depth int) {
	s.mu.Lock()
	args := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"depth", depth,
		"duration_ms", s.duration.Milliseconds(),
	}
	for _, k := range slices.Sorted(maps.Keys(s.attrs)) {
		args = append(args, k, s.attrs[k])
	}
	children := slices.Clone(s.children)
	s.mu.Unlock()

	l.Debug("span", args...)
	for _, c := range children {
		c.log(l, depth+1)
	}
}
