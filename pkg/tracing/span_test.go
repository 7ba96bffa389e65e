package tracing

import (
	"context"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
)

func TestChildSpansShareTrace(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "analysis.run", "")
	if root.TraceID == "" {
		t.Fatal("expected generated trace id")
	}

	childCtx, child := StartChildSpan(ctx, "analysis.score")
	child.SetAttr("documents", 3)
	time.Sleep(time.Millisecond)
	child.End()

	if FromContext(childCtx) != child {
		t.Fatal("child span should be stored in its context")
	}
	if child.TraceID != root.TraceID {
		t.Errorf("child trace %q != root trace %q", child.TraceID, root.TraceID)
	}
	root.End()
	if root.Duration() < child.Duration() {
		t.Errorf("root duration %v shorter than child %v", root.Duration(), child.Duration())
	}
}

func TestEndIsIdempotent(t *testing.T) {
	_, span := StartSpan(context.Background(), "load", "")
	span.End()
	first := span.Duration()
	time.Sleep(2 * time.Millisecond)
	span.End()
	if span.Duration() != first {
		t.Errorf("second End changed duration from %v to %v", first, span.Duration())
	}
}

func TestStageDurations(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "analysis.run", "")
	for _, name := range []string{"analysis.score", "analysis.rank", "analysis.rank"} {
		_, s := StartChildSpan(ctx, name)
		s.End()
	}
	_, open := StartChildSpan(ctx, "analysis.summarize")

	stages := root.StageDurations()
	if len(stages) != 2 {
		t.Errorf("stages = %v, want only ended children", stages)
	}
	if _, ok := stages["analysis.rank"]; !ok {
		t.Errorf("missing analysis.rank in %v", stages)
	}
	open.End()
}

func TestChildWithoutParentStartsTrace(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	if span.TraceID == "" || span.parent != nil {
		t.Fatalf("orphan child should become a root: %+v", span)
	}
}

func TestConfigureSampling(t *testing.T) {
	defer Configure(config.TracingConfig{Enabled: true, SampleRate: 1})

	Configure(config.TracingConfig{Enabled: false, SampleRate: 1})
	if _, s := StartSpan(context.Background(), "x", ""); s.sampled {
		t.Error("disabled tracing must not sample")
	}
	Configure(config.TracingConfig{Enabled: true, SampleRate: 5})
	ctx, s := StartSpan(context.Background(), "x", "")
	if !s.sampled {
		t.Error("a rate above 1 should clamp to always")
	}
	if _, c := StartChildSpan(ctx, "y"); !c.sampled {
		t.Error("children inherit the sampling decision")
	}
}
