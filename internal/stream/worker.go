// Package stream scores documents arriving on Kafka. Each ScoreRequest is
// tokenized, scored against the dictionary registry and answered with a
// ScoreEvent on the results topic.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/resilience"
)

// Tracker receives result events for publishing.
type Tracker interface {
	Track(key string, value any)
}

// Worker turns score requests into score events.
type Worker struct {
	tokenizer *tokenizer.Tokenizer
	scorer    *scorer.Scorer
	cache     *cache.ScoreCache
	results   Tracker
	metrics   *metrics.Metrics
	timeout   time.Duration
	logger    *slog.Logger
}

// NewWorker creates a Worker. scoreCache and m may be nil; timeout <= 0
// disables the per-request deadline.
func NewWorker(tok *tokenizer.Tokenizer, s *scorer.Scorer, scoreCache *cache.ScoreCache, results Tracker, m *metrics.Metrics, timeout time.Duration) *Worker {
	return &Worker{
		tokenizer: tok,
		scorer:    s,
		cache:     scoreCache,
		results:   results,
		metrics:   m,
		timeout:   timeout,
		logger:    slog.Default().With("component", "stream-worker"),
	}
}

// HandleMessage returns the kafka.MessageHandler for the score request topic.
// Undecodable and invalid requests are acknowledged so they are not retried;
// only a timed-out or cancelled score returns an error.
func (wk *Worker) HandleMessage() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		req, err := kafka.DecodeJSON[events.ScoreRequest](value)
		if err != nil {
			wk.logger.Error("failed to decode score request",
				"error", err,
				"key", string(key),
			)
			wk.count(events.OutcomeInvalid)
			return nil
		}
		if req.DocumentID == "" {
			req.DocumentID = string(key)
		}
		if req.RequestID != "" {
			ctx = logger.WithRequestID(ctx, req.RequestID)
		}
		event, err := wk.Process(ctx, req)
		if err != nil {
			return err
		}
		wk.results.Track(event.DocumentID, event)
		return nil
	}
}

// Process scores one request. The returned event carries either the score or
// the reason the request was rejected.
func (wk *Worker) Process(ctx context.Context, req events.ScoreRequest) (events.ScoreEvent, error) {
	start := time.Now()
	ctx = logger.With(ctx, "doc_id", req.DocumentID)
	log := logger.FromContext(ctx)
	event := events.ScoreEvent{
		RequestID:  req.RequestID,
		DocumentID: req.DocumentID,
		Registry:   wk.scorer.Registry().Version(),
	}
	finish := func(outcome events.Outcome) events.ScoreEvent {
		event.Outcome = outcome
		event.LatencyMs = time.Since(start).Milliseconds()
		event.Timestamp = time.Now().UTC()
		wk.count(outcome)
		return event
	}

	if err := validate(req); err != nil {
		log.Warn("rejecting score request", "error", err)
		event.Error = err.Error()
		return finish(events.OutcomeInvalid), nil
	}

	tokens := req.Tokens
	if tokens == nil {
		tokens = wk.tokenizer.Tokenize(req.Text)
	}
	doc := scorer.Document{ID: req.DocumentID, Label: req.Label, Tokens: tokens}

	type scored struct {
		ds  *scorer.DocumentScore
		hit bool
	}
	res, err := resilience.Within(ctx, wk.timeout, "score "+req.DocumentID, func(ctx context.Context) (scored, error) {
		if wk.cache == nil {
			ds := wk.scorer.Score(doc)
			return scored{ds: &ds}, nil
		}
		ds, hit, err := wk.cache.GetOrCompute(ctx, doc, func() (*scorer.DocumentScore, error) {
			ds := wk.scorer.Score(doc)
			return &ds, nil
		})
		return scored{ds, hit}, err
	})
	if err != nil {
		wk.count(events.OutcomeFailed)
		return events.ScoreEvent{}, fmt.Errorf("scoring %s: %w", req.DocumentID, err)
	}
	ds, hit := res.ds, res.hit
	wk.observe(ds)
	event.Score = ds

	outcome := events.OutcomeScored
	if hit {
		outcome = events.OutcomeCacheHit
	}
	log.Debug("score request processed",
		"tokens", ds.Tokens,
		"cache_hit", hit,
	)
	return finish(outcome), nil
}

func validate(req events.ScoreRequest) error {
	switch {
	case req.DocumentID == "":
		return errors.New("document_id is required")
	case req.Text != "" && req.Tokens != nil:
		return errors.New("text and tokens are mutually exclusive")
	}
	return nil
}

func (wk *Worker) count(outcome events.Outcome) {
	if wk.metrics != nil {
		wk.metrics.StreamEventsTotal.WithLabelValues(string(outcome)).Inc()
	}
}

func (wk *Worker) observe(ds *scorer.DocumentScore) {
	if wk.metrics == nil {
		return
	}
	for _, res := range ds.Results {
		wk.metrics.DocumentsScored.WithLabelValues(res.Dictionary).Inc()
		for _, reason := range res.Excluded {
			wk.metrics.ScoreExclusions.WithLabelValues(res.Dictionary, string(reason)).Inc()
		}
	}
}
