// Package analysis runs a whole corpus through the scorer and reduces the
// per-document scores to an auditable report: group means and spreads,
// exclusion counts, distinctive terms and the highest and lowest rated terms
// of each group.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/tfidf"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/tracing"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Options tunes a Pipeline.
type Options struct {
	Workers     int
	TopK        int
	Aggregation scorer.Aggregation
	// Normalize L2-normalises TF-IDF columns before grouping.
	Normalize bool
	// KeepScores attaches per-document scores to the report.
	KeepScores bool
}

// OptionsFromConfig converts the scoring section of the config.
func OptionsFromConfig(cfg config.ScoringConfig) (Options, error) {
	agg, err := scorer.ParseAggregation(cfg.Aggregation)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Workers:     cfg.Workers,
		TopK:        cfg.TopK,
		Aggregation: agg,
		Normalize:   true,
	}, nil
}

// Pipeline scores documents in parallel and builds a Report.
type Pipeline struct {
	scorer  *scorer.Scorer
	metrics *metrics.Metrics
	opts    Options
	logger  *slog.Logger
}

// New creates a Pipeline. m may be nil.
func New(s *scorer.Scorer, m *metrics.Metrics, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Aggregation == "" {
		opts.Aggregation = scorer.AggregateMax
	}
	return &Pipeline{
		scorer:  s,
		metrics: m,
		opts:    opts,
		logger:  slog.Default().With("component", "analysis"),
	}
}

// Run scores every document and summarises the results. Undefined metrics
// exclude a document from the affected statistics without failing the run.
// Only context cancellation aborts it.
func (p *Pipeline) Run(ctx context.Context, docs []scorer.Document) (*Report, error) {
	ctx, span := tracing.StartChildSpan(ctx, "analysis.run")
	defer span.End()
	span.SetAttr("documents", len(docs))

	start := time.Now()
	report := &Report{
		RunID:       uuid.NewString(),
		StartedAt:   start.UTC(),
		Documents:   len(docs),
		Registry:    p.scorer.Registry().Version(),
		Aggregation: p.opts.Aggregation,
	}
	report.Groups, report.GroupSizes = groupsOf(docs)

	scores, err := p.ScoreAll(ctx, docs)
	if err != nil {
		return nil, err
	}

	_, sumSpan := tracing.StartChildSpan(ctx, "analysis.summarize")
	report.Summaries, report.Exclusions = summarize(p.scorer.Registry(), scores, report.Groups)
	sumSpan.End()

	_, rankSpan := tracing.StartChildSpan(ctx, "analysis.rank")
	report.Distinctive, err = p.distinctive(docs)
	if err != nil {
		rankSpan.End()
		return nil, fmt.Errorf("ranking distinctive terms: %w", err)
	}
	report.Rated = p.rated(docs)
	rankSpan.End()

	if p.opts.KeepScores {
		report.Scores = scores
	}
	elapsed := time.Since(start)
	report.DurationMs = elapsed.Milliseconds()
	report.StageMs = span.StageDurations()
	p.observe(scores, report.Exclusions, elapsed)

	p.logger.Info("analysis complete",
		"run_id", report.RunID,
		"documents", report.Documents,
		"groups", len(report.Groups),
		"excluded", report.TotalExcluded(),
		"duration_ms", report.DurationMs,
	)
	for _, e := range report.Exclusions {
		p.logger.Info("documents excluded", "dictionary", e.Dictionary, "reason", e.Reason, "count", e.Count)
	}
	return report, nil
}

// ScoreAll scores docs with up to Options.Workers goroutines. Output order
// matches input order, so the result equals sequential scoring.
func (p *Pipeline) ScoreAll(ctx context.Context, docs []scorer.Document) ([]scorer.DocumentScore, error) {
	ctx, span := tracing.StartChildSpan(ctx, "analysis.score")
	defer span.End()
	span.SetAttr("workers", p.opts.Workers)

	scores := make([]scorer.DocumentScore, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores[i] = p.scorer.Score(docs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring documents: %w", err)
	}
	return scores, nil
}

func (p *Pipeline) distinctive(docs []scorer.Document) (map[string][]scorer.TermScore, error) {
	tokens := make([][]string, len(docs))
	labels := make([]string, len(docs))
	for i, d := range docs {
		tokens[i] = d.Tokens
		labels[i] = d.Label
	}
	matrix := tfidf.Build(tokens, tfidf.Options{Normalize: p.opts.Normalize})
	return scorer.DistinctiveTerms(matrix, labels, p.opts.Aggregation, p.opts.TopK)
}

// rated ranks, per weighted dictionary and group, the rated terms that occur
// in the group's own documents.
func (p *Pipeline) rated(docs []scorer.Document) map[string]map[string]Extremes {
	weighted := p.scorer.Registry().WeightedDictionaries()
	if len(weighted) == 0 {
		return nil
	}
	vocab := make(map[string]scorer.Frequencies)
	for _, d := range docs {
		freqs := vocab[d.Label]
		if freqs == nil {
			freqs = make(scorer.Frequencies)
			vocab[d.Label] = freqs
		}
		for _, tok := range d.Tokens {
			freqs[tok]++
		}
	}

	out := make(map[string]map[string]Extremes, len(weighted))
	for _, w := range weighted {
		groups := make(map[string]Extremes, len(vocab))
		for label, freqs := range vocab {
			terms := scorer.RatedTerms(freqs, w)
			groups[label] = Extremes{
				Highest: scorer.RankTerms(terms, p.opts.TopK, false),
				Lowest:  scorer.RankTerms(terms, p.opts.TopK, true),
			}
		}
		out[w.Name()] = groups
	}
	return out
}

func (p *Pipeline) observe(scores []scorer.DocumentScore, exclusions []Exclusion, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}
	p.metrics.BatchDuration.Observe(elapsed.Seconds())
	for _, name := range p.scorer.Registry().Names() {
		p.metrics.DocumentsScored.WithLabelValues(name).Add(float64(len(scores)))
	}
	for _, e := range exclusions {
		p.metrics.ScoreExclusions.WithLabelValues(e.Dictionary, string(e.Reason)).Add(float64(e.Count))
	}
}

func groupsOf(docs []scorer.Document) ([]string, map[string]int) {
	sizes := make(map[string]int)
	for _, d := range docs {
		sizes[d.Label]++
	}
	groups := make([]string, 0, len(sizes))
	for g := range sizes {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups, sizes
}
