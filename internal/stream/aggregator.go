package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/kafka"
	"gonum.org/v1/gonum/stat"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

// AggregatedStats is a snapshot of everything seen on the results topic.
type AggregatedStats struct {
	TotalEvents     int64              `json:"total_events"`
	Outcomes        map[string]int64   `json:"outcomes"`
	CacheHitRate    float64            `json:"cache_hit_rate"`
	AvgLatencyMs    float64            `json:"avg_latency_ms"`
	P50LatencyMs    float64            `json:"p50_latency_ms"`
	P95LatencyMs    float64            `json:"p95_latency_ms"`
	P99LatencyMs    float64            `json:"p99_latency_ms"`
	Dictionaries    []DictionaryTotals `json:"dictionaries"`
	TopLabels       []LabelCount       `json:"top_labels"`
	EventsPerMinute float64            `json:"events_per_minute"`
}

// DictionaryTotals is the running mean of a dictionary's headline metric:
// the proportion for term sets and the weighted average for weighted
// dictionaries. Documents where the metric was undefined count as excluded.
type DictionaryTotals struct {
	Dictionary string          `json:"dictionary"`
	Kind       dictionary.Kind `json:"kind"`
	Documents  int64           `json:"documents"`
	Excluded   int64           `json:"excluded"`
	Mean       *float64        `json:"mean"`
}

type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type running struct {
	kind     dictionary.Kind
	n        int64
	excluded int64
	sum      float64
}

// Aggregator folds score events into in-memory totals.
type Aggregator struct {
	mu        sync.RWMutex
	total     int64
	outcomes  map[events.Outcome]int64
	latencies []float64
	next      int
	dicts     map[string]*running
	labels    map[string]int64
	startTime time.Time
	logger    *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		outcomes:  make(map[events.Outcome]int64),
		latencies: make([]float64, 0, 1024),
		dicts:     make(map[string]*running),
		labels:    make(map[string]int64),
		startTime: time.Now(),
		logger:    slog.Default().With("component", "score-aggregator"),
	}
}

// HandleMessage returns the kafka.MessageHandler for the results topic.
// Undecodable messages are logged and skipped.
func (a *Aggregator) HandleMessage() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[events.ScoreEvent](value)
		if err != nil {
			a.logger.Error("failed to decode score event", "error", err, "key", string(key))
			return nil
		}
		a.Record(event)
		return nil
	}
}

// Record adds one event to the totals.
func (a *Aggregator) Record(event events.ScoreEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.outcomes[event.Outcome]++
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, float64(event.LatencyMs))
	} else {
		a.latencies[a.next] = float64(event.LatencyMs)
		a.next = (a.next + 1) % maxLatencySamples
	}

	if event.Score == nil {
		return
	}
	if event.Score.Label != "" {
		a.labels[event.Score.Label]++
	}
	for _, res := range event.Score.Results {
		r, ok := a.dicts[res.Dictionary]
		if !ok {
			r = &running{kind: res.Kind}
			a.dicts[res.Dictionary] = r
		}
		v := res.Proportion
		if res.Kind == dictionary.KindWeighted {
			v = res.WeightedAverage
		}
		if v == nil {
			r.excluded++
			continue
		}
		r.n++
		r.sum += *v
	}
}

// Stats returns a snapshot of the totals.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalEvents: a.total,
		Outcomes:    make(map[string]int64, len(a.outcomes)),
	}
	for o, n := range a.outcomes {
		stats.Outcomes[string(o)] = n
	}
	if served := a.outcomes[events.OutcomeScored] + a.outcomes[events.OutcomeCacheHit]; served > 0 {
		stats.CacheHitRate = float64(a.outcomes[events.OutcomeCacheHit]) / float64(served)
	}

	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)
		stats.AvgLatencyMs = stat.Mean(sorted, nil)
		stats.P50LatencyMs = stat.Quantile(0.50, stat.Empirical, sorted, nil)
		stats.P95LatencyMs = stat.Quantile(0.95, stat.Empirical, sorted, nil)
		stats.P99LatencyMs = stat.Quantile(0.99, stat.Empirical, sorted, nil)
	}

	stats.Dictionaries = make([]DictionaryTotals, 0, len(a.dicts))
	for name, r := range a.dicts {
		dt := DictionaryTotals{Dictionary: name, Kind: r.kind, Documents: r.n, Excluded: r.excluded}
		if r.n > 0 {
			mean := r.sum / float64(r.n)
			dt.Mean = &mean
		}
		stats.Dictionaries = append(stats.Dictionaries, dt)
	}
	sort.Slice(stats.Dictionaries, func(i, j int) bool {
		return stats.Dictionaries[i].Dictionary < stats.Dictionaries[j].Dictionary
	})
	stats.TopLabels = topLabels(a.labels, 10)

	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.EventsPerMinute = float64(a.total) / elapsed
	}
	return stats
}

// ServeHTTP writes the current Stats as JSON.
func (a *Aggregator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(a.Stats()); err != nil {
		a.logger.Error("failed to write stats response", "error", err)
	}
}

func topLabels(counts map[string]int64, n int) []LabelCount {
	result := make([]LabelCount, 0, len(counts))
	for label, count := range counts {
		result = append(result, LabelCount{Label: label, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Label < result[j].Label
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
