package analysis

import (
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metric names used in summaries.
const (
	MetricProportion      = "proportion"
	MetricWeightedAverage = "weighted_average"
	MetricSentimentNet    = "net"
)

// SentimentDictionary labels the sentiment summary, which combines the
// positive and negative term lists.
const SentimentDictionary = "sentiment"

// Stat summarises the defined values of one metric. Documents whose value is
// undefined are counted in Excluded and contribute nothing else. StdDev is
// the sample standard deviation and needs at least two values.
type Stat struct {
	N        int      `json:"n"`
	Excluded int      `json:"excluded"`
	Mean     *float64 `json:"mean,omitempty"`
	StdDev   *float64 `json:"std_dev,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
}

// DictionarySummary holds a metric's statistics overall and per group.
type DictionarySummary struct {
	Dictionary string          `json:"dictionary"`
	Kind       dictionary.Kind `json:"kind,omitempty"`
	Metric     string          `json:"metric"`
	Overall    Stat            `json:"overall"`
	Groups     map[string]Stat `json:"groups"`
}

// Exclusion counts documents left out of a dictionary's statistics.
type Exclusion struct {
	Dictionary string                 `json:"dictionary"`
	Reason     scorer.ExclusionReason `json:"reason"`
	Count      int                    `json:"count"`
}

// Extremes lists a group's highest and lowest rated terms.
type Extremes struct {
	Highest []scorer.TermScore `json:"highest"`
	Lowest  []scorer.TermScore `json:"lowest"`
}

// Report is the aggregate outcome of one analysis run. Per-document scores
// ride along in Scores for display but are never serialised.
type Report struct {
	RunID       string                         `json:"run_id"`
	StartedAt   time.Time                      `json:"started_at"`
	DurationMs  int64                          `json:"duration_ms"`
	Documents   int                            `json:"documents"`
	Groups      []string                       `json:"groups"`
	GroupSizes  map[string]int                 `json:"group_sizes"`
	Registry    string                         `json:"registry_version"`
	Aggregation scorer.Aggregation             `json:"aggregation"`
	Summaries   []DictionarySummary            `json:"summaries"`
	Exclusions  []Exclusion                    `json:"exclusions"`
	Distinctive map[string][]scorer.TermScore  `json:"distinctive"`
	Rated       map[string]map[string]Extremes `json:"rated,omitempty"`
	StageMs     map[string]int64               `json:"stage_ms,omitempty"`
	Scores      []scorer.DocumentScore         `json:"-"`
}

// Summary returns the summary of dictionary's metric.
func (r *Report) Summary(dictionary, metric string) (DictionarySummary, bool) {
	for _, s := range r.Summaries {
		if s.Dictionary == dictionary && s.Metric == metric {
			return s, true
		}
	}
	return DictionarySummary{}, false
}

// TotalExcluded is the number of document/dictionary pairs whose summarised
// metric is undefined. It equals the sum of every summary's Overall.Excluded.
func (r *Report) TotalExcluded() int {
	n := 0
	for _, e := range r.Exclusions {
		n += e.Count
	}
	return n
}

// collector gathers one metric's defined values overall and per group.
type collector struct {
	overall  []float64
	excluded int
	groups   map[string][]float64
	gExcl    map[string]int
}

func newCollector() *collector {
	return &collector{groups: make(map[string][]float64), gExcl: make(map[string]int)}
}

func (c *collector) add(group string, v *float64) {
	if v == nil {
		c.excluded++
		c.gExcl[group]++
		return
	}
	c.overall = append(c.overall, *v)
	c.groups[group] = append(c.groups[group], *v)
}

func (c *collector) summary(name string, kind dictionary.Kind, metric string, groups []string) DictionarySummary {
	s := DictionarySummary{
		Dictionary: name,
		Kind:       kind,
		Metric:     metric,
		Overall:    describe(c.overall, c.excluded),
		Groups:     make(map[string]Stat, len(groups)),
	}
	for _, g := range groups {
		s.Groups[g] = describe(c.groups[g], c.gExcl[g])
	}
	return s
}

func describe(values []float64, excluded int) Stat {
	st := Stat{N: len(values), Excluded: excluded}
	if len(values) == 0 {
		return st
	}
	mean, std := stat.MeanStdDev(values, nil)
	lo, hi := floats.Min(values), floats.Max(values)
	st.Mean, st.Min, st.Max = &mean, &lo, &hi
	if len(values) > 1 {
		st.StdDev = &std
	}
	return st
}

// summarize builds per-dictionary statistics and exclusion counts from the
// scores, in dictionary name order.
func summarize(reg *dictionary.Registry, scores []scorer.DocumentScore, groups []string) ([]DictionarySummary, []Exclusion) {
	names := reg.Names()
	collectors := make(map[string]*collector, len(names))
	for _, name := range names {
		collectors[name] = newCollector()
	}
	sentiment := newCollector()
	_, _, hasSentiment := reg.Sentiment()
	excl := make(map[string]map[scorer.ExclusionReason]int)
	exclude := func(dict string, reason scorer.ExclusionReason) {
		if excl[dict] == nil {
			excl[dict] = make(map[scorer.ExclusionReason]int)
		}
		excl[dict][reason]++
	}

	// Exclusions follow the summarised metric, so each summary's Excluded
	// count equals its entries in the exclusion list.
	for _, ds := range scores {
		for _, r := range ds.Results {
			value := r.Proportion
			if r.Kind == dictionary.KindWeighted {
				value = r.WeightedAverage
			}
			collectors[r.Dictionary].add(ds.Label, value)
			if value == nil {
				reason := scorer.ReasonEmptyDocument
				if len(r.Excluded) > 0 {
					reason = r.Excluded[0]
				}
				exclude(r.Dictionary, reason)
			}
		}
		if ds.Sentiment != nil {
			sentiment.add(ds.Label, ds.Sentiment.Net)
			if ds.Sentiment.Net == nil {
				exclude(SentimentDictionary, scorer.ReasonEmptyDocument)
			}
		}
	}

	summaries := make([]DictionarySummary, 0, len(names)+1)
	for _, name := range names {
		kind, metric := dictionary.KindTermSet, MetricProportion
		if _, ok := reg.Weighted(name); ok {
			kind, metric = dictionary.KindWeighted, MetricWeightedAverage
		}
		summaries = append(summaries, collectors[name].summary(name, kind, metric, groups))
	}
	if hasSentiment {
		summaries = append(summaries, sentiment.summary(SentimentDictionary, "", MetricSentimentNet, groups))
	}

	var exclusions []Exclusion
	for dict, reasons := range excl {
		for reason, n := range reasons {
			exclusions = append(exclusions, Exclusion{Dictionary: dict, Reason: reason, Count: n})
		}
	}
	sort.Slice(exclusions, func(i, j int) bool {
		if exclusions[i].Dictionary != exclusions[j].Dictionary {
			return exclusions[i].Dictionary < exclusions[j].Dictionary
		}
		return exclusions[i].Reason < exclusions[j].Reason
	})
	return summaries, exclusions
}
