package scorer

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/errors"
)

// TermScore pairs a term with a score to rank by.
type TermScore struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// RankTerms sorts a copy of scores by score, descending unless ascending is
// set, breaking ties by term in lexicographic order. topK <= 0 keeps every
// entry. NaN scores are dropped. The input slice is never modified.
func RankTerms(scores []TermScore, topK int, ascending bool) []TermScore {
	result := make([]TermScore, 0, len(scores))
	for _, ts := range scores {
		if math.IsNaN(ts.Score) {
			continue
		}
		result = append(result, ts)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			if ascending {
				return result[i].Score < result[j].Score
			}
			return result[i].Score > result[j].Score
		}
		return result[i].Term < result[j].Term
	})
	if topK > 0 && len(result) > topK {
		result = result[:topK]
	}
	return result
}

// RankMap ranks a term → score map with RankTerms.
func RankMap(scores map[string]float64, topK int, ascending bool) []TermScore {
	list := make([]TermScore, 0, len(scores))
	for term, score := range scores {
		list = append(list, TermScore{Term: term, Score: score})
	}
	return RankTerms(list, topK, ascending)
}

// RankByGroup applies RankTerms to each group on its own. One group's scores
// never affect another group's ranking.
func RankByGroup(groups map[string][]TermScore, topK int, ascending bool) map[string][]TermScore {
	out := make(map[string][]TermScore, len(groups))
	for label, scores := range groups {
		out[label] = RankTerms(scores, topK, ascending)
	}
	return out
}

// Aggregation reduces a term's weights across a group's documents.
type Aggregation string

const (
	AggregateMax  Aggregation = "max"
	AggregateMean Aggregation = "mean"
)

// ParseAggregation accepts "max" or "mean", case-insensitively.
func ParseAggregation(s string) (Aggregation, error) {
	switch Aggregation(strings.ToLower(strings.TrimSpace(s))) {
	case AggregateMax:
		return AggregateMax, nil
	case AggregateMean:
		return AggregateMean, nil
	}
	return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown aggregation %q", s)
}

// WeightMatrix is a term × document weight matrix such as TF-IDF output.
// Column returns the non-zero weights of one document; absent terms weigh 0.
type WeightMatrix interface {
	NumDocuments() int
	Column(doc int) map[string]float64
}

// GroupTermScores aggregates matrix columns per group label. Only the
// documents carrying a label contribute to that label's scores, so each group
// is compared against its own population. labels[i] is the label of document
// i. Terms that appear in none of a group's documents are omitted from it.
// Each group's slice is ordered by term.
func GroupTermScores(matrix WeightMatrix, labels []string, agg Aggregation) (map[string][]TermScore, error) {
	if matrix.NumDocuments() != len(labels) {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"matrix has %d documents but %d labels were given", matrix.NumDocuments(), len(labels))
	}
	if agg != AggregateMax && agg != AggregateMean {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown aggregation %q", agg)
	}

	type acc struct {
		sum, max float64
		present  int
	}
	groups := make(map[string]map[string]*acc)
	sizes := make(map[string]int)
	for doc, label := range labels {
		sizes[label]++
		terms := groups[label]
		if terms == nil {
			terms = make(map[string]*acc)
			groups[label] = terms
		}
		for term, w := range matrix.Column(doc) {
			a := terms[term]
			if a == nil {
				a = &acc{max: w}
				terms[term] = a
			}
			a.sum += w
			a.max = math.Max(a.max, w)
			a.present++
		}
	}

	out := make(map[string][]TermScore, len(groups))
	for label, terms := range groups {
		size := sizes[label]
		scores := make([]TermScore, 0, len(terms))
		for term, a := range terms {
			var score float64
			switch agg {
			case AggregateMax:
				score = a.max
				if a.present < size {
					score = math.Max(score, 0)
				}
			case AggregateMean:
				score = a.sum / float64(size)
			}
			scores = append(scores, TermScore{Term: term, Score: score})
		}
		sort.Slice(scores, func(i, j int) bool { return scores[i].Term < scores[j].Term })
		out[label] = scores
	}
	return out, nil
}

// DistinctiveTerms aggregates matrix weights per group and ranks each group
// independently, highest first.
func DistinctiveTerms(matrix WeightMatrix, labels []string, agg Aggregation, topK int) (map[string][]TermScore, error) {
	groups, err := GroupTermScores(matrix, labels, agg)
	if err != nil {
		return nil, fmt.Errorf("grouping term weights: %w", err)
	}
	return RankByGroup(groups, topK, false), nil
}
