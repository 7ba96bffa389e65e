package scorer

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/dictionary"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/errors"
)

// ExclusionReason records why a metric is undefined for a document.
type ExclusionReason string

const (
	// ReasonEmptyDocument: the document has no tokens, so every metric is
	// undefined.
	ReasonEmptyDocument ExclusionReason = "empty_document"
	// ReasonNoRatedTerms: no token has a weight, so the weighted average is
	// undefined.
	ReasonNoRatedTerms ExclusionReason = "no_rated_terms"
)

// Result is one document scored against one dictionary. Undefined metrics
// are nil and Excluded holds the single reason they are undefined.
type Result struct {
	Dictionary      string            `json:"dictionary"`
	Kind            dictionary.Kind   `json:"kind"`
	Count           int               `json:"count"`
	Total           int               `json:"total"`
	Proportion      *float64          `json:"proportion"`
	WeightedAverage *float64          `json:"weighted_average,omitempty"`
	Rated           int               `json:"rated,omitempty"`
	Unrated         int               `json:"unrated,omitempty"`
	Excluded        []ExclusionReason `json:"excluded,omitempty"`
}

// SentimentScore compares positive and negative term-list matches. Net is
// (positive - negative) / total.
type SentimentScore struct {
	Positive int      `json:"positive"`
	Negative int      `json:"negative"`
	Total    int      `json:"total"`
	Net      *float64 `json:"net"`
}

// DocumentScore holds every dictionary's result for one document. It is a
// transient value and is never stored.
type DocumentScore struct {
	DocumentID string          `json:"document_id"`
	Label      string          `json:"label,omitempty"`
	Tokens     int             `json:"tokens"`
	Results    []Result        `json:"results"`
	Sentiment  *SentimentScore `json:"sentiment,omitempty"`
}

// Result returns the named dictionary's result.
func (ds DocumentScore) Result(name string) (Result, bool) {
	for _, r := range ds.Results {
		if r.Dictionary == name {
			return r, true
		}
	}
	return Result{}, false
}

// Scorer evaluates documents against every dictionary of a registry.
type Scorer struct {
	registry *dictionary.Registry
}

func New(registry *dictionary.Registry) *Scorer {
	return &Scorer{registry: registry}
}

func (s *Scorer) Registry() *dictionary.Registry {
	return s.registry
}

// Score evaluates doc against every dictionary, in dictionary name order.
// Undefined metrics are excluded and recorded, never zeroed.
func (s *Scorer) Score(doc Document) DocumentScore {
	ds := DocumentScore{
		DocumentID: doc.ID,
		Label:      doc.Label,
		Tokens:     len(doc.Tokens),
		Results:    make([]Result, 0, s.registry.Len()),
	}
	var freqs Frequencies

	for _, name := range s.registry.Names() {
		if set, ok := s.registry.TermSet(name); ok {
			ds.Results = append(ds.Results, scoreTermSet(name, doc.Tokens, set))
			continue
		}
		w, _ := s.registry.Weighted(name)
		if freqs == nil {
			freqs = FrequenciesOf(doc.Tokens)
		}
		ds.Results = append(ds.Results, scoreWeighted(name, len(doc.Tokens), freqs, w))
	}

	if pos, neg, ok := s.registry.Sentiment(); ok {
		sent, _ := Sentiment(doc.Tokens, pos, neg)
		ds.Sentiment = &sent
	}
	return ds
}

func scoreTermSet(name string, tokens []string, set Matcher) Result {
	m := CountMatches(tokens, set)
	r := Result{Dictionary: name, Kind: dictionary.KindTermSet, Count: m.Count, Total: m.Total}
	if p, err := Proportion(m.Count, m.Total); err == nil {
		r.Proportion = &p
	} else {
		r.Excluded = append(r.Excluded, ReasonEmptyDocument)
	}
	return r
}

func scoreWeighted(name string, total int, freqs Frequencies, dict WeightLookup) Result {
	rating := Rate(freqs, dict)
	r := Result{
		Dictionary: name,
		Kind:       dictionary.KindWeighted,
		Count:      rating.Rated,
		Total:      total,
		Rated:      rating.Rated,
		Unrated:    rating.Unrated,
	}
	if p, err := Proportion(rating.Rated, total); err == nil {
		r.Proportion = &p
	} else {
		r.Excluded = append(r.Excluded, ReasonEmptyDocument)
	}
	// An empty document is already excluded for that reason alone.
	switch avg, err := rating.Average(); {
	case err == nil:
		r.WeightedAverage = &avg
	case total > 0:
		r.Excluded = append(r.Excluded, ReasonNoRatedTerms)
	}
	return r
}

// Sentiment counts positive and negative matches. The counts are filled in
// even when the net score is undefined for an empty document.
func Sentiment(tokens []string, pos, neg Matcher) (SentimentScore, error) {
	p := CountMatches(tokens, pos)
	n := CountMatches(tokens, neg)
	s := SentimentScore{Positive: p.Count, Negative: n.Count, Total: p.Total}
	if s.Total == 0 {
		return s, fmt.Errorf("%w: sentiment of an empty document", apperrors.ErrDivisionUndefined)
	}
	net := float64(s.Positive-s.Negative) / float64(s.Total)
	s.Net = &net
	return s, nil
}
