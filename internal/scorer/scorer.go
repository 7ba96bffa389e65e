// Package scorer implements dictionary-based scoring of tokenized documents:
// match counts and proportions against term lists, weighted averages against
// rated dictionaries, and deterministic term ranking within groups.
//
// Every function here is pure. Tokens are expected to be normalised already;
// the scorer never lower-cases or strips punctuation itself.
package scorer

import (
	"fmt"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/errors"
)

// Document is one unit of text after tokenization. Label is the grouping
// field (genre, author, ...). Token order does not affect any score.
type Document struct {
	ID     string   `json:"id"`
	Label  string   `json:"label,omitempty"`
	Tokens []string `json:"tokens"`
}

// Matcher is satisfied by unweighted dictionaries.
type Matcher interface {
	Contains(term string) bool
}

// WeightLookup is satisfied by weighted dictionaries. The boolean is false for
// unrated terms.
type WeightLookup interface {
	Weight(term string) (float64, bool)
}

// Match is the outcome of CountMatches.
type Match struct {
	Count int `json:"count"`
	Total int `json:"total"`
}

// CountMatches counts tokens that belong to set, repeated tokens included,
// and reports the document's total token count. An empty document yields 0/0.
func CountMatches(tokens []string, set Matcher) Match {
	m := Match{Total: len(tokens)}
	for _, tok := range tokens {
		if set.Contains(tok) {
			m.Count++
		}
	}
	return m
}

// Proportion returns count/total. A zero total is ErrDivisionUndefined.
func Proportion(count, total int) (float64, error) {
	if total == 0 {
		return 0, fmt.Errorf("%w: proportion of %d over an empty document", apperrors.ErrDivisionUndefined, count)
	}
	return float64(count) / float64(total), nil
}

// Frequencies is a term → occurrence count multiset.
type Frequencies map[string]int

// FrequenciesOf counts each distinct token.
func FrequenciesOf(tokens []string) Frequencies {
	freqs := make(Frequencies, len(tokens))
	for _, tok := range tokens {
		freqs[tok]++
	}
	return freqs
}

// Total is the sum of all counts.
func (f Frequencies) Total() int {
	n := 0
	for _, c := range f {
		n += c
	}
	return n
}

// Terms returns the distinct terms in lexicographic order.
func (f Frequencies) Terms() []string {
	terms := make([]string, 0, len(f))
	for t := range f {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// Rating summarises a document against a weighted dictionary.
type Rating struct {
	// Sum is Σ freq·weight over rated terms.
	Sum float64
	// Rated is Σ freq over rated terms.
	Rated int
	// Unrated is Σ freq over terms the dictionary has no weight for.
	Unrated int
}

// Average returns Sum/Rated, or ErrDivisionUndefined when nothing was rated.
func (r Rating) Average() (float64, error) {
	if r.Rated == 0 {
		return 0, fmt.Errorf("%w: no rated terms", apperrors.ErrDivisionUndefined)
	}
	return r.Sum / float64(r.Rated), nil
}

// Rate accumulates freqs against dict. Unrated terms are counted, never
// treated as a zero weight. Terms are visited in sorted order so the float
// sum is reproducible.
func Rate(freqs Frequencies, dict WeightLookup) Rating {
	var r Rating
	for _, term := range freqs.Terms() {
		freq := freqs[term]
		if freq <= 0 {
			continue
		}
		w, ok := dict.Weight(term)
		if !ok {
			r.Unrated += freq
			continue
		}
		r.Sum += float64(freq) * w
		r.Rated += freq
	}
	return r
}

// WeightedAverage is Σ freq·weight / Σ freq over the terms present in both
// freqs and dict. The result lies within the dictionary's weight bounds. When
// no term is rated it returns ErrDivisionUndefined.
func WeightedAverage(freqs Frequencies, dict WeightLookup) (float64, error) {
	return Rate(freqs, dict).Average()
}

// MissingTerms lists, in lexicographic order, the distinct terms of freqs
// that dict has no weight for. Each one is an ErrMissingTerm exclusion.
func MissingTerms(freqs Frequencies, dict WeightLookup) []string {
	var missing []string
	for term, freq := range freqs {
		if freq <= 0 {
			continue
		}
		if _, ok := dict.Weight(term); !ok {
			missing = append(missing, term)
		}
	}
	sort.Strings(missing)
	return missing
}

// LookupWeight returns the weight of term or a wrapped ErrMissingTerm.
func LookupWeight(dict WeightLookup, term string) (float64, error) {
	w, ok := dict.Weight(term)
	if !ok {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrMissingTerm, term)
	}
	return w, nil
}

// RatedTerms returns the distinct rated terms of freqs with their dictionary
// weight as the score, in lexicographic order.
func RatedTerms(freqs Frequencies, dict WeightLookup) []TermScore {
	out := make([]TermScore, 0, len(freqs))
	for term, freq := range freqs {
		if freq <= 0 {
			continue
		}
		if w, ok := dict.Weight(term); ok {
			out = append(out, TermScore{Term: term, Score: w})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Term < out[j].Term })
	return out
}
