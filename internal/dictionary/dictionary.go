// Package dictionary holds the immutable term lists and term → weight
// mappings that documents are scored against, and the loaders that read them
// from disk.
package dictionary

import (
	"sort"
)

// TermSet is an unweighted dictionary: a set of category terms.
type TermSet struct {
	name  string
	terms map[string]struct{}
}

// NewTermSet copies terms into a new set. Terms are stored as given; callers
// normalise them the same way documents are normalised.
func NewTermSet(name string, terms []string) *TermSet {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return &TermSet{name: name, terms: set}
}

func (s *TermSet) Name() string { return s.name }

func (s *TermSet) Contains(term string) bool {
	_, ok := s.terms[term]
	return ok
}

func (s *TermSet) Len() int { return len(s.terms) }

// Terms returns the members in lexicographic order.
func (s *TermSet) Terms() []string {
	out := make([]string, 0, len(s.terms))
	for t := range s.terms {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Weighted maps terms to numeric weights such as concreteness ratings.
// A term with no entry has no rating; it is not a zero weight.
type Weighted struct {
	name    string
	weights map[string]float64
	lo, hi  float64
}

// NewWeighted copies weights into a new dictionary and records its bounds.
func NewWeighted(name string, weights map[string]float64) *Weighted {
	w := &Weighted{name: name, weights: make(map[string]float64, len(weights))}
	first := true
	for term, v := range weights {
		if term == "" {
			continue
		}
		w.weights[term] = v
		if first || v < w.lo {
			w.lo = v
		}
		if first || v > w.hi {
			w.hi = v
		}
		first = false
	}
	return w
}

func (w *Weighted) Name() string { return w.name }

// Weight returns the term's weight and whether the term is rated at all.
func (w *Weighted) Weight(term string) (float64, bool) {
	v, ok := w.weights[term]
	return v, ok
}

// Bounds returns the smallest and largest weight. Both are zero for an empty
// dictionary.
func (w *Weighted) Bounds() (lo, hi float64) {
	return w.lo, w.hi
}

func (w *Weighted) Len() int { return len(w.weights) }

// Terms returns the rated terms in lexicographic order.
func (w *Weighted) Terms() []string {
	out := make([]string, 0, len(w.weights))
	for t := range w.weights {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
