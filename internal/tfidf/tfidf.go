// Package tfidf builds a term × document TF-IDF weight matrix over a
// tokenized corpus. The scorer only consumes the matrix; it never depends on
// how the weights were produced.
//
// Term frequency is count/len(document). Inverse document frequency is the
// smoothed form ln((1+N)/(1+df)) + 1, so a term present in every document
// still carries weight. Columns may be L2-normalised.
package tfidf

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Options controls matrix construction.
type Options struct {
	// Normalize scales each document column to unit L2 length.
	Normalize bool
	// MinDF drops terms that occur in fewer documents than this.
	MinDF int
}

// Matrix holds sparse TF-IDF weights. Documents are indexed in input order.
type Matrix struct {
	columns []map[string]float64
	df      map[string]int
	idf     map[string]float64
	terms   []string
}

// Build computes the matrix for docs, each a token sequence.
func Build(docs [][]string, opts Options) *Matrix {
	m := &Matrix{
		columns: make([]map[string]float64, len(docs)),
		df:      make(map[string]int),
		idf:     make(map[string]float64),
	}

	counts := make([]map[string]int, len(docs))
	for i, tokens := range docs {
		c := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			c[tok]++
		}
		counts[i] = c
		for term := range c {
			m.df[term]++
		}
	}

	n := float64(len(docs))
	for term, df := range m.df {
		if df < opts.MinDF {
			continue
		}
		m.idf[term] = math.Log((1+n)/(1+float64(df))) + 1
		m.terms = append(m.terms, term)
	}
	sort.Strings(m.terms)

	for i, c := range counts {
		col := make(map[string]float64, len(c))
		length := float64(len(docs[i]))
		for term, count := range c {
			idf, ok := m.idf[term]
			if !ok {
				continue
			}
			col[term] = float64(count) / length * idf
		}
		if opts.Normalize {
			normalize(col)
		}
		m.columns[i] = col
	}

	slog.Debug("tf-idf matrix built", "component", "tfidf", "documents", len(docs), "terms", len(m.terms))
	return m
}

func normalize(col map[string]float64) {
	if len(col) == 0 {
		return
	}
	values := make([]float64, 0, len(col))
	for _, v := range col {
		values = append(values, v)
	}
	norm := floats.Norm(values, 2)
	if norm == 0 {
		return
	}
	for term, v := range col {
		col[term] = v / norm
	}
}

// NumDocuments returns the number of document columns.
func (m *Matrix) NumDocuments() int {
	return len(m.columns)
}

// Column returns the non-zero weights of document doc. The map is shared
// with the matrix and must not be modified. Out-of-range indexes yield nil.
func (m *Matrix) Column(doc int) map[string]float64 {
	if doc < 0 || doc >= len(m.columns) {
		return nil
	}
	return m.columns[doc]
}

// Weight returns the weight of term in document doc, zero when absent.
func (m *Matrix) Weight(term string, doc int) float64 {
	return m.Column(doc)[term]
}

// Terms returns the vocabulary in lexicographic order.
func (m *Matrix) Terms() []string {
	return append([]string(nil), m.terms...)
}

// IDF returns the inverse document frequency of term and whether the term is
// in the vocabulary.
func (m *Matrix) IDF(term string) (float64, bool) {
	v, ok := m.idf[term]
	return v, ok
}

// DocumentFrequency returns how many documents contain term.
func (m *Matrix) DocumentFrequency(term string) int {
	return m.df[term]
}
