package scorer

import (
	"errors"
	"math"
	"reflect"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/errors"
)

func TestRankTerms(t *testing.T) {
	input := []TermScore{
		{Term: "stone", Score: 4.9},
		{Term: "idea", Score: 1.6},
		{Term: "apple", Score: 4.9},
		{Term: "hope", Score: 1.6},
		{Term: "nan", Score: math.NaN()},
		{Term: "river", Score: 4.7},
	}
	tests := []struct {
		name      string
		topK      int
		ascending bool
		want      []string
	}{
		{name: "descending all", topK: 0, want: []string{"apple", "stone", "river", "hope", "idea"}},
		{name: "descending top 2", topK: 2, want: []string{"apple", "stone"}},
		{name: "ascending top 3", topK: 3, ascending: true, want: []string{"hope", "idea", "river"}},
		{name: "top k larger than input", topK: 50, want: []string{"apple", "stone", "river", "hope", "idea"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RankTerms(input, tt.topK, tt.ascending)
			terms := make([]string, len(got))
			for i, ts := range got {
				terms[i] = ts.Term
			}
			if !reflect.DeepEqual(terms, tt.want) {
				t.Errorf("RankTerms = %v, want %v", terms, tt.want)
			}
		})
	}
	if input[0].Term != "stone" {
		t.Error("RankTerms must not reorder its input")
	}
}

func TestRankTermsIdempotent(t *testing.T) {
	input := []TermScore{{"b", 1}, {"a", 1}, {"c", 2}, {"d", 1}}
	first := RankTerms(input, 0, false)
	second := RankTerms(first, 0, false)
	third := RankTerms(input, 0, false)
	if !reflect.DeepEqual(first, second) || !reflect.DeepEqual(first, third) {
		t.Errorf("ranking is not stable: %v / %v / %v", first, second, third)
	}
}

func TestRankByGroupIsolatesGroups(t *testing.T) {
	groups := map[string][]TermScore{
		"A": {{Term: "x", Score: 0.9}},
		"B": {{Term: "x", Score: 0.1}},
	}
	ranked := RankByGroup(groups, 1, false)
	for _, label := range []string{"A", "B"} {
		if len(ranked[label]) != 1 || ranked[label][0].Term != "x" {
			t.Errorf("group %s top = %v, want x", label, ranked[label])
		}
	}
}

type columns []map[string]float64

func (c columns) NumDocuments() int                 { return len(c) }
func (c columns) Column(doc int) map[string]float64 { return c[doc] }

func TestGroupTermScores(t *testing.T) {
	matrix := columns{
		{"x": 0.9, "y": 0.2},
		{"x": 0.5},
		{"x": 0.1, "z": 0.4},
	}
	labels := []string{"A", "A", "B"}

	maxScores, err := GroupTermScores(matrix, labels, AggregateMax)
	if err != nil {
		t.Fatal(err)
	}
	wantA := []TermScore{{"x", 0.9}, {"y", 0.2}}
	if !reflect.DeepEqual(maxScores["A"], wantA) {
		t.Errorf("max A = %v, want %v", maxScores["A"], wantA)
	}

	meanScores, err := GroupTermScores(matrix, labels, AggregateMean)
	if err != nil {
		t.Fatal(err)
	}
	if got := meanScores["A"]; math.Abs(got[0].Score-0.7) > 1e-12 || math.Abs(got[1].Score-0.1) > 1e-12 {
		t.Errorf("mean A = %v", got)
	}

	top, err := DistinctiveTerms(matrix, labels, AggregateMax, 1)
	if err != nil {
		t.Fatal(err)
	}
	if top["A"][0].Term != "x" || top["B"][0].Term != "z" {
		t.Errorf("distinctive = %v", top)
	}
}

func TestGroupTermScoresRecomputesPerGroup(t *testing.T) {
	matrix := columns{{"x": 0.9}, {"x": 0.1, "w": 0.05}}
	top, err := DistinctiveTerms(matrix, []string{"A", "B"}, AggregateMax, 1)
	if err != nil {
		t.Fatal(err)
	}
	if top["A"][0].Term != "x" || top["B"][0].Term != "x" || top["B"][0].Score != 0.1 {
		t.Errorf("each group should surface x with its own weight: %v", top)
	}
}

func TestGroupTermScoresErrors(t *testing.T) {
	matrix := columns{{"x": 1}}
	if _, err := GroupTermScores(matrix, []string{"A", "B"}, AggregateMax); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("label mismatch: err = %v", err)
	}
	if _, err := GroupTermScores(matrix, []string{"A"}, "median"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("bad aggregation: err = %v", err)
	}
}

func TestParseAggregation(t *testing.T) {
	if a, err := ParseAggregation(" MEAN "); err != nil || a != AggregateMean {
		t.Errorf("ParseAggregation = %v, %v", a, err)
	}
	if _, err := ParseAggregation("sum"); err == nil {
		t.Error("expected error for sum")
	}
}
