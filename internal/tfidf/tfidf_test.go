package tfidf

import (
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
)

func TestBuild(t *testing.T) {
	docs := [][]string{
		{"cat", "sat", "mat"},
		{"cat", "dog"},
		{},
	}
	m := Build(docs, Options{})

	if m.NumDocuments() != 3 {
		t.Fatalf("NumDocuments = %d", m.NumDocuments())
	}
	if got := m.DocumentFrequency("cat"); got != 2 {
		t.Errorf("df(cat) = %d", got)
	}
	idfCat, _ := m.IDF("cat")
	if want := math.Log(4.0/3.0) + 1; math.Abs(idfCat-want) > 1e-12 {
		t.Errorf("idf(cat) = %v, want %v", idfCat, want)
	}
	idfSat, _ := m.IDF("sat")
	if want := math.Log(4.0/2.0)/3 + 1.0/3; math.Abs(m.Weight("sat", 0)-want) > 1e-12 {
		t.Errorf("w(sat,0) = %v, want %v", m.Weight("sat", 0), want)
	}
	if idfSat <= idfCat {
		t.Error("rarer terms should have higher idf")
	}
	if len(m.Column(2)) != 0 || m.Column(7) != nil {
		t.Error("empty and out-of-range documents have no weights")
	}
	if terms := m.Terms(); len(terms) != 4 || terms[0] != "cat" {
		t.Errorf("Terms = %v", terms)
	}
}

func TestBuildNormalizeAndMinDF(t *testing.T) {
	docs := [][]string{{"a", "b", "b"}, {"a", "c"}}
	m := Build(docs, Options{Normalize: true, MinDF: 2})

	if _, ok := m.IDF("b"); ok {
		t.Error("b occurs in one document and should be dropped by MinDF")
	}
	for doc := 0; doc < m.NumDocuments(); doc++ {
		var sq float64
		for _, w := range m.Column(doc) {
			sq += w * w
		}
		if math.Abs(sq-1) > 1e-12 {
			t.Errorf("column %d has squared norm %v", doc, sq)
		}
	}
}

func TestMatrixFeedsGroupRanking(t *testing.T) {
	docs := [][]string{
		{"ship", "sea", "sea"},
		{"ship", "storm"},
		{"castle", "knight"},
	}
	m := Build(docs, Options{Normalize: true})
	top, err := scorer.DistinctiveTerms(m, []string{"sea", "sea", "fantasy"}, scorer.AggregateMax, 1)
	if err != nil {
		t.Fatal(err)
	}
	if top["sea"][0].Term != "sea" {
		t.Errorf("sea group top = %v", top["sea"])
	}
	if top["fantasy"][0].Term != "castle" {
		t.Errorf("fantasy group top = %v", top["fantasy"])
	}
}
