package benchmark

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/tfidf"
)

// vocabulary returns n distinct synthetic terms.
func vocabulary(n int) []string {
	terms := make([]string, n)
	for i := range terms {
		terms[i] = fmt.Sprintf("term%05d", i)
	}
	return terms
}

func randomDocument(rng *rand.Rand, vocab []string, length int) []string {
	tokens := make([]string, length)
	for i := range tokens {
		tokens[i] = vocab[rng.IntN(len(vocab))]
	}
	return tokens
}

func benchRegistry(b *testing.B, vocab []string) *dictionary.Registry {
	b.Helper()
	weights := make(map[string]float64, len(vocab)/2)
	for i, t := range vocab {
		if i%2 == 0 {
			weights[t] = 1 + float64(i%5)
		}
	}
	pos := dictionary.NewTermSet("positive", vocab[:len(vocab)/10])
	neg := dictionary.NewTermSet("negative", vocab[len(vocab)/10:len(vocab)/5])
	reg, err := dictionary.NewRegistry(
		[]*dictionary.TermSet{pos, neg},
		[]*dictionary.Weighted{dictionary.NewWeighted("concreteness", weights)},
		dictionary.Sentiment{Positive: "positive", Negative: "negative"},
	)
	if err != nil {
		b.Fatal(err)
	}
	return reg
}

// BenchmarkScoreDocument measures scoring one document against every
// dictionary for different document lengths.
func BenchmarkScoreDocument(b *testing.B) {
	vocab := vocabulary(5000)
	s := scorer.New(benchRegistry(b, vocab))
	rng := rand.New(rand.NewPCG(1, 2))

	for _, length := range []int{10, 100, 1000, 10000} {
		doc := scorer.Document{ID: "bench", Tokens: randomDocument(rng, vocab, length)}
		b.Run(fmt.Sprintf("tokens_%d", length), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				ds := s.Score(doc)
				_ = ds
			}
		})
	}
}

// BenchmarkRankTerms measures the sort behind every ranking.
func BenchmarkRankTerms(b *testing.B) {
	rng := rand.New(rand.NewPCG(3, 4))
	for _, n := range []int{100, 10000, 100000} {
		scores := make([]scorer.TermScore, n)
		for i := range scores {
			scores[i] = scorer.TermScore{Term: fmt.Sprintf("t%d", i), Score: float64(rng.IntN(100))}
		}
		b.Run(fmt.Sprintf("terms_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				top := scorer.RankTerms(scores, 10, false)
				_ = top
			}
		})
	}
}

// BenchmarkDistinctiveTerms measures TF-IDF construction plus per-group max
// aggregation for corpora of increasing size.
func BenchmarkDistinctiveTerms(b *testing.B) {
	vocab := vocabulary(2000)
	rng := rand.New(rand.NewPCG(5, 6))
	groups := []string{"news", "fiction", "academic", "blog"}

	for _, numDocs := range []int{40, 400, 2000} {
		docs := make([][]string, numDocs)
		labels := make([]string, numDocs)
		for i := range docs {
			docs[i] = randomDocument(rng, vocab, 200)
			labels[i] = groups[i%len(groups)]
		}
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				m := tfidf.Build(docs, tfidf.Options{Normalize: true})
				if _, err := scorer.DistinctiveTerms(m, labels, scorer.AggregateMax, 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
