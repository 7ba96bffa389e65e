package api

import (
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
)

// ScoreRequest is the JSON body of POST /api/v1/score. Text is tokenized
// with the service's tokenizer; Tokens are scored as given.
type ScoreRequest struct {
	ID     string   `json:"id"`
	Label  string   `json:"label"`
	Text   string   `json:"text"`
	Tokens []string `json:"tokens"`
}

// ScoreResponse wraps the document score with cache and registry details.
type ScoreResponse struct {
	scorer.DocumentScore
	Registry string `json:"registry"`
	CacheHit bool   `json:"cache_hit"`
}

// RankRequest is the JSON body of POST /api/v1/rank: term scores per group.
type RankRequest struct {
	Groups    map[string][]scorer.TermScore `json:"groups"`
	TopK      int                           `json:"top_k"`
	Ascending bool                          `json:"ascending"`
}

type RankResponse struct {
	Groups    map[string][]scorer.TermScore `json:"groups"`
	TopK      int                           `json:"top_k"`
	Ascending bool                          `json:"ascending"`
}

type DictionariesResponse struct {
	Registry     string            `json:"registry"`
	Dictionaries []dictionary.Info `json:"dictionaries"`
}

// DistinctiveRequest asks for the terms that characterise each group of a
// small labelled corpus, ranked on TF-IDF weights.
type DistinctiveRequest struct {
	Documents   []ScoreRequest `json:"documents"`
	Aggregation string         `json:"aggregation"`
	TopK        int            `json:"top_k"`
}

type DistinctiveResponse struct {
	Aggregation scorer.Aggregation            `json:"aggregation"`
	TopK        int                           `json:"top_k"`
	Groups      map[string][]scorer.TermScore `json:"groups"`
}
