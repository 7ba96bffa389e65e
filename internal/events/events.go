// Package events defines the Kafka payloads exchanged by the scoring
// services: score requests consumed by the stream worker and the score
// results it publishes.
package events

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
)

type Outcome string

const (
	OutcomeScored   Outcome = "scored"
	OutcomeCacheHit Outcome = "cache_hit"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeFailed   Outcome = "failed"
)

// ScoreRequest asks for one document to be scored. Either Text or Tokens is
// set; Tokens are used verbatim and skip the tokenizer.
type ScoreRequest struct {
	RequestID   string    `json:"request_id"`
	DocumentID  string    `json:"document_id"`
	Label       string    `json:"label,omitempty"`
	Text        string    `json:"text,omitempty"`
	Tokens      []string  `json:"tokens,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ScoreEvent is the result published for every consumed ScoreRequest.
type ScoreEvent struct {
	Outcome    Outcome               `json:"outcome"`
	RequestID  string                `json:"request_id"`
	DocumentID string                `json:"document_id"`
	Registry   string                `json:"registry"`
	Score      *scorer.DocumentScore `json:"score,omitempty"`
	Error      string                `json:"error,omitempty"`
	LatencyMs  int64                 `json:"latency_ms"`
	Timestamp  time.Time             `json:"timestamp"`
}
