// Package corpus loads raw documents from CSV files or PostgreSQL and turns
// them into tokenized scorer documents.
package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/postgres"
)

// Record is one raw document before tokenization.
type Record struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Source yields the documents of one corpus.
type Source interface {
	Records(ctx context.Context) ([]Record, error)
}

// NewSource picks the source named by cfg.Source. db may be nil unless the
// source is "postgres".
func NewSource(cfg config.CorpusConfig, db *postgres.Client) (Source, error) {
	switch cfg.Source {
	case "csv":
		if cfg.Path == "" {
			return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "corpus.path is required for csv sources")
		}
		return NewCSVSource(cfg), nil
	case "postgres":
		if db == nil {
			return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "postgres corpus requires postgres.enabled")
		}
		return NewPostgresSource(db, cfg), nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown corpus source %q", cfg.Source)
	}
}

// Build tokenizes records in order. Records keep their position so the i-th
// document always corresponds to the i-th record.
func Build(records []Record, tok *tokenizer.Tokenizer) []scorer.Document {
	docs := make([]scorer.Document, len(records))
	empty := 0
	for i, rec := range records {
		tokens := tok.Tokenize(rec.Text)
		if len(tokens) == 0 {
			empty++
		}
		docs[i] = scorer.Document{ID: rec.ID, Label: rec.Label, Tokens: tokens}
	}
	if empty > 0 {
		slog.Default().With("component", "corpus").Info("documents with no tokens", "count", empty, "documents", len(records))
	}
	return docs
}

// Load reads every record from src and tokenizes it.
func Load(ctx context.Context, src Source, tok *tokenizer.Tokenizer) ([]scorer.Document, error) {
	records, err := src.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	return Build(records, tok), nil
}
