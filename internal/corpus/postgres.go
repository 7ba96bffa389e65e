package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/postgres"
	"github.com/lib/pq"
)

// PostgresSource reads documents from a table. Table and column names come
// from config and are quoted as identifiers. An empty id or group column
// falls back to "id" and "genre".
//
//	CREATE TABLE documents (
//	    id    TEXT PRIMARY KEY,
//	    genre TEXT NOT NULL DEFAULT '',
//	    text  TEXT NOT NULL
//	);
type PostgresSource struct {
	db     *postgres.Client
	cfg    config.CorpusConfig
	logger *slog.Logger
}

func NewPostgresSource(db *postgres.Client, cfg config.CorpusConfig) *PostgresSource {
	return &PostgresSource{
		db:     db,
		cfg:    cfg,
		logger: slog.Default().With("component", "corpus-postgres"),
	}
}

// Query returns the SELECT statement used to read the corpus.
func (s *PostgresSource) Query() string {
	table := orDefault(s.cfg.Table, "documents")
	id := orDefault(s.cfg.IDColumn, "id")
	group := orDefault(s.cfg.GroupColumn, "genre")
	text := orDefault(s.cfg.TextColumn, "text")
	return fmt.Sprintf(
		`SELECT %s::text, COALESCE(%s::text, ''), COALESCE(%s, '') FROM %s ORDER BY %s`,
		pq.QuoteIdentifier(id),
		pq.QuoteIdentifier(group),
		pq.QuoteIdentifier(text),
		pq.QuoteIdentifier(table),
		pq.QuoteIdentifier(id),
	)
}

func (s *PostgresSource) Records(ctx context.Context) ([]Record, error) {
	rows, err := s.db.DB.QueryContext(ctx, s.Query())
	if err != nil {
		return nil, fmt.Errorf("querying corpus: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Label, &rec.Text); err != nil {
			return nil, fmt.Errorf("scanning corpus row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating corpus rows: %w", err)
	}
	s.logger.Info("corpus loaded", "documents", len(records))
	return records, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
