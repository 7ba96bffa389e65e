package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/postgres"
)

// Store persists report snapshots in PostgreSQL. Only the aggregate report
// is stored; per-document scores are dropped by Report's JSON encoding.
//
// It requires an `analysis_reports` table:
//
//	CREATE TABLE analysis_reports (
//	    run_id      UUID PRIMARY KEY,
//	    data        JSONB NOT NULL,
//	    documents   INTEGER NOT NULL,
//	    started_at  TIMESTAMPTZ NOT NULL,
//	    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a report store.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analysis-store"),
	}
}

// EnsureSchema creates the reports table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.db.Migrate(ctx, "analysis_reports",
		`CREATE TABLE IF NOT EXISTS analysis_reports (
			run_id      UUID PRIMARY KEY,
			data        JSONB NOT NULL,
			documents   INTEGER NOT NULL,
			started_at  TIMESTAMPTZ NOT NULL,
			captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS analysis_reports_started_at_idx
			ON analysis_reports (started_at DESC)`,
	)
}

// Save persists report. Saving the same run twice replaces the snapshot.
func (s *Store) Save(ctx context.Context, report *Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO analysis_reports (run_id, data, documents, started_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (run_id) DO UPDATE SET data = EXCLUDED.data, captured_at = NOW()`,
			report.RunID, data, report.Documents, report.StartedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving report %s: %w", report.RunID, err)
	}

	s.logger.Info("report saved",
		"run_id", report.RunID,
		"documents", report.Documents,
		"excluded", report.TotalExcluded(),
	)
	return nil
}

// Get loads one report by run ID.
func (s *Store) Get(ctx context.Context, runID string) (*Report, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM analysis_reports WHERE run_id = $1`, runID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "report %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying report %s: %w", runID, err)
	}
	return decodeReport(data)
}

// Latest loads the most recent report. Returns nil, nil if none exist yet.
func (s *Store) Latest(ctx context.Context) (*Report, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM analysis_reports ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest report: %w", err)
	}
	return decodeReport(data)
}

// List returns the last limit reports, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Report, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT data FROM analysis_reports ORDER BY captured_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		report, err := decodeReport(data)
		if err != nil {
			s.logger.Warn("skipping corrupt report", "error", err)
			continue
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

func decodeReport(data []byte) (*Report, error) {
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("unmarshaling report: %w", err)
	}
	return &report, nil
}
