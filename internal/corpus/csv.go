package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/errors"
)

var (
	idCandidates    = []string{"id", "doc_id", "index"}
	textCandidates  = []string{"text", "body", "content", "summary"}
	groupCandidates = []string{"genre", "group", "label", "author", "category"}
)

// CSVSource reads a delimited file with a header row. A ".tsv" extension
// selects tab as the delimiter.
type CSVSource struct {
	cfg config.CorpusConfig
}

func NewCSVSource(cfg config.CorpusConfig) *CSVSource {
	return &CSVSource{cfg: cfg}
}

func (s *CSVSource) Records(ctx context.Context) ([]Record, error) {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus %s: %w", filepath.Base(s.cfg.Path), err)
	}
	defer f.Close()
	comma := ','
	if strings.EqualFold(filepath.Ext(s.cfg.Path), ".tsv") {
		comma = '\t'
	}
	return ReadCSV(ctx, f, comma, s.cfg)
}

// ReadCSV parses records from r. Columns named in cfg must exist; when a
// name is empty a well-known header is used instead. Without an id column,
// IDs are the 1-based row numbers. Rows with an empty text cell are kept and
// become empty documents.
func ReadCSV(ctx context.Context, r io.Reader, comma rune, cfg config.CorpusConfig) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "corpus file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading corpus header: %w", err)
	}
	for i := range header {
		header[i] = cleanCell(header[i])
	}

	textCol, err := pickColumn(header, cfg.TextColumn, textCandidates)
	if err != nil {
		return nil, err
	}
	if textCol < 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "no text column in header %v", header)
	}
	idCol, err := pickColumn(header, cfg.IDColumn, idCandidates)
	if err != nil {
		return nil, err
	}
	groupCol, err := pickColumn(header, cfg.GroupColumn, groupCandidates)
	if err != nil {
		return nil, err
	}

	var records []Record
	row := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading corpus row %d: %w", row+1, err)
		}
		row++
		rec := Record{
			ID:    cell(cells, idCol),
			Label: cell(cells, groupCol),
			Text:  cell(cells, textCol),
		}
		if rec.ID == "" {
			rec.ID = strconv.Itoa(row)
		}
		records = append(records, rec)
	}
	return records, nil
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return cleanCell(row[col])
}

func cleanCell(v string) string {
	v = strings.TrimPrefix(v, "\ufeff")
	return strings.TrimSpace(v)
}

// pickColumn resolves an explicit column name, failing when it is absent, or
// falls back to the first matching candidate. -1 means no column.
func pickColumn(header []string, explicit string, candidates []string) (int, error) {
	if name := strings.TrimSpace(explicit); name != "" {
		for i, col := range header {
			if strings.EqualFold(col, name) {
				return i, nil
			}
		}
		return -1, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "column %q not found in header %v", name, header)
	}
	for _, cand := range candidates {
		for i, col := range header {
			if strings.EqualFold(col, cand) {
				return i, nil
			}
		}
	}
	return -1, nil
}
