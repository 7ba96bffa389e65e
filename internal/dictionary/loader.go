package dictionary

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/errors"
)

// Normalizer reduces text to the tokens documents are scored on. Dictionary
// entries go through the same Normalizer as documents so that both sides
// agree on case, diacritics, apostrophes and stems. *tokenizer.Tokenizer
// satisfies it.
type Normalizer interface {
	Tokenize(text string) []string
}

var defaultNormalizer Normalizer = tokenizer.New(tokenizer.Options{})

// normalizeTerm maps an entry to the single token a document would carry for
// it. Entries that yield no token (a stop-word, punctuation) or several (a
// phrase) can never match a token and are rejected.
func normalizeTerm(n Normalizer, entry string) (string, error) {
	if n == nil {
		n = defaultNormalizer
	}
	tokens := n.Tokenize(entry)
	switch len(tokens) {
	case 1:
		return tokens[0], nil
	case 0:
		return "", fmt.Errorf("%w: %q yields no token", apperrors.ErrMalformedDictionaryEntry, entry)
	default:
		return "", fmt.Errorf("%w: %q yields %d tokens", apperrors.ErrMalformedDictionaryEntry, entry, len(tokens))
	}
}

var (
	termCandidates   = []string{"word", "term", "token"}
	weightCandidates = []string{"weight", "score", "conc.m", "rating", "value"}
)

// WeightedOptions selects the columns of a weighted dictionary file. Empty
// names fall back to well-known header names.
type WeightedOptions struct {
	Name         string
	TermColumn   string
	WeightColumn string
	Comma        rune
	// Normalizer defaults to the tokenizer's default options.
	Normalizer Normalizer
}

// LoadStats summarises one load. Malformed rows are skipped, not fatal.
type LoadStats struct {
	Rows       int
	Loaded     int
	Malformed  int
	Duplicates int
}

// LoadTermList reads a newline-delimited term list. Blank lines and lines
// starting with '#' are skipped. Each term is normalised with n; a nil n uses
// the tokenizer's default options. Entries that do not reduce to exactly one
// token are counted as malformed, and entries that collapse onto an earlier
// term as duplicates.
func LoadTermList(name string, r io.Reader, n Normalizer) (*TermSet, LoadStats, error) {
	var stats LoadStats
	logger := slog.Default().With("component", "dictionary", "dictionary", name)
	seen := make(map[string]struct{})
	var terms []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimPrefix(scanner.Text(), "\ufeff")
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		stats.Rows++
		term, err := normalizeTerm(n, line)
		if err != nil {
			stats.Malformed++
			logger.Debug("skipping term", "error", err)
			continue
		}
		if _, dup := seen[term]; dup {
			stats.Duplicates++
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("reading term list %s: %w", name, err)
	}
	stats.Loaded = len(terms)
	if stats.Malformed > 0 {
		logger.Warn("unmatchable terms skipped", "malformed", stats.Malformed, "loaded", stats.Loaded)
	}
	return NewTermSet(name, terms), stats, nil
}

// LoadWeighted reads a delimited file with a header row mapping terms to
// numeric weights. Rows whose weight does not parse as a finite number are
// counted in LoadStats.Malformed and skipped, as are terms that do not
// normalise to exactly one token. When a normalised term repeats, the last
// row wins.
func LoadWeighted(r io.Reader, opts WeightedOptions) (*Weighted, LoadStats, error) {
	var stats LoadStats
	logger := slog.Default().With("component", "dictionary", "dictionary", opts.Name)

	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, stats, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "weighted dictionary %s is empty", opts.Name)
	}
	if err != nil {
		return nil, stats, fmt.Errorf("reading header of %s: %w", opts.Name, err)
	}
	for i := range header {
		header[i] = cleanCell(header[i])
	}
	termCol, err := resolveColumn(header, opts.TermColumn, termCandidates)
	if err != nil {
		return nil, stats, fmt.Errorf("term column of %s: %w", opts.Name, err)
	}
	weightCol, err := resolveColumn(header, opts.WeightColumn, weightCandidates)
	if err != nil {
		return nil, stats, fmt.Errorf("weight column of %s: %w", opts.Name, err)
	}

	weights := make(map[string]float64)
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, stats, fmt.Errorf("reading %s line %d: %w", opts.Name, line, err)
		}
		stats.Rows++
		weight, term, perr := parseWeightedRow(row, termCol, weightCol, opts.Normalizer)
		if perr != nil {
			stats.Malformed++
			logger.Debug("skipping dictionary row", "line", line, "error", perr)
			continue
		}
		if _, dup := weights[term]; dup {
			stats.Duplicates++
		}
		weights[term] = weight
	}
	stats.Loaded = len(weights)
	if stats.Malformed > 0 {
		logger.Warn("malformed dictionary rows skipped", "malformed", stats.Malformed, "loaded", stats.Loaded)
	}
	return NewWeighted(opts.Name, weights), stats, nil
}

func parseWeightedRow(row []string, termCol, weightCol int, n Normalizer) (float64, string, error) {
	if termCol >= len(row) || weightCol >= len(row) {
		return 0, "", fmt.Errorf("%w: row has %d fields", apperrors.ErrMalformedDictionaryEntry, len(row))
	}
	raw := cleanCell(row[termCol])
	if raw == "" {
		return 0, "", fmt.Errorf("%w: empty term", apperrors.ErrMalformedDictionaryEntry)
	}
	term, err := normalizeTerm(n, raw)
	if err != nil {
		return 0, "", err
	}
	cell := cleanCell(row[weightCol])
	weight, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return 0, term, fmt.Errorf("%w: weight %q for %q", apperrors.ErrMalformedDictionaryEntry, cell, term)
	}
	return weight, term, nil
}

// LoadTermListFile opens path and loads it with LoadTermList.
func LoadTermListFile(name, path string, n Normalizer) (*TermSet, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("opening term list %s: %w", name, err)
	}
	defer f.Close()
	return LoadTermList(name, f, n)
}

// LoadWeightedFile opens path and loads it with LoadWeighted. A ".tsv" or
// ".txt" extension switches the delimiter to a tab unless opts.Comma is set.
func LoadWeightedFile(path string, opts WeightedOptions) (*Weighted, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("opening weighted dictionary %s: %w", opts.Name, err)
	}
	defer f.Close()
	if opts.Comma == 0 {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".tsv", ".txt":
			opts.Comma = '\t'
		}
	}
	return LoadWeighted(f, opts)
}

func cleanCell(v string) string {
	v = strings.TrimPrefix(v, "\ufeff")
	return strings.TrimSpace(v)
}

func resolveColumn(header []string, explicit string, candidates []string) (int, error) {
	if name := strings.TrimSpace(explicit); name != "" {
		for i, col := range header {
			if strings.EqualFold(col, name) {
				return i, nil
			}
		}
		return -1, fmt.Errorf("%w: column %q not found", apperrors.ErrInvalidInput, name)
	}
	for _, cand := range candidates {
		for i, col := range header {
			if strings.EqualFold(col, cand) {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: none of %v in header %v", apperrors.ErrInvalidInput, candidates, header)
}
