// Package handler serves the scoring HTTP API: single-document scoring,
// per-group term ranking, dictionary listing, stored analysis reports and
// score cache administration.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/api"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/api/validator"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/tfidf"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/metrics"
	"github.com/google/uuid"
)

const (
	defaultReportLimit = 20
	maxReportLimit     = 200
)

// ReportStore is the read side of analysis.Store.
type ReportStore interface {
	Get(ctx context.Context, runID string) (*analysis.Report, error)
	Latest(ctx context.Context) (*analysis.Report, error)
	List(ctx context.Context, limit int) ([]*analysis.Report, error)
}

// Options carries the optional collaborators of a Handler.
type Options struct {
	Cache        *cache.ScoreCache
	Reports      ReportStore
	Metrics      *metrics.Metrics
	DefaultTopK  int
	MaxBodyBytes int64
}

type Handler struct {
	tokenizer    *tokenizer.Tokenizer
	scorer       *scorer.Scorer
	cache        *cache.ScoreCache
	reports      ReportStore
	metrics      *metrics.Metrics
	defaultTopK  int
	maxBodyBytes int64
	logger       *slog.Logger
}

func New(tok *tokenizer.Tokenizer, s *scorer.Scorer, opts Options) *Handler {
	return &Handler{
		tokenizer:    tok,
		scorer:       s,
		cache:        opts.Cache,
		reports:      opts.Reports,
		metrics:      opts.Metrics,
		defaultTopK:  opts.DefaultTopK,
		maxBodyBytes: opts.MaxBodyBytes,
		logger:       slog.Default().With("component", "score-handler"),
	}
}

// Score scores one document against every loaded dictionary. Undefined
// metrics are returned as null with their exclusion reasons; they are not
// request errors.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req api.ScoreRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validator.ValidateScoreRequest(&req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	doc := h.document(req)
	var (
		ds       *scorer.DocumentScore
		cacheHit bool
		err      error
	)
	compute := func() (*scorer.DocumentScore, error) {
		score := h.scorer.Score(doc)
		return &score, nil
	}
	if h.cache != nil {
		ds, cacheHit, err = h.cache.GetOrCompute(ctx, doc, compute)
	} else {
		ds, err = compute()
	}
	if err != nil {
		log.Error("scoring failed", "doc_id", doc.ID, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "scoring failed")
		return
	}
	h.observe(ds)

	log.Info("document scored",
		"doc_id", doc.ID,
		"tokens", ds.Tokens,
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, api.ScoreResponse{
		DocumentScore: *ds,
		Registry:      h.scorer.Registry().Version(),
		CacheHit:      cacheHit,
	})
}

// Rank orders caller-supplied term scores within each group.
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	var req api.RankRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validator.ValidateRankRequest(&req); err != nil {
		h.writeValidationError(w, err)
		return
	}
	topK := h.topK(req.TopK)
	h.writeJSON(w, http.StatusOK, api.RankResponse{
		Groups:    scorer.RankByGroup(req.Groups, topK, req.Ascending),
		TopK:      topK,
		Ascending: req.Ascending,
	})
}

// Distinctive builds a TF-IDF matrix over the posted documents and returns
// the top terms of each label.
func (h *Handler) Distinctive(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req api.DistinctiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validator.ValidateDistinctiveRequest(&req); err != nil {
		h.writeValidationError(w, err)
		return
	}
	agg := scorer.AggregateMax
	if req.Aggregation != "" {
		agg, _ = scorer.ParseAggregation(req.Aggregation)
	}

	tokens := make([][]string, len(req.Documents))
	labels := make([]string, len(req.Documents))
	for i, d := range req.Documents {
		doc := h.document(d)
		tokens[i], labels[i] = doc.Tokens, doc.Label
	}
	topK := h.topK(req.TopK)
	matrix := tfidf.Build(tokens, tfidf.Options{Normalize: true})
	groups, err := scorer.DistinctiveTerms(matrix, labels, agg, topK)
	if err != nil {
		log.Error("ranking distinctive terms failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, api.DistinctiveResponse{
		Aggregation: agg,
		TopK:        topK,
		Groups:      groups,
	})
}

func (h *Handler) Dictionaries(w http.ResponseWriter, r *http.Request) {
	reg := h.scorer.Registry()
	h.writeJSON(w, http.StatusOK, api.DictionariesResponse{
		Registry:     reg.Version(),
		Dictionaries: reg.Infos(),
	})
}

func (h *Handler) Reports(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		h.writeError(w, http.StatusServiceUnavailable, "report storage is disabled")
		return
	}
	limit := defaultReportLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxReportLimit)
	}
	reports, err := h.reports.List(r.Context(), limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("listing reports failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "listing reports failed")
		return
	}
	if reports == nil {
		reports = []*analysis.Report{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (h *Handler) LatestReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		h.writeError(w, http.StatusServiceUnavailable, "report storage is disabled")
		return
	}
	report, err := h.reports.Latest(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("loading latest report failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "loading report failed")
		return
	}
	if report == nil {
		h.writeError(w, http.StatusNotFound, "no reports stored yet")
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		h.writeError(w, http.StatusServiceUnavailable, "report storage is disabled")
		return
	}
	runID := r.PathValue("id")
	if _, err := uuid.Parse(runID); err != nil {
		h.writeError(w, http.StatusBadRequest, "report id must be a UUID")
		return
	}
	report, err := h.reports.Get(r.Context(), runID)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(r.Context()).Error("loading report failed", "run_id", runID, "error", err)
		}
		h.writeError(w, status, fmt.Sprintf("report %s unavailable", runID))
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"registry": h.scorer.Registry().Version(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// document converts a request into a scorer document. Missing IDs get a
// fresh UUID.
func (h *Handler) document(req api.ScoreRequest) scorer.Document {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	tokens := req.Tokens
	if tokens == nil {
		tokens = h.tokenizer.Tokenize(req.Text)
	}
	return scorer.Document{ID: id, Label: req.Label, Tokens: tokens}
}

func (h *Handler) topK(requested int) int {
	if requested > 0 {
		return requested
	}
	return h.defaultTopK
}

func (h *Handler) observe(ds *scorer.DocumentScore) {
	if h.metrics == nil {
		return
	}
	for _, res := range ds.Results {
		h.metrics.DocumentsScored.WithLabelValues(res.Dictionary).Inc()
		for _, reason := range res.Excluded {
			h.metrics.ScoreExclusions.WithLabelValues(res.Dictionary, string(reason)).Inc()
		}
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}
	h.writeError(w, http.StatusBadRequest, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
