// Package router wires the scoring API routes and applies the middleware
// chain (RequestID → CORS → RateLimit → Timeout → Metrics).
package router

import (
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/api/handler"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/ratelimit"
)

// Deps are the optional collaborators of the router. Any field may be nil.
type Deps struct {
	Checker *health.Checker
	Limiter *ratelimit.Limiter
	Metrics *metrics.Metrics
	// AdminAuth guards the routes that change server state.
	AdminAuth func(http.Handler) http.Handler
}

// New builds the HTTP handler for the scoring service.
//
// Route table:
//
//	POST   /api/v1/score              → score one document
//	POST   /api/v1/rank               → rank term scores per group
//	POST   /api/v1/distinctive        → TF-IDF distinctive terms per group
//	GET    /api/v1/dictionaries       → loaded dictionaries
//	GET    /api/v1/reports            → stored analysis reports
//	GET    /api/v1/reports/latest     → newest report
//	GET    /api/v1/reports/{id}       → one report by run ID
//	GET    /api/v1/cache/stats        → score cache counters
//	POST   /api/v1/cache/invalidate   → drop cached scores (admin)
//	GET    /health                    → process health
//	GET    /health/live, /health/ready
func New(h *handler.Handler, deps Deps, cfg config.ServerConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	if deps.Checker != nil {
		mux.HandleFunc("GET /health/live", deps.Checker.LiveHandler())
		mux.HandleFunc("GET /health/ready", deps.Checker.ReadyHandler())
	}

	mux.HandleFunc("POST /api/v1/score", h.Score)
	mux.HandleFunc("POST /api/v1/rank", h.Rank)
	mux.HandleFunc("POST /api/v1/distinctive", h.Distinctive)
	mux.HandleFunc("GET /api/v1/dictionaries", h.Dictionaries)

	mux.HandleFunc("GET /api/v1/reports", h.Reports)
	mux.HandleFunc("GET /api/v1/reports/latest", h.LatestReport)
	mux.HandleFunc("GET /api/v1/reports/{id}", h.GetReport)

	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	var invalidate http.Handler = http.HandlerFunc(h.CacheInvalidate)
	if deps.AdminAuth != nil {
		invalidate = deps.AdminAuth(invalidate)
	}
	mux.Handle("POST /api/v1/cache/invalidate", invalidate)

	// Metrics must wrap the mux directly to see the matched pattern.
	var chain http.Handler = mux
	if deps.Metrics != nil {
		chain = middleware.Metrics(deps.Metrics)(chain)
	}
	if cfg.WriteTimeout > 0 {
		chain = middleware.Timeout(cfg.WriteTimeout)(chain)
	}
	if deps.Limiter != nil {
		chain = middleware.RateLimit(deps.Limiter)(chain)
	}
	if len(cfg.AllowOrigins) > 0 {
		chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowOrigins))(chain)
	}
	chain = middleware.RequestID(chain)

	return chain
}
