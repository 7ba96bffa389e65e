package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/api/handler"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/api/router"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/apikey"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	tracing.Configure(cfg.Tracing)
	slog.Info("starting scoring service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	tok := tokenizer.New(tokenizer.Options{
		RemoveStopWords: cfg.Tokenizer.RemoveStopWords,
		Stem:            cfg.Tokenizer.Stem,
		MinLength:       cfg.Tokenizer.MinLength,
	})
	reg, stats, err := dictionary.Load(cfg.Dictionaries, tok)
	if err != nil {
		slog.Error("failed to load dictionaries", "error", err)
		os.Exit(1)
	}
	reg.Observe(m, stats)
	slog.Info("dictionaries loaded", "count", reg.Len(), "version", reg.Version())

	var scoreCache *cache.ScoreCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, score caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			backend := cache.WithBreaker(redisClient, resilience.CircuitBreakerConfig{
				OnStateChange: func(name string, _, to resilience.State) {
					m.CircuitState.WithLabelValues(name).Set(float64(to))
				},
			})
			scoreCache = cache.New(backend, cfg.Redis.CacheTTL, reg.Version(), m)
			slog.Info("score cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
			)
		}
	}

	var reports handler.ReportStore
	var adminAuth func(http.Handler) http.Handler
	var db *postgres.Client
	if cfg.Postgres.Enabled {
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, report endpoints disabled", "error", err)
		} else {
			defer db.Close()
			store := analysis.NewStore(db)
			if err := store.EnsureSchema(ctx); err != nil {
				slog.Error("failed to prepare report table", "error", err)
				os.Exit(1)
			}
			reports = store

			if cfg.Auth.Enabled {
				keys := apikey.NewStore(db)
				if err := keys.EnsureSchema(ctx); err != nil {
					slog.Error("failed to prepare api key table", "error", err)
					os.Exit(1)
				}
				adminAuth = apikey.Require(keys)
			}
		}
	}
	if cfg.Auth.Enabled && adminAuth == nil {
		slog.Error("auth is enabled but postgres is unavailable, refusing to serve admin routes unauthenticated")
		os.Exit(1)
	}

	checker := health.NewChecker()
	checker.Register("dictionaries", func(ctx context.Context) health.ComponentHealth {
		if reg.Len() == 0 {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no dictionaries loaded"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d dictionaries, version %s", reg.Len(), reg.Version())}
	})
	// Redis and Postgres only degrade readiness.
	if redisClient != nil {
		checker.Register("redis", health.Ping(redisClient.Ping, health.StatusDegraded))
	}
	if db != nil {
		checker.Register("postgres", health.Ping(db.Ping, health.StatusDegraded))
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window)
		defer limiter.Stop()
	}

	h := handler.New(tok, scorer.New(reg), handler.Options{
		Cache:        scoreCache,
		Reports:      reports,
		Metrics:      m,
		DefaultTopK:  cfg.Scoring.TopK,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	if cfg.Metrics.Enabled {
		shutdownMetrics, err := metrics.StartServer(cfg.Metrics.Port, nil)
		if err != nil {
			slog.Error("failed to start metrics server", "error", err)
			os.Exit(1)
		}
		defer shutdownMetrics(context.Background())
	}

	routes := router.New(h, router.Deps{
		Checker:   checker,
		Limiter:   limiter,
		Metrics:   m,
		AdminAuth: adminAuth,
	}, cfg.Server)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      routes,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("scoring service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("scoring service stopped")
}
