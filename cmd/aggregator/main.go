// Command aggregator consumes score results from Kafka, keeps running totals
// in memory (outcomes, latency percentiles, per-dictionary means, top labels)
// and serves them at GET /api/v1/stream/stats.
//
// Usage:
//
//	go run ./cmd/aggregator [-config configs/development.yaml] [-port 8081]
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

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/stream"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 0, "HTTP port, overrides server.port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting score aggregator", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A separate group so the aggregator sees every result the scorer sees.
	kafkaCfg := cfg.Kafka
	kafkaCfg.ConsumerGroup += "-aggregator"

	aggregator := stream.NewAggregator()
	consumer := kafka.NewConsumer(kafkaCfg, cfg.Kafka.Topics.ScoreResults, aggregator.HandleMessage())
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("consumer error", "error", err)
		}
	}()
	slog.Info("score aggregator consuming", "topic", cfg.Kafka.Topics.ScoreResults, "group", kafkaCfg.ConsumerGroup)

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
	})

	mux := http.NewServeMux()
	mux.Handle("GET /api/v1/stream/stats", aggregator)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.RequestID(mux),
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

	slog.Info("score aggregator listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("score aggregator stopped")
}
