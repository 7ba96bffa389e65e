package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/stream"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/resilience"
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
	slog.Info("starting stream scorer",
		"requests_topic", cfg.Kafka.Topics.ScoreRequests,
		"results_topic", cfg.Kafka.Topics.ScoreResults,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics, err := metrics.StartServer(cfg.Metrics.Port, nil)
		if err != nil {
			slog.Error("failed to start metrics server", "error", err)
			os.Exit(1)
		}
		defer shutdownMetrics(context.Background())
	}

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

	var scoreCache *cache.ScoreCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
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
		}
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ScoreResults)
	defer producer.Close()
	collector := stream.NewBatchCollector(producer, cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval)
	collector.Start(ctx)

	worker := stream.NewWorker(tok, scorer.New(reg), scoreCache, collector, m, cfg.Scoring.RequestTimeout)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ScoreRequests, worker.HandleMessage())

	slog.Info("stream scorer ready, consuming from kafka",
		"group", cfg.Kafka.ConsumerGroup,
		"registry", reg.Version(),
	)
	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	// The collector flushes once more when ctx is done.
	collector.Close()
	slog.Info("stream scorer stopped")
}
