package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/resilience"
	"github.com/google/uuid"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	corpusPath := flag.String("corpus", "", "corpus file, overrides corpus.path")
	batchSize := flag.Int("batch", 500, "messages per Kafka write")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *corpusPath != "" {
		cfg.Corpus.Path = *corpusPath
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *batchSize); err != nil {
		slog.Error("enqueue failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, batchSize int) error {
	var db *postgres.Client
	if cfg.Corpus.Source == "postgres" {
		var err error
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
	}

	src, err := corpus.NewSource(cfg.Corpus, db)
	if err != nil {
		return err
	}
	records, err := src.Records(ctx)
	if err != nil {
		return fmt.Errorf("reading corpus: %w", err)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ScoreRequests)
	defer producer.Close()

	if batchSize <= 0 {
		batchSize = 500
	}
	start := time.Now()
	sent := 0
	for chunk := range slices.Chunk(records, batchSize) {
		batch := make([]kafka.Event, len(chunk))
		for i, rec := range chunk {
			batch[i] = kafka.Event{
				Key: rec.ID,
				Value: events.ScoreRequest{
					RequestID:   uuid.New().String(),
					DocumentID:  rec.ID,
					Label:       rec.Label,
					Text:        rec.Text,
					SubmittedAt: time.Now().UTC(),
				},
			}
		}
		err := resilience.Retry(ctx, "publish score requests", resilience.RetryConfig{MaxAttempts: 5}, func(ctx context.Context) error {
			return producer.PublishBatch(ctx, batch)
		})
		if err != nil {
			return fmt.Errorf("publishing after %d requests: %w", sent, err)
		}
		sent += len(batch)
	}

	slog.Info("score requests enqueued",
		"topic", cfg.Kafka.Topics.ScoreRequests,
		"documents", sent,
		"duration", time.Since(start),
	)
	return nil
}
