package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/tracing"
)

type options struct {
	format string
	save   bool
	scores bool
}

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	format := flag.String("format", "table", "output format: table or json")
	save := flag.Bool("save", false, "store the report snapshot in PostgreSQL")
	scores := flag.Bool("scores", false, "include per-document scores in the output")
	corpusPath := flag.String("corpus", "", "corpus file, overrides corpus.path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *corpusPath != "" {
		cfg.Corpus.Path = *corpusPath
	}
	if *format != "table" && *format != "json" {
		fmt.Fprintf(os.Stderr, "unknown format %q\n", *format)
		os.Exit(2)
	}

	// stdout carries the report.
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	tracing.Configure(cfg.Tracing)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options{format: *format, save: *save || cfg.Scoring.SaveReports, scores: *scores}
	if err := run(ctx, cfg, opts, metrics.New(nil), os.Stdout); err != nil {
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, m *metrics.Metrics, out io.Writer) error {
	ctx, span := tracing.StartSpan(ctx, "analyze", "")
	defer span.End()

	if cfg.Metrics.Enabled {
		shutdown, err := metrics.StartServer(cfg.Metrics.Port, nil)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}

	tok := tokenizer.New(tokenizer.Options{
		RemoveStopWords: cfg.Tokenizer.RemoveStopWords,
		Stem:            cfg.Tokenizer.Stem,
		MinLength:       cfg.Tokenizer.MinLength,
	})
	_, loadSpan := tracing.StartChildSpan(ctx, "dictionaries.load")
	reg, stats, err := dictionary.Load(cfg.Dictionaries, tok)
	loadSpan.End()
	if err != nil {
		return fmt.Errorf("loading dictionaries: %w", err)
	}
	reg.Observe(m, stats)
	slog.Info("dictionaries loaded", "count", reg.Len(), "version", reg.Version())

	var db *postgres.Client
	if cfg.Corpus.Source == "postgres" || opts.save {
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	src, err := corpus.NewSource(cfg.Corpus, db)
	if err != nil {
		return err
	}
	tokCtx, tokSpan := tracing.StartChildSpan(ctx, "corpus.load")
	docs, err := corpus.Load(tokCtx, src, tok)
	tokSpan.SetAttr("documents", len(docs))
	tokSpan.End()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return errors.New("corpus is empty")
	}

	pipelineOpts, err := analysis.OptionsFromConfig(cfg.Scoring)
	if err != nil {
		return err
	}
	pipelineOpts.KeepScores = opts.scores
	report, err := analysis.New(scorer.New(reg), m, pipelineOpts).Run(ctx, docs)
	if err != nil {
		return err
	}

	if opts.save {
		store := analysis.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := store.Save(ctx, report); err != nil {
			return err
		}
	}

	if opts.format == "json" {
		return writeJSON(out, report, opts.scores)
	}
	return writeTable(out, report, opts.scores)
}

func writeJSON(out io.Writer, report *analysis.Report, withScores bool) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if !withScores {
		return enc.Encode(report)
	}
	return enc.Encode(struct {
		*analysis.Report
		Scores []scorer.DocumentScore `json:"scores"`
	}{report, report.Scores})
}
