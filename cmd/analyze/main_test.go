package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Dictionaries: config.DictionariesConfig{
			TermLists: []config.TermListConfig{
				{Name: "positive", Path: writeFile(t, dir, "positive.txt", "good\ngreat\nlove\n")},
				{Name: "negative", Path: writeFile(t, dir, "negative.txt", "# negative words\nfear\ndark\n")},
			},
			Weighted: []config.WeightedDictionaryConfig{
				{Name: "concreteness", Path: writeFile(t, dir, "conc.csv", "Word,Conc.M\nship,4.9\nsea,4.6\nlove,2.1\nfear,1.9\ncastle,4.8\nidea,1.6\n")},
			},
			Sentiment: config.SentimentConfig{Positive: "positive", Negative: "negative"},
		},
		Corpus: config.CorpusConfig{
			Source:      "csv",
			Path:        writeFile(t, dir, "novels.csv", "id,genre,text\n1,sea,\"The ship, the sea, the ship.\"\n2,sea,A good ship at sea\n3,gothic,Fear of the dark castle\n4,gothic,\n"),
			TextColumn:  "text",
			GroupColumn: "genre",
		},
		Tokenizer: config.TokenizerConfig{MinLength: 1},
		Scoring:   config.ScoringConfig{Workers: 2, TopK: 2, Aggregation: "max"},
	}
}

func TestRunTable(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), testConfig(t), options{format: "table", scores: true}, metrics.New(prometheus.NewRegistry()), &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	for _, want := range []string{"DICTIONARY", "concreteness", "empty_document", "DISTINCTIVE TERMS", "HIGHEST CONCRETENESS", "gothic", "ship ("} {
		if !strings.Contains(text, want) {
			t.Errorf("table output lacks %q:\n%s", want, text)
		}
	}
}

func TestRunJSON(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), testConfig(t), options{format: "json"}, metrics.New(prometheus.NewRegistry()), &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var report struct {
		Documents  int `json:"documents"`
		Exclusions []struct {
			Dictionary string `json:"dictionary"`
			Count      int    `json:"count"`
		} `json:"exclusions"`
		Scores []any `json:"scores"`
	}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decoding: %v\n%s", err, out.String())
	}
	if report.Documents != 4 || len(report.Exclusions) == 0 {
		t.Errorf("report = %+v", report)
	}
	if report.Scores != nil {
		t.Error("scores must be omitted unless requested")
	}
}

func TestRunMissingDictionary(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dictionaries.TermLists[0].Path = filepath.Join(t.TempDir(), "missing.txt")
	if err := run(context.Background(), cfg, options{format: "table"}, metrics.New(prometheus.NewRegistry()), &bytes.Buffer{}); err == nil {
		t.Error("expected error for missing dictionary file")
	}
}
