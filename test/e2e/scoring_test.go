// Package e2e contains end-to-end tests that exercise the running services:
// the HTTP scorer, and the Kafka path enqueue → stream worker → aggregator.
//
// Prerequisites:
//   - cmd/scorer running (E2E_SCORER_URL)
//   - cmd/stream and cmd/aggregator running against Kafka (E2E_AGGREGATOR_URL)
//
// Tests skip when a service is unreachable.
//
// Run with:
//
//	go test -v -timeout=120s ./test/e2e/...
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/kafka"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

type e2eConfig struct {
	ScorerURL     string
	AggregatorURL string
	Brokers       []string
	RequestsTopic string
}

func loadE2EConfig() e2eConfig {
	return e2eConfig{
		ScorerURL:     envOrDefault("E2E_SCORER_URL", "http://localhost:8080"),
		AggregatorURL: envOrDefault("E2E_AGGREGATOR_URL", "http://localhost:8081"),
		Brokers:       strings.Split(envOrDefault("E2E_KAFKA_BROKERS", "localhost:9092"), ","),
		RequestsTopic: envOrDefault("E2E_REQUESTS_TOPIC", "score-requests"),
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// TestServiceHealth verifies the services respond to health checks.
func TestServiceHealth(t *testing.T) {
	cfg := loadE2EConfig()

	services := []struct {
		name string
		url  string
	}{
		{"scorer /health", cfg.ScorerURL + "/health"},
		{"scorer /health/live", cfg.ScorerURL + "/health/live"},
		{"scorer /health/ready", cfg.ScorerURL + "/health/ready"},
		{"aggregator /health/live", cfg.AggregatorURL + "/health/live"},
	}

	client := &http.Client{Timeout: 5 * time.Second}

	for _, svc := range services {
		t.Run(svc.name, func(t *testing.T) {
			resp, err := client.Get(svc.url)
			if err != nil {
				t.Skipf("service unavailable: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("expected 200, got %d: %s", resp.StatusCode, body)
			}
		})
	}
}

// TestScoreTwice scores the same text twice. Both answers must agree, and
// with Redis enabled the second one comes from the cache.
func TestScoreTwice(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 10 * time.Second}

	if _, err := client.Get(cfg.ScorerURL + "/health"); err != nil {
		t.Skipf("scorer unavailable: %v", err)
	}

	text := fmt.Sprintf("a good and wonderful day number %d", time.Now().UnixNano())
	payload := fmt.Sprintf(`{"label":"e2e","text":%q}`, text)

	score := func() map[string]any {
		resp, err := client.Post(cfg.ScorerURL+"/api/v1/score", "application/json", strings.NewReader(payload))
		if err != nil {
			t.Fatalf("score request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
		}
		var out map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decoding score: %v", err)
		}
		return out
	}

	first := score()
	second := score()
	if first["tokens"] != second["tokens"] {
		t.Errorf("token counts differ: %v vs %v", first["tokens"], second["tokens"])
	}
	firstResults, _ := json.Marshal(first["results"])
	secondResults, _ := json.Marshal(second["results"])
	if string(firstResults) != string(secondResults) {
		t.Errorf("results differ:\n%s\n%s", firstResults, secondResults)
	}
	if hit, _ := second["cache_hit"].(bool); !hit {
		t.Log("second score was not a cache hit; redis may be disabled")
	}
}

// TestStreamScoring publishes score requests and waits for the aggregator to
// count the results.
func TestStreamScoring(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 5 * time.Second}

	before, err := streamEvents(client, cfg.AggregatorURL)
	if err != nil {
		t.Skipf("aggregator unavailable: %v", err)
	}

	producer := kafka.NewProducer(config.KafkaConfig{Brokers: cfg.Brokers}, cfg.RequestsTopic)
	defer producer.Close()

	const n = 3
	batch := make([]kafka.Event, n)
	for i := range batch {
		id := fmt.Sprintf("e2e-%d-%d", time.Now().UnixNano(), i)
		batch[i] = kafka.Event{Key: id, Value: events.ScoreRequest{
			RequestID:   id,
			DocumentID:  id,
			Label:       "e2e",
			Text:        "the great storm left the harbour quiet",
			SubmittedAt: time.Now().UTC(),
		}}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := producer.PublishBatch(ctx, batch); err != nil {
		t.Skipf("kafka unavailable: %v", err)
	}

	t.Log("waiting for results to be aggregated...")
	for attempt := 0; attempt < 30; attempt++ {
		time.Sleep(time.Second)
		after, err := streamEvents(client, cfg.AggregatorURL)
		if err != nil {
			t.Logf("attempt %d: %v", attempt, err)
			continue
		}
		if after-before >= n {
			t.Logf("results aggregated after %d seconds", attempt+1)
			return
		}
	}
	// The stream worker may not be running in every e2e environment.
	t.Log("results not aggregated within 30s")
}

func streamEvents(client *http.Client, baseURL string) (int64, error) {
	resp, err := client.Get(baseURL + "/api/v1/stream/stats")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	var stats struct {
		TotalEvents int64 `json:"total_events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return 0, err
	}
	return stats.TotalEvents, nil
}

// ---------------------------------------------------------------------------
// Env helpers
// ---------------------------------------------------------------------------

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
