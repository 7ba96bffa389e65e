// Package integration runs the scoring service against a real PostgreSQL
// database: stored reports and admin API keys. Tests skip when PostgreSQL is
// unreachable.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/api/handler"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/api/router"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/apikey"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/postgres"
	"github.com/google/uuid"
)

func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Enabled:         true,
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "textanalytics_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "textanalytics"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

type testEnv struct {
	srv     *httptest.Server
	reports *analysis.Store
	keys    *apikey.Store
}

func newScorerServer(t *testing.T, db *postgres.Client) testEnv {
	t.Helper()
	reports := analysis.NewStore(db)
	keys := apikey.NewStore(db)
	for _, ensure := range []func(context.Context) error{reports.EnsureSchema, keys.EnsureSchema} {
		if err := ensure(t.Context()); err != nil {
			t.Fatalf("preparing schema: %v", err)
		}
	}

	pos := dictionary.NewTermSet("positive", []string{"good", "great"})
	reg, err := dictionary.NewRegistry([]*dictionary.TermSet{pos}, nil, dictionary.Sentiment{})
	if err != nil {
		t.Fatal(err)
	}
	h := handler.New(tokenizer.New(tokenizer.Options{}), scorer.New(reg), handler.Options{
		Reports:     reports,
		DefaultTopK: 10,
	})
	srv := httptest.NewServer(router.New(h, router.Deps{AdminAuth: apikey.Require(keys)}, config.ServerConfig{}))
	t.Cleanup(srv.Close)
	return testEnv{srv: srv, reports: reports, keys: keys}
}

func get(t *testing.T, url string, dst any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if dst != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestReportRoundTrip(t *testing.T) {
	env := newScorerServer(t, skipIfNoPostgres(t))

	report := &analysis.Report{
		RunID:       uuid.New().String(),
		StartedAt:   time.Now().UTC().Truncate(time.Millisecond),
		Documents:   2,
		Groups:      []string{"news"},
		GroupSizes:  map[string]int{"news": 2},
		Aggregation: scorer.AggregateMax,
		Distinctive: map[string][]scorer.TermScore{"news": {{Term: "storm", Score: 0.7}}},
		Scores:      []scorer.DocumentScore{{DocumentID: "dropped"}},
	}
	if err := env.reports.Save(t.Context(), report); err != nil {
		t.Fatalf("saving report: %v", err)
	}

	var latest analysis.Report
	if code := get(t, env.srv.URL+"/api/v1/reports/latest", &latest); code != http.StatusOK {
		t.Fatalf("latest: %d", code)
	}
	if latest.RunID != report.RunID || latest.Documents != 2 {
		t.Errorf("latest = %+v", latest)
	}
	if len(latest.Scores) != 0 {
		t.Error("per-document scores must not be stored")
	}

	var byID analysis.Report
	if code := get(t, env.srv.URL+"/api/v1/reports/"+report.RunID, &byID); code != http.StatusOK {
		t.Fatalf("by id: %d", code)
	}
	if got := byID.Distinctive["news"]; len(got) != 1 || got[0].Term != "storm" {
		t.Errorf("distinctive = %+v", byID.Distinctive)
	}

	if code := get(t, env.srv.URL+"/api/v1/reports/"+uuid.New().String(), nil); code != http.StatusNotFound {
		t.Errorf("unknown report: %d", code)
	}
	if code := get(t, env.srv.URL+"/api/v1/reports/not-a-uuid", nil); code != http.StatusBadRequest {
		t.Errorf("malformed id: %d", code)
	}
}

func TestAdminKeyLifecycle(t *testing.T) {
	env := newScorerServer(t, skipIfNoPostgres(t))

	invalidate := func(key string) int {
		req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/api/v1/cache/invalidate", nil)
		if key != "" {
			req.Header.Set("Authorization", "Bearer "+key)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("invalidate: %v", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := invalidate(""); code != http.StatusUnauthorized {
		t.Errorf("without key: %d", code)
	}

	rawKey, err := env.keys.Create(t.Context(), "integration-test", nil)
	if err != nil {
		t.Fatalf("creating key: %v", err)
	}
	// The server runs without a cache, so an authorised call gets 503.
	if code := invalidate(rawKey); code != http.StatusServiceUnavailable {
		t.Errorf("with key: %d", code)
	}

	if err := env.keys.Revoke(t.Context(), rawKey); err != nil {
		t.Fatalf("revoking key: %v", err)
	}
	if code := invalidate(rawKey); code != http.StatusUnauthorized {
		t.Errorf("after revoke: %d", code)
	}

	past := time.Now().Add(-time.Hour)
	expired, err := env.keys.Create(t.Context(), "expired", &past)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.keys.Validate(t.Context(), expired); err != apikey.ErrExpiredKey {
		t.Errorf("expired key: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
