package metrics

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.DocumentsScored.WithLabelValues("concreteness").Add(3)
	m.ScoreExclusions.WithLabelValues("concreteness", "division_undefined").Inc()

	if got := testutil.ToFloat64(m.DocumentsScored.WithLabelValues("concreteness")); got != 3 {
		t.Errorf("documents scored = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.ScoreExclusions.WithLabelValues("concreteness", "division_undefined")); got != 1 {
		t.Errorf("exclusions = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestStartServerReportsBindError(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	if _, err := StartServer(port, prometheus.NewRegistry()); err == nil {
		t.Error("expected an error for a port already in use")
	}
}

func TestStartServerServesGatherer(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	reg := prometheus.NewRegistry()
	New(reg).DictionaryTerms.WithLabelValues("positive").Set(42)
	shutdown, err := StartServer(port, reg)
	if err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	defer shutdown(context.Background())

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `dictionary_terms{dictionary="positive"} 42`) {
		t.Errorf("scrape missing gauge:\n%s", body)
	}
}
