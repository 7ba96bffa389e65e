// Command loadtest replays corpus documents against POST /api/v1/score and
// reports throughput, latency quantiles and the cache hit rate.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/api"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// fallbackTexts are used when no corpus file can be read.
var fallbackTexts = []string{
	"The storm rolled over the harbour and the ships stayed in port.",
	"What a wonderful, happy morning in the garden.",
	"The committee reviewed the abstract proposal without enthusiasm.",
	"She felt terrible about the broken vase and the angry letter.",
	"A cat sat on the warm stone wall beside the red door.",
	"Freedom and justice are ideas worth defending.",
	"Great food, friendly staff, and an excellent view of the river.",
	"Grief is heavy, and the house felt empty after the funeral.",
}

type sample struct {
	latency  time.Duration
	status   int
	cacheHit bool
	failed   bool
}

// recorder collects one sample per request.
type recorder struct {
	mu      sync.Mutex
	samples []sample
}

func (r *recorder) add(s sample) {
	r.mu.Lock()
	r.samples = append(r.samples, s)
	r.mu.Unlock()
}

func main() {
	configPath := flag.String("config", "configs/development.yaml", "config file naming the corpus")
	corpusPath := flag.String("corpus", "", "CSV corpus to replay, overrides corpus.path")
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the scoring service")
	workers := flag.Int("concurrency", 10, "concurrent clients")
	duration := flag.Duration("duration", 30*time.Second, "how long to send requests")
	flag.Parse()

	bodies, err := requestBodies(*configPath, *corpusPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "preparing requests: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	fmt.Printf("POST %s/api/v1/score with %d clients for %s (%d distinct documents)\n",
		*baseURL, *workers, *duration, len(bodies))

	rec := &recorder{}
	start := time.Now()
	run(ctx, *baseURL+"/api/v1/score", bodies, *workers, rec)
	elapsed := time.Since(start)

	if !report(os.Stdout, rec.samples, elapsed) {
		fmt.Fprintln(os.Stderr, "no request completed; is the scoring service running?")
		os.Exit(1)
	}
}

// requestBodies encodes one score request per corpus document. A missing
// corpus falls back to built-in texts.
func requestBodies(configPath, corpusPath string) ([][]byte, error) {
	var records []corpus.Record
	cfg, err := config.Load(configPath)
	if err == nil {
		cc := cfg.Corpus
		if corpusPath != "" {
			cc.Source, cc.Path = "csv", corpusPath
		}
		if cc.Source == "csv" {
			records, err = corpus.NewCSVSource(cc).Records(context.Background())
		}
	}
	if err != nil || len(records) == 0 {
		if err != nil {
			fmt.Fprintf(os.Stderr, "corpus unavailable (%v), using built-in texts\n", err)
		}
		for i, text := range fallbackTexts {
			records = append(records, corpus.Record{ID: fmt.Sprintf("sample-%d", i), Text: text})
		}
	}

	bodies := make([][]byte, 0, len(records))
	for _, r := range records {
		b, err := json.Marshal(api.ScoreRequest{ID: r.ID, Label: r.Label, Text: r.Text})
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, b)
	}
	return bodies, nil
}

func run(ctx context.Context, url string, bodies [][]byte, workers int, rec *recorder) {
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: workers,
			IdleConnTimeout:     time.Minute,
		},
	}
	var g errgroup.Group
	for w := range workers {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i += workers {
				rec.add(send(ctx, client, url, bodies[i%len(bodies)]))
			}
			return nil
		})
	}
	g.Wait()
}

func send(ctx context.Context, client *http.Client, url string, body []byte) sample {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return sample{failed: true}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return sample{latency: time.Since(start), failed: ctx.Err() == nil}
	}
	defer resp.Body.Close()

	var out api.ScoreResponse
	if resp.StatusCode == http.StatusOK {
		json.NewDecoder(resp.Body).Decode(&out)
	}
	io.Copy(io.Discard, resp.Body)
	return sample{
		latency:  time.Since(start),
		status:   resp.StatusCode,
		cacheHit: out.CacheHit,
		failed:   resp.StatusCode >= 300,
	}
}

// report prints the summary and reports whether any request completed.
// Requests cut short by the end of the run are not counted.
func report(w io.Writer, samples []sample, elapsed time.Duration) bool {
	var (
		latencies []float64
		failed    int
		hits      int
		codes     = make(map[int]int)
	)
	for _, s := range samples {
		if s.status == 0 && !s.failed {
			continue
		}
		codes[s.status]++
		if s.failed {
			failed++
			continue
		}
		latencies = append(latencies, float64(s.latency))
		if s.cacheHit {
			hits++
		}
	}
	total := len(latencies) + failed
	if total == 0 {
		return false
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintf(tw, "requests\t%d\n", total)
	fmt.Fprintf(tw, "failed\t%d (%.2f%%)\n", failed, 100*float64(failed)/float64(total))
	fmt.Fprintf(tw, "throughput\t%.1f req/s\n", float64(total)/elapsed.Seconds())

	if len(latencies) > 0 {
		fmt.Fprintf(tw, "cache hits\t%.2f%%\n", 100*float64(hits)/float64(len(latencies)))
		slices.Sort(latencies)
		mean, std := stat.MeanStdDev(latencies, nil)
		fmt.Fprintf(tw, "latency mean\t%s (sd %s)\n", time.Duration(mean), time.Duration(std))
		for _, q := range []float64{0.5, 0.9, 0.95, 0.99} {
			fmt.Fprintf(tw, "latency p%g\t%s\n", q*100, time.Duration(stat.Quantile(q, stat.Empirical, latencies, nil)))
		}
		fmt.Fprintf(tw, "latency max\t%s\n", time.Duration(latencies[len(latencies)-1]))
	}
	for _, code := range slices.Sorted(maps.Keys(codes)) {
		label := "transport error"
		if code != 0 {
			label = fmt.Sprintf("HTTP %d", code)
		}
		fmt.Fprintf(tw, "%s\t%d\n", label, codes[code])
	}
	return true
}
