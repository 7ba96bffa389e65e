package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testScorer(t *testing.T) *scorer.Scorer {
	t.Helper()
	pos := dictionary.NewTermSet("positive", []string{"good", "great", "love"})
	neg := dictionary.NewTermSet("negative", []string{"bad", "fear"})
	conc := dictionary.NewWeighted("concreteness", map[string]float64{
		"cat": 5, "house": 4.8, "ship": 4.9, "idea": 1.6, "truth": 1.4, "love": 2.1,
	})
	reg, err := dictionary.NewRegistry([]*dictionary.TermSet{pos, neg}, []*dictionary.Weighted{conc},
		dictionary.Sentiment{Positive: "positive", Negative: "negative"})
	if err != nil {
		t.Fatal(err)
	}
	return scorer.New(reg)
}

func testDocs() []scorer.Document {
	return []scorer.Document{
		{ID: "1", Label: "romance", Tokens: strings.Fields("love is good love is great")},
		{ID: "2", Label: "romance", Tokens: strings.Fields("the truth of love")},
		{ID: "3", Label: "horror", Tokens: strings.Fields("fear the house the cat")},
		{ID: "4", Label: "horror", Tokens: nil},
		{ID: "5", Label: "sea", Tokens: strings.Fields("ship ship storm")},
	}
}

func TestRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p := New(testScorer(t), m, Options{Workers: 3, TopK: 2, Aggregation: scorer.AggregateMax, Normalize: true, KeepScores: true})

	report, err := p.Run(context.Background(), testDocs())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.RunID == "" || report.Documents != 5 {
		t.Fatalf("report header = %+v", report)
	}
	if strings.Join(report.Groups, ",") != "horror,romance,sea" || report.GroupSizes["horror"] != 2 {
		t.Errorf("groups = %v %v", report.Groups, report.GroupSizes)
	}
	if len(report.Scores) != 5 || report.Scores[2].DocumentID != "3" {
		t.Errorf("scores should keep input order: %+v", report.Scores)
	}

	pos, ok := report.Summary("positive", MetricProportion)
	if !ok {
		t.Fatal("missing positive summary")
	}
	if pos.Overall.N != 4 || pos.Overall.Excluded != 1 {
		t.Errorf("positive overall = %+v", pos.Overall)
	}
	romance := pos.Groups["romance"]
	if romance.N != 2 || math.Abs(*romance.Mean-(4.0/6+1.0/4)/2) > 1e-12 || romance.StdDev == nil {
		t.Errorf("positive romance = %+v", romance)
	}
	if horror := pos.Groups["horror"]; horror.N != 1 || horror.Excluded != 1 || horror.StdDev != nil {
		t.Errorf("positive horror = %+v", horror)
	}

	conc, _ := report.Summary("concreteness", MetricWeightedAverage)
	if conc.Overall.N != 4 {
		t.Errorf("concreteness overall = %+v", conc.Overall)
	}
	if got := *conc.Groups["sea"].Mean; got != 4.9 {
		t.Errorf("sea concreteness = %v", got)
	}
	if *conc.Overall.Min < 1.4 || *conc.Overall.Max > 5 {
		t.Errorf("means must stay inside the weight range: %+v", conc.Overall)
	}

	wantExcl := map[string]int{
		"concreteness/empty_document": 1,
		"negative/empty_document":     1,
		"positive/empty_document":     1,
		"sentiment/empty_document":    1,
	}
	if len(report.Exclusions) != len(wantExcl) {
		t.Fatalf("exclusions = %+v", report.Exclusions)
	}
	for _, e := range report.Exclusions {
		if wantExcl[e.Dictionary+"/"+string(e.Reason)] != e.Count {
			t.Errorf("unexpected exclusion %+v", e)
		}
	}

	if top := report.Distinctive["sea"]; len(top) == 0 || top[0].Term != "ship" {
		t.Errorf("sea distinctive = %v", top)
	}
	extremes := report.Rated["concreteness"]["romance"]
	if extremes.Highest[0].Term != "love" || extremes.Lowest[0].Term != "truth" {
		t.Errorf("romance extremes = %+v", extremes)
	}

	if got := testutil.ToFloat64(m.ScoreExclusions.WithLabelValues("concreteness", "empty_document")); got != 1 {
		t.Errorf("exclusion metric = %v", got)
	}
	if got := testutil.ToFloat64(m.DocumentsScored.WithLabelValues("positive")); got != 5 {
		t.Errorf("documents scored metric = %v", got)
	}
}

func TestRunCountsEachExclusionOnce(t *testing.T) {
	conc := dictionary.NewWeighted("concreteness", map[string]float64{"cat": 5})
	reg, err := dictionary.NewRegistry(nil, []*dictionary.Weighted{conc}, dictionary.Sentiment{})
	if err != nil {
		t.Fatal(err)
	}
	docs := []scorer.Document{
		{ID: "empty", Label: "a"},
		{ID: "cat", Label: "a", Tokens: []string{"cat"}},
		{ID: "idea", Label: "b", Tokens: []string{"idea"}},
	}
	report, err := New(scorer.New(reg), nil, Options{Workers: 1, TopK: 1, Aggregation: scorer.AggregateMax}).
		Run(context.Background(), docs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	sum, _ := report.Summary("concreteness", MetricWeightedAverage)
	if sum.Overall.Excluded != 2 || report.TotalExcluded() != sum.Overall.Excluded {
		t.Errorf("summary excluded = %d, TotalExcluded = %d, exclusions = %+v",
			sum.Overall.Excluded, report.TotalExcluded(), report.Exclusions)
	}
	want := []Exclusion{
		{Dictionary: "concreteness", Reason: scorer.ReasonEmptyDocument, Count: 1},
		{Dictionary: "concreteness", Reason: scorer.ReasonNoRatedTerms, Count: 1},
	}
	if !reflect.DeepEqual(report.Exclusions, want) {
		t.Errorf("exclusions = %+v, want %+v", report.Exclusions, want)
	}
}

func TestReportJSONOmitsScores(t *testing.T) {
	p := New(testScorer(t), nil, Options{Workers: 1, KeepScores: true})
	report, err := p.Run(context.Background(), testDocs())
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "document_id") {
		t.Error("per-document scores must not be serialised")
	}
	var back Report
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.RunID != report.RunID || len(back.Summaries) != len(report.Summaries) {
		t.Errorf("round trip lost data: %+v", back)
	}
}

func TestScoreAllMatchesSequential(t *testing.T) {
	s := testScorer(t)
	docs := testDocs()
	parallel, err := New(s, nil, Options{Workers: 8}).ScoreAll(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	for i, d := range docs {
		want, _ := json.Marshal(s.Score(d))
		got, _ := json.Marshal(parallel[i])
		if string(want) != string(got) {
			t.Errorf("doc %d: parallel %s != sequential %s", i, got, want)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testScorer(t), nil, Options{Workers: 2}).Run(ctx, testDocs())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := OptionsFromConfig(config.ScoringConfig{Workers: 3, TopK: 5, Aggregation: "mean"})
	if err != nil || opts.Aggregation != scorer.AggregateMean || opts.Workers != 3 {
		t.Errorf("OptionsFromConfig = %+v, %v", opts, err)
	}
	if _, err := OptionsFromConfig(config.ScoringConfig{Aggregation: "sum"}); err == nil {
		t.Error("expected error for unknown aggregation")
	}
}
