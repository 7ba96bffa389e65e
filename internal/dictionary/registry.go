package dictionary

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/metrics"
)

// Kind distinguishes unweighted term lists from weighted dictionaries.
type Kind string

const (
	KindTermSet  Kind = "termset"
	KindWeighted Kind = "weighted"
)

// Info describes one registered dictionary.
type Info struct {
	Name  string   `json:"name"`
	Kind  Kind     `json:"kind"`
	Terms int      `json:"terms"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

// Registry is an immutable, named collection of dictionaries loaded once per
// run. It is safe for concurrent use.
type Registry struct {
	termSets map[string]*TermSet
	weighted map[string]*Weighted
	names    []string
	positive string
	negative string
	version  string
}

// Sentiment names the positive and negative term lists of a Registry.
type Sentiment struct {
	Positive string
	Negative string
}

// NewRegistry indexes the given dictionaries by name. Names must be unique
// across both kinds, and the sentiment lists, when named, must be term sets.
func NewRegistry(termSets []*TermSet, weighted []*Weighted, sentiment Sentiment) (*Registry, error) {
	r := &Registry{
		termSets: make(map[string]*TermSet, len(termSets)),
		weighted: make(map[string]*Weighted, len(weighted)),
		positive: sentiment.Positive,
		negative: sentiment.Negative,
	}
	for _, ts := range termSets {
		if err := r.claim(ts.Name()); err != nil {
			return nil, err
		}
		r.termSets[ts.Name()] = ts
	}
	for _, w := range weighted {
		if err := r.claim(w.Name()); err != nil {
			return nil, err
		}
		r.weighted[w.Name()] = w
	}
	for _, name := range []string{sentiment.Positive, sentiment.Negative} {
		if name == "" {
			continue
		}
		if _, ok := r.termSets[name]; !ok {
			return nil, apperrors.Newf(apperrors.ErrDictionaryNotFound, http.StatusNotFound,
				"sentiment term list %q is not loaded", name)
		}
	}
	sort.Strings(r.names)
	r.version = r.fingerprint()
	return r, nil
}

func (r *Registry) claim(name string) error {
	if name == "" {
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "dictionary name is empty")
	}
	for _, existing := range r.names {
		if existing == name {
			return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "dictionary %q registered twice", name)
		}
	}
	r.names = append(r.names, name)
	return nil
}

// Load reads every dictionary named in cfg, normalising terms with n, which
// must be the tokenizer documents are scored with. The returned stats are
// keyed by dictionary name.
func Load(cfg config.DictionariesConfig, n Normalizer) (*Registry, map[string]LoadStats, error) {
	logger := slog.Default().With("component", "dictionary")
	stats := make(map[string]LoadStats)

	termSets := make([]*TermSet, 0, len(cfg.TermLists))
	for _, tl := range cfg.TermLists {
		ts, st, err := LoadTermListFile(tl.Name, tl.Path, n)
		if err != nil {
			return nil, nil, err
		}
		stats[tl.Name] = st
		termSets = append(termSets, ts)
		logger.Info("term list loaded",
			"dictionary", tl.Name,
			"terms", ts.Len(),
			"duplicates", st.Duplicates,
			"malformed", st.Malformed,
		)
	}

	weighted := make([]*Weighted, 0, len(cfg.Weighted))
	for _, wc := range cfg.Weighted {
		w, st, err := LoadWeightedFile(wc.Path, WeightedOptions{
			Name:         wc.Name,
			TermColumn:   wc.TermColumn,
			WeightColumn: wc.WeightColumn,
			Normalizer:   n,
		})
		if err != nil {
			return nil, nil, err
		}
		stats[wc.Name] = st
		weighted = append(weighted, w)
		lo, hi := w.Bounds()
		logger.Info("weighted dictionary loaded",
			"dictionary", wc.Name,
			"terms", w.Len(),
			"malformed", st.Malformed,
			"min", lo,
			"max", hi,
		)
	}

	reg, err := NewRegistry(termSets, weighted, Sentiment{
		Positive: cfg.Sentiment.Positive,
		Negative: cfg.Sentiment.Negative,
	})
	if err != nil {
		return nil, nil, err
	}
	return reg, stats, nil
}

// Observe publishes dictionary sizes and malformed-row counts.
func (r *Registry) Observe(m *metrics.Metrics, stats map[string]LoadStats) {
	if m == nil {
		return
	}
	for _, info := range r.Infos() {
		m.DictionaryTerms.WithLabelValues(info.Name).Set(float64(info.Terms))
	}
	for name, st := range stats {
		if st.Malformed > 0 {
			m.MalformedEntries.WithLabelValues(name).Add(float64(st.Malformed))
		}
	}
}

func (r *Registry) TermSet(name string) (*TermSet, bool) {
	ts, ok := r.termSets[name]
	return ts, ok
}

func (r *Registry) Weighted(name string) (*Weighted, bool) {
	w, ok := r.weighted[name]
	return w, ok
}

// TermSets returns the term lists ordered by name.
func (r *Registry) TermSets() []*TermSet {
	out := make([]*TermSet, 0, len(r.termSets))
	for _, name := range r.names {
		if ts, ok := r.termSets[name]; ok {
			out = append(out, ts)
		}
	}
	return out
}

// WeightedDictionaries returns the weighted dictionaries ordered by name.
func (r *Registry) WeightedDictionaries() []*Weighted {
	out := make([]*Weighted, 0, len(r.weighted))
	for _, name := range r.names {
		if w, ok := r.weighted[name]; ok {
			out = append(out, w)
		}
	}
	return out
}

// Names returns every dictionary name in lexicographic order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

func (r *Registry) Len() int { return len(r.names) }

// Sentiment returns the positive and negative term lists. ok is false when
// either is not configured.
func (r *Registry) Sentiment() (pos, neg *TermSet, ok bool) {
	if r.positive == "" || r.negative == "" {
		return nil, nil, false
	}
	return r.termSets[r.positive], r.termSets[r.negative], true
}

// Infos describes every dictionary, ordered by name.
func (r *Registry) Infos() []Info {
	out := make([]Info, 0, len(r.names))
	for _, name := range r.names {
		if ts, ok := r.termSets[name]; ok {
			out = append(out, Info{Name: name, Kind: KindTermSet, Terms: ts.Len()})
			continue
		}
		w := r.weighted[name]
		info := Info{Name: name, Kind: KindWeighted, Terms: w.Len()}
		if w.Len() > 0 {
			lo, hi := w.Bounds()
			info.Min, info.Max = &lo, &hi
		}
		out = append(out, info)
	}
	return out
}

// Version is a content hash of every dictionary. Two registries with the same
// names, terms and weights share a version.
func (r *Registry) Version() string {
	return r.version
}

func (r *Registry) fingerprint() string {
	h := sha256.New()
	for _, name := range r.names {
		if ts, ok := r.termSets[name]; ok {
			fmt.Fprintf(h, "s:%s\n", name)
			for _, t := range ts.Terms() {
				fmt.Fprintf(h, "%s\n", t)
			}
			continue
		}
		w := r.weighted[name]
		fmt.Fprintf(h, "w:%s\n", name)
		for _, t := range w.Terms() {
			v, _ := w.Weight(t)
			fmt.Fprintf(h, "%s=%x\n", t, math.Float64bits(v))
		}
	}
	fmt.Fprintf(h, "sentiment:%s/%s\n", r.positive, r.negative)
	return hex.EncodeToString(h.Sum(nil))[:16]
}
