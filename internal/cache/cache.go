// Package cache memoises document scores in Redis. Keys hash the token
// sequence together with the dictionary registry version, so reloading
// dictionaries never serves stale scores.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "score:"

// Backend is the subset of the Redis client the cache needs.
type Backend interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// ScoreCache caches DocumentScores. Cache failures are logged and treated as
// misses; they never fail a scoring request.
type ScoreCache struct {
	backend Backend
	ttl     time.Duration
	version string
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache for scores computed against the registry identified by
// version. m may be nil.
func New(backend Backend, ttl time.Duration, version string, m *metrics.Metrics) *ScoreCache {
	return &ScoreCache{
		backend: backend,
		ttl:     ttl,
		version: version,
		metrics: m,
		logger:  slog.Default().With("component", "score-cache"),
	}
}

func (c *ScoreCache) Get(ctx context.Context, doc scorer.Document) (*scorer.DocumentScore, bool) {
	key := c.buildKey(doc)
	var ds scorer.DocumentScore
	found, err := c.backend.GetJSON(ctx, key, &ds)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
	}
	if err != nil || !found {
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	c.logger.Debug("cache hit", "key", key)
	// ID and label are not part of the key; the cached value may belong to
	// another document with the same tokens.
	ds.DocumentID, ds.Label = doc.ID, doc.Label
	return &ds, true
}

func (c *ScoreCache) Set(ctx context.Context, doc scorer.Document, ds *scorer.DocumentScore) {
	key := c.buildKey(doc)
	if err := c.backend.SetJSON(ctx, key, ds, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached score or computes and stores it. Concurrent
// callers for the same key share one computation. The boolean reports a hit.
func (c *ScoreCache) GetOrCompute(
	ctx context.Context,
	doc scorer.Document,
	computeFn func() (*scorer.DocumentScore, error),
) (*scorer.DocumentScore, bool, error) {
	if ds, ok := c.Get(ctx, doc); ok {
		return ds, true, nil
	}
	key := c.buildKey(doc)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		ds, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, doc, ds)
		return ds, nil
	})
	if err != nil {
		return nil, false, err
	}
	shared := *val.(*scorer.DocumentScore)
	shared.DocumentID, shared.Label = doc.ID, doc.Label
	return &shared, false, nil
}

// Invalidate deletes every cached score, across registry versions.
func (c *ScoreCache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *ScoreCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ScoreCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *ScoreCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// buildKey hashes the tokens in order. Each token is length-prefixed, so no
// token content can make two different sequences hash alike.
func (c *ScoreCache) buildKey(doc scorer.Document) string {
	h := sha256.New()
	var buf []byte
	for _, tok := range doc.Tokens {
		buf = binary.AppendUvarint(buf[:0], uint64(len(tok)))
		h.Write(buf)
		io.WriteString(h, tok)
	}
	return fmt.Sprintf("%s%s:%x", keyPrefix, c.version, h.Sum(nil)[:16])
}
