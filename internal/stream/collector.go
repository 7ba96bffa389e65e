package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/kafka"
)

// backlogBatches bounds how many batches a collector keeps while Kafka is
// refusing writes. Older events are dropped first.
const backlogBatches = 3

// BatchCollector buffers score events and publishes them in batches, either
// when batchSize events are waiting or every flushInterval.
type BatchCollector struct {
	publisher     kafka.Publisher
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger

	mu       sync.Mutex
	pending  []kafka.Event
	dropped  int
	dropping bool

	publishMu sync.Mutex
	full      chan struct{}
	done      chan struct{}
}

// NewBatchCollector creates a BatchCollector. Non-positive arguments fall back
// to 100 events and one second.
func NewBatchCollector(publisher kafka.Publisher, batchSize int, flushInterval time.Duration) *BatchCollector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &BatchCollector{
		publisher:     publisher,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "score-collector"),
		full:          make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

// Start runs the flush loop in the background. Cancelling ctx triggers a
// last flush bounded by five seconds; Close waits for it.
func (bc *BatchCollector) Start(ctx context.Context) {
	bc.logger.Info("batch collector started",
		"batch_size", bc.batchSize,
		"flush_interval", bc.flushInterval,
	)
	go func() {
		defer close(bc.done)
		ticker := time.NewTicker(bc.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				bc.Flush(final)
				cancel()
				if n := bc.BufferLen(); n > 0 {
					bc.logger.Warn("events lost on shutdown", "count", n)
				}
				return
			case <-bc.full:
				bc.Flush(ctx)
			case <-ticker.C:
				bc.Flush(ctx)
			}
		}
	}()
}

// Track buffers an event and wakes the flush loop once a batch is ready. The
// buffer holds at most backlogBatches batches, also while a publish is in
// flight; beyond that the oldest events are dropped.
func (bc *BatchCollector) Track(key string, value any) {
	bc.mu.Lock()
	bc.pending = append(bc.pending, kafka.Event{Key: key, Value: value})
	bc.trimLocked()
	ready := len(bc.pending) >= bc.batchSize
	bc.mu.Unlock()

	if ready {
		select {
		case bc.full <- struct{}{}:
		default:
		}
	}
}

// Close waits for the flush loop started by Start to finish.
func (bc *BatchCollector) Close() {
	<-bc.done
}

// BufferLen returns the number of events not yet published.
func (bc *BatchCollector) BufferLen() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.pending)
}

// Dropped returns how many events were discarded because the backlog was
// full.
func (bc *BatchCollector) Dropped() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.dropped
}

// Flush publishes what is buffered in batches of at most batchSize. A batch
// that fails goes back to the front of the queue and the flush stops there.
func (bc *BatchCollector) Flush(ctx context.Context) {
	bc.publishMu.Lock()
	defer bc.publishMu.Unlock()

	for {
		bc.mu.Lock()
		n := min(len(bc.pending), bc.batchSize)
		if n == 0 {
			bc.mu.Unlock()
			return
		}
		batch := bc.pending[:n:n]
		bc.pending = bc.pending[n:]
		bc.mu.Unlock()

		if err := bc.publisher.PublishBatch(ctx, batch); err != nil {
			bc.logger.Error("batch flush failed", "events", len(batch), "error", err)
			bc.requeue(batch)
			return
		}
		bc.mu.Lock()
		bc.dropping = false
		bc.mu.Unlock()
		bc.logger.Debug("batch flushed", "events", len(batch))
	}
}

func (bc *BatchCollector) requeue(batch []kafka.Event) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.pending = append(batch, bc.pending...)
	bc.trimLocked()
}

// trimLocked drops the oldest pending events beyond the backlog limit. It
// warns once per outage; a successful publish re-arms the warning.
func (bc *BatchCollector) trimLocked() {
	limit := bc.batchSize * backlogBatches
	if len(bc.pending) <= limit {
		return
	}
	over := len(bc.pending) - limit
	bc.pending = bc.pending[over:]
	bc.dropped += over
	if !bc.dropping {
		bc.dropping = true
		bc.logger.Warn("backlog full, dropping oldest events", "limit", limit)
	}
}
