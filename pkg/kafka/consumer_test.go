package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type scoreRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func TestDecodeJSON(t *testing.T) {
	req, err := DecodeJSON[scoreRequest]([]byte(`{"id":"d1","text":"good and great"}`))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if req.ID != "d1" || req.Text != "good and great" {
		t.Errorf("unexpected decode %+v", req)
	}

	if _, err := DecodeJSON[scoreRequest]([]byte(`{"id":`)); err == nil {
		t.Error("expected error for truncated payload")
	}
}

// fakeReader serves queued messages, then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	fetchErrs []error
	committed []int64
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		f.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(f.queue) > 0 {
		msg := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeReader) commits() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.committed...)
}

func runUntilCommitted(t *testing.T, c *Consumer, r *fakeReader, want int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(r.commits()) < want && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestConsumerCommitsAfterHandling(t *testing.T) {
	r := &fakeReader{
		queue:     []kafka.Message{{Offset: 1, Value: []byte("a")}, {Offset: 2, Value: []byte("b")}},
		fetchErrs: []error{errors.New("leader not available")},
	}
	var seen []string
	c := newConsumer(r, func(_ context.Context, _, value []byte) error {
		seen = append(seen, string(value))
		return nil
	}, 1)
	c.fetchPause = time.Millisecond

	runUntilCommitted(t, c, r, 2)

	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Errorf("handled %v", seen)
	}
	if got := r.commits(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("committed %v", got)
	}
	if !r.closed {
		t.Error("reader should be closed on shutdown")
	}
}

func TestConsumerRetriesThenDrops(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Offset: 7}}}
	calls := 0
	c := newConsumer(r, func(context.Context, []byte, []byte) error {
		calls++
		return errors.New("score timed out")
	}, 3)
	c.retry.InitialDelay = time.Millisecond
	c.retry.MaxDelay = time.Millisecond

	runUntilCommitted(t, c, r, 1)

	if calls != 3 {
		t.Errorf("handler called %d times, want 3", calls)
	}
	if got := r.commits(); len(got) != 1 || got[0] != 7 {
		t.Errorf("a message that keeps failing should still be committed, got %v", got)
	}
}

func TestConsumerStopsOnClosedReader(t *testing.T) {
	r := &fakeReader{fetchErrs: []error{io.EOF}}
	c := newConsumer(r, func(context.Context, []byte, []byte) error { return nil }, 1)
	if err := c.Start(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestConsumerRequiresHandler(t *testing.T) {
	if err := newConsumer(&fakeReader{}, nil, 1).Start(context.Background()); err == nil {
		t.Error("expected error without a handler")
	}
}

func TestEncode(t *testing.T) {
	msgs, err := encode([]Event{{Key: "d1", Value: scoreRequest{ID: "d1"}}})
	if err != nil {
		t.Fatal(err)
	}
	if string(msgs[0].Key) != "d1" || string(msgs[0].Value) != `{"id":"d1","text":""}` {
		t.Errorf("message = %+v", msgs[0])
	}
	if _, err := encode([]Event{{Key: "ok", Value: 1}, {Key: "bad", Value: make(chan int)}}); err == nil {
		t.Error("expected marshal error")
	}
}
