package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
	"wanderlust/pkg/logger"

	"github.com/segmentio/kafka-go"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Output: io.Discard})
}

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}

// fakeReader hands out queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	drained   chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	if len(r.queue) == 0 {
		select {
		case <-r.drained:
		default:
			close(r.drained)
		}
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type noSleep struct{}

func (noSleep) Sleep(context.Context, time.Duration) error { return nil }

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "booking-events", testLogger())

	var seen []string
	p.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
		seen = append(seen, msg.Topic)
		return next(ctx, msg)
	})

	msg, err := NewMessage().WithKey("b1").WithValue(map[string]int{"rooms": 2}).Build()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	out := w.written()
	if len(out) != 1 || string(out[0].Key) != "b1" {
		t.Fatalf("written = %+v", out)
	}
	if header(out[0], HeaderEventID) == "" {
		t.Errorf("event id header missing")
	}
	if len(seen) != 1 || seen[0] != "booking-events" {
		t.Errorf("middleware saw %v", seen)
	}
}

func TestProducer_RejectsInvalidAndClosed(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "booking-events", testLogger())

	if err := p.Publish(context.Background(), Message{Value: []byte("{}")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("empty key error = %v", err)
	}
	if err := p.Publish(context.Background(), Message{Key: "k"}); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("empty value error = %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if !w.closed {
		t.Errorf("Close() should close the writer")
	}
	if err := p.Publish(context.Background(), Message{Key: "k", Value: []byte("{}")}); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("closed producer error = %v", err)
	}
}

func runConsumer(t *testing.T, c *Consumer, reader *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case <-reader.drained:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not commit the queued messages")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start() returned %v, want context.Canceled", err)
	}
}

func TestConsumer_RetriesTransientThenSucceeds(t *testing.T) {
	reader := newFakeReader(kafka.Message{Topic: "booking-events", Key: []byte("b1"), Value: []byte("{}")})
	dlq := &fakeWriter{}

	calls := 0
	c := newConsumer(reader, dlq, "booking-events", "notifier", func(ctx context.Context, msg Message) error {
		calls++
		if calls < 3 {
			return NewTransientError("smtp busy", nil)
		}
		return nil
	}, testLogger())
	c.sleeper = noSleep{}

	runConsumer(t, c, reader)

	if calls != 3 {
		t.Errorf("handler calls = %d, want 3", calls)
	}
	if len(dlq.written()) != 0 {
		t.Errorf("nothing should reach the DLQ")
	}
	if len(reader.committed) != 1 {
		t.Errorf("committed = %d, want 1", len(reader.committed))
	}
}

func TestConsumer_PermanentFailureGoesToDLQ(t *testing.T) {
	reader := newFakeReader(kafka.Message{Topic: "booking-events", Key: []byte("b2"), Value: []byte("not json")})
	dlq := &fakeWriter{}

	calls := 0
	c := newConsumer(reader, dlq, "booking-events", "notifier", func(ctx context.Context, msg Message) error {
		calls++
		return NewPermanentError("decode", errors.New("bad payload"))
	}, testLogger())
	c.sleeper = noSleep{}

	runConsumer(t, c, reader)

	if calls != 1 {
		t.Errorf("permanent failure should not be retried, calls = %d", calls)
	}
	out := dlq.written()
	if len(out) != 1 {
		t.Fatalf("dlq messages = %d, want 1", len(out))
	}
	if header(out[0], HeaderOriginalTopic) != "booking-events" || header(out[0], HeaderDLQGroup) != "notifier" {
		t.Errorf("dlq headers = %+v", out[0].Headers)
	}
	if len(reader.committed) != 1 {
		t.Errorf("dead-lettered message should still be committed")
	}
}

func TestConsumer_ExhaustedRetriesGoToDLQ(t *testing.T) {
	reader := newFakeReader(kafka.Message{Topic: "booking-events", Key: []byte("b3"), Value: []byte("{}")})
	dlq := &fakeWriter{}

	calls := 0
	c := newConsumer(reader, dlq, "booking-events", "notifier", func(ctx context.Context, msg Message) error {
		calls++
		return NewTransientError("smtp down", nil)
	}, testLogger())
	c.sleeper = noSleep{}
	c.maxRetries = 2

	runConsumer(t, c, reader)

	if calls != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", calls)
	}
	out := dlq.written()
	if len(out) != 1 || header(out[0], HeaderRetryCount) != "2" {
		t.Errorf("dlq = %+v", out)
	}
}
