package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/pharmavisit/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

type memInbox struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memInbox) Record(_ context.Context, id, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[id] {
		return false, nil
	}
	m.seen[id] = true
	return true, nil
}

func (m *memInbox) Forget(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
	return nil
}

type sliceReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed int
	done      chan struct{}
}

func (r *sliceReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	close(r.done)
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *sliceReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	r.committed += len(msgs)
	r.mu.Unlock()
	return nil
}

func (r *sliceReader) Close() error { return nil }

func msg(id string) kafka.Message {
	return kafka.Message{Topic: "t", Value: []byte(id), Headers: kafkax.EventHeaders(id, "t")}
}

func runUntilDrained(t *testing.T, c *Consumer, r *sliceReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(stopped)
	}()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain messages")
	}
	cancel()
	<-stopped
}

func TestConsumer_DeduplicatesByEventID(t *testing.T) {
	reader := &sliceReader{msgs: []kafka.Message{msg("e1"), msg("e1"), msg("e2")}, done: make(chan struct{})}
	var handled []string
	c := NewWithReader(slog.New(slog.NewTextHandler(io.Discard, nil)), &memInbox{seen: map[string]bool{}}, reader,
		func(_ context.Context, m kafka.Message) error {
			handled = append(handled, string(m.Value))
			return nil
		})

	runUntilDrained(t, c, reader)

	if len(handled) != 2 || handled[0] != "e1" || handled[1] != "e2" {
		t.Fatalf("unexpected handled events %v", handled)
	}
	if reader.committed != 3 {
		t.Fatalf("expected 3 commits, got %d", reader.committed)
	}
}

func TestConsumer_FailedEventIsForgotten(t *testing.T) {
	reader := &sliceReader{msgs: []kafka.Message{msg("e1"), msg("e1")}, done: make(chan struct{})}
	inbox := &memInbox{seen: map[string]bool{}}
	calls := 0
	c := NewWithReader(slog.New(slog.NewTextHandler(io.Discard, nil)), inbox, reader,
		func(context.Context, kafka.Message) error {
			calls++
			if calls <= 2 {
				return errors.New("db down")
			}
			return nil
		})
	c.attempts = 2
	c.backoff = time.Millisecond

	runUntilDrained(t, c, reader)

	if calls != 3 {
		t.Fatalf("expected redelivery to be handled after failure, got %d calls", calls)
	}
}

func TestConsumer_NilInboxHandlesEveryDelivery(t *testing.T) {
	reader := &sliceReader{msgs: []kafka.Message{msg("e1"), msg("e1")}, done: make(chan struct{})}
	var handled []string
	c := NewWithReader(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, reader,
		func(_ context.Context, m kafka.Message) error {
			handled = append(handled, string(m.Value))
			if len(handled) == 1 {
				return errors.New("transient")
			}
			return nil
		})
	c.attempts = 2
	c.backoff = time.Millisecond

	runUntilDrained(t, c, reader)

	if len(handled) != 3 {
		t.Fatalf("expected retry plus redelivery to reach the handler, got %v", handled)
	}
	if reader.committed != 2 {
		t.Fatalf("expected 2 commits, got %d", reader.committed)
	}
}
