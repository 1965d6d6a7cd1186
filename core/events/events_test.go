package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

// testLogger returns a disabled logger for tests
func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestNew(t *testing.T) {
	tests := []struct {
		action string
		want   string
	}{
		{"create", "author.created"},
		{"update", "author.updated"},
		{"partial_update", "author.updated"},
		{"destroy", "author.deleted"},
	}

	for _, tt := range tests {
		e := New("author", tt.action, int64(1), nil)
		if e.Name != tt.want {
			t.Errorf("New(%q).Name = %q, want %q", tt.action, e.Name, tt.want)
		}
		if e.ID == "" {
			t.Error("event ID is empty")
		}
		if e.Time.IsZero() {
			t.Error("event time is zero")
		}
	}
}

func TestPublish_Matching(t *testing.T) {
	bus := NewBus(testLogger())

	var got []string
	record := func(tag string) Handler {
		return func(ctx context.Context, e Event) error {
			got = append(got, tag)
			return nil
		}
	}

	bus.Subscribe("*", record("global"))
	bus.Subscribe("author.*", record("model"))
	bus.Subscribe("author.created", record("exact"))
	bus.Subscribe("book.created", record("other"))

	bus.Publish(context.Background(), New("author", "create", int64(1), nil))

	want := []string{"exact", "model", "global"}
	if len(got) != len(want) {
		t.Fatalf("handlers called = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestPublish_HandlerErrorContinues verifies a failing handler does not stop delivery
func TestPublish_HandlerErrorContinues(t *testing.T) {
	bus := NewBus(testLogger())

	var calls int32
	bus.Subscribe("author.deleted", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("handler failed")
	})
	bus.Subscribe("author.deleted", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	if err := bus.Publish(context.Background(), New("author", "destroy", int64(1), nil)); err != nil {
		t.Fatalf("Publish returned %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func TestForward(t *testing.T) {
	bus := NewBus(testLogger())
	pub := &recordingPublisher{}
	bus.Forward("book.*", pub)

	bus.Publish(context.Background(), New("book", "update", int64(2), map[string]any{"title": "x"}))
	bus.Publish(context.Background(), New("author", "update", int64(3), nil))

	if len(pub.events) != 1 {
		t.Fatalf("forwarded %d events, want 1", len(pub.events))
	}
	if pub.events[0].Data["title"] != "x" {
		t.Errorf("forwarded data = %v", pub.events[0].Data)
	}
}

func TestHasSubscribers(t *testing.T) {
	bus := NewBus(testLogger())
	if bus.HasSubscribers("author.created") {
		t.Error("empty bus reports subscribers")
	}

	bus.Subscribe("author.*", func(ctx context.Context, e Event) error { return nil })
	if !bus.HasSubscribers("author.updated") {
		t.Error("model wildcard not matched")
	}
	if bus.HasSubscribers("book.updated") {
		t.Error("wildcard matched another model")
	}
}

// TestConcurrentPublish verifies Subscribe and Publish are safe together
func TestConcurrentPublish(t *testing.T) {
	bus := NewBus(testLogger())
	var count int64

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			bus.Subscribe("*", func(ctx context.Context, e Event) error {
				atomic.AddInt64(&count, 1)
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), New("x", "create", 1, nil))
		}()
	}
	wg.Wait()

	if bus.HasSubscribers("anything") != true {
		t.Error("expected global subscribers")
	}
}
