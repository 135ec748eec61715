package hub

import (
	"context"
	"errors"
	"testing"
)

func newTestLifecycle() *lifecycle {
	ctx, cancel := context.WithCancel(context.Background())
	return &lifecycle{ctx: ctx, cancel: cancel}
}

func TestLifecycle_EnqueueFullQueue(t *testing.T) {
	l := newTestLifecycle()
	queue := make(chan []byte, 2)

	for i := 0; i < 2; i++ {
		if err := l.enqueue(queue, []byte("frame")); err != nil {
			t.Fatalf("enqueue %d: unexpected error %v", i, err)
		}
	}

	if err := l.enqueue(queue, []byte("frame")); !errors.Is(err, ErrSlowConsumer) {
		t.Errorf("Expected ErrSlowConsumer on a full queue, got %v", err)
	}
}

func TestLifecycle_CloseRunsHooksOnce(t *testing.T) {
	l := newTestLifecycle()
	calls := 0
	l.OnClose(func() { calls++ })

	hooks, ok := l.markClosed()
	if !ok {
		t.Fatal("First markClosed should report the transition")
	}
	for _, fn := range hooks {
		fn()
	}
	if _, ok := l.markClosed(); ok {
		t.Error("Second markClosed should be a no-op")
	}

	if calls != 1 {
		t.Errorf("Expected hook to run once, ran %d times", calls)
	}
	if l.Context().Err() == nil {
		t.Error("Context should be canceled after close")
	}
	if err := l.enqueue(make(chan []byte, 1), []byte("late")); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Expected ErrConnectionClosed after close, got %v", err)
	}

	late := false
	l.OnClose(func() { late = true })
	if !late {
		t.Error("OnClose on a closed connection should run immediately")
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	if opts.QueueSize != defaultQueueSize || opts.WriteTimeout != defaultWriteTimeout {
		t.Errorf("Unexpected defaults: %+v", opts)
	}

	opts = Options{QueueSize: 8}.withDefaults()
	if opts.QueueSize != 8 {
		t.Errorf("Expected explicit queue size to be kept, got %d", opts.QueueSize)
	}
}
