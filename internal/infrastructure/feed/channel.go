package feed

import (
	"context"
	"sync"

	"go-live-feed/internal/domain/change"
)

// Channel is an in-process subscription. Producers in the same process call
// Publish; the dispatch loop consumes with Next.
type Channel struct {
	events chan change.Event
	done   chan struct{}
	once   sync.Once
}

var _ Subscription = (*Channel)(nil)

func NewChannel(buffer int) *Channel {
	return &Channel{
		events: make(chan change.Event, buffer),
		done:   make(chan struct{}),
	}
}

// Publish queues ev, blocking while the buffer is full.
func (c *Channel) Publish(ctx context.Context, ev change.Event) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishRecord decodes a raw change record and publishes it.
func (c *Channel) PublishRecord(ctx context.Context, raw []byte) error {
	return c.Publish(ctx, change.Decode(raw))
}

func (c *Channel) Next(ctx context.Context) (change.Event, error) {
	select {
	case ev := <-c.events:
		return ev, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Channel) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
