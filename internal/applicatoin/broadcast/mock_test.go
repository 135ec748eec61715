package broadcast

import (
	"context"
	"sync"

	"go-live-feed/internal/domain/change"
	"go-live-feed/internal/infrastructure/hub"
)

// recordingConnection records every frame and every send attempt.
type recordingConnection struct {
	id string

	mu        sync.Mutex
	closed    bool
	hooks     []func()
	frames    [][]byte
	sendCalls int
	sendErr   error
	onSend    func(*recordingConnection)
}

var _ hub.Connection = (*recordingConnection)(nil)

func newRecordingConnection(id string) *recordingConnection {
	return &recordingConnection{id: id}
}

func (c *recordingConnection) ID() string               { return c.id }
func (c *recordingConnection) Type() string             { return "test" }
func (c *recordingConnection) Context() context.Context { return context.Background() }

func (c *recordingConnection) Send(_ context.Context, frame []byte) error {
	c.mu.Lock()
	c.sendCalls++
	onSend := c.onSend
	c.mu.Unlock()

	if onSend != nil {
		onSend(c)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return hub.ErrConnectionClosed
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *recordingConnection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	hooks := c.hooks
	c.hooks = nil
	c.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return nil
}

func (c *recordingConnection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *recordingConnection) OnClose(fn func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fn()
		return
	}
	c.hooks = append(c.hooks, fn)
	c.mu.Unlock()
}

func (c *recordingConnection) Frames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.frames))
	for i, f := range c.frames {
		out[i] = string(f)
	}
	return out
}

func (c *recordingConnection) SendCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendCalls
}

type stubReader struct {
	doc change.Document
	err error

	gotEntity string
	gotID     any
}

func (r *stubReader) FindDocument(_ context.Context, entity string, id any) (change.Document, error) {
	r.gotEntity = entity
	r.gotID = id
	return r.doc, r.err
}
