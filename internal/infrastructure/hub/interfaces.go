package hub

import (
	"context"
	"errors"
)

var (
	// ErrConnectionClosed is returned by Send once the connection is closed.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSlowConsumer is returned by Send when the outbound queue is full.
	ErrSlowConsumer = errors.New("send queue full")
)

// Connection represents one live client channel (SSE, WebSocket, etc.)
type Connection interface {
	ID() string
	Type() string
	// Send queues an already serialized frame. It never waits for delivery.
	Send(ctx context.Context, frame []byte) error
	Close() error
	IsClosed() bool
	Context() context.Context
	// OnClose registers fn to run synchronously inside the first Close call,
	// or immediately if the connection is already closed.
	OnClose(fn func())
}

// InboundHandler receives text frames sent by a client.
type InboundHandler func(conn Connection, data []byte)

// Observer is notified when the registry gains or loses a connection.
type Observer interface {
	ConnectionOpened(transport string)
	ConnectionClosed(transport string)
}
