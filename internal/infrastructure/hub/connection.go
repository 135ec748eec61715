package hub

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gorilla/websocket"

	"go-live-feed/internal/infrastructure/logger"
)

const (
	TypeWebSocket = "websocket"
	TypeSSE       = "sse"

	defaultQueueSize    = 256
	defaultWriteTimeout = 10 * time.Second
	pongTimeout         = 60 * time.Second
	pingInterval        = 54 * time.Second
	sseKeepAlive        = 30 * time.Second
	maxInboundSize      = 64 * 1024
)

// Options tune a connection's outbound queue and writes.
type Options struct {
	QueueSize    int
	WriteTimeout time.Duration
	OnMessage    InboundHandler
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	return o
}

// lifecycle is the close bookkeeping shared by both transports.
type lifecycle struct {
	ctx    context.Context
	cancel context.CancelFunc

	closed   bool
	closedMu sync.RWMutex
	onClose  []func()
}

// markClosed flips the state and returns the hooks to run, or false if the
// connection was already closed.
func (l *lifecycle) markClosed() ([]func(), bool) {
	l.closedMu.Lock()
	defer l.closedMu.Unlock()

	if l.closed {
		return nil, false
	}
	l.closed = true
	l.cancel()
	hooks := l.onClose
	l.onClose = nil
	return hooks, true
}

func (l *lifecycle) IsClosed() bool {
	l.closedMu.RLock()
	defer l.closedMu.RUnlock()
	return l.closed
}

func (l *lifecycle) Context() context.Context {
	return l.ctx
}

func (l *lifecycle) OnClose(fn func()) {
	l.closedMu.Lock()
	if l.closed {
		l.closedMu.Unlock()
		fn()
		return
	}
	l.onClose = append(l.onClose, fn)
	l.closedMu.Unlock()
}

// enqueue hands frame to the writer without blocking.
func (l *lifecycle) enqueue(queue chan []byte, frame []byte) error {
	l.closedMu.RLock()
	defer l.closedMu.RUnlock()

	if l.closed {
		return ErrConnectionClosed
	}

	select {
	case queue <- frame:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// WebSocketConnection implements the Connection interface for WebSocket connections
type WebSocketConnection struct {
	lifecycle

	id   string
	conn *websocket.Conn

	logger    logger.Logger
	send      chan []byte
	onMessage InboundHandler

	writeTimeout time.Duration

	lastActivity time.Time
	activityMu   sync.RWMutex
}

var _ Connection = (*WebSocketConnection)(nil)

// NewWebSocketConnection wraps an upgraded connection and starts its read
// and write pumps.
func NewWebSocketConnection(
	id string,
	conn *websocket.Conn,
	log logger.Logger,
	opts Options,
) *WebSocketConnection {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	wsConn := &WebSocketConnection{
		lifecycle:    lifecycle{ctx: ctx, cancel: cancel},
		id:           id,
		conn:         conn,
		logger:       log.WithField("connection_id", id),
		send:         make(chan []byte, opts.QueueSize),
		onMessage:    opts.OnMessage,
		writeTimeout: opts.WriteTimeout,
		lastActivity: time.Now(),
	}

	wsConn.setupWebSocket()

	go wsConn.writePump()
	go wsConn.readPump()

	return wsConn
}

func (c *WebSocketConnection) ID() string {
	return c.id
}

func (c *WebSocketConnection) Type() string {
	return TypeWebSocket
}

// Send queues a text frame for the write pump.
func (c *WebSocketConnection) Send(_ context.Context, frame []byte) error {
	return c.enqueue(c.send, frame)
}

// Close runs the close hooks, sends a close frame and drops the socket.
func (c *WebSocketConnection) Close() error {
	hooks, ok := c.markClosed()
	if !ok {
		return nil
	}

	for _, fn := range hooks {
		fn()
	}

	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.writeTimeout),
	)
	err := c.conn.Close()

	c.logger.Info("WebSocket connection closed")
	return err
}

// LastActivity is the time of the last frame or pong seen on the socket.
func (c *WebSocketConnection) LastActivity() time.Time {
	c.activityMu.RLock()
	defer c.activityMu.RUnlock()
	return c.lastActivity
}

func (c *WebSocketConnection) setupWebSocket() {
	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.updateActivity()
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
}

// writePump is the only writer of data frames on the socket.
func (c *WebSocketConnection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Errorf("Failed to write frame: %v", err)
				c.Close()
				return
			}
			c.updateActivity()

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Errorf("Failed to send ping: %v", err)
				c.Close()
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *WebSocketConnection) readPump() {
	defer c.Close()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				c.logger.Errorf("WebSocket error: %v", err)
			}
			return
		}

		c.updateActivity()

		switch messageType {
		case websocket.TextMessage:
			if c.onMessage != nil {
				c.onMessage(c, data)
			}
		case websocket.BinaryMessage:
			c.logger.Debugf("Ignoring binary message of length %d", len(data))
		}
	}
}

func (c *WebSocketConnection) updateActivity() {
	c.activityMu.Lock()
	c.lastActivity = time.Now()
	c.activityMu.Unlock()
}

// SSEConnection implements the Connection interface for Server-Sent Events.
// Frames are written by Serve, which must run on the request goroutine.
type SSEConnection struct {
	lifecycle

	id     string
	writer http.ResponseWriter

	logger       logger.Logger
	send         chan []byte
	writeTimeout time.Duration
}

var _ Connection = (*SSEConnection)(nil)

// NewSSEConnection prepares the response for streaming. The connection closes
// when ctx (normally the request context) ends.
func NewSSEConnection(
	ctx context.Context,
	id string,
	w http.ResponseWriter,
	log logger.Logger,
	opts Options,
) *SSEConnection {
	opts = opts.withDefaults()
	rctx, cancel := context.WithCancel(ctx)

	conn := &SSEConnection{
		lifecycle:    lifecycle{ctx: rctx, cancel: cancel},
		id:           id,
		writer:       w,
		logger:       log.WithField("connection_id", id),
		send:         make(chan []byte, opts.QueueSize),
		writeTimeout: opts.WriteTimeout,
	}
	conn.setupSSEHeaders()
	return conn
}

func (c *SSEConnection) ID() string {
	return c.id
}

func (c *SSEConnection) Type() string {
	return TypeSSE
}

func (c *SSEConnection) Send(_ context.Context, frame []byte) error {
	return c.enqueue(c.send, frame)
}

func (c *SSEConnection) Close() error {
	hooks, ok := c.markClosed()
	if !ok {
		return nil
	}
	for _, fn := range hooks {
		fn()
	}
	c.logger.Info("SSE connection closed")
	return nil
}

// Serve writes the handshake event and then queued frames until the
// connection or the request ends.
func (c *SSEConnection) Serve(hello sse.Event) {
	defer c.Close()

	if err := c.write(hello); err != nil {
		c.logger.Errorf("Failed to write handshake: %v", err)
		return
	}

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(sse.Event{Data: string(frame)}); err != nil {
				c.logger.Errorf("Failed to write frame: %v", err)
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(c.writer, ": keepalive\n\n"); err != nil {
				c.logger.Errorf("Failed to write keep-alive: %v", err)
				return
			}
			c.flush()
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *SSEConnection) write(event sse.Event) error {
	rc := http.NewResponseController(c.writer)
	_ = rc.SetWriteDeadline(time.Now().Add(c.writeTimeout))

	if err := sse.Encode(c.writer, event); err != nil {
		return err
	}
	c.flush()
	return nil
}

func (c *SSEConnection) flush() {
	if flusher, ok := c.writer.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (c *SSEConnection) setupSSEHeaders() {
	c.writer.Header().Set("Content-Type", "text/event-stream")
	c.writer.Header().Set("Cache-Control", "no-cache")
	c.writer.Header().Set("Connection", "keep-alive")
	c.writer.Header().Set("X-Accel-Buffering", "no") // For nginx
}
