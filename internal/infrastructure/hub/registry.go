package hub

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"go-live-feed/internal/infrastructure/logger"
)

// Registry is the authoritative set of open connections. It is safe for
// concurrent use, and Register/Unregister may be called from inside ForEach.
type Registry struct {
	connections   map[string]Connection
	connectionsMu sync.RWMutex

	observer Observer
	logger   logger.Logger
}

// New creates an empty registry.
func New(log logger.Logger, observer Observer) *Registry {
	return &Registry{
		connections: make(map[string]Connection),
		observer:    observer,
		logger:      log.WithField("component", "registry"),
	}
}

// Register adds conn and arranges for its removal when it closes. Closed
// connections are ignored.
func (r *Registry) Register(conn Connection) {
	if conn.IsClosed() {
		return
	}

	r.connectionsMu.Lock()
	existing, ok := r.connections[conn.ID()]
	if ok && existing == conn {
		r.connectionsMu.Unlock()
		return
	}
	r.connections[conn.ID()] = conn
	count := len(r.connections)
	r.connectionsMu.Unlock()

	// A different connection under the same id is displaced and closed; its
	// own close hook is then a no-op.
	if ok {
		if r.observer != nil {
			r.observer.ConnectionClosed(existing.Type())
		}
		r.logger.Warnf("Connection %s replaced by a new connection with the same id", conn.ID())
		_ = existing.Close()
	}

	if r.observer != nil {
		r.observer.ConnectionOpened(conn.Type())
	}
	r.logger.Infof("Connection %s registered (type: %s, total: %d)", conn.ID(), conn.Type(), count)

	conn.OnClose(func() { r.Unregister(conn) })
}

// Unregister removes conn. Removing an absent connection is a no-op.
func (r *Registry) Unregister(conn Connection) {
	r.connectionsMu.Lock()
	existing, ok := r.connections[conn.ID()]
	if !ok || existing != conn {
		r.connectionsMu.Unlock()
		return
	}
	delete(r.connections, conn.ID())
	count := len(r.connections)
	r.connectionsMu.Unlock()

	if r.observer != nil {
		r.observer.ConnectionClosed(conn.Type())
	}
	r.logger.Infof("Connection %s unregistered (remaining: %d)", conn.ID(), count)
}

// Contains reports whether conn is currently registered.
func (r *Registry) Contains(conn Connection) bool {
	r.connectionsMu.RLock()
	defer r.connectionsMu.RUnlock()
	existing, ok := r.connections[conn.ID()]
	return ok && existing == conn
}

// Get returns a connection by ID
func (r *Registry) Get(connID string) (Connection, bool) {
	r.connectionsMu.RLock()
	defer r.connectionsMu.RUnlock()

	conn, exists := r.connections[connID]
	return conn, exists
}

// Snapshot returns the connections registered at the time of the call.
func (r *Registry) Snapshot() []Connection {
	r.connectionsMu.RLock()
	defer r.connectionsMu.RUnlock()

	connections := make([]Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		connections = append(connections, conn)
	}
	return connections
}

// ForEach calls visit for every registered connection, in no particular
// order. It iterates over a snapshot; a connection unregistered by an
// earlier visit is skipped.
func (r *Registry) ForEach(visit func(Connection)) {
	for _, conn := range r.Snapshot() {
		if !r.Contains(conn) {
			continue
		}
		visit(conn)
	}
}

// Len returns the number of registered connections
func (r *Registry) Len() int {
	r.connectionsMu.RLock()
	defer r.connectionsMu.RUnlock()
	return len(r.connections)
}

// CloseAll closes every connection and leaves the registry empty.
func (r *Registry) CloseAll() {
	for _, conn := range r.Snapshot() {
		if err := conn.Close(); err != nil {
			r.logger.Errorf("Failed to close connection %s: %v", conn.ID(), err)
		}
		r.Unregister(conn)
	}
}

// Sweep drops connections that report closed without their close hook having
// run, and returns how many were removed.
func (r *Registry) Sweep() int {
	removed := 0
	for _, conn := range r.Snapshot() {
		if conn.IsClosed() && r.Contains(conn) {
			r.Unregister(conn)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Infof("Swept %d closed connections", removed)
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
// A non-positive interval disables sweeping.
func (r *Registry) RunSweeper(ctx context.Context, clock clockwork.Clock, interval time.Duration) {
	if interval <= 0 {
		r.logger.Warnf("Sweeper disabled: non-positive interval %s", interval)
		return
	}

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			r.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
