package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-live-feed/internal/domain/change"
	"go-live-feed/internal/infrastructure/feed"
	"go-live-feed/internal/infrastructure/logger"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

// Subscription holds one pooled connection in LISTEN mode. When that
// connection is lost, Next acquires a new one and listens again, backing off
// between attempts. Notifications sent while no connection is listening are
// lost.
type Subscription struct {
	pool    *pgxpool.Pool
	channel string
	logger  logger.Logger

	// mu is held by Next for the whole wait, so Close waits for it to return.
	mu   sync.Mutex
	conn *pgxpool.Conn

	closeCtx context.Context
	closeFn  context.CancelFunc
}

var _ feed.Subscription = (*Subscription)(nil)

// Subscribe starts listening on channel. The error is returned as is so the
// caller can abort startup.
func Subscribe(ctx context.Context, pool *pgxpool.Pool, channel string, log logger.Logger) (*Subscription, error) {
	if err := ValidateChannel(channel); err != nil {
		return nil, err
	}

	closeCtx, closeFn := context.WithCancel(context.Background())
	s := &Subscription{
		pool:     pool,
		channel:  channel,
		logger:   log.WithFields(logger.Fields{"component": "feed", "driver": "postgres", "channel": channel}),
		closeCtx: closeCtx,
		closeFn:  closeFn,
	}

	if err := s.listen(ctx); err != nil {
		closeFn()
		return nil, fmt.Errorf("listen on %q: %w", channel, err)
	}

	s.logger.Info("Listening for change notifications")
	return s, nil
}

func (s *Subscription) Next(ctx context.Context) (change.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.closeCtx, cancel)
	defer stop()

	backoff := initialBackoff
	for {
		if s.closeCtx.Err() != nil {
			s.drop()
			return nil, feed.ErrClosed
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if s.conn == nil {
			if err := s.listen(waitCtx); err != nil {
				s.logger.Warnf("Re-listen failed, retrying in %s: %v", backoff, err)
				select {
				case <-time.After(backoff):
					backoff = min(backoff*2, maxBackoff)
				case <-waitCtx.Done():
				}
				continue
			}
			s.logger.Info("Listening again after connection loss")
			backoff = initialBackoff
		}

		n, err := s.conn.Conn().WaitForNotification(waitCtx)
		if err == nil {
			return change.Decode([]byte(n.Payload)), nil
		}

		if s.conn.Conn().IsClosed() || waitCtx.Err() == nil {
			if waitCtx.Err() == nil {
				s.logger.Warnf("Lost listen connection: %v", err)
			}
			s.drop()
		}
	}
}

// Close stops the subscription and releases its connection.
func (s *Subscription) Close() error {
	s.closeFn()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drop()
	return nil
}

func (s *Subscription) listen(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{s.channel}.Sanitize()); err != nil {
		conn.Release()
		return err
	}

	s.conn = conn
	return nil
}

// drop closes the listening connection so the pool discards it instead of
// handing out a connection still subscribed to the channel.
func (s *Subscription) drop() {
	if s.conn == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.conn.Conn().Close(ctx)
	s.conn.Release()
	s.conn = nil
}
