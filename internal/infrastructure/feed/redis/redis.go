// Package redis reads change records published on a Redis pub/sub channel.
// Publishers send the same JSON record the postgres triggers emit.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"go-live-feed/internal/domain/change"
	"go-live-feed/internal/infrastructure/feed"
	"go-live-feed/internal/infrastructure/logger"
)

// Connect parses redisURL (e.g. "redis://localhost:6379/0") and pings the server.
func Connect(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return client, nil
}

// Subscription is a feed.Subscription over one pub/sub channel. go-redis
// resubscribes by itself after a dropped connection.
type Subscription struct {
	pubsub   *goredis.PubSub
	messages <-chan *goredis.Message
	logger   logger.Logger

	done     chan struct{}
	doneOnce sync.Once
}

var _ feed.Subscription = (*Subscription)(nil)

// Subscribe opens the subscription and waits for the server to confirm it.
func Subscribe(ctx context.Context, client *goredis.Client, channel string, log logger.Logger) (*Subscription, error) {
	pubsub := client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %q: %w", channel, err)
	}

	log.WithField("channel", channel).Info("Subscribed to redis change channel")
	return &Subscription{
		pubsub:   pubsub,
		messages: pubsub.Channel(),
		logger:   log,
		done:     make(chan struct{}),
	}, nil
}

func (s *Subscription) Next(ctx context.Context) (change.Event, error) {
	select {
	case msg, ok := <-s.messages:
		if !ok {
			return nil, feed.ErrClosed
		}
		return change.Decode([]byte(msg.Payload)), nil
	case <-s.done:
		return nil, feed.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Subscription) Close() error {
	var err error
	s.doneOnce.Do(func() {
		close(s.done)
		if s.pubsub != nil {
			err = s.pubsub.Close()
		}
	})
	return err
}

// Publisher forwards change records to a channel so that every instance
// subscribed to it broadcasts them.
type Publisher struct {
	client  *goredis.Client
	channel string
}

func NewPublisher(client *goredis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// PublishRecord checks that raw is a change record and publishes it as is.
func (p *Publisher) PublishRecord(ctx context.Context, raw []byte) error {
	var rec change.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("invalid change record: %w", err)
	}
	return p.client.Publish(ctx, p.channel, raw).Err()
}
