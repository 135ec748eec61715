package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"go-live-feed/internal/infrastructure/config"
	"go-live-feed/internal/infrastructure/feed"
	"go-live-feed/internal/infrastructure/feed/postgres"
	feedredis "go-live-feed/internal/infrastructure/feed/redis"
	"go-live-feed/internal/infrastructure/logger"
	"go-live-feed/internal/interfaces/rest/v1/handler"
)

// startupTimeout bounds connecting to and subscribing on the feed backend.
const startupTimeout = 15 * time.Second

// changeFeed bundles the subscription chosen by FEED_DRIVER with the
// optional ingestion publisher and document reader.
type changeFeed struct {
	sub       feed.Subscription
	publisher handler.RecordPublisher
	reader    feed.DocumentReader

	closers []func()
}

func (f *changeFeed) Close() {
	if f.sub != nil {
		_ = f.sub.Close()
	}
	for i := len(f.closers) - 1; i >= 0; i-- {
		f.closers[i]()
	}
}

func openChangeFeed(ctx context.Context, cfg *config.Config, log logger.Logger) (*changeFeed, error) {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	f := &changeFeed{}
	log = log.WithField("feed_driver", cfg.FeedDriver)

	var pool *pgxpool.Pool
	if cfg.FeedDriver == config.DriverPostgres || cfg.FeedEnrichUpdates {
		p, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		pool = p
		f.closers = append(f.closers, pool.Close)
	}

	switch cfg.FeedDriver {
	case config.DriverPostgres:
		if cfg.FeedInstallTriggers {
			if err := postgres.InstallTriggers(ctx, pool, cfg.FeedChannel, cfg.FeedTables); err != nil {
				f.Close()
				return nil, err
			}
			log.Infof("Change triggers installed on %v", cfg.FeedTables)
		}
		sub, err := postgres.Subscribe(ctx, pool, cfg.FeedChannel, log)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.sub = sub

	case config.DriverRedis:
		client, err := feedredis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.closers = append(f.closers, func() { _ = client.Close() })

		sub, err := feedredis.Subscribe(ctx, client, cfg.FeedChannel, log)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.sub = sub
		f.publisher = feedredis.NewPublisher(client, cfg.FeedChannel)

	case config.DriverHTTP:
		ch := feed.NewChannel(cfg.SendQueueSize)
		f.sub = ch
		f.publisher = ch

	default:
		f.Close()
		return nil, fmt.Errorf("unknown feed driver %q", cfg.FeedDriver)
	}

	if cfg.FeedEnrichUpdates {
		f.reader = postgres.NewDocumentReader(pool, cfg.FeedTables)
	}
	return f, nil
}
