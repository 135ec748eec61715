package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"go-live-feed/internal/applicatoin/broadcast"
	"go-live-feed/internal/infrastructure/config"
	"go-live-feed/internal/infrastructure/hub"
	"go-live-feed/internal/infrastructure/logger"
	"go-live-feed/internal/infrastructure/metrics"
	"go-live-feed/internal/infrastructure/server"
)

func main() {
	ctx := context.Background()
	sctx := WithSignal(ctx)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogrusLogger(cfg.LoggerConfig())

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	feedMetrics := metrics.NewFeedMetrics(promRegistry)

	registry := hub.New(log, feedMetrics)

	// Without a change feed there is nothing to broadcast, so a failed
	// subscription aborts startup.
	changes, err := openChangeFeed(sctx, cfg, log)
	if err != nil {
		log.Fatalf("failed to subscribe to change feed: %v", err)
	}
	defer changes.Close()

	opts := []broadcast.Option{broadcast.WithMetrics(feedMetrics)}
	if changes.reader != nil {
		opts = append(opts, broadcast.WithDocumentReader(changes.reader))
	}
	broadcaster := broadcast.New(registry, log, opts...)

	router := InitRouter(routerDeps{
		cfg:         cfg,
		log:         log,
		registry:    registry,
		broadcaster: broadcaster,
		publisher:   changes.publisher,
		gatherer:    promRegistry,
	})
	httpSrv := server.NewHTTPServer(":"+cfg.Port, router)

	app := newApplication(log, cfg, httpSrv, registry, broadcaster, changes)
	log.Infof("Live feed listening on :%s (feed driver: %s)", cfg.Port, cfg.FeedDriver)
	if err := app.Run(sctx); err != nil {
		log.Errorf("failed to run application: %v", err)
	}
}

type Application struct {
	logger      logger.Logger
	cfg         *config.Config
	httpSrv     server.Server
	registry    *hub.Registry
	broadcaster *broadcast.Broadcaster
	changes     *changeFeed
}

func newApplication(
	logger logger.Logger,
	cfg *config.Config,
	httpSrv *server.HTTPServer,
	registry *hub.Registry,
	broadcaster *broadcast.Broadcaster,
	changes *changeFeed,
) *Application {
	return &Application{
		logger:      logger.WithField("app", "live-feed"),
		cfg:         cfg,
		httpSrv:     httpSrv,
		registry:    registry,
		broadcaster: broadcaster,
		changes:     changes,
	}
}

func (app *Application) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return app.httpSrv.Start(ctx)
	})

	eg.Go(func() error {
		return app.broadcaster.Run(ctx, app.changes.sub)
	})

	eg.Go(func() error {
		app.registry.RunSweeper(ctx, clockwork.NewRealClock(), app.cfg.SweepInterval)
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()

		gracefulshutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			app.cfg.ShutdownTimeout,
		)
		defer cancel()

		// Stop the feed and drop clients before the listener goes away.
		if err := app.changes.sub.Close(); err != nil {
			app.logger.Errorf("failed to close change feed: %v", err)
		}
		app.registry.CloseAll()

		return app.httpSrv.Stop(gracefulshutdownCtx)
	})

	return eg.Wait()
}

func WithSignal(pctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(pctx)

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

		<-sigc

		cancel()
	}()

	return ctx
}
