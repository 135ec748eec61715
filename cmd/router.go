package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-live-feed/internal/applicatoin/broadcast"
	"go-live-feed/internal/infrastructure/config"
	"go-live-feed/internal/infrastructure/hub"
	"go-live-feed/internal/infrastructure/logger"
	"go-live-feed/internal/interfaces/middleware"
	"go-live-feed/internal/interfaces/rest/v1/handler"
	"go-live-feed/internal/interfaces/sse"
	"go-live-feed/internal/interfaces/websocket"
)

type routerDeps struct {
	cfg         *config.Config
	log         logger.Logger
	registry    *hub.Registry
	broadcaster *broadcast.Broadcaster
	publisher   handler.RecordPublisher
	gatherer    prometheus.Gatherer
}

func InitRouter(deps routerDeps) http.Handler {
	if deps.cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())

	rootGroup := router.Group("")

	statusHandler := handler.NewStatusHandler(deps.registry, deps.cfg.FeedDriver)
	rootGroup.GET("/status", statusHandler.Status)
	rootGroup.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.gatherer, promhttp.HandlerOpts{})))

	apiGroup := rootGroup.Group("/api/v1")
	{
		apiGroup.GET("/live/connections", statusHandler.GetConnections)

		if deps.publisher != nil {
			changeHandler := handler.NewChangeHandler(deps.publisher, deps.log)
			apiGroup.POST("/changes", changeHandler.PublishChange)
		}
	}

	connOpts := hub.Options{
		QueueSize:    deps.cfg.SendQueueSize,
		WriteTimeout: deps.cfg.WriteTimeout,
	}
	sse.InitSSERouter(deps.log, deps.registry, connOpts, rootGroup)

	connOpts.OnMessage = deps.broadcaster.HandleInbound
	websocket.InitWebSocketRouter(deps.log, deps.registry, connOpts, nil, rootGroup)

	return router
}
