package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"go-live-feed/internal/infrastructure/logger"
)

const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverHTTP     = "http"
)

// Config aggregates runtime settings loaded from the environment.
type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"3000"`

	FeedDriver          string   `env:"FEED_DRIVER" default:"postgres"`
	DatabaseURL         string   `env:"DATABASE_URL"`
	FeedChannel         string   `env:"FEED_CHANNEL" default:"entity_changes"`
	FeedTables          []string `env:"FEED_TABLES" default:"plants,users,vibrations"`
	FeedInstallTriggers bool     `env:"FEED_INSTALL_TRIGGERS" default:"false"`
	FeedEnrichUpdates   bool     `env:"FEED_ENRICH_UPDATES" default:"false"`
	RedisURL            string   `env:"REDIS_URL"`

	SendQueueSize   int           `env:"SEND_QUEUE_SIZE" default:"256"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" default:"10s"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" default:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"5s"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"console"`
	LogOutput string `env:"LOG_OUTPUT" default:"stdout"`
	LogFile   string `env:"LOG_FILE"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.FeedDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres feed driver")
		}
	case DriverRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis feed driver")
		}
	case DriverHTTP:
	default:
		return fmt.Errorf("FEED_DRIVER must be one of %s, %s, %s; got %q",
			DriverPostgres, DriverRedis, DriverHTTP, c.FeedDriver)
	}

	if c.FeedChannel == "" {
		return errors.New("FEED_CHANNEL must not be empty")
	}
	if c.SendQueueSize < 1 {
		return fmt.Errorf("SEND_QUEUE_SIZE must be positive, got %d", c.SendQueueSize)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	if c.FeedEnrichUpdates && c.DatabaseURL == "" {
		return errors.New("FEED_ENRICH_UPDATES requires DATABASE_URL")
	}

	tables := c.FeedTables[:0]
	for _, t := range c.FeedTables {
		if t = strings.TrimSpace(t); t != "" {
			tables = append(tables, t)
		}
	}
	c.FeedTables = tables

	return nil
}

// LoggerConfig derives the logger settings from the LOG_* variables.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.NewDefaultConfig()
	lc.Level = logger.ParseLevel(c.LogLevel)
	lc.Format = c.LogFormat
	lc.Output = c.LogOutput
	lc.FilePath = c.LogFile
	lc.Fields["environment"] = c.AppEnv
	return lc
}
