package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"tickpipe/internal/domain"
)

// Storage backend selectors.
const (
	BackendMemory   = "memory"
	BackendDatabase = "database"
)

// Config holds the full server configuration, populated from the
// environment (and a .env file when present).
type Config struct {
	// HTTPAddr is the listen address of the REST API.
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8000"`

	// Symbols is the comma-separated list of symbols to subscribe on start.
	Symbols []string `envconfig:"SYMBOLS" default:"btcusdt,ethusdt"`

	// FeedEndpoint is the websocket feed base URL.
	FeedEndpoint string `envconfig:"FEED_ENDPOINT" default:"wss://fstream.binance.com/ws"`

	// BufferCapacity bounds the tick buffer; 0 means unbounded.
	BufferCapacity int `envconfig:"BUFFER_CAPACITY" default:"100000"`

	// ResampleInterval is how often the pipeline drains and resamples.
	ResampleInterval time.Duration `envconfig:"RESAMPLE_INTERVAL" default:"10s"`

	// Timeframes is the comma-separated list of bar widths to maintain.
	Timeframes []string `envconfig:"TIMEFRAMES" default:"1s,1m,5m"`

	// AnalyticsWindow is the rolling window used by the alert context
	// and analytics snapshots.
	AnalyticsWindow int `envconfig:"ANALYTICS_WINDOW" default:"20"`

	// StorageBackend selects "memory" or "database".
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"memory"`

	// PostgresDSN is required when StorageBackend is "database".
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	// ClickhouseDSN optionally moves tick storage to ClickHouse;
	// when empty, Postgres holds both ticks and bars.
	ClickhouseDSN string `envconfig:"CLICKHOUSE_DSN"`
}

// Load reads the configuration from the environment. A missing .env
// file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory:
	case BackendDatabase:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORAGE_BACKEND=database")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	if len(c.Timeframes) == 0 {
		return fmt.Errorf("TIMEFRAMES must not be empty")
	}
	if _, err := c.ParsedTimeframes(); err != nil {
		return err
	}

	if c.BufferCapacity < 0 {
		return fmt.Errorf("BUFFER_CAPACITY must not be negative")
	}
	if c.ResampleInterval <= 0 {
		return fmt.Errorf("RESAMPLE_INTERVAL must be positive")
	}
	return nil
}

// ParsedTimeframes converts the configured timeframe names.
func (c *Config) ParsedTimeframes() ([]domain.Timeframe, error) {
	out := make([]domain.Timeframe, 0, len(c.Timeframes))
	for _, raw := range c.Timeframes {
		tf, err := domain.ParseTimeframe(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid timeframe %q: %w", raw, err)
		}
		out = append(out, tf)
	}
	return out, nil
}
