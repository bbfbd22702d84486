// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/apohrebniak/paket/internal/common/configtypes"
	"github.com/apohrebniak/paket/internal/common/yamlutil"
	"github.com/apohrebniak/paket/pkg/types"
)

// Type aliases for backward compatibility
type (
	Config        = configtypes.Config
	ServerConfig  = configtypes.ServerConfig
	FeedConfig    = configtypes.FeedConfig
	StorageConfig = configtypes.StorageConfig
	RedisConfig   = configtypes.RedisConfig
	FetchConfig   = configtypes.FetchConfig
	LogConfig     = configtypes.LogConfig
)

const (
	DefaultFeedName        = "My Paket"
	DefaultFeedDescription = "My links"
	DefaultFeedTTL         = 60 * 24 * time.Hour

	DefaultFetchTimeout  = 5 * time.Second
	DefaultServerTimeout = 30 * time.Second

	DefaultRedisTitleTTL = 24 * time.Hour

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "paket"
)

// Load reads the YAML file at path, applies defaults and validates the
// result. Unknown fields are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills zero values with defaults
func applyDefaults(cfg *Config) {
	// If both log outputs are disabled (zero values), enable console by default
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = configtypes.LogFormatConsole
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = configtypes.LogFormatText
	}

	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = types.Duration(DefaultServerTimeout)
	}

	if cfg.Feed.Name == "" {
		cfg.Feed.Name = DefaultFeedName
	}
	if cfg.Feed.Description == "" {
		cfg.Feed.Description = DefaultFeedDescription
	}
	if cfg.Feed.TTL == 0 {
		cfg.Feed.TTL = types.Duration(DefaultFeedTTL)
	}

	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = types.Duration(DefaultFetchTimeout)
	}
	// A limiter without burst capacity would reject everything
	if cfg.Fetch.RateLimit > 0 && cfg.Fetch.RateBurst == 0 {
		cfg.Fetch.RateBurst = 1
	}

	if cfg.Redis != nil && cfg.Redis.TitleTTL == 0 {
		cfg.Redis.TitleTTL = types.Duration(DefaultRedisTitleTTL)
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}

// validate checks the configuration for errors that would only surface at
// runtime otherwise
func validate(cfg *Config) error {
	if err := configtypes.ValidateListenAddress(cfg.Server.Listen); err != nil {
		return fmt.Errorf("server.listen: %w", err)
	}

	if cfg.Storage.Addr == "" {
		return fmt.Errorf("storage.addr is required")
	}
	if cfg.Storage.User == "" {
		return fmt.Errorf("storage.user is required")
	}
	if cfg.Storage.Database == "" {
		return fmt.Errorf("storage.database is required")
	}

	if cfg.Feed.Link == "" {
		return fmt.Errorf("feed.link is required")
	}
	link, err := url.Parse(cfg.Feed.Link)
	if err != nil {
		return fmt.Errorf("feed.link: %w", err)
	}
	if link.Scheme != "http" && link.Scheme != "https" {
		return fmt.Errorf("feed.link must be an http or https URL, got %q", cfg.Feed.Link)
	}
	if link.Host == "" {
		return fmt.Errorf("feed.link has no host: %q", cfg.Feed.Link)
	}

	if cfg.Fetch.RateLimit < 0 {
		return fmt.Errorf("fetch.rate_limit must not be negative, got %g", cfg.Fetch.RateLimit)
	}

	if cfg.Redis != nil && cfg.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when the redis section is present")
	}

	if cfg.Metrics.Enabled {
		if err := configtypes.ValidateListenAddress(cfg.Metrics.Listen); err != nil {
			return fmt.Errorf("metrics.listen: %w", err)
		}
		metricsPort, err1 := configtypes.GetPortFromListen(cfg.Metrics.Listen)
		serverPort, err2 := configtypes.GetPortFromListen(cfg.Server.Listen)
		if err1 == nil && err2 == nil && metricsPort == serverPort {
			return fmt.Errorf("metrics.listen must not share a port with server.listen (%d)", metricsPort)
		}
	}

	return nil
}
