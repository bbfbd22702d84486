// Package configtypes defines the YAML configuration schema.
package configtypes

import (
	"github.com/apohrebniak/paket/pkg/types"
)

// Log level constants
const (
	LogLevelDebug  = "debug"
	LogLevelInfo   = "info"
	LogLevelWarn   = "warn"
	LogLevelError  = "error"
	LogLevelDPanic = "dpanic"
	LogLevelPanic  = "panic"
	LogLevelFatal  = "fatal"
)

// Log format constants
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
	LogFormatText    = "text"
)

// Config represents the main application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Feed    FeedConfig    `yaml:"feed"`
	Storage StorageConfig `yaml:"storage"`
	Redis   *RedisConfig  `yaml:"redis,omitempty"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	Listen  string         `yaml:"listen"`
	Timeout types.Duration `yaml:"timeout"`
}

// FeedConfig describes the published feed channel. Link is the externally
// visible base URL of this instance; item links in the feed resolve against it.
type FeedConfig struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Link        string         `yaml:"link"`
	TTL         types.Duration `yaml:"ttl"`
}

// StorageConfig points at the MySQL database holding articles and stats.
type StorageConfig struct {
	Addr     string `yaml:"addr"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RedisConfig enables the title cache. The whole section is optional; without
// it every save fetches the document again.
type RedisConfig struct {
	Addr     string         `yaml:"addr"`
	Password string         `yaml:"password"`
	DB       int            `yaml:"db"`
	TitleTTL types.Duration `yaml:"title_ttl"`
}

type FetchConfig struct {
	Timeout        types.Duration `yaml:"timeout"`
	RateLimit      float64        `yaml:"rate_limit,omitempty"`
	RateBurst      int            `yaml:"rate_burst,omitempty"`
	SSRFProtection *bool          `yaml:"ssrf_protection,omitempty"` // Block fetches of private IPs (default: true)
}

type LogConfig struct {
	Level   string           `yaml:"level"`
	Console ConsoleLogConfig `yaml:"console"`
	File    FileLogConfig    `yaml:"file"`
}

type ConsoleLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"`
	Level   string `yaml:"level,omitempty"`
}

type FileLogConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Format   string         `yaml:"format"`
	Level    string         `yaml:"level,omitempty"`
	Rotation RotationConfig `yaml:"rotation"`
}

type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"`
	MaxAge     int  `yaml:"max_age"`
	MaxBackups int  `yaml:"max_backups"`
	Compress   bool `yaml:"compress"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}
