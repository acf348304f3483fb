// Package config loads service configuration from an optional config.yaml
// and ENVHEALTH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when a loaded value is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// EnvPrefix prefixes every environment variable, e.g. ENVHEALTH_UPSTREAM_BASEURL.
const EnvPrefix = "ENVHEALTH"

// Config holds all configuration for the service.
type Config struct {
	Env      string
	Server   ServerConfig
	Log      LogConfig
	Upstream UpstreamConfig
	Query    QueryConfig
	Session  SessionConfig
	Refresh  RefreshConfig
	OTel     OTelConfig
	PubSub   PubSubConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port       int
	RequireTLS bool
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// UpstreamConfig holds the backend service location.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// QueryConfig holds the fetch retry policy.
type QueryConfig struct {
	// Retries after the first failed attempt. Zero disables retrying.
	Retries    int
	RetryDelay time.Duration
}

// SessionConfig holds dashboard session configuration.
type SessionConfig struct {
	TTL time.Duration
}

// RefreshConfig holds the periodic refresh configuration.
type RefreshConfig struct {
	// Interval between refresh runs. Zero disables periodic refresh.
	Interval time.Duration
}

// OTelConfig holds OpenTelemetry exporter configuration.
type OTelConfig struct {
	Enabled  bool
	Endpoint string
}

// PubSubConfig holds the change notification subscription. An empty
// subscription disables the subscriber.
type PubSubConfig struct {
	Project      string
	Subscription string
}

// Load reads config.yaml from the given directories (default: ".",
// "./config" and "$HOME/.envhealth") and overlays environment variables.
// A missing config file is not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "$HOME/.envhealth"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.requiretls", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("upstream.baseurl", "http://localhost:8000")
	v.SetDefault("upstream.timeout", "10s")
	v.SetDefault("query.retries", 3)
	v.SetDefault("query.retrydelay", "1s")
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("refresh.interval", "0s")
	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "localhost:4317")
	v.SetDefault("pubsub.project", "")
	v.SetDefault("pubsub.subscription", "")
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Upstream.BaseURL == "" {
		errs = append(errs, errors.New("upstream.baseurl is required"))
	}
	if c.Query.Retries < 0 {
		errs = append(errs, fmt.Errorf("query.retries %d must not be negative", c.Query.Retries))
	}
	if c.Query.RetryDelay <= 0 {
		errs = append(errs, errors.New("query.retrydelay must be positive"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if c.Refresh.Interval < 0 {
		errs = append(errs, errors.New("refresh.interval must not be negative"))
	}
	if c.PubSub.Subscription != "" && c.PubSub.Project == "" {
		errs = append(errs, errors.New("pubsub.project is required with pubsub.subscription"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ServerAddr returns the listen address, e.g. ":8080".
func (c *Config) ServerAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// NewLogger creates the service logger writing to w (stdout when nil).
func (c *Config) NewLogger(w io.Writer, service, version string) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if strings.EqualFold(c.Log.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Str("env", c.Env).
		Logger()
}
