// Package config loads client and server configuration with viper:
// defaults, then an optional config file, then GOPHSYNC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/iudanet/gophsync/internal/client/connectivity"
	clientsync "github.com/iudanet/gophsync/internal/client/sync"
	"github.com/iudanet/gophsync/internal/client/ws"
	"github.com/iudanet/gophsync/internal/conflict"
	"github.com/iudanet/gophsync/internal/logging"
	"github.com/iudanet/gophsync/internal/server"
	"github.com/iudanet/gophsync/internal/server/handlers"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Storage drivers.
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

// Config is the full configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Serve    ServeConfig    `mapstructure:"serve"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Sync     SyncConfig     `mapstructure:"sync"`
}

// ServerConfig describes the remote sync server as seen by the client.
type ServerConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServeConfig configures the reference server.
type ServeConfig struct {
	Addr           string        `mapstructure:"addr"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	DBPath         string        `mapstructure:"db_path"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	RateWindow     time.Duration `mapstructure:"rate_window"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	MaxLimit       int           `mapstructure:"max_limit"`
	RateLimit      int           `mapstructure:"rate_limit"`
}

// StorageConfig selects the local record store.
type StorageConfig struct {
	Driver         string `mapstructure:"driver"`
	Path           string `mapstructure:"path"`
	PassphraseFile string `mapstructure:"passphrase_file"`
	Encrypt        bool   `mapstructure:"encrypt"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SyncConfig mirrors the sync engine options.
type SyncConfig struct {
	Connectivity           string        `mapstructure:"connectivity"`
	ConflictStrategy       string        `mapstructure:"conflict_strategy"`
	Interval               time.Duration `mapstructure:"interval"`
	InitialRetryDelay      time.Duration `mapstructure:"initial_retry_delay"`
	MaxRetryDelay          time.Duration `mapstructure:"max_retry_delay"`
	RetryBackoffMultiplier float64       `mapstructure:"retry_backoff_multiplier"`
	MaxRetryAttempts       int           `mapstructure:"max_retry_attempts"`
	BatchSize              int           `mapstructure:"batch_size"`
	MaxConcurrency         int           `mapstructure:"max_concurrency"`
	PageSize               int           `mapstructure:"page_size"`
	AutoSync               bool          `mapstructure:"auto_sync"`
	Bidirectional          bool          `mapstructure:"bidirectional"`
	DeltaSync              bool          `mapstructure:"delta_sync"`
}

// RealtimeConfig configures the WebSocket connection.
type RealtimeConfig struct {
	// MessageKinds maps a purpose (request, heartbeat, subscription, raw) to text or binary.
	MessageKinds map[string]string `mapstructure:"message_kinds"`
	// EventMap maps server event names to event kinds (data_created, sync_required, ...).
	EventMap             map[string]string `mapstructure:"event_map"`
	URL                  string            `mapstructure:"url"`
	PingInterval         time.Duration     `mapstructure:"ping_interval"`
	ReconnectDelay       time.Duration     `mapstructure:"reconnect_delay"`
	RequestTimeout       time.Duration     `mapstructure:"request_timeout"`
	MaxReconnectAttempts int               `mapstructure:"max_reconnect_attempts"`
	Enabled              bool              `mapstructure:"enabled"`
}

// Validate checks enumerations, urls and durations.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.URL != "" {
		if _, err := url.ParseRequestURI(c.Server.URL); err != nil {
			errs = append(errs, fmt.Errorf("server.url: %w", err))
		}
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, errors.New("server.timeout must not be negative"))
	}

	switch {
	case c.Serve.MaxLimit < 0, c.Serve.RateLimit < 0:
		errs = append(errs, errors.New("serve limits must not be negative"))
	case c.Serve.TokenTTL < 0, c.Serve.RateWindow < 0, c.Serve.PingInterval < 0:
		errs = append(errs, errors.New("serve durations must not be negative"))
	}

	switch c.Storage.Driver {
	case DriverBolt, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}
	if c.Storage.Encrypt && c.Storage.Driver != DriverBolt {
		errs = append(errs, errors.New("storage.encrypt is supported by the bolt driver only"))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: %w: %q", logging.ErrUnknownFormat, c.Log.Format))
	}

	if _, err := c.Sync.Engine(); err != nil {
		errs = append(errs, err)
	}
	if c.Realtime.Enabled {
		if _, err := c.Realtime.Manager(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Engine converts the section to the sync engine configuration.
func (s SyncConfig) Engine() (clientsync.Config, error) {
	requirement, err := connectivity.ParseRequirement(s.Connectivity)
	if err != nil {
		return clientsync.Config{}, fmt.Errorf("sync.connectivity: %w", err)
	}
	strategy, err := conflict.ParseStrategy(s.ConflictStrategy)
	if err != nil {
		return clientsync.Config{}, fmt.Errorf("sync.conflict_strategy: %w", err)
	}
	// пользовательская стратегия задается только из кода
	if strategy == conflict.StrategyCustom {
		return clientsync.Config{}, fmt.Errorf("sync.conflict_strategy: %w", conflict.ErrMissingCustomResolver)
	}

	switch {
	case s.Interval < 0:
		return clientsync.Config{}, errors.New("sync.interval must not be negative")
	case s.InitialRetryDelay < 0, s.MaxRetryDelay < 0:
		return clientsync.Config{}, errors.New("sync retry delays must not be negative")
	case s.RetryBackoffMultiplier != 0 && s.RetryBackoffMultiplier < 1:
		return clientsync.Config{}, errors.New("sync.retry_backoff_multiplier must be at least 1")
	case s.MaxRetryAttempts < 0, s.BatchSize < 0, s.MaxConcurrency < 0, s.PageSize < 0:
		return clientsync.Config{}, errors.New("sync counters must not be negative")
	}

	return clientsync.Config{
		SyncInterval:           s.Interval,
		MaxRetryAttempts:       s.MaxRetryAttempts,
		AutoSync:               s.AutoSync,
		Bidirectional:          s.Bidirectional,
		Connectivity:           requirement,
		BatchSize:              s.BatchSize,
		MaxConcurrency:         s.MaxConcurrency,
		PageSize:               s.PageSize,
		InitialRetryDelay:      s.InitialRetryDelay,
		RetryBackoffMultiplier: s.RetryBackoffMultiplier,
		MaxRetryDelay:          s.MaxRetryDelay,
		DeltaSync:              s.DeltaSync,
		ConflictStrategy:       strategy,
	}, nil
}

// Manager converts the section to the WebSocket manager configuration.
func (r RealtimeConfig) Manager() (ws.Config, error) {
	if r.URL == "" {
		return ws.Config{}, errors.New("realtime.url is required when realtime is enabled")
	}
	if _, err := url.Parse(r.URL); err != nil {
		return ws.Config{}, fmt.Errorf("realtime.url: %w", err)
	}

	kinds := make(map[ws.Purpose]ws.MessageKind, len(r.MessageKinds))
	for name, value := range r.MessageKinds {
		purpose, err := ws.ParsePurpose(name)
		if err != nil {
			return ws.Config{}, fmt.Errorf("realtime.message_kinds: %w", err)
		}
		kind, err := ws.ParseMessageKind(value)
		if err != nil {
			return ws.Config{}, fmt.Errorf("realtime.message_kinds.%s: %w", name, err)
		}
		kinds[purpose] = kind
	}

	var events map[string]ws.EventKind
	if len(r.EventMap) > 0 {
		events = ws.DefaultEventMap()
		for name, value := range r.EventMap {
			kind, err := ws.ParseEventKind(value)
			if err != nil {
				return ws.Config{}, fmt.Errorf("realtime.event_map.%s: %w", name, err)
			}
			events[name] = kind
		}
	}

	return ws.Config{
		URL:                  r.URL,
		MessageKinds:         kinds,
		EventMap:             events,
		PingInterval:         r.PingInterval,
		ReconnectDelay:       r.ReconnectDelay,
		RequestTimeout:       r.RequestTimeout,
		MaxReconnectAttempts: r.MaxReconnectAttempts,
	}, nil
}

// Server converts the section to the reference server configuration.
func (s ServeConfig) Server(version string) server.Config {
	return server.Config{
		Addr:           s.Addr,
		Version:        version,
		AllowedOrigins: s.AllowedOrigins,
		JWT:            s.JWT(),
		MaxLimit:       s.MaxLimit,
		RateLimit:      s.RateLimit,
		RateWindow:     s.RateWindow,
		PingInterval:   s.PingInterval,
	}
}

// JWT returns the token settings. An empty secret disables authentication.
func (s ServeConfig) JWT() handlers.JWTConfig {
	var secret []byte
	if s.JWTSecret != "" {
		secret = []byte(s.JWTSecret)
	}
	return handlers.JWTConfig{Secret: secret, AccessTokenTTL: s.TokenTTL}
}

// Options converts the section to logger options.
func (l LogConfig) Options() logging.Options {
	return logging.Options{
		Level:      l.Level,
		Format:     l.Format,
		File:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
	}
}
