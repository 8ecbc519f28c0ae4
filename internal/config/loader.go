package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides: sync.batch_size -> GOPHSYNC_SYNC_BATCH_SIZE.
const EnvPrefix = "GOPHSYNC"

// Loader reads configuration and reloads it when the file changes.
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader creates a loader. An empty path searches gophsync.{yaml,json,toml}
// in the working directory and in the user config directory.
func NewLoader(path string) *Loader {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gophsync")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "gophsync"))
		}
	}

	return &Loader{v: v, path: path}
}

// Load reads the file (a missing file is fine unless it was given
// explicitly), applies env overrides and validates the result.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return l.decode()
}

// File returns the config file in use, empty if none was found.
func (l *Loader) File() string {
	return l.v.ConfigFileUsed()
}

// Watch calls fn with the reloaded configuration every time the config file
// is written. It does nothing when no file is in use.
func (l *Loader) Watch(fn func(*Config, error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		fn(l.decode())
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is a shortcut for NewLoader(path).Load().
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// setDefaults registers every key so env overrides are visible to Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:8080")
	v.SetDefault("server.token", "")
	v.SetDefault("server.timeout", "30s")

	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("serve.jwt_secret", "")
	v.SetDefault("serve.db_path", "gophsync-server.db")
	v.SetDefault("serve.allowed_origins", []string{})
	v.SetDefault("serve.token_ttl", "24h")
	v.SetDefault("serve.max_limit", 500)
	v.SetDefault("serve.rate_limit", 600)
	v.SetDefault("serve.rate_window", "1m")
	v.SetDefault("serve.ping_interval", "30s")

	v.SetDefault("storage.driver", DriverBolt)
	v.SetDefault("storage.path", "gophsync.db")
	v.SetDefault("storage.encrypt", false)
	v.SetDefault("storage.passphrase_file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("sync.interval", "5m")
	v.SetDefault("sync.max_retry_attempts", 3)
	v.SetDefault("sync.auto_sync", true)
	v.SetDefault("sync.bidirectional", true)
	v.SetDefault("sync.connectivity", "any")
	v.SetDefault("sync.batch_size", 50)
	v.SetDefault("sync.max_concurrency", 4)
	v.SetDefault("sync.page_size", 100)
	v.SetDefault("sync.initial_retry_delay", "1s")
	v.SetDefault("sync.retry_backoff_multiplier", 2.0)
	v.SetDefault("sync.max_retry_delay", "5m")
	v.SetDefault("sync.delta_sync", false)
	v.SetDefault("sync.conflict_strategy", "last_update_wins")

	v.SetDefault("realtime.enabled", false)
	v.SetDefault("realtime.url", "ws://localhost:8080/ws")
	v.SetDefault("realtime.ping_interval", "30s")
	v.SetDefault("realtime.reconnect_delay", "1s")
	v.SetDefault("realtime.request_timeout", "30s")
	v.SetDefault("realtime.max_reconnect_attempts", 5)
	v.SetDefault("realtime.message_kinds", map[string]string{})
	v.SetDefault("realtime.event_map", map[string]string{})
}
