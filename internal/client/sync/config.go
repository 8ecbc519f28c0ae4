package sync

import (
	"math"
	"time"

	"github.com/iudanet/gophsync/internal/client/connectivity"
	"github.com/iudanet/gophsync/internal/conflict"
)

// Config holds the sync engine and repository options.
type Config struct {
	// ConflictFunc is required when ConflictStrategy is conflict.Custom.
	ConflictFunc           conflict.Func
	SyncInterval           time.Duration
	InitialRetryDelay      time.Duration
	MaxRetryDelay          time.Duration
	RetryBackoffMultiplier float64
	MaxRetryAttempts       int
	BatchSize              int
	MaxConcurrency         int
	PageSize               int
	Connectivity           connectivity.Requirement
	ConflictStrategy       conflict.Strategy
	AutoSync               bool
	Bidirectional          bool
	DeltaSync              bool
}

// DefaultConfig returns the default sync configuration.
func DefaultConfig() Config {
	return Config{
		SyncInterval:           5 * time.Minute,
		MaxRetryAttempts:       3,
		AutoSync:               true,
		Bidirectional:          true,
		Connectivity:           connectivity.RequireAny,
		BatchSize:              50,
		MaxConcurrency:         4,
		PageSize:               100,
		InitialRetryDelay:      time.Second,
		RetryBackoffMultiplier: 2,
		MaxRetryDelay:          5 * time.Minute,
		ConflictStrategy:       conflict.StrategyLastUpdateWins,
	}
}

// withDefaults fills zero values that would make the engine misbehave.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = d.MaxConcurrency
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.MaxRetryAttempts <= 0 {
		c.MaxRetryAttempts = d.MaxRetryAttempts
	}
	if c.RetryBackoffMultiplier < 1 {
		c.RetryBackoffMultiplier = d.RetryBackoffMultiplier
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = d.MaxRetryDelay
	}
	return c
}

// RetryDelay returns how long a record that failed attempts times waits before the next automatic push:
// min(InitialRetryDelay * Multiplier^(attempts-1), MaxRetryDelay).
func (c Config) RetryDelay(attempts int) time.Duration {
	if attempts <= 0 || c.InitialRetryDelay <= 0 {
		return 0
	}
	delay := float64(c.InitialRetryDelay) * math.Pow(c.RetryBackoffMultiplier, float64(attempts-1))
	if delay > float64(c.MaxRetryDelay) {
		return c.MaxRetryDelay
	}
	return time.Duration(delay)
}

// NewResolver builds the conflict resolver described by the config.
func (c Config) NewResolver() (*conflict.Resolver, error) {
	return conflict.New(c.ConflictStrategy, c.ConflictFunc)
}
