package kv

import (
	"log/slog"
	"path/filepath"
	"time"
)

// Drivers accepted in Config.Driver.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// Config holds store initialization parameters.
type Config struct {
	FilePath          string        // primary persistence location
	BackupPath        string        // snapshot directory; defaults to "backups" next to FilePath
	AutoSave          bool          // false disables every disk write except explicit backups
	AutoCleanInterval time.Duration // reaper period; <= 0 disables the reaper
	WriteDelay        time.Duration // debounce window for flushes
	Driver            string        // DriverJSON (default) or DriverSQLite
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		FilePath:          "dotkv.json",
		AutoSave:          true,
		AutoCleanInterval: time.Minute,
		WriteDelay:        100 * time.Millisecond,
		Driver:            DriverJSON,
	}
}

func (c Config) withDefaults() Config {
	if c.FilePath == "" {
		c.FilePath = DefaultConfig().FilePath
	}
	if c.BackupPath == "" {
		c.BackupPath = filepath.Join(filepath.Dir(c.FilePath), "backups")
	}
	if c.Driver == "" {
		c.Driver = DriverJSON
	}
	return c
}

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes Store behavior.
type Option func(*options)

// WithLogger sets the logger for flush failures, recovery, and handler
// panics. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

type setOptions struct {
	ttl time.Duration
}

// SetOption configures a Set operation.
type SetOption func(*setOptions)

// WithTTL sets a time-to-live on the root entry. Non-positive values mean no
// expiry.
func WithTTL(d time.Duration) SetOption {
	return func(o *setOptions) {
		o.ttl = d
	}
}
