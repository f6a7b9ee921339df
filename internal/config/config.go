// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	Notify      NotifyConfig
}

// NotifyConfig controls the notification worker and its dispatcher.
type NotifyConfig struct {
	// Addr is the host:port of the desktop notification daemon.
	Addr string
	// SpoolDir is where rendered notification config files are written
	// before their path is handed to the daemon.
	SpoolDir string
	// PollInterval is the worker tick cadence.
	PollInterval time.Duration
	// LookbackWindow is how far behind a tick looks for planning starts,
	// tolerating scheduler downtime without re-alerting for old entries.
	LookbackWindow time.Duration
	// DispatchTimeout bounds one delivery attempt to the daemon.
	DispatchTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "9090"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/planner.db"),
		Notify: NotifyConfig{
			Addr:            getEnv("NOTIFY_ADDR", "127.0.0.1:9191"),
			SpoolDir:        getEnv("NOTIFY_SPOOL_DIR", "./data/notifications"),
			PollInterval:    getEnvDuration("NOTIFY_POLL_INTERVAL", time.Minute),
			LookbackWindow:  getEnvDuration("NOTIFY_LOOKBACK_WINDOW", 5*time.Minute),
			DispatchTimeout: getEnvDuration("NOTIFY_DISPATCH_TIMEOUT", 2*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Notify.Addr == "" {
		return fmt.Errorf("NOTIFY_ADDR cannot be empty")
	}
	if c.Notify.SpoolDir == "" {
		return fmt.Errorf("NOTIFY_SPOOL_DIR cannot be empty")
	}
	if c.Notify.PollInterval <= 0 {
		return fmt.Errorf("NOTIFY_POLL_INTERVAL must be > 0")
	}
	if c.Notify.LookbackWindow <= 0 {
		return fmt.Errorf("NOTIFY_LOOKBACK_WINDOW must be > 0")
	}
	if c.Notify.DispatchTimeout <= 0 {
		return fmt.Errorf("NOTIFY_DISPATCH_TIMEOUT must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
