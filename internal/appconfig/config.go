// Package appconfig loads the process-level configuration the CLI glue
// layer needs: logging, the session-service endpoint, polling/cleanup
// tuning, and optional trace-store persistence. Adapted from the
// teacher's core/config.go struct-with-defaults TOML pattern
// (LoadConfig/defaulting-after-unmarshal), reimplemented over the same
// BurntSushi/toml it used. The core engine reads none of this directly —
// per spec.md §6, the config surface is a glue layer that translates into
// step/agent/client configuration.
package appconfig

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk TOML shape. Every section has sensible zero-value
// defaults applied by Load.
type Config struct {
	Logging    LoggingConfig    `toml:"logging"`
	Session    SessionConfig    `toml:"session"`
	Engine     EngineConfig     `toml:"engine"`
	TraceStore TraceStoreConfig `toml:"trace_store"`
}

type LoggingConfig struct {
	Level string `toml:"level"` // debug|info|warn|error
}

// SessionConfig configures the Remote Agent Client's HTTP endpoint and
// polling/cleanup behavior (agentclient.Config mirrors this one to one).
type SessionConfig struct {
	BaseURL                  string `toml:"base_url"`
	PollIntervalMs           int    `toml:"poll_interval_ms"`
	MaxPollDurationMs        int    `toml:"max_poll_duration_ms"`
	SessionCleanupMaxRetries int    `toml:"session_cleanup_max_retries"`
	CleanupRetryDelayMs      int    `toml:"cleanup_retry_delay_ms"`
}

// EngineConfig holds overridable defaults for workflow execution limits;
// a workflow definition's own fields always take precedence when set.
type EngineConfig struct {
	MaxIterations  int `toml:"max_iterations"`
	MaxDurationMs  int `toml:"max_duration_ms"`
	MaxContextSize int `toml:"max_context_size"`
	// MaxErrors feeds the optional guards.MaxErrorGuard the CLI wires in
	// addition to the engine's own mandatory iteration/duration guards.
	MaxErrors int `toml:"max_errors"`
}

// TraceStoreConfig selects and configures the optional persistence layer
// (internal/tracestore). Backend "memory" (default) never touches a
// database; backend "postgres" requires DSN.
type TraceStoreConfig struct {
	Backend string `toml:"backend"` // "memory" | "postgres"
	DSN     string `toml:"dsn"`
}

// Load reads and parses a TOML file at path, applying defaults for any
// zero-valued field.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("appconfig: configuration file not found: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("appconfig: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("appconfig: failed to parse TOML: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the zero Config with every default applied, for
// callers that run without a config file on disk.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Session.BaseURL == "" {
		c.Session.BaseURL = "http://localhost:8787"
	}
	if c.Session.PollIntervalMs == 0 {
		c.Session.PollIntervalMs = 1_000
	}
	if c.Session.MaxPollDurationMs == 0 {
		c.Session.MaxPollDurationMs = 120_000
	}
	if c.Session.SessionCleanupMaxRetries == 0 {
		c.Session.SessionCleanupMaxRetries = 3
	}
	if c.Session.CleanupRetryDelayMs == 0 {
		c.Session.CleanupRetryDelayMs = 500
	}
	if c.Engine.MaxIterations == 0 {
		c.Engine.MaxIterations = 100
	}
	if c.Engine.MaxDurationMs == 0 {
		c.Engine.MaxDurationMs = 300_000
	}
	if c.Engine.MaxContextSize == 0 {
		c.Engine.MaxContextSize = 100
	}
	if c.Engine.MaxErrors == 0 {
		c.Engine.MaxErrors = 10
	}
	if c.TraceStore.Backend == "" {
		c.TraceStore.Backend = "memory"
	}
}
