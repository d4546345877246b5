// Package config handles TOML configuration parsing, defaults, and
// validation for obsidiand.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration for obsidiand.
type Config struct {
	Server ServerConfig `toml:"server"`
	World  WorldConfig  `toml:"world"`
	API    APIConfig    `toml:"api"`
	Hooks  HooksConfig  `toml:"hooks"`
}

// ServerConfig holds core daemon settings.
type ServerConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	PIDFile   string `toml:"pid_file"`
}

// WorldConfig holds world store settings.
type WorldConfig struct {
	Name          string `toml:"name"`
	Database      string `toml:"database"`
	FlushInterval string `toml:"flush_interval"`
}

// APIConfig holds HTTP API settings.
type APIConfig struct {
	Enabled   bool         `toml:"enabled"`
	Listen    string       `toml:"listen"`
	AuthToken string       `toml:"auth_token"`
	Users     []UserConfig `toml:"users"`
}

// UserConfig is one API user with a bcrypt password hash.
type UserConfig struct {
	Username     string `toml:"username"`
	PasswordHash string `toml:"password_hash"`
}

// HooksConfig holds event hook settings.
type HooksConfig struct {
	EventBufferSize   int           `toml:"event_buffer_size"`
	ScriptConcurrency int           `toml:"script_concurrency"`
	ScriptTimeout     string        `toml:"script_timeout"`
	WebhookTimeout    string        `toml:"webhook_timeout"`
	Scripts           []ScriptHook  `toml:"script"`
	Webhooks          []WebhookHook `toml:"webhook"`
}

// ScriptHook defines a script hook binding.
type ScriptHook struct {
	Name    string   `toml:"name"`
	Events  []string `toml:"events"`
	Command string   `toml:"command"`
	Timeout string   `toml:"timeout"`
}

// WebhookHook defines a webhook binding.
type WebhookHook struct {
	Name         string            `toml:"name"`
	Events       []string          `toml:"events"`
	URL          string            `toml:"url"`
	Method       string            `toml:"method"`
	Headers      map[string]string `toml:"headers"`
	Timeout      string            `toml:"timeout"`
	Retries      int               `toml:"retries"`
	RetryBackoff string            `toml:"retry_backoff"`
	Secret       string            `toml:"secret"`
}

// Load reads, defaults, and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse defaults and validates configuration bytes. The path is used only
// for error messages.
func Parse(data []byte, path string) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// FlushIntervalDuration parses the world flush interval.
func (w WorldConfig) FlushIntervalDuration() time.Duration {
	d, err := time.ParseDuration(w.FlushInterval)
	if err != nil || d <= 0 {
		return DefaultFlushInterval
	}
	return d
}

// ScriptTimeoutDuration parses the script hook timeout.
func (h HooksConfig) ScriptTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(h.ScriptTimeout)
	if err != nil || d <= 0 {
		return DefaultScriptTimeout
	}
	return d
}

// WebhookTimeoutDuration parses the webhook delivery timeout.
func (h HooksConfig) WebhookTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(h.WebhookTimeout)
	if err != nil || d <= 0 {
		return DefaultWebhookTimeout
	}
	return d
}

func applyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = DefaultLogLevel
	}
	if cfg.Server.LogFormat == "" {
		cfg.Server.LogFormat = DefaultLogFormat
	}
	if cfg.World.Name == "" {
		cfg.World.Name = DefaultWorldName
	}
	if cfg.World.Database == "" {
		cfg.World.Database = DefaultWorldDB
	}
	if cfg.World.FlushInterval == "" {
		cfg.World.FlushInterval = DefaultFlushInterval.String()
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = DefaultAPIListen
	}
	if cfg.Hooks.EventBufferSize <= 0 {
		cfg.Hooks.EventBufferSize = DefaultEventBufferSize
	}
	if cfg.Hooks.ScriptConcurrency <= 0 {
		cfg.Hooks.ScriptConcurrency = DefaultScriptConcurrency
	}
	if cfg.Hooks.ScriptTimeout == "" {
		cfg.Hooks.ScriptTimeout = DefaultScriptTimeout.String()
	}
	if cfg.Hooks.WebhookTimeout == "" {
		cfg.Hooks.WebhookTimeout = DefaultWebhookTimeout.String()
	}
}

func validate(cfg *Config) error {
	switch cfg.Server.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("server.log_format %q: must be json or text", cfg.Server.LogFormat)
	}

	if _, err := time.ParseDuration(cfg.World.FlushInterval); err != nil {
		return fmt.Errorf("world.flush_interval %q: %w", cfg.World.FlushInterval, err)
	}

	for i, u := range cfg.API.Users {
		if u.Username == "" {
			return fmt.Errorf("api.users[%d]: username must not be empty", i)
		}
		if u.PasswordHash == "" {
			return fmt.Errorf("api.users[%d] %s: password_hash must not be empty", i, u.Username)
		}
	}

	for i, s := range cfg.Hooks.Scripts {
		if s.Command == "" {
			return fmt.Errorf("hooks.script[%d] %s: command must not be empty", i, s.Name)
		}
		if len(s.Events) == 0 {
			return fmt.Errorf("hooks.script[%d] %s: at least one event pattern required", i, s.Name)
		}
	}
	for i, w := range cfg.Hooks.Webhooks {
		if w.URL == "" {
			return fmt.Errorf("hooks.webhook[%d] %s: url must not be empty", i, w.Name)
		}
		if len(w.Events) == 0 {
			return fmt.Errorf("hooks.webhook[%d] %s: at least one event pattern required", i, w.Name)
		}
	}

	return nil
}
