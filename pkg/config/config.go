package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Reconnect ReconnectConfig `mapstructure:"reconnect"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Chat      ChatConfig      `mapstructure:"chat"`
}

// ServerConfig holds the agent platform endpoint configuration
type ServerConfig struct {
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"-"`
	TimeoutStr string        `mapstructure:"timeout"` // For parsing string duration
}

// ReconnectConfig holds event stream reconnection policy knobs
type ReconnectConfig struct {
	MaxAttempts    int `mapstructure:"max_attempts"`
	InitialDelayMs int `mapstructure:"initial_delay_ms"`
	MaxDelayMs     int `mapstructure:"max_delay_ms"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile  string `mapstructure:"log_file"`
	Preserve bool   `mapstructure:"preserve"`
	Level    string `mapstructure:"level"`
}

// AgentConfig holds agent selection configuration
type AgentConfig struct {
	Default string `mapstructure:"default"`
}

// ChatConfig holds message ingestion configuration
type ChatConfig struct {
	// FoldToolRoles collapses server-side tool/system roles into assistant
	// for rendering compatibility.
	FoldToolRoles bool `mapstructure:"fold_tool_roles"`
}

var cfg *Config

// Get returns the current configuration. Load must have been called first.
func Get() *Config {
	if cfg == nil {
		cfg = &Config{}
		setDefaults()
		_ = viper.Unmarshal(cfg)
		_ = processDurations(cfg)
	}
	return cfg
}

// Load reads configuration from file, environment and defaults.
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			xdgConfigHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath("./.gourme7") // Check project directory first
		viper.AddConfigPath(filepath.Join(xdgConfigHome, "gourme7"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	viper.SetEnvPrefix("GOURME7")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file is optional; defaults and env cover the rest.
	_ = viper.ReadInConfig()

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := processDurations(cfg); err != nil {
		return nil, fmt.Errorf("failed to process durations: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Reset clears the cached config. Used by tests.
func Reset() {
	cfg = nil
	viper.Reset()
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.url", "http://localhost:8787")
	viper.SetDefault("server.timeout", "60s")

	// Reconnection policy defaults
	viper.SetDefault("reconnect.max_attempts", 5)
	viper.SetDefault("reconnect.initial_delay_ms", 1000)
	viper.SetDefault("reconnect.max_delay_ms", 30000)

	// Logging defaults
	viper.SetDefault("logging.log_file", "./.gourme7/client.log")
	viper.SetDefault("logging.preserve", false)
	viper.SetDefault("logging.level", "info")

	// Agent defaults
	viper.SetDefault("agent.default", "")

	// Chat defaults
	viper.SetDefault("chat.fold_tool_roles", true)
}

// processDurations converts string durations into time.Duration fields
// (viper doesn't handle time.Duration directly)
func processDurations(c *Config) error {
	if c.Server.TimeoutStr != "" {
		d, err := time.ParseDuration(c.Server.TimeoutStr)
		if err != nil {
			return fmt.Errorf("invalid server.timeout %q: %w", c.Server.TimeoutStr, err)
		}
		c.Server.Timeout = d
	}
	return nil
}

func validate(c *Config) error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url must not be empty")
	}
	if c.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts must not be negative")
	}
	if c.Reconnect.InitialDelayMs <= 0 {
		return fmt.Errorf("reconnect.initial_delay_ms must be positive")
	}
	if c.Reconnect.MaxDelayMs < c.Reconnect.InitialDelayMs {
		return fmt.Errorf("reconnect.max_delay_ms must be >= reconnect.initial_delay_ms")
	}
	return nil
}

// InitialDelay returns the reconnect initial delay as a duration.
func (r ReconnectConfig) InitialDelay() time.Duration {
	return time.Duration(r.InitialDelayMs) * time.Millisecond
}

// MaxDelay returns the reconnect delay cap as a duration.
func (r ReconnectConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMs) * time.Millisecond
}
