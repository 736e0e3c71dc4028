// Package config provides YAML-based configuration loading for vectorcomm.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"vectorcomm/pkg/transport"
)

// Config is the root configuration consumed from the surrounding system.
type Config struct {
	// AppName optional logical name of the hosting process
	AppName string `mapstructure:"app_name"`

	// QueueCapacity bounds every agent mailbox
	QueueCapacity int `mapstructure:"queue_capacity"`

	// BackpressurePolicy: reject, block, or evict-oldest
	BackpressurePolicy string `mapstructure:"backpressure_policy"`

	// SendTimeoutMS bounds a blocking send under the block policy
	SendTimeoutMS int `mapstructure:"send_timeout_ms"`

	// DisconnectGraceTimeoutMS bounds draining on disconnect
	DisconnectGraceTimeoutMS int `mapstructure:"disconnect_grace_timeout_ms"`

	// MessageTTLMS evicts unclaimed messages after this age; 0 disables
	MessageTTLMS int `mapstructure:"message_ttl_ms"`

	// Mailbox: fifo (default) or priority (opt-in banded scheduling)
	Mailbox string `mapstructure:"mailbox"`

	// Log holds logging configuration
	Log LogConfig `mapstructure:"log"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: list of outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		AppName:                  "vectorcomm",
		QueueCapacity:            transport.DefaultQueueCapacity,
		BackpressurePolicy:       "reject",
		SendTimeoutMS:            1000,
		DisconnectGraceTimeoutMS: 5000,
		MessageTTLMS:             0,
		Mailbox:                  "fifo",
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Outputs:     []string{"stdout"},
			Development: true,
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/vectorcomm.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
	}
}

// Load reads configuration from the provided path (if non-empty), otherwise
// it searches common locations and supports environment overrides.
// Environment variables use the prefix VECTORCOMM and `.`/`-` are replaced
// with `_`. Example: VECTORCOMM_BACKPRESSURE_POLICY=block
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("VECTORCOMM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("app_name", cfg.AppName)
	v.SetDefault("queue_capacity", cfg.QueueCapacity)
	v.SetDefault("backpressure_policy", cfg.BackpressurePolicy)
	v.SetDefault("send_timeout_ms", cfg.SendTimeoutMS)
	v.SetDefault("disconnect_grace_timeout_ms", cfg.DisconnectGraceTimeoutMS)
	v.SetDefault("message_ttl_ms", cfg.MessageTTLMS)
	v.SetDefault("mailbox", cfg.Mailbox)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)

	if path == "" {
		if envPath := os.Getenv("VECTORCOMM_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vectorcomm")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".vectorcomm"))
		}
	}

	// Read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
		// ok
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}

	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue_capacity must be positive, got %d", c.QueueCapacity)
	}
	if _, err := transport.ParsePolicy(c.BackpressurePolicy); err != nil {
		return err
	}
	if _, err := transport.ParseMailboxKind(c.Mailbox); err != nil {
		return err
	}
	if c.SendTimeoutMS < 0 || c.DisconnectGraceTimeoutMS < 0 || c.MessageTTLMS < 0 {
		return fmt.Errorf("timeouts must be non-negative")
	}
	return nil
}

// TransportOptions converts the loaded configuration into transport
// construction options.
func (c *Config) TransportOptions() (transport.Options, error) {
	policy, err := transport.ParsePolicy(c.BackpressurePolicy)
	if err != nil {
		return transport.Options{}, err
	}
	kind, err := transport.ParseMailboxKind(c.Mailbox)
	if err != nil {
		return transport.Options{}, err
	}
	return transport.Options{
		QueueCapacity: c.QueueCapacity,
		Policy:        policy,
		SendTimeout:   time.Duration(c.SendTimeoutMS) * time.Millisecond,
		GraceTimeout:  time.Duration(c.DisconnectGraceTimeoutMS) * time.Millisecond,
		MessageTTL:    time.Duration(c.MessageTTLMS) * time.Millisecond,
		Mailbox:       kind,
	}, nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
