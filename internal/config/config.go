// Package config provides configuration management for FocusOS.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. FOCUSOS_STORAGE_DRIVER.
	EnvPrefix = "FOCUSOS"

	defaultDataDir = "~/.focusos"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the FocusOS application.
type Config struct {
	User          UserConfig         `mapstructure:"user"`
	Log           LogConfig          `mapstructure:"log"`
	Session       SessionConfig      `mapstructure:"session"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Sync          SyncConfig         `mapstructure:"sync"`
	Stats         StatsConfig        `mapstructure:"stats"`
}

// UserConfig identifies the local user. The ID is generated on first run.
type UserConfig struct {
	ID string `mapstructure:"id"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SessionConfig holds session engine settings.
type SessionConfig struct {
	// DefaultPlanned is the goal of sessions started without one; 0 means open-ended.
	DefaultPlanned Duration `mapstructure:"default_planned"`
	TickInterval   Duration `mapstructure:"tick_interval"`
}

// NotificationConfig holds notification settings.
type NotificationConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	DataDir     string `mapstructure:"data_dir"`
	PostgresURL string `mapstructure:"postgres_url"`
}

// SyncConfig holds the retry policy of background persistence.
type SyncConfig struct {
	MaxAttempts     int      `mapstructure:"max_attempts"`
	BackoffBase     Duration `mapstructure:"backoff_base"`
	BackoffMax      Duration `mapstructure:"backoff_max"`
	QueueSize       int      `mapstructure:"queue_size"`
	BreakerFailures int      `mapstructure:"breaker_failures"`
	BreakerTimeout  Duration `mapstructure:"breaker_timeout"`
}

// StatsConfig holds statistics settings.
type StatsConfig struct {
	// Attribution is "end" or "start": which calendar day a session counts toward.
	Attribution string `mapstructure:"attribution"`
}

// Duration is a wrapper around time.Duration for TOML parsing.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// String returns the string representation of the duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Session: SessionConfig{
			DefaultPlanned: 0,
			TickInterval:   Duration(time.Second),
		},
		Notifications: NotificationConfig{
			Enabled: true,
		},
		Storage: StorageConfig{
			Driver:  DriverSQLite,
			DataDir: defaultDataDir,
		},
		Sync: SyncConfig{
			MaxAttempts:     3,
			BackoffBase:     Duration(500 * time.Millisecond),
			BackoffMax:      Duration(10 * time.Second),
			QueueSize:       64,
			BreakerFailures: 5,
			BreakerTimeout:  Duration(30 * time.Second),
		},
		Stats: StatsConfig{
			Attribution: "end",
		},
	}
}

// Load loads the configuration from the default config file, creating it on
// first run.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from configPath. A .env file in the working
// directory and FOCUSOS_* environment variables override file values.
func LoadFrom(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// If config file doesn't exist, create it with defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.User.ID = uuid.New().String()
		if err := Save(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.User.ID == "" {
		cfg.User.ID = uuid.New().String()
		if err := Save(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("failed to persist user id: %w", err)
		}
	}

	dataDir, err := expandHome(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.Storage.DataDir = dataDir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("storage.postgres_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Stats.Attribution {
	case "", "end", "start":
	default:
		return fmt.Errorf("unknown stats.attribution %q", c.Stats.Attribution)
	}
	if c.Session.TickInterval < 0 || c.Session.DefaultPlanned < 0 {
		return fmt.Errorf("session durations must not be negative")
	}
	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("sync.max_attempts must be at least 1")
	}
	return nil
}

// Save saves the configuration to configPath.
func Save(configPath string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")

	v.Set("user.id", cfg.User.ID)
	v.Set("log.level", cfg.Log.Level)
	v.Set("session.default_planned", cfg.Session.DefaultPlanned.String())
	v.Set("session.tick_interval", cfg.Session.TickInterval.String())
	v.Set("notifications.enabled", cfg.Notifications.Enabled)
	v.Set("storage.driver", cfg.Storage.Driver)
	v.Set("storage.data_dir", cfg.Storage.DataDir)
	v.Set("storage.postgres_url", cfg.Storage.PostgresURL)
	v.Set("sync.max_attempts", cfg.Sync.MaxAttempts)
	v.Set("sync.backoff_base", cfg.Sync.BackoffBase.String())
	v.Set("sync.backoff_max", cfg.Sync.BackoffMax.String())
	v.Set("sync.queue_size", cfg.Sync.QueueSize)
	v.Set("sync.breaker_failures", cfg.Sync.BreakerFailures)
	v.Set("sync.breaker_timeout", cfg.Sync.BreakerTimeout.String())
	v.Set("stats.attribution", cfg.Stats.Attribution)

	return v.WriteConfigAs(configPath)
}

// GetConfigPath returns the path to the config file.
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".focusos", "config.toml"), nil
}

// GetDBPath returns the path to the SQLite database file.
func GetDBPath(cfg *Config) string {
	return filepath.Join(cfg.Storage.DataDir, "focusos.db")
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults sets default values for viper. Every key needs a default for
// environment overrides to reach Unmarshal.
func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("user.id", "")
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("session.default_planned", defaults.Session.DefaultPlanned.String())
	v.SetDefault("session.tick_interval", defaults.Session.TickInterval.String())
	v.SetDefault("notifications.enabled", defaults.Notifications.Enabled)
	v.SetDefault("storage.driver", defaults.Storage.Driver)
	v.SetDefault("storage.data_dir", defaults.Storage.DataDir)
	v.SetDefault("storage.postgres_url", "")
	v.SetDefault("sync.max_attempts", defaults.Sync.MaxAttempts)
	v.SetDefault("sync.backoff_base", defaults.Sync.BackoffBase.String())
	v.SetDefault("sync.backoff_max", defaults.Sync.BackoffMax.String())
	v.SetDefault("sync.queue_size", defaults.Sync.QueueSize)
	v.SetDefault("sync.breaker_failures", defaults.Sync.BreakerFailures)
	v.SetDefault("sync.breaker_timeout", defaults.Sync.BreakerTimeout.String())
	v.SetDefault("stats.attribution", defaults.Stats.Attribution)
}

// expandHome expands a leading ~ in path.
func expandHome(path string) (string, error) {
	if path == "" {
		path = defaultDataDir
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~")), nil
}
