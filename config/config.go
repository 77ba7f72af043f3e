// Package config loads calgate settings from config.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// ErrInvalidConfig is returned when a loaded value is out of range
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all calgate configuration.
type Config struct {
	Store  StoreConfig
	Logger LoggerConfig
	Seed   SeedConfig
	Search SearchConfig
}

type StoreConfig struct {
	Backend string
	DSN     string
	// AutoGrant is the answer given to every permission prompt
	AutoGrant bool
}

type LoggerConfig struct {
	Level string
}

type SeedConfig struct {
	Path string
}

type SearchConfig struct {
	Window time.Duration
}

// Load reads config.yaml from the given directories, or from ./config, .
// and /etc/calgate/ when none are given. A missing file is not an error.
// Every key can be overridden by CALGATE_<KEY> with dots replaced by
// underscores, e.g. CALGATE_STORE_BACKEND.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config", ".", "/etc/calgate/"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("calgate")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	cfg.Store.Backend = strings.ToLower(v.GetString("store.backend"))
	cfg.Store.DSN = v.GetString("store.dsn")
	cfg.Store.AutoGrant = v.GetBool("store.auto_grant")
	cfg.Logger.Level = v.GetString("logger.level")
	cfg.Seed.Path = v.GetString("seed.path")
	cfg.Search.Window = v.GetDuration("search.window")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.dsn", "file:calgate.db")
	v.SetDefault("store.auto_grant", true)
	v.SetDefault("logger.level", "info")
	v.SetDefault("seed.path", "")
	v.SetDefault("search.window", 720*time.Hour)
}

// Validate checks values Load cannot type-check.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: store.dsn is required for the sqlite backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store.backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	if c.Search.Window <= 0 {
		return fmt.Errorf("%w: search.window must be positive", ErrInvalidConfig)
	}
	if _, err := c.Logger.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses Level as a log/slog level name.
func (c LoggerConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("%w: logger.level: %v", ErrInvalidConfig, err)
	}
	return level, nil
}
