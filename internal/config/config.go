// Package config loads cacher configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Sternrassler/cacher/pkg/cachecontrol"
	"github.com/Sternrassler/cacher/pkg/logging"
)

// Config holds the process configuration.
type Config struct {
	// Backend is the origin base URL requests are forwarded to.
	Backend string `env:"CACHER_BACKEND" envDefault:"http://stubr.rs:9191"`

	// Vary enables Vary-aware cache keys.
	Vary bool `env:"CACHER_VARY" envDefault:"false"`

	// Redis is the store connection URL.
	Redis string `env:"CACHER_REDIS" envDefault:"redis://127.0.0.1:6379/"`

	Listen      string `env:"CACHER_LISTEN" envDefault:":3000"`
	AdminListen string `env:"CACHER_ADMIN_LISTEN" envDefault:":9090"`

	TTL             time.Duration `env:"CACHER_TTL" envDefault:"5s"`
	Bypass          bool          `env:"CACHER_BYPASS" envDefault:"false"`
	BypassOnNoStore bool          `env:"CACHER_BYPASS_NO_STORE" envDefault:"false"`
	FailOpen        bool          `env:"CACHER_FAIL_OPEN" envDefault:"false"`

	PoolSize      int           `env:"CACHER_POOL_SIZE" envDefault:"500"`
	StoreTimeout  time.Duration `env:"CACHER_STORE_TIMEOUT" envDefault:"3s"`
	KeyPrefix     string        `env:"CACHER_KEY_PREFIX"`
	HashKeys      bool          `env:"CACHER_HASH_KEYS" envDefault:"false"`
	OriginTimeout time.Duration `env:"CACHER_ORIGIN_TIMEOUT" envDefault:"30s"`
	OriginRetries int           `env:"CACHER_ORIGIN_RETRIES" envDefault:"0"`

	// DirectiveMatch is "prefix" or "exact".
	DirectiveMatch string `env:"CACHER_DIRECTIVE_MATCH" envDefault:"prefix"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
	LogFile   string `env:"LOG_FILE"`
}

// Load reads the configuration from the environment. When envFile names an
// existing file its variables are loaded first; variables already set in the
// environment take precedence.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
			}
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Backend)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("CACHER_BACKEND: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("CACHER_BACKEND: scheme must be http or https, got %q", c.Backend))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("CACHER_BACKEND: missing host in %q", c.Backend))
	}

	if c.Redis == "" {
		errs = append(errs, errors.New("CACHER_REDIS is required"))
	}
	if c.Listen == "" {
		errs = append(errs, errors.New("CACHER_LISTEN is required"))
	}
	if c.TTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHER_TTL must be positive, got %s", c.TTL))
	}
	if c.PoolSize <= 0 {
		errs = append(errs, fmt.Errorf("CACHER_POOL_SIZE must be positive, got %d", c.PoolSize))
	}
	if c.OriginTimeout <= 0 {
		errs = append(errs, fmt.Errorf("CACHER_ORIGIN_TIMEOUT must be positive, got %s", c.OriginTimeout))
	}
	if c.OriginRetries < 0 {
		errs = append(errs, fmt.Errorf("CACHER_ORIGIN_RETRIES must not be negative, got %d", c.OriginRetries))
	}
	if _, err := cachecontrol.ParseMatchMode(c.DirectiveMatch); err != nil {
		errs = append(errs, fmt.Errorf("CACHER_DIRECTIVE_MATCH: %w", err))
	}

	return errors.Join(errs...)
}

// MatchMode returns the configured directive match mode.
func (c Config) MatchMode() cachecontrol.MatchMode {
	mode, err := cachecontrol.ParseMatchMode(c.DirectiveMatch)
	if err != nil {
		return cachecontrol.MatchPrefix
	}
	return mode
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	cfg.File = c.LogFile
	return cfg
}
