// Package config loads tokenledger settings from the environment.
//
// Variables may be preloaded from .env files; values already set in the
// process environment win. CLI flags override whatever is loaded here.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration.
type Config struct {
	// DBDriver is "sqlite3" or "postgres".
	DBDriver string `env:"TOKENLEDGER_DB_DRIVER" envDefault:"sqlite3"`

	// DB is the SQLite path or postgres DSN.
	DB string `env:"TOKENLEDGER_DB"`

	// EventLog, when set, appends every committed event as a JSON line.
	// "-" means stdout.
	EventLog string `env:"TOKENLEDGER_EVENT_LOG"`

	// KafkaBrokers, when set, publishes every committed event to KafkaTopic.
	KafkaBrokers []string `env:"TOKENLEDGER_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"TOKENLEDGER_KAFKA_TOPIC"   envDefault:"tokenledger.events"`

	LogLevel  string `env:"TOKENLEDGER_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"TOKENLEDGER_LOG_FORMAT" envDefault:"text"`
}

// Load reads the given .env files (missing files are skipped), then parses
// the environment into a Config and validates it.
func Load(dotenvPaths ...string) (Config, error) {
	cfg, err := Parse(dotenvPaths...)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse is Load without validation, for callers that apply overrides
// first and validate the merged result.
func Parse(dotenvPaths ...string) (Config, error) {
	for _, path := range dotenvPaths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("TOKENLEDGER_DB_DRIVER: unsupported driver %q", c.DBDriver)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("TOKENLEDGER_LOG_FORMAT: must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("TOKENLEDGER_LOG_LEVEL: %w", err)
	}
	return level, nil
}

// KafkaEnabled reports whether a Kafka sink should be configured.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
