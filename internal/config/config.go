// Package config loads tada settings from the environment (and an optional
// .env file). Every variable is prefixed with TADA_.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

const Prefix = "TADA"

// Log tunes the slog handler.
type Log struct {
	Level  string `env:"LOG_LEVEL" default:"INFO"`
	Format string `env:"LOG_FORMAT" default:"text"`
	Output string `env:"LOG_OUTPUT" default:"STDERR"` // STDERR | STDOUT | DISCARD | <file path>
}

// Config is everything the CLI, TUI and web view need.
type Config struct {
	DBPath       string        `env:"DB_PATH" default:"todos.sqlite3"`
	Theme        string        `env:"THEME" default:"classic"` // classic | neon | mono
	Seed         bool          `env:"SEED" default:"true"`     // seed demo todos into an empty store
	PollInterval time.Duration `env:"POLL_INTERVAL" default:"1s"`
	HTTPAddr     string        `env:"HTTP_ADDR" default:"localhost:8080"`
	HistoryLimit int           `env:"SQL_HISTORY_LIMIT" default:"100"`
	Log          Log
}

// Load reads envFile (ignored when missing) and then the environment.
// Real environment variables win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	var c Config
	if err := parseEnvTags(Prefix, &c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if c.PollInterval <= 0 {
		return Config{}, fmt.Errorf("%s_POLL_INTERVAL must be positive", Prefix)
	}
	if c.HistoryLimit < 1 {
		c.HistoryLimit = 1
	}
	return c, nil
}
