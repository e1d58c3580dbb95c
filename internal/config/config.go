// Package config reads process configuration from the environment, after an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	ConfigDir  string `env:"PERKPLANNER_CONFIG_DIR" envDefault:"./configs"`
	DataDir    string `env:"PERKPLANNER_DATA_DIR"`
	IndexDB    string `env:"PERKPLANNER_INDEX_DB"`
	JournalDir string `env:"PERKPLANNER_JOURNAL_DIR"`
	NoJournal  bool   `env:"PERKPLANNER_NO_JOURNAL"`
	NoIndex    bool   `env:"PERKPLANNER_NO_INDEX"`
	NoColor    string `env:"NO_COLOR"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads dotenv (when it exists) into the environment, then parses
// Config and fills path defaults under the user's data directory.
// Variables already set in the environment win over the file.
func Load(dotenv string) (Config, error) {
	var cfg Config
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if cfg.DataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		cfg.DataDir = filepath.Join(base, "perkplanner")
	}
	if cfg.IndexDB == "" {
		cfg.IndexDB = filepath.Join(cfg.DataDir, "index.db")
	}
	if cfg.JournalDir == "" {
		cfg.JournalDir = filepath.Join(cfg.DataDir, "journal")
	}
	return cfg, nil
}

// BuildsDir is where saved builds live.
func (c Config) BuildsDir() string { return filepath.Join(c.DataDir, "builds") }

// Color reports whether output may use ANSI color.
func (c Config) Color() bool { return strings.TrimSpace(c.NoColor) == "" }
