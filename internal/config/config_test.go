package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int `env:"PERKPLANNER_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("PERKPLANNER_TEST_PORT", "not-an-int")
	err := ParseEnv(&cfg)
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestLoadDefaultsUnderDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PERKPLANNER_DATA_DIR", dir)
	t.Setenv("PERKPLANNER_INDEX_DB", "")
	t.Setenv("PERKPLANNER_JOURNAL_DIR", "")
	cfg, err := Load(filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ConfigDir != "./configs" {
		t.Fatalf("config dir: %s", cfg.ConfigDir)
	}
	if cfg.IndexDB != filepath.Join(dir, "index.db") || cfg.JournalDir != filepath.Join(dir, "journal") {
		t.Fatalf("paths: %+v", cfg)
	}
	if cfg.BuildsDir() != filepath.Join(dir, "builds") {
		t.Fatalf("builds dir: %s", cfg.BuildsDir())
	}
}

func TestLoadReadsDotenv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	body := "PERKPLANNER_DATA_DIR=" + dir + "\nPERKPLANNER_NO_JOURNAL=true\nNO_COLOR=1\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// godotenv sets process variables; register them for cleanup first.
	t.Setenv("PERKPLANNER_DATA_DIR", "")
	t.Setenv("PERKPLANNER_NO_JOURNAL", "")
	t.Setenv("NO_COLOR", "")
	os.Unsetenv("PERKPLANNER_DATA_DIR")
	os.Unsetenv("PERKPLANNER_NO_JOURNAL")
	os.Unsetenv("NO_COLOR")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != dir || !cfg.NoJournal || cfg.Color() {
		t.Fatalf("dotenv not applied: %+v", cfg)
	}
}
