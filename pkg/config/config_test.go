package config

import (
	"os"
	"testing"
	"time"
)

type testConfig struct {
	StateDir string        `yaml:"state_dir" env:"STATE_DIR"`
	MaxItems int           `yaml:"max_items" env:"MAX_ITEMS"`
	Offline  bool          `yaml:"offline" env:"OFFLINE"`
	Timeout  time.Duration `yaml:"timeout" env:"FETCH_TIMEOUT"`
	Sources  []string      `yaml:"sources" env:"SOURCE_URLS"`
	Journal  struct {
		DSN string `yaml:"dsn" env:"JOURNAL_DSN"`
	} `yaml:"journal"`
}

func TestLoad(t *testing.T) {
	content := `
state_dir: /var/lib/digest
max_items: 200
offline: false
timeout: 45s
sources:
  - https://example.com/a
  - https://example.com/b
journal:
  dsn: file:runs.db
`
	f, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	f.WriteString(content)
	f.Close()

	var cfg testConfig
	if err := Load(f.Name(), &cfg); err != nil {
		t.Fatal(err)
	}

	if cfg.StateDir != "/var/lib/digest" {
		t.Fatalf("expected '/var/lib/digest', got '%s'", cfg.StateDir)
	}
	if cfg.MaxItems != 200 {
		t.Fatalf("expected 200, got %d", cfg.MaxItems)
	}
	if cfg.Timeout != 45*time.Second {
		t.Fatalf("expected 45s, got %v", cfg.Timeout)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(cfg.Sources))
	}
	if cfg.Journal.DSN != "file:runs.db" {
		t.Fatalf("expected 'file:runs.db', got '%s'", cfg.Journal.DSN)
	}
}

func TestEnvOverride(t *testing.T) {
	content := `
state_dir: /tmp/default
max_items: 50
timeout: 10s
`
	f, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	f.WriteString(content)
	f.Close()

	t.Setenv("STATE_DIR", "/tmp/from-env")
	t.Setenv("MAX_ITEMS", "500")
	t.Setenv("OFFLINE", "true")
	t.Setenv("FETCH_TIMEOUT", "2m")
	t.Setenv("SOURCE_URLS", "https://x.test/one, https://x.test/two")

	var cfg testConfig
	if err := Load(f.Name(), &cfg); err != nil {
		t.Fatal(err)
	}

	if cfg.StateDir != "/tmp/from-env" {
		t.Fatalf("expected '/tmp/from-env', got '%s'", cfg.StateDir)
	}
	if cfg.MaxItems != 500 {
		t.Fatalf("expected 500, got %d", cfg.MaxItems)
	}
	if !cfg.Offline {
		t.Fatal("expected offline to be true from env")
	}
	if cfg.Timeout != 2*time.Minute {
		t.Fatalf("expected 2m, got %v", cfg.Timeout)
	}
	if len(cfg.Sources) != 2 || cfg.Sources[1] != "https://x.test/two" {
		t.Fatalf("unexpected sources: %v", cfg.Sources)
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg := testConfig{StateDir: "/tmp/defaults-kept", MaxItems: 10}
	if err := LoadOrDefault("/nonexistent/config.yaml", &cfg); err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.StateDir != "/tmp/defaults-kept" {
		t.Fatalf("expected defaults preserved, got '%s'", cfg.StateDir)
	}
}

func TestLoadOrDefault_EnvStillApplies(t *testing.T) {
	t.Setenv("STATE_DIR", "/tmp/env-wins")

	cfg := testConfig{StateDir: "/tmp/defaults"}
	if err := LoadOrDefault("/nonexistent/config.yaml", &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.StateDir != "/tmp/env-wins" {
		t.Fatalf("expected env override without file, got '%s'", cfg.StateDir)
	}
}
