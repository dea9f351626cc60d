// Package config holds the skilldigest runtime configuration: state and
// output locations, source endpoints, the LLM writer, the publish channel,
// the run journal and alerting.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	appconfig "github.com/skilldigest/skilldigest/pkg/config"
	"github.com/skilldigest/skilldigest/pkg/llm"
	"github.com/skilldigest/skilldigest/pkg/notify"
	"github.com/skilldigest/skilldigest/pkg/storage"

	"github.com/skilldigest/skilldigest/internal/publisher"
)

// Config is the full runtime configuration.
type Config struct {
	// StateDir holds pipeline-owned state: catalog snapshot, publication
	// ledger, per-date selection log, and the default journal database.
	StateDir string `yaml:"state_dir" env:"SKILLDIGEST_STATE_DIR"`
	// OutputDir receives generated articles and covers.
	OutputDir string `yaml:"output_dir" env:"SKILLDIGEST_OUTPUT_DIR"`
	Timezone  string `yaml:"timezone" env:"SKILLDIGEST_TZ"`
	LogLevel  string `yaml:"log_level" env:"SKILLDIGEST_LOG_LEVEL"`

	// RefreshTTL is how old the catalog snapshot may be before a run
	// refreshes it.
	RefreshTTL time.Duration `yaml:"refresh_ttl"`

	Sources   SourcesConfig    `yaml:"sources"`
	LLM       LLMConfig        `yaml:"llm"`
	Cover     CoverConfig      `yaml:"cover"`
	Publisher publisher.Config `yaml:"publisher"`
	Journal   storage.Config   `yaml:"journal"`
	Alerts    AlertsConfig     `yaml:"alerts"`
	Schedule  ScheduleConfig   `yaml:"schedule"`
}

// SourcesConfig configures catalog aggregation.
type SourcesConfig struct {
	// AwesomeListURL overrides the default curated list README. Empty
	// keeps the built-in default.
	AwesomeListURL string `yaml:"awesome_list_url"`
	// Marketplaces are base URLs of marketplace sites to aggregate.
	Marketplaces []string `yaml:"marketplaces" env:"SKILLDIGEST_MARKETPLACES"`
	// GitHubToken raises the API rate limit for update-time enrichment.
	GitHubToken string `yaml:"github_token" env:"GITHUB_TOKEN"`
	// EnrichLimit caps how many repositories are queried per refresh.
	EnrichLimit int `yaml:"enrich_limit"`
}

// LLMConfig extends the client config with the fallback model the writer
// switches to when the primary fails.
type LLMConfig struct {
	llm.Config  `yaml:",inline"`
	BackupModel string `yaml:"backup_model"`
}

// CoverConfig controls local cover rendering.
type CoverConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AlertsConfig wires run-outcome notifications.
type AlertsConfig struct {
	Telegram notify.TelegramConfig `yaml:"telegram"`
	Webhook  notify.WebhookConfig  `yaml:"webhook"`
}

// ScheduleConfig is the daily trigger for serve mode.
type ScheduleConfig struct {
	// At is the local wall-clock time of the daily run, "HH:MM".
	At string `yaml:"at"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		StateDir:   "data",
		OutputDir:  "out",
		Timezone:   "Asia/Shanghai",
		LogLevel:   "info",
		RefreshTTL: 24 * time.Hour,
		Sources: SourcesConfig{
			EnrichLimit: 50,
		},
		LLM: LLMConfig{
			Config:      llm.DefaultConfig(),
			BackupModel: "google/gemini-2.0-flash-001",
		},
		Cover: CoverConfig{Enabled: true},
		Publisher: publisher.Config{
			Kind: "none",
		},
		Journal: storage.Config{
			Driver: storage.SQLite,
		},
		Schedule: ScheduleConfig{At: "08:30"},
	}
}

// Load reads the config at path over Default(). A missing file is fine;
// environment variables still apply. Secrets may come from the
// conventional variables even without `env` tags on the embedded types.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := appconfig.LoadOrDefault(path, &cfg); err != nil {
		return cfg, err
	}

	if cfg.LLM.APIKey == "" {
		if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
			cfg.LLM.APIKey = key
		} else if key := os.Getenv("LLM_API_KEY"); key != "" {
			cfg.LLM.APIKey = key
		}
	}
	if cfg.Alerts.Telegram.BotToken == "" {
		cfg.Alerts.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}

	if cfg.Journal.DSN == "" {
		cfg.Journal.DSN = filepath.Join(cfg.StateDir, "skilldigest.db")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("config: state_dir must not be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("config: output_dir must not be empty")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	switch c.Publisher.Kind {
	case "", "none", "relay", "ghost":
	default:
		return fmt.Errorf("config: unknown publisher kind %q", c.Publisher.Kind)
	}
	switch c.Journal.Driver {
	case storage.SQLite, storage.Postgres:
	default:
		return fmt.Errorf("config: unknown journal driver %q", c.Journal.Driver)
	}
	if c.RefreshTTL < 0 {
		return fmt.Errorf("config: refresh_ttl must not be negative")
	}
	if c.Schedule.At != "" {
		if _, err := time.Parse("15:04", c.Schedule.At); err != nil {
			return fmt.Errorf("config: schedule.at %q is not HH:MM", c.Schedule.At)
		}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: timezone: %w", err)
	}
	return nil
}

// Location resolves the configured timezone; empty means local time.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// CatalogPath is the persisted catalog snapshot file.
func (c Config) CatalogPath() string {
	return filepath.Join(c.StateDir, "skill_cache.json")
}

// LedgerPath is the publication ledger file.
func (c Config) LedgerPath() string {
	return filepath.Join(c.StateDir, "published_skills.json")
}

// SelectionLogDir holds the per-date selection entries.
func (c Config) SelectionLogDir() string {
	return filepath.Join(c.StateDir, "selected")
}
