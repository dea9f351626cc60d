// Package publisher delivers generated articles to an external channel.
// Implementations stay narrow: one Publish call per article, returning a
// Receipt the pipeline can journal.
package publisher

import (
	"context"
	"fmt"
	"time"
)

// Post is generated content ready for delivery.
type Post struct {
	Title    string
	Markdown string
	Author   string
	Date     string
}

// Receipt identifies a successful publication on the remote channel.
type Receipt struct {
	ID          string
	Channel     string
	PublishedAt time.Time
}

// PublishError marks a failed delivery. The pipeline keeps the generated
// artifact and retries delivery on the next run.
type PublishError struct {
	Channel string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish via %s: %v", e.Channel, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Publisher pushes one post to a distribution channel.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, post Post) (*Receipt, error)
}

// Config selects and configures the publish channel.
type Config struct {
	// Kind is "relay", "ghost" or "none". Empty means none: articles are
	// generated and stored but not delivered anywhere.
	Kind string `yaml:"kind" json:"kind"`

	// Relay channel (WeChat publish relay service).
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	APIKey   string `yaml:"api_key" json:"api_key" env:"WECHAT_API_KEY"`
	AppID    string `yaml:"app_id" json:"app_id"`
	Author   string `yaml:"author" json:"author"`

	// Ghost channel (self-hosted blog, Admin API).
	GhostURL      string `yaml:"ghost_url" json:"ghost_url"`
	GhostAdminKey string `yaml:"ghost_admin_key" json:"ghost_admin_key" env:"GHOST_ADMIN_KEY"`
}

// New builds the configured publisher. Kind "none" (or empty) returns nil:
// the pipeline then marks items published right after generation.
func New(cfg Config) (Publisher, error) {
	switch cfg.Kind {
	case "", "none":
		return nil, nil
	case "relay":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("publisher: relay endpoint not configured")
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("publisher: relay api key not configured")
		}
		return NewRelay(cfg.Endpoint, cfg.APIKey, cfg.AppID, cfg.Author), nil
	case "ghost":
		return NewGhost(cfg.GhostURL, cfg.GhostAdminKey)
	default:
		return nil, fmt.Errorf("publisher: unknown kind %q", cfg.Kind)
	}
}
