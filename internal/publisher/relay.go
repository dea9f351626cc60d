package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultAuthor is the byline used when none is configured.
const DefaultAuthor = "每日Skill精选"

// RelayPublisher delivers markdown articles to a WeChat Official Account
// through a publish relay service. The relay accepts markdown directly and
// handles the WeChat draft/publish flow itself.
type RelayPublisher struct {
	endpoint string
	apiKey   string
	appID    string
	author   string
	client   *http.Client
	logger   *slog.Logger
}

// NewRelay creates a relay publisher. endpoint is the relay's openapi base
// URL, e.g. https://relay.example.com/api/openapi.
func NewRelay(endpoint, apiKey, appID, author string) *RelayPublisher {
	if author == "" {
		author = DefaultAuthor
	}
	return &RelayPublisher{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		appID:    appID,
		author:   author,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   slog.Default(),
	}
}

func (p *RelayPublisher) Name() string { return "wechat-relay" }

type relayRequest struct {
	WechatAppID   string `json:"wechatAppid"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	ContentFormat string `json:"contentFormat"`
	Author        string `json:"author"`
}

type relayResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		PublicationID any `json:"publicationId"`
	} `json:"data"`
}

// Publish posts the article to the relay and returns its publication id.
func (p *RelayPublisher) Publish(ctx context.Context, post Post) (*Receipt, error) {
	author := post.Author
	if author == "" {
		author = p.author
	}
	payload, err := json.Marshal(relayRequest{
		WechatAppID:   p.appID,
		Title:         post.Title,
		Content:       post.Markdown,
		ContentFormat: "markdown",
		Author:        author,
	})
	if err != nil {
		return nil, &PublishError{Channel: p.Name(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint+"/wechat-publish", bytes.NewReader(payload))
	if err != nil {
		return nil, &PublishError{Channel: p.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &PublishError{Channel: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &PublishError{Channel: p.Name(), Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &PublishError{Channel: p.Name(), Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))}
	}

	var result relayResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &PublishError{Channel: p.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "relay reported failure"
		}
		return nil, &PublishError{Channel: p.Name(), Err: fmt.Errorf("%s", msg)}
	}

	id := publicationID(result.Data.PublicationID)
	p.logger.Info("published to wechat relay", "title", post.Title, "publication_id", id)
	return &Receipt{
		ID:          id,
		Channel:     p.Name(),
		PublishedAt: time.Now(),
	}, nil
}

// publicationID renders whatever JSON type the relay used for the id.
func publicationID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return fmt.Sprint(id)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
