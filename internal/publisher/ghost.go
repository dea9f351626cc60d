package publisher

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GhostPublisher posts articles to a self-hosted Ghost blog through the
// Admin API. Each request carries a short-lived HS256 token derived from
// the admin key, as the Admin API requires.
type GhostPublisher struct {
	baseURL string
	keyID   string
	secret  []byte
	client  *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

// NewGhost creates a Ghost publisher. adminKey is the "id:hexsecret" pair
// from the Ghost integrations page.
func NewGhost(baseURL, adminKey string) (*GhostPublisher, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("publisher: ghost url not configured")
	}
	id, secretHex, ok := strings.Cut(adminKey, ":")
	if !ok || id == "" || secretHex == "" {
		return nil, fmt.Errorf("publisher: ghost admin key must be id:secret")
	}
	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("publisher: decode ghost admin secret: %w", err)
	}
	return &GhostPublisher{
		baseURL: strings.TrimRight(baseURL, "/"),
		keyID:   id,
		secret:  secret,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  slog.Default(),
		now:     time.Now,
	}, nil
}

func (p *GhostPublisher) Name() string { return "ghost" }

// token mints the five-minute admin token Ghost expects: HS256, kid header
// set to the key id, audience /admin/.
func (p *GhostPublisher) token() (string, error) {
	now := p.now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		Audience:  jwt.ClaimStrings{"/admin/"},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = p.keyID
	return token.SignedString(p.secret)
}

type ghostPost struct {
	Title     string   `json:"title"`
	Mobiledoc string   `json:"mobiledoc"`
	Status    string   `json:"status"`
	Tags      []string `json:"tags,omitempty"`
}

type ghostPostsResponse struct {
	Posts []struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"posts"`
}

// Publish creates a published post wrapping the markdown in a mobiledoc
// markdown card.
func (p *GhostPublisher) Publish(ctx context.Context, post Post) (*Receipt, error) {
	doc, err := mobiledocFromMarkdown(post.Markdown)
	if err != nil {
		return nil, &PublishError{Channel: p.Name(), Err: err}
	}
	payload, err := json.Marshal(map[string][]ghostPost{
		"posts": {{
			Title:     post.Title,
			Mobiledoc: doc,
			Status:    "published",
			Tags:      []string{"skill-digest"},
		}},
	})
	if err != nil {
		return nil, &PublishError{Channel: p.Name(), Err: err}
	}

	tok, err := p.token()
	if err != nil {
		return nil, &PublishError{Channel: p.Name(), Err: fmt.Errorf("sign admin token: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/ghost/api/admin/posts/", bytes.NewReader(payload))
	if err != nil {
		return nil, &PublishError{Channel: p.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Ghost "+tok)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &PublishError{Channel: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &PublishError{Channel: p.Name(), Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, &PublishError{Channel: p.Name(), Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))}
	}

	var result ghostPostsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &PublishError{Channel: p.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(result.Posts) == 0 {
		return nil, &PublishError{Channel: p.Name(), Err: fmt.Errorf("response contained no post")}
	}

	p.logger.Info("published to ghost", "title", post.Title, "id", result.Posts[0].ID, "url", result.Posts[0].URL)
	return &Receipt{
		ID:          result.Posts[0].ID,
		Channel:     p.Name(),
		PublishedAt: time.Now(),
	}, nil
}

// mobiledocFromMarkdown wraps markdown in the single-card mobiledoc
// document Ghost stores posts as.
func mobiledocFromMarkdown(markdown string) (string, error) {
	doc := map[string]any{
		"version":  "0.3.1",
		"markups":  []any{},
		"atoms":    []any{},
		"cards":    []any{[]any{"markdown", map[string]string{"markdown": markdown}}},
		"sections": []any{[]any{10, 0}},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode mobiledoc: %w", err)
	}
	return string(b), nil
}
