package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/skilldigest/skilldigest/internal/skill"
)

// MarketplaceSource reads a skill marketplace. It prefers the site's JSON
// API and falls back to scraping the landing page when the API is missing
// or returns something that isn't JSON.
type MarketplaceSource struct {
	name    string
	baseURL string
	client  *http.Client
}

// NewMarketplaceSource creates a marketplace source. name is used for
// logging and provenance; baseURL is the site root without trailing slash.
func NewMarketplaceSource(name, baseURL string) *MarketplaceSource {
	return &MarketplaceSource{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

func (m *MarketplaceSource) Name() string { return m.name }

func (m *MarketplaceSource) Fetch(ctx context.Context) ([]skill.Skill, error) {
	skills, err := m.fetchAPI(ctx)
	if err == nil && len(skills) > 0 {
		return skills, nil
	}
	return m.scrapeHTML(ctx)
}

// marketplaceItem tolerates the field-name variations seen across sites.
type marketplaceItem struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	GithubURL   string   `json:"github_url"`
	Link        string   `json:"link"`
	Description string   `json:"description"`
	Summary     string   `json:"summary"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	UpdatedAt   string   `json:"updated_at"`
}

func (it marketplaceItem) name() string {
	if it.Name != "" {
		return it.Name
	}
	return it.Title
}

func (it marketplaceItem) url() string {
	for _, u := range []string{it.URL, it.GithubURL, it.Link} {
		if u != "" {
			return u
		}
	}
	return ""
}

func (it marketplaceItem) description() string {
	if it.Description != "" {
		return it.Description
	}
	return it.Summary
}

func (it marketplaceItem) category() string {
	if it.Category != "" {
		return it.Category
	}
	if len(it.Tags) > 0 {
		return it.Tags[0]
	}
	return "General"
}

func (m *MarketplaceSource) fetchAPI(ctx context.Context) ([]skill.Skill, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", m.baseURL+"/api/skills", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch api: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read api response: %w", err)
	}

	items, err := decodeItems(body)
	if err != nil {
		return nil, err
	}

	skills := make([]skill.Skill, 0, len(items))
	for _, it := range items {
		name, rawURL := it.name(), it.url()
		if name == "" || rawURL == "" {
			continue
		}
		sk := skill.Skill{
			Identity:    skill.CanonicalIdentity(rawURL),
			Name:        name,
			Description: it.description(),
			Category:    it.category(),
			SourceURL:   rawURL,
			Source:      m.name,
			Signals:     skill.SignalsFromURL(rawURL),
		}
		if it.UpdatedAt != "" {
			if ts, err := time.Parse(time.RFC3339, it.UpdatedAt); err == nil {
				sk.LastUpdatedAt = ts
			}
		}
		skills = append(skills, sk)
	}
	return skills, nil
}

// decodeItems accepts a bare array or an object wrapping the array under
// "skills" or "data".
func decodeItems(body []byte) ([]marketplaceItem, error) {
	var items []marketplaceItem
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}

	var wrapped struct {
		Skills []marketplaceItem `json:"skills"`
		Data   []marketplaceItem `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode api response: %w", err)
	}
	if len(wrapped.Skills) > 0 {
		return wrapped.Skills, nil
	}
	return wrapped.Data, nil
}

// scrapeHTML collects GitHub links from the marketplace landing page.
func (m *MarketplaceSource) scrapeHTML(ctx context.Context) ([]skill.Skill, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", m.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	seen := make(map[string]bool)
	var skills []skill.Skill
	doc.Find(`a[href*="github.com"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = m.baseURL + href
		}
		name := strings.TrimSpace(sel.Text())
		if name == "" || isJunkLink(href) {
			return
		}
		identity := skill.CanonicalIdentity(href)
		if seen[identity] {
			return
		}
		seen[identity] = true
		skills = append(skills, skill.Skill{
			Identity:  identity,
			Name:      name,
			Category:  "General",
			SourceURL: href,
			Source:    m.name,
			Signals:   skill.SignalsFromURL(href),
		})
	})

	return skills, nil
}
