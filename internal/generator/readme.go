package generator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/skilldigest/skilldigest/internal/skill"
	"github.com/skilldigest/skilldigest/pkg/scraper"
)

// maxReadmeRunes bounds how much repository text reaches the prompt.
const maxReadmeRunes = 4000

const truncationNotice = "\n\n[内容已截断]"

var (
	githubRepoPathRe = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/#?]+)`)
	githubTreeRe     = regexp.MustCompile(`^https?://github\.com/[^/]+/[^/]+/tree/[^/]+/(.+?)/?$`)
)

// ReadmeFetcher pulls a repository README to enrich article prompts.
// Everything here is best-effort: a skill without a reachable README still
// gets an article, just a thinner one.
type ReadmeFetcher struct {
	client  *http.Client
	fetcher scraper.Fetcher
	rawHost string
	logger  *slog.Logger
}

// NewReadmeFetcher creates a fetcher with an HTML-scrape fallback for
// repositories whose raw README is not reachable.
func NewReadmeFetcher() *ReadmeFetcher {
	return &ReadmeFetcher{
		client:  &http.Client{Timeout: 15 * time.Second},
		fetcher: scraper.NewHTTPFetcher(),
		rawHost: "https://raw.githubusercontent.com",
		logger:  slog.Default(),
	}
}

// Fetch returns README text for sk, or "" when nothing could be fetched.
// GitHub URLs are tried via the raw host on the main then master branch,
// honoring /tree/<branch>/<subdir> paths; anything else (or a raw miss)
// falls back to scraping the source page.
func (r *ReadmeFetcher) Fetch(ctx context.Context, sk skill.Skill) string {
	for _, rawURL := range r.readmeCandidates(sk.SourceURL) {
		text, err := r.fetchRaw(ctx, rawURL)
		if err != nil {
			r.logger.Debug("readme candidate failed", "url", rawURL, "error", err)
			continue
		}
		r.logger.Info("readme fetched", "name", sk.Name, "url", rawURL)
		return truncateReadme(text)
	}

	if r.fetcher == nil {
		return ""
	}
	res, err := r.fetcher.Fetch(ctx, sk.SourceURL, nil)
	if err != nil || res.StatusCode != http.StatusOK || res.CleanText == "" {
		r.logger.Info("no readme available", "name", sk.Name)
		return ""
	}
	r.logger.Info("readme scraped from page", "name", sk.Name)
	return truncateReadme(res.CleanText)
}

// readmeCandidates builds raw README URLs, most specific first: the linked
// subdirectory on each branch, then the repository root.
func (r *ReadmeFetcher) readmeCandidates(sourceURL string) []string {
	m := githubRepoPathRe.FindStringSubmatch(sourceURL)
	if m == nil {
		return nil
	}
	user, repo := m[1], strings.TrimSuffix(m[2], ".git")

	var subdir string
	if sm := githubTreeRe.FindStringSubmatch(sourceURL); sm != nil {
		subdir = strings.Trim(sm[1], "/")
	}

	var urls []string
	if subdir != "" {
		for _, branch := range []string{"main", "master"} {
			urls = append(urls, fmt.Sprintf("%s/%s/%s/%s/%s/README.md", r.rawHost, user, repo, branch, subdir))
		}
	}
	for _, branch := range []string{"main", "master"} {
		urls = append(urls, fmt.Sprintf("%s/%s/%s/%s/README.md", r.rawHost, user, repo, branch))
	}
	return urls
}

func (r *ReadmeFetcher) fetchRaw(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "SkillDigest/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", fmt.Errorf("empty body")
	}
	return text, nil
}

func truncateReadme(text string) string {
	runes := []rune(text)
	if len(runes) <= maxReadmeRunes {
		return text
	}
	return string(runes[:maxReadmeRunes]) + truncationNotice
}
