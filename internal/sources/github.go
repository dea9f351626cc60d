package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/skilldigest/skilldigest/internal/skill"
)

// GitHubEnricher fills LastUpdatedAt for GitHub-hosted skills from the
// repos API (pushed_at). Enrichment is best effort: a candidate without a
// resolvable timestamp stays valid, it just ranks below dated ones.
type GitHubEnricher struct {
	client    *http.Client
	apiBase   string
	token     string
	maxRepos  int
	semaphore int
	logger    *slog.Logger
}

// NewGitHubEnricher creates an enricher. token may be empty (unauthenticated
// requests share GitHub's low per-IP quota, so maxRepos caps the lookups).
func NewGitHubEnricher(token string, maxRepos int) *GitHubEnricher {
	if maxRepos <= 0 {
		maxRepos = 50
	}
	return &GitHubEnricher{
		client:    &http.Client{Timeout: 15 * time.Second},
		apiBase:   "https://api.github.com",
		token:     token,
		maxRepos:  maxRepos,
		semaphore: 5,
		logger:    slog.Default(),
	}
}

var githubRepoRe = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/#?]+)`)

// repoKey extracts "owner/repo" from a GitHub URL, including subtree URLs.
func repoKey(rawURL string) (string, bool) {
	m := githubRepoRe.FindStringSubmatch(strings.ToLower(rawURL))
	if m == nil {
		return "", false
	}
	repo := strings.TrimSuffix(m[2], ".git")
	return m[1] + "/" + repo, true
}

// Enrich resolves pushed_at for each distinct repository (bounded
// concurrency) and stamps every skill in that repo. Skills that already
// carry a timestamp from their source are left alone.
func (g *GitHubEnricher) Enrich(ctx context.Context, skills []skill.Skill) []skill.Skill {
	repos := make([]string, 0, len(skills))
	seen := make(map[string]bool)
	for _, sk := range skills {
		if sk.HasKnownUpdate() {
			continue
		}
		key, ok := repoKey(sk.Identity)
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		repos = append(repos, key)
	}
	if len(repos) > g.maxRepos {
		g.logger.Warn("too many repos to enrich, truncating", "repos", len(repos), "max", g.maxRepos)
		repos = repos[:g.maxRepos]
	}
	if len(repos) == 0 {
		return skills
	}

	type lookup struct {
		key      string
		pushedAt time.Time
		err      error
	}

	sem := make(chan struct{}, g.semaphore)
	results := make(chan lookup, len(repos))
	for _, key := range repos {
		go func(key string) {
			sem <- struct{}{}
			defer func() { <-sem }()

			ts, err := g.fetchPushedAt(ctx, key)
			results <- lookup{key: key, pushedAt: ts, err: err}
		}(key)
	}

	pushed := make(map[string]time.Time, len(repos))
	failed := 0
	for range repos {
		res := <-results
		if res.err != nil {
			failed++
			continue
		}
		pushed[res.key] = res.pushedAt
	}
	if failed > 0 {
		g.logger.Warn("some repo lookups failed", "failed", failed, "total", len(repos))
	}

	for i := range skills {
		if skills[i].HasKnownUpdate() {
			continue
		}
		if key, ok := repoKey(skills[i].Identity); ok {
			if ts, ok := pushed[key]; ok {
				skills[i].LastUpdatedAt = ts
			}
		}
	}
	g.logger.Info("enriched update timestamps", "repos", len(pushed), "skills", len(skills))
	return skills
}

type githubRepo struct {
	PushedAt time.Time `json:"pushed_at"`
}

func (g *GitHubEnricher) fetchPushedAt(ctx context.Context, key string) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", g.apiBase+"/repos/"+key, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch repo %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return time.Time{}, fmt.Errorf("fetch repo %s: status %d", key, resp.StatusCode)
	}

	var repo githubRepo
	if err := json.NewDecoder(resp.Body).Decode(&repo); err != nil {
		return time.Time{}, fmt.Errorf("decode repo %s: %w", key, err)
	}
	return repo.PushedAt, nil
}
