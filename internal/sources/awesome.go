package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/skilldigest/skilldigest/internal/skill"
)

// DefaultAwesomeListURL is the curated community list this digest tracks.
const DefaultAwesomeListURL = "https://raw.githubusercontent.com/travisvn/awesome-claude-skills/main/README.md"

// AwesomeSource parses a curated awesome-list README. Section headings
// become categories; list entries of the form "- [name](url) - description"
// become candidates. Only structural junk (badges, sponsor links, anchors)
// is filtered here; content-type eligibility is the selector's job.
type AwesomeSource struct {
	url    string
	client *http.Client
}

// NewAwesomeSource creates a source reading the given raw README URL.
func NewAwesomeSource(rawURL string) *AwesomeSource {
	if rawURL == "" {
		rawURL = DefaultAwesomeListURL
	}
	return &AwesomeSource{
		url:    rawURL,
		client: &http.Client{Timeout: 20 * time.Second},
	}
}

func (a *AwesomeSource) Name() string { return "awesome-list" }

var (
	headingRe = regexp.MustCompile(`^#{2,4}\s+(.+)$`)
	entryRe   = regexp.MustCompile(`^[-*]\s+\[([^\]]+)\]\(([^)\s]+)\)\s*[-–—:]*\s*(.*)$`)
)

// linkJunk marks anchors that are list decoration, not catalog entries.
var linkJunk = []string{
	"badge", "shield", "twitter", "linkedin", "discord",
	"buymeacoffee", "ko-fi", "sponsor", "paypal", "patreon",
}

func (a *AwesomeSource) Fetch(ctx context.Context) ([]skill.Skill, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch list: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read list: %w", err)
	}

	return a.parse(string(body)), nil
}

func (a *AwesomeSource) parse(markdown string) []skill.Skill {
	var skills []skill.Skill
	category := "General"

	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimRight(line, "\r")

		if m := headingRe.FindStringSubmatch(line); m != nil {
			category = cleanCategory(m[1])
			continue
		}

		m := entryRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		name, rawURL, desc := cleanName(m[1]), m[2], cleanDescription(m[3])

		if !strings.HasPrefix(rawURL, "http") {
			continue
		}
		if isJunkLink(rawURL) {
			continue
		}
		if name == "" {
			continue
		}

		skills = append(skills, skill.Skill{
			Identity:    skill.CanonicalIdentity(rawURL),
			Name:        name,
			Description: desc,
			Category:    category,
			SourceURL:   rawURL,
			Source:      a.Name(),
			Signals:     skill.SignalsFromURL(rawURL),
		})
	}

	return skills
}

func isJunkLink(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, junk := range linkJunk {
		if strings.Contains(lower, junk) {
			return true
		}
	}
	return false
}

// cleanCategory drops emoji and decoration ahead of the heading text.
func cleanCategory(h string) string {
	h = strings.TrimSpace(h)
	start := strings.IndexFunc(h, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	})
	if start < 0 {
		return "General"
	}
	return strings.TrimSpace(h[start:])
}

func cleanName(n string) string {
	return strings.TrimSpace(strings.Trim(n, "*_` "))
}

func cleanDescription(d string) string {
	d = strings.TrimSpace(strings.Trim(d, "*_"))
	return strings.TrimRight(d, ".,;: ")
}
