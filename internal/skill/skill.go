// Package skill defines the domain model for installable skills collected
// from the various catalog sources.
package skill

import (
	"net/url"
	"strings"
	"time"
)

// Skill is one candidate item known to the catalog. Identity is the
// canonical repository URL and is the only stable key across sources,
// refreshes and the publication ledger.
type Skill struct {
	Identity      string    `json:"identity"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category"`
	SourceURL     string    `json:"source_url"`
	Source        string    `json:"source,omitempty"`
	LastUpdatedAt time.Time `json:"last_updated_at,omitzero"`
	Signals       Signals   `json:"signals"`
}

// Signals are quality hints gathered while parsing a source entry.
type Signals struct {
	Official    bool `json:"official,omitempty"`
	HasManifest bool `json:"has_manifest,omitempty"`
}

// AuthorityTier orders skills by provenance: official listings rank above
// community ones. Lower is better.
func (s Skill) AuthorityTier() int {
	if s.Signals.Official {
		return 0
	}
	return 1
}

// HasKnownUpdate reports whether a last-update timestamp was resolved.
func (s Skill) HasKnownUpdate() bool {
	return !s.LastUpdatedAt.IsZero()
}

// CanonicalIdentity normalizes a raw URL into the stable identity key:
// lowercase scheme and host, query/fragment stripped, no trailing slash
// or .git suffix. Unparseable input falls back to the trimmed string.
func CanonicalIdentity(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(raw, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.Path = strings.TrimSuffix(u.Path, ".git")
	return u.String()
}

// SignalsFromURL derives quality signals from the shape of a skill URL.
// The official skills repository outranks community submissions; a SKILL.md
// or a skills/ subtree means the repo carries an installable manifest.
func SignalsFromURL(rawURL string) Signals {
	lower := strings.ToLower(rawURL)
	var sig Signals
	if strings.Contains(lower, "github.com/anthropics/") {
		sig.Official = true
	}
	for _, marker := range []string{"/skill.md", "/tree/main/skills/", "/tree/master/skills/"} {
		if strings.Contains(lower, marker) {
			sig.HasManifest = true
			break
		}
	}
	return sig
}

// Slug converts a skill name into a filesystem-safe fragment.
func Slug(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
