package selector

import (
	"strings"

	"github.com/skilldigest/skilldigest/internal/skill"
)

// The selection filter separates installable skills from editorial content
// that curated lists mix in alongside them. Matching is semantic: a term
// hit anywhere in the category or metadata marks the entry, so "Video
// Tutorials" and "Tutorials & Courses" are both caught without enumerating
// every heading a list author might invent.

// editorialCategories are list-section names that hold articles, guides and
// housekeeping rather than skills.
var editorialCategories = []string{
	"written tutorials", "video tutorials", "documentation",
	"articles & blog posts", "getting help", "community",
	"resources", "learning resources", "guides", "templates",
	"getting started", "skill creation", "creating your first skill",
	"recent updates", "troubleshooting", "faq", "contributing",
	"security & best practices", "known issues",
}

// editorialKeywords mark an entry as content about skills rather than a
// skill, wherever they appear in its name, URL or description.
var editorialKeywords = []string{
	"tutorial", "guide", "documentation", "article", "blog",
	"support.claude.com", "docs.anthropic.com",
	"how to", "how-to", "learn", "course",
}

// nonRepoURLMarkers are URL fragments that point at issue trackers, wikis
// and documentation hosts instead of an installable repository.
var nonRepoURLMarkers = []string{
	"/issues", "/discussions", "/pulls", "/wiki", "/releases",
	"/actions", "/projects", "/security", "/pulse", "/graphs",
	"support.", "docs.", "blog.", ".ai/blog", ".com/blog",
}

// IsInstallable reports whether s looks like an actual installable skill.
// Tutorials, documentation, blog posts and links into repository
// tracker pages are rejected.
func IsInstallable(s skill.Skill) bool {
	category := strings.ToLower(s.Category)
	for _, term := range editorialCategories {
		if strings.Contains(category, term) {
			return false
		}
	}

	combined := strings.ToLower(s.Name + " " + s.SourceURL + " " + s.Description)
	for _, kw := range editorialKeywords {
		if strings.Contains(combined, kw) {
			return false
		}
	}

	lowerURL := strings.ToLower(s.SourceURL)
	for _, marker := range nonRepoURLMarkers {
		if strings.Contains(lowerURL, marker) {
			return false
		}
	}

	return true
}
