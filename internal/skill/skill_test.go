package skill

import (
	"testing"
	"time"
)

func TestCanonicalIdentity(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "https://github.com/user/repo", "https://github.com/user/repo"},
		{"trailing slash", "https://github.com/user/repo/", "https://github.com/user/repo"},
		{"uppercase host", "HTTPS://GitHub.com/User/Repo", "https://github.com/User/Repo"},
		{"query stripped", "https://github.com/user/repo?tab=readme&ref=x", "https://github.com/user/repo"},
		{"fragment stripped", "https://github.com/user/repo#readme", "https://github.com/user/repo"},
		{"git suffix", "https://github.com/user/repo.git", "https://github.com/user/repo"},
		{"whitespace", "  https://github.com/user/repo  ", "https://github.com/user/repo"},
		{"subtree kept", "https://github.com/user/repo/tree/main/skills/pdf", "https://github.com/user/repo/tree/main/skills/pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalIdentity(tt.in); got != tt.want {
				t.Errorf("CanonicalIdentity(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalIdentity_PathCaseKept(t *testing.T) {
	// GitHub paths are case-sensitive; only scheme and host fold.
	a := CanonicalIdentity("https://github.com/User/Repo")
	b := CanonicalIdentity("https://github.com/user/repo")
	if a == b {
		t.Fatal("expected path case to be preserved")
	}
}

func TestSignalsFromURL(t *testing.T) {
	tests := []struct {
		url      string
		official bool
		manifest bool
	}{
		{"https://github.com/anthropics/skills/tree/main/skills/pdf", true, true},
		{"https://github.com/someone/cool-skill", false, false},
		{"https://github.com/someone/repo/blob/main/SKILL.md", false, true},
		{"https://github.com/someone/repo/tree/master/skills/x", false, true},
	}
	for _, tt := range tests {
		sig := SignalsFromURL(tt.url)
		if sig.Official != tt.official {
			t.Errorf("%s: official = %v, want %v", tt.url, sig.Official, tt.official)
		}
		if sig.HasManifest != tt.manifest {
			t.Errorf("%s: manifest = %v, want %v", tt.url, sig.HasManifest, tt.manifest)
		}
	}
}

func TestAuthorityTier(t *testing.T) {
	official := Skill{Signals: Signals{Official: true}}
	community := Skill{}
	if official.AuthorityTier() >= community.AuthorityTier() {
		t.Fatal("official skills must rank above community skills")
	}
}

func TestHasKnownUpdate(t *testing.T) {
	s := Skill{}
	if s.HasKnownUpdate() {
		t.Fatal("zero time should mean unknown")
	}
	s.LastUpdatedAt = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	if !s.HasKnownUpdate() {
		t.Fatal("set time should mean known")
	}
}

func TestSlug(t *testing.T) {
	tests := []struct{ in, want string }{
		{"PDF Tools", "pdf-tools"},
		{"  spaced  out  ", "spaced-out"},
		{"emoji 🎉 name", "emoji-name"},
		{"already-slugged", "already-slugged"},
		{"Trailing!!", "trailing"},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
