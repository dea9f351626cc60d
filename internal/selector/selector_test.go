package selector

import (
	"testing"
	"time"

	"github.com/skilldigest/skilldigest/internal/catalog"
	"github.com/skilldigest/skilldigest/internal/skill"
)

type fakeHistory struct {
	published map[string]bool
	recent    string
}

func (f *fakeHistory) Contains(identity string) bool { return f.published[identity] }

func (f *fakeHistory) MostRecentCategory() (string, bool) {
	return f.recent, f.recent != ""
}

func emptyHistory() *fakeHistory {
	return &fakeHistory{published: map[string]bool{}}
}

func mkSkill(identity, name, category string, updated time.Time) skill.Skill {
	return skill.Skill{
		Identity:      identity,
		Name:          name,
		Category:      category,
		SourceURL:     identity,
		LastUpdatedAt: updated,
	}
}

func newSelector(t *testing.T) *Selector {
	t.Helper()
	return New(NewLog(t.TempDir()))
}

func TestIsInstallable(t *testing.T) {
	tests := []struct {
		name string
		sk   skill.Skill
		want bool
	}{
		{
			name: "plain skill repo",
			sk: skill.Skill{
				Name:        "pdf-toolkit",
				Category:    "Document Skills",
				SourceURL:   "https://github.com/someone/pdf-toolkit",
				Description: "Fill and merge PDF forms",
			},
			want: true,
		},
		{
			name: "tutorial category",
			sk: skill.Skill{
				Name:      "building skills",
				Category:  "Written Tutorials",
				SourceURL: "https://github.com/someone/post",
			},
			want: false,
		},
		{
			name: "category matched semantically",
			sk: skill.Skill{
				Name:      "setup",
				Category:  "Video Tutorials & Courses",
				SourceURL: "https://github.com/someone/repo",
			},
			want: false,
		},
		{
			name: "keyword in description",
			sk: skill.Skill{
				Name:        "skills-intro",
				Category:    "Development",
				SourceURL:   "https://github.com/someone/skills-intro",
				Description: "A guide to writing your first skill",
			},
			want: false,
		},
		{
			name: "keyword in name",
			sk: skill.Skill{
				Name:      "how-to-skills",
				Category:  "Development",
				SourceURL: "https://github.com/someone/x",
			},
			want: false,
		},
		{
			name: "issue tracker link",
			sk: skill.Skill{
				Name:      "tracker",
				Category:  "Development",
				SourceURL: "https://github.com/someone/repo/issues/12",
			},
			want: false,
		},
		{
			name: "docs host",
			sk: skill.Skill{
				Name:      "reference",
				Category:  "Development",
				SourceURL: "https://docs.example.com/skills",
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInstallable(tt.sk); got != tt.want {
				t.Errorf("IsInstallable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPick_FreshnessWinsWithinTier(t *testing.T) {
	// A and B share a category; B is fresher. C is editorial and must be
	// filtered before ranking.
	snap := &catalog.Snapshot{Skills: []skill.Skill{
		mkSkill("https://github.com/x/a", "A", "tools", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
		mkSkill("https://github.com/x/b", "B", "tools", time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)),
		mkSkill("https://github.com/x/c", "C", "Documentation", time.Time{}),
	}}

	res, err := newSelector(t).Pick("2026-02-10", snap, emptyHistory())
	if err != nil {
		t.Fatalf("Pick() error = %v", err)
	}
	if !res.Eligible {
		t.Fatal("Pick() found nothing eligible")
	}
	if res.Skill.Name != "B" {
		t.Errorf("picked %q, want B (most recent)", res.Skill.Name)
	}
}

func TestPick_LedgeredIdentityExcluded(t *testing.T) {
	snap := &catalog.Snapshot{Skills: []skill.Skill{
		mkSkill("https://github.com/x/a", "A", "tools", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
		mkSkill("https://github.com/x/b", "B", "tools", time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)),
		mkSkill("https://github.com/x/c", "C", "Documentation", time.Time{}),
	}}
	history := &fakeHistory{
		published: map[string]bool{"https://github.com/x/b": true},
		recent:    "tools",
	}

	res, err := newSelector(t).Pick("2026-02-10", snap, history)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Eligible || res.Skill.Name != "A" {
		t.Errorf("picked %+v, want A (B published, C editorial)", res.Skill)
	}
}

func TestPick_DiversityBeatsFreshness(t *testing.T) {
	// Yesterday's pick was "tools". A fresher tools skill must lose to an
	// older skill from another category.
	snap := &catalog.Snapshot{Skills: []skill.Skill{
		mkSkill("https://github.com/x/fresh-tool", "FreshTool", "tools", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		mkSkill("https://github.com/x/old-data", "OldData", "data", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}}
	history := emptyHistory()
	history.recent = "tools"

	res, err := newSelector(t).Pick("2026-02-10", snap, history)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skill.Name != "OldData" {
		t.Errorf("picked %q, want OldData (different category from last publish)", res.Skill.Name)
	}
}

func TestPick_SameCategoryOnlyWhenNoAlternative(t *testing.T) {
	snap := &catalog.Snapshot{Skills: []skill.Skill{
		mkSkill("https://github.com/x/t1", "T1", "tools", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		mkSkill("https://github.com/x/t2", "T2", "tools", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)),
	}}
	history := emptyHistory()
	history.recent = "tools"

	res, err := newSelector(t).Pick("2026-02-10", snap, history)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Eligible || res.Skill.Name != "T2" {
		t.Errorf("picked %+v, want T2 (same category allowed when it is all there is)", res.Skill)
	}
}

func TestPick_AuthorityBeatsDiversityAndFreshness(t *testing.T) {
	official := mkSkill("https://github.com/anthropics/skills/pdf", "pdf", "tools", time.Time{})
	official.Signals.Official = true
	community := mkSkill("https://github.com/x/shiny", "shiny", "data", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	snap := &catalog.Snapshot{Skills: []skill.Skill{community, official}}
	history := emptyHistory()
	history.recent = "tools"

	res, err := newSelector(t).Pick("2026-02-10", snap, history)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skill.Name != "pdf" {
		t.Errorf("picked %q, want pdf (official outranks fresher community pick)", res.Skill.Name)
	}
}

func TestPick_UnknownUpdateRanksLast(t *testing.T) {
	snap := &catalog.Snapshot{Skills: []skill.Skill{
		mkSkill("https://github.com/x/unknown", "Unknown", "tools", time.Time{}),
		mkSkill("https://github.com/x/dated", "Dated", "tools", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
	}}

	res, err := newSelector(t).Pick("2026-02-10", snap, emptyHistory())
	if err != nil {
		t.Fatal(err)
	}
	if res.Skill.Name != "Dated" {
		t.Errorf("picked %q, want Dated (any known timestamp beats unknown)", res.Skill.Name)
	}
}

func TestPick_IdentityTieBreakIsDeterministic(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	forward := &catalog.Snapshot{Skills: []skill.Skill{
		mkSkill("https://github.com/x/aaa", "AAA", "tools", ts),
		mkSkill("https://github.com/x/bbb", "BBB", "tools", ts),
	}}
	reversed := &catalog.Snapshot{Skills: []skill.Skill{
		mkSkill("https://github.com/x/bbb", "BBB", "tools", ts),
		mkSkill("https://github.com/x/aaa", "AAA", "tools", ts),
	}}

	r1, err := newSelector(t).Pick("2026-02-10", forward, emptyHistory())
	if err != nil {
		t.Fatal(err)
	}
	r2, err := newSelector(t).Pick("2026-02-10", reversed, emptyHistory())
	if err != nil {
		t.Fatal(err)
	}
	if r1.Skill.Identity != r2.Skill.Identity {
		t.Errorf("catalog order changed the pick: %q vs %q", r1.Skill.Identity, r2.Skill.Identity)
	}
	if r1.Skill.Name != "AAA" {
		t.Errorf("picked %q, want AAA (lexicographic identity)", r1.Skill.Name)
	}
}

func TestPick_ReentrySameDateReturnsLoggedSkill(t *testing.T) {
	sel := newSelector(t)

	first := &catalog.Snapshot{Skills: []skill.Skill{
		mkSkill("https://github.com/x/a", "A", "tools", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
	}}
	r1, err := sel.Pick("2026-02-10", first, emptyHistory())
	if err != nil {
		t.Fatal(err)
	}
	if r1.Reused {
		t.Fatal("first pick should not be flagged as reused")
	}

	// A refreshed catalog now carries a better candidate, but the same date
	// must return the original pick.
	refreshed := &catalog.Snapshot{Skills: []skill.Skill{
		mkSkill("https://github.com/x/a", "A", "tools", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
		mkSkill("https://github.com/x/z", "Z", "data", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
	}}
	r2, err := sel.Pick("2026-02-10", refreshed, emptyHistory())
	if err != nil {
		t.Fatal(err)
	}
	if !r2.Reused {
		t.Error("second pick on the same date should come from the selection log")
	}
	if r2.Skill.Identity != r1.Skill.Identity {
		t.Errorf("re-entry changed the pick: %q vs %q", r2.Skill.Identity, r1.Skill.Identity)
	}

	// A different date ranks fresh.
	r3, err := sel.Pick("2026-02-11", refreshed, emptyHistory())
	if err != nil {
		t.Fatal(err)
	}
	if r3.Reused || r3.Skill.Name != "Z" {
		t.Errorf("next day pick = %+v, want fresh ranking returning Z", r3.Skill)
	}
}

func TestPick_NoEligibleIsCleanOutcome(t *testing.T) {
	sel := newSelector(t)
	snap := &catalog.Snapshot{Skills: []skill.Skill{
		mkSkill("https://github.com/x/a", "A", "tools", time.Time{}),
	}}
	history := &fakeHistory{published: map[string]bool{"https://github.com/x/a": true}}

	res, err := sel.Pick("2026-02-10", snap, history)
	if err != nil {
		t.Fatalf("no-eligible must not be an error, got %v", err)
	}
	if res.Eligible || res.Skill != nil {
		t.Errorf("Result = %+v, want ineligible outcome", res)
	}

	// No pick was logged, so the day stays open: if the catalog gains an
	// eligible item later the same day, it can still be selected.
	bigger := &catalog.Snapshot{Skills: append(snap.Skills,
		mkSkill("https://github.com/x/b", "B", "data", time.Time{}))}
	res2, err := sel.Pick("2026-02-10", bigger, history)
	if err != nil {
		t.Fatal(err)
	}
	if !res2.Eligible || res2.Skill.Name != "B" {
		t.Errorf("Result = %+v, want B after catalog gained an eligible item", res2)
	}
}

func TestLog_RoundTrip(t *testing.T) {
	log := NewLog(t.TempDir())

	if _, ok, err := log.Get("2026-02-10"); err != nil || ok {
		t.Fatalf("Get() on empty log = ok=%v err=%v, want miss", ok, err)
	}

	want := mkSkill("https://github.com/x/a", "A", "tools", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	if err := log.Put("2026-02-10", want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := log.Get("2026-02-10")
	if err != nil || !ok {
		t.Fatalf("Get() = ok=%v err=%v", ok, err)
	}
	if got.Identity != want.Identity || got.Name != want.Name {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}
