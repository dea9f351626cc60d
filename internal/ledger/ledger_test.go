package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpen_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "published.json")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
	if l.Contains("anything") {
		t.Error("empty ledger should not contain anything")
	}
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "published.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("Open() on corrupt file should fail, not reset the ledger")
	}
}

func TestMarkPublished_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "published.json")

	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.MarkPublished("github.com/anthropics/skills/pdf", "pdf", "Document Processing", "2026-02-10"); err != nil {
		t.Fatalf("MarkPublished() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if !reopened.Contains("github.com/anthropics/skills/pdf") {
		t.Error("reopened ledger lost the record")
	}
	recs := reopened.Records()
	if len(recs) != 1 {
		t.Fatalf("Records() len = %d, want 1", len(recs))
	}
	if recs[0].Category != "Document Processing" || recs[0].PublishedAt != "2026-02-10" {
		t.Errorf("record = %+v", recs[0])
	}
}

func TestMarkPublished_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "published.json")

	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.MarkPublished("id-1", "one", "Tools", "2026-02-10"); err != nil {
		t.Fatal(err)
	}
	if err := l.MarkPublished("id-1", "one-renamed", "Other", "2026-02-11"); err != nil {
		t.Fatalf("second MarkPublished() error = %v", err)
	}

	if l.Len() != 1 {
		t.Fatalf("Len() = %d after duplicate mark, want 1", l.Len())
	}
	if got := l.Records()[0].PublishedAt; got != "2026-02-10" {
		t.Errorf("duplicate mark mutated record, PublishedAt = %q", got)
	}
}

func TestMarkPublished_EmptyIdentity(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "published.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := l.MarkPublished("", "x", "Tools", "2026-02-10"); err == nil {
		t.Error("MarkPublished with empty identity should fail")
	}
}

func TestMostRecentCategory(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "published.json"))
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := l.MostRecentCategory(); ok {
		t.Error("empty ledger should report no recent category")
	}

	must := func(identity, cat, date string) {
		t.Helper()
		if err := l.MarkPublished(identity, identity, cat, date); err != nil {
			t.Fatal(err)
		}
	}
	must("a", "Coding", "2026-02-08")
	must("b", "Data", "2026-02-10")
	must("c", "Writing", "2026-02-09")

	got, ok := l.MostRecentCategory()
	if !ok || got != "Data" {
		t.Errorf("MostRecentCategory() = %q, %v, want Data", got, ok)
	}

	// Same-date tie goes to the later append.
	must("d", "Design", "2026-02-10")
	got, _ = l.MostRecentCategory()
	if got != "Design" {
		t.Errorf("MostRecentCategory() after tie = %q, want Design", got)
	}
}

func TestPrune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "published.json")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	dates := []string{"2026-01-01", "2026-02-01", "2026-02-20"}
	for i, d := range dates {
		if err := l.MarkPublished(string(rune('a'+i)), "", "Tools", d); err != nil {
			t.Fatal(err)
		}
	}

	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	removed, err := l.Prune(15, now)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Prune() removed = %d, want 2", removed)
	}
	if l.Contains("a") || l.Contains("b") {
		t.Error("pruned records still present")
	}
	if !l.Contains("c") {
		t.Error("recent record was pruned")
	}

	// Pruned state must survive a reopen.
	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Len() != 1 {
		t.Errorf("reopened Len() = %d, want 1", reopened.Len())
	}

	// Nothing left to prune.
	removed, err = l.Prune(15, now)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("second Prune() removed = %d, want 0", removed)
	}
}

func TestRecords_ReturnsCopy(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "published.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := l.MarkPublished("id-1", "one", "Tools", "2026-02-10"); err != nil {
		t.Fatal(err)
	}

	recs := l.Records()
	recs[0].Identity = "mutated"
	if !l.Contains("id-1") || l.Contains("mutated") {
		t.Error("Records() exposed internal state")
	}
}
