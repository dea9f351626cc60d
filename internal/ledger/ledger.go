// Package ledger keeps the durable history of published skills. The ledger
// only grows: MarkPublished appends, nothing else mutates it, and records
// are removed solely through the explicit operator Prune command.
package ledger

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/skilldigest/skilldigest/internal/state"
)

// Record is one published skill. PublishedAt is a calendar date
// (YYYY-MM-DD): selection is a once-per-day decision, not an instant.
type Record struct {
	Identity    string `json:"identity"`
	Name        string `json:"name,omitempty"`
	Category    string `json:"category"`
	PublishedAt string `json:"published_at"`
}

type ledgerFile struct {
	Published   []Record  `json:"published"`
	LastUpdated time.Time `json:"last_updated,omitzero"`
}

// Ledger is the in-memory view of the ledger file. Every mutation rewrites
// the file atomically before returning.
type Ledger struct {
	path    string
	records []Record
	index   map[string]int
	logger  *slog.Logger
}

// Open loads the ledger at path. A missing file is an empty ledger; a
// corrupt file is a PersistenceError (never silently reset, that would
// reopen the door to duplicate publishes).
func Open(path string) (*Ledger, error) {
	l := &Ledger{
		path:   path,
		index:  make(map[string]int),
		logger: slog.Default(),
	}

	var file ledgerFile
	if err := state.LoadJSON(path, &file); err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	l.records = file.Published
	for i, r := range l.records {
		l.index[r.Identity] = i
	}
	return l, nil
}

// Contains reports whether identity has ever been published.
func (l *Ledger) Contains(identity string) bool {
	_, ok := l.index[identity]
	return ok
}

// Len returns the number of records.
func (l *Ledger) Len() int { return len(l.records) }

// Records returns a copy of all records in append order.
func (l *Ledger) Records() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// MostRecentCategory returns the category of the newest record by
// published date (append order breaks date ties). ok is false on an empty
// ledger.
func (l *Ledger) MostRecentCategory() (string, bool) {
	if len(l.records) == 0 {
		return "", false
	}
	best := 0
	for i := 1; i < len(l.records); i++ {
		// Dates are YYYY-MM-DD, so string order is date order.
		if l.records[i].PublishedAt >= l.records[best].PublishedAt {
			best = i
		}
	}
	return l.records[best].Category, true
}

// MarkPublished appends a record and persists the ledger. Idempotent by
// identity: marking an already-published skill is a no-op. The write must
// durably succeed; a PersistenceError here is fatal for the caller's run,
// since a lost record would allow a future duplicate publish.
func (l *Ledger) MarkPublished(identity, name, category, date string) error {
	if identity == "" {
		return fmt.Errorf("mark published: empty identity")
	}
	if _, ok := l.index[identity]; ok {
		l.logger.Info("already in ledger, skipping", "identity", identity)
		return nil
	}

	l.records = append(l.records, Record{
		Identity:    identity,
		Name:        name,
		Category:    category,
		PublishedAt: date,
	})
	l.index[identity] = len(l.records) - 1

	if err := l.save(); err != nil {
		// Roll back the in-memory append so a retry sees consistent state.
		l.records = l.records[:len(l.records)-1]
		delete(l.index, identity)
		return err
	}
	l.logger.Info("marked published", "identity", identity, "name", name, "date", date)
	return nil
}

// Prune removes records older than keepDays relative to now. This is the
// explicit operator intervention; the pipeline itself never shrinks the
// ledger. Returns the number of removed records.
func (l *Ledger) Prune(keepDays int, now time.Time) (int, error) {
	if keepDays < 0 {
		return 0, fmt.Errorf("prune ledger: keep-days must be >= 0")
	}
	cutoff := now.AddDate(0, 0, -keepDays).Format(time.DateOnly)

	kept := make([]Record, 0, len(l.records))
	for _, r := range l.records {
		if r.PublishedAt >= cutoff {
			kept = append(kept, r)
		}
	}
	removed := len(l.records) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	prev, prevIndex := l.records, l.index
	l.records = kept
	l.index = make(map[string]int, len(kept))
	for i, r := range kept {
		l.index[r.Identity] = i
	}

	if err := l.save(); err != nil {
		l.records, l.index = prev, prevIndex
		return 0, err
	}
	l.logger.Info("ledger pruned", "removed", removed, "kept", len(kept), "cutoff", cutoff)
	return removed, nil
}

func (l *Ledger) save() error {
	file := ledgerFile{
		Published:   l.records,
		LastUpdated: time.Now().UTC(),
	}
	if err := state.SaveJSON(l.path, &file); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}
