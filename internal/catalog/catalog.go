// Package catalog persists the snapshot of currently known skill
// candidates. A refresh replaces the snapshot wholesale; identities that
// drop out of a refresh leave the catalog but never the publication ledger.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/skilldigest/skilldigest/internal/skill"
	"github.com/skilldigest/skilldigest/internal/state"
)

// ErrNoSnapshot reports that no catalog has ever been written.
var ErrNoSnapshot = errors.New("catalog: no snapshot has been written yet")

// Aggregator produces the current universe of candidates. Identities must
// be stable across calls; everything else about scraping is its business.
type Aggregator interface {
	FetchAll(ctx context.Context) ([]skill.Skill, error)
}

// Snapshot is one full catalog state. Stale marks a snapshot served as a
// fallback after a failed refresh; it is never persisted.
type Snapshot struct {
	RefreshedAt time.Time     `json:"refreshed_at"`
	Skills      []skill.Skill `json:"skills"`
	Stale       bool          `json:"-"`
}

// Len returns the number of known candidates.
func (s *Snapshot) Len() int { return len(s.Skills) }

// Age returns how old the snapshot is relative to now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.RefreshedAt)
}

// Store reads and writes catalog snapshots at a fixed path. Writes go
// through a temp file and rename, so readers never observe a half-written
// snapshot.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a catalog store persisting to path.
func NewStore(path string) *Store {
	return &Store{path: path, logger: slog.Default()}
}

// Load returns the last persisted snapshot without contacting the
// aggregator. ErrNoSnapshot if nothing was ever written.
func (s *Store) Load() (*Snapshot, error) {
	var snap Snapshot
	if err := state.LoadJSON(s.path, &snap); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return &snap, nil
}

// Save persists a snapshot atomically, dropping duplicate identities
// (first occurrence wins) so the unique-identity invariant holds on disk.
func (s *Store) Save(snap *Snapshot) error {
	seen := make(map[string]bool, len(snap.Skills))
	unique := make([]skill.Skill, 0, len(snap.Skills))
	for _, sk := range snap.Skills {
		if sk.Identity == "" || seen[sk.Identity] {
			continue
		}
		seen[sk.Identity] = true
		unique = append(unique, sk)
	}
	snap.Skills = unique

	if err := state.SaveJSON(s.path, snap); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}

// Refresh replaces the persisted snapshot wholesale from the aggregator.
// When the aggregator fails and a prior snapshot exists, the prior one is
// returned with Stale set and the run continues on last-known-good data;
// with no prior snapshot the fetch error is returned as is.
func (s *Store) Refresh(ctx context.Context, agg Aggregator) (*Snapshot, error) {
	skills, err := agg.FetchAll(ctx)
	if err != nil {
		prior, loadErr := s.Load()
		if loadErr != nil {
			return nil, fmt.Errorf("refresh catalog: %w", err)
		}
		s.logger.Warn("refresh failed, serving last-known-good catalog",
			"error", err, "skills", prior.Len(), "refreshed_at", prior.RefreshedAt)
		prior.Stale = true
		return prior, nil
	}

	snap := &Snapshot{
		RefreshedAt: time.Now().UTC(),
		Skills:      skills,
	}
	if err := s.Save(snap); err != nil {
		return nil, err
	}
	s.logger.Info("catalog refreshed", "skills", snap.Len())
	return snap, nil
}
