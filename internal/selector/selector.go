// Package selector picks exactly one skill per calendar date from the
// catalog, never repeating anything the ledger already holds. Ranking is a
// pure function of (date, catalog, ledger), so a re-run over the same
// inputs always lands on the same skill.
package selector

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/skilldigest/skilldigest/internal/catalog"
	"github.com/skilldigest/skilldigest/internal/skill"
)

// History is the ledger view the selector needs: the hard exclusion set and
// the most recent category for the diversity rule.
type History interface {
	Contains(identity string) bool
	MostRecentCategory() (string, bool)
}

// Result is the outcome of one selection. A day with nothing left to pick
// is a valid outcome, not an error: Eligible is false and Skill is nil.
type Result struct {
	Date     string
	Skill    *skill.Skill
	Eligible bool
	// Reused is set when the pick came from the selection log, meaning an
	// earlier run today already chose it.
	Reused bool
}

// Selector ranks eligible skills and records each day's pick in the
// selection log so repeat invocations on the same date reuse it.
type Selector struct {
	log    *Log
	logger *slog.Logger
}

// New creates a Selector backed by the given selection log.
func New(log *Log) *Selector {
	return &Selector{
		log:    log,
		logger: slog.Default(),
	}
}

// Pick selects the skill for date from snap, excluding everything history
// contains. If a pick was already logged for date it is returned unchanged:
// the catalog may have been refreshed since, and re-ranking could disagree
// with an article generated from the earlier pick.
func (s *Selector) Pick(date string, snap *catalog.Snapshot, history History) (*Result, error) {
	if prior, ok, err := s.log.Get(date); err != nil {
		return nil, err
	} else if ok {
		s.logger.Info("reusing logged selection", "date", date, "name", prior.Name)
		return &Result{Date: date, Skill: prior, Eligible: true, Reused: true}, nil
	}

	eligible := make([]skill.Skill, 0, snap.Len())
	for _, sk := range snap.Skills {
		if history.Contains(sk.Identity) {
			continue
		}
		if !IsInstallable(sk) {
			continue
		}
		eligible = append(eligible, sk)
	}
	if len(eligible) == 0 {
		s.logger.Info("no eligible skill", "date", date, "catalog_size", snap.Len())
		return &Result{Date: date}, nil
	}

	recentCategory, _ := history.MostRecentCategory()
	rank(eligible, recentCategory)
	picked := eligible[0]

	if err := s.log.Put(date, picked); err != nil {
		return nil, fmt.Errorf("selector: %w", err)
	}

	s.logger.Info("selected skill",
		"date", date,
		"name", picked.Name,
		"category", picked.Category,
		"eligible", len(eligible),
	)
	return &Result{Date: date, Skill: &picked, Eligible: true}, nil
}

// rank orders skills best-first. Priority: authority tier, then category
// diversity against the most recent publication, then freshness (unknown
// update times sink below known ones), then identity as the deterministic
// tie-break.
func rank(skills []skill.Skill, recentCategory string) {
	sort.Slice(skills, func(i, j int) bool {
		a, b := skills[i], skills[j]

		if ta, tb := a.AuthorityTier(), b.AuthorityTier(); ta != tb {
			return ta < tb
		}

		if recentCategory != "" {
			da := a.Category != recentCategory
			db := b.Category != recentCategory
			if da != db {
				return da
			}
		}

		switch {
		case a.HasKnownUpdate() && !b.HasKnownUpdate():
			return true
		case !a.HasKnownUpdate() && b.HasKnownUpdate():
			return false
		case a.HasKnownUpdate() && b.HasKnownUpdate() && !a.LastUpdatedAt.Equal(b.LastUpdatedAt):
			return a.LastUpdatedAt.After(b.LastUpdatedAt)
		}

		return a.Identity < b.Identity
	})
}
