// Package sources defines the data source interface and implementations
// for collecting skill candidates from the public catalogs.
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/skilldigest/skilldigest/internal/skill"
)

// Source is the interface that all catalog sources must implement.
type Source interface {
	// Name returns the human-readable name of the source.
	Name() string

	// Fetch retrieves skill candidates from this source.
	Fetch(ctx context.Context) ([]skill.Skill, error)
}

// FetchError reports that aggregation produced nothing usable: every
// source failed, or all succeeded with zero candidates.
type FetchError struct {
	Failures map[string]error
}

func (e *FetchError) Error() string {
	if len(e.Failures) == 0 {
		return "fetch candidates: all sources returned zero items"
	}
	names := make([]string, 0, len(e.Failures))
	for name := range e.Failures {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %v", name, e.Failures[name]))
	}
	return "fetch candidates: " + strings.Join(parts, "; ")
}

// Enricher post-processes the merged candidate list, filling in metadata
// that individual sources cannot provide (update timestamps, mainly).
type Enricher interface {
	Enrich(ctx context.Context, skills []skill.Skill) []skill.Skill
}

// Registry holds all registered data sources.
type Registry struct {
	sources  []Source
	enricher Enricher
	logger   *slog.Logger
}

// NewRegistry creates a new source registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.Default()}
}

// Register adds a source to the registry.
func (r *Registry) Register(s Source) {
	r.sources = append(r.sources, s)
}

// SetEnricher installs a post-fetch enrichment pass.
func (r *Registry) SetEnricher(e Enricher) {
	r.enricher = e
}

// Len returns the number of registered sources.
func (r *Registry) Len() int { return len(r.sources) }

// FetchAll fetches candidates from all registered sources concurrently and
// merges them by canonical identity. Individual source failures are
// tolerated; a FetchError is returned only when nothing usable came back.
// Merge precedence follows registration order so the aggregate is
// deterministic regardless of completion order.
func (r *Registry) FetchAll(ctx context.Context) ([]skill.Skill, error) {
	type result struct {
		skills []skill.Skill
		err    error
	}

	results := make([]result, len(r.sources))
	done := make(chan int, len(r.sources))
	for i, s := range r.sources {
		go func(idx int, src Source) {
			skills, err := src.Fetch(ctx)
			results[idx] = result{skills: skills, err: err}
			done <- idx
		}(i, s)
	}
	for range r.sources {
		<-done
	}

	failures := make(map[string]error)
	merged := make([]skill.Skill, 0, 64)
	index := make(map[string]int)

	for i, s := range r.sources {
		res := results[i]
		if res.err != nil {
			r.logger.Warn("source fetch failed", "source", s.Name(), "error", res.err)
			failures[s.Name()] = res.err
			continue
		}
		r.logger.Info("source fetched", "source", s.Name(), "items", len(res.skills))
		for _, sk := range res.skills {
			if sk.Identity == "" || sk.Name == "" {
				continue
			}
			pos, seen := index[sk.Identity]
			if !seen {
				index[sk.Identity] = len(merged)
				merged = append(merged, sk)
				continue
			}
			// First occurrence wins; later sources only fill gaps.
			if merged[pos].Description == "" {
				merged[pos].Description = sk.Description
			}
			if merged[pos].Category == "" || merged[pos].Category == "General" {
				merged[pos].Category = sk.Category
			}
			if merged[pos].LastUpdatedAt.IsZero() {
				merged[pos].LastUpdatedAt = sk.LastUpdatedAt
			}
			merged[pos].Signals.Official = merged[pos].Signals.Official || sk.Signals.Official
			merged[pos].Signals.HasManifest = merged[pos].Signals.HasManifest || sk.Signals.HasManifest
		}
	}

	if len(merged) == 0 {
		return nil, &FetchError{Failures: failures}
	}
	if r.enricher != nil {
		merged = r.enricher.Enrich(ctx, merged)
	}
	return merged, nil
}
