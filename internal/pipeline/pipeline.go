// Package pipeline sequences one daily run: refresh the catalog, pick the
// skill for the date, generate the article, deliver it, and record the
// publication in the ledger. Stages commit their side effects before the
// next stage starts, so a failed run can be re-entered on the same date
// without repeating completed work.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/skilldigest/skilldigest/internal/artifact"
	"github.com/skilldigest/skilldigest/internal/catalog"
	"github.com/skilldigest/skilldigest/internal/generator"
	"github.com/skilldigest/skilldigest/internal/journal"
	"github.com/skilldigest/skilldigest/internal/ledger"
	"github.com/skilldigest/skilldigest/internal/publisher"
	"github.com/skilldigest/skilldigest/internal/selector"
	"github.com/skilldigest/skilldigest/internal/skill"
	"github.com/skilldigest/skilldigest/pkg/notify"
)

// Run statuses, shared with the journal and the notification formatter.
const (
	StatusPublished  = "published"
	StatusGenerated  = "generated"
	StatusNoEligible = "no_eligible"
	StatusFailed     = "failed"
)

// Stage names, recorded on failure outcomes.
const (
	StageFetching         = "fetching"
	StageSelecting        = "selecting"
	StageGenerating       = "generating"
	StagePublishing       = "publishing"
	StageMarkingPublished = "marking_published"
)

// Deps are the collaborators a Pipeline sequences. Catalog, Aggregator,
// Selector, Ledger, Generator and Artifacts are required; Publisher nil
// disables delivery (items are marked published after generation), Journal
// and Alerts nil disable run recording and notifications.
type Deps struct {
	Catalog    *catalog.Store
	Aggregator catalog.Aggregator
	Selector   *selector.Selector
	Ledger     *ledger.Ledger
	Generator  *generator.Generator
	Artifacts  *artifact.Store
	Publisher  publisher.Publisher
	Journal    *journal.Journal
	Alerts     *notify.Dispatcher

	// Location is the timezone the run date is computed in. Nil means
	// local time.
	Location *time.Location
	// RefreshTTL is how old a cached catalog may be before a run
	// refreshes it. Zero refreshes on every run.
	RefreshTTL time.Duration
}

// Options adjust a single invocation.
type Options struct {
	// ForceRefresh refreshes the catalog even if the cached snapshot is
	// within the TTL.
	ForceRefresh bool
	// Date overrides the run date (YYYY-MM-DD). Empty means today in the
	// configured timezone.
	Date string
}

// Outcome is the structured record of one invocation. Exactly one of three
// shapes: success with a skill (published or generated), success with
// nothing eligible, or failure at a named stage.
type Outcome struct {
	Date   string
	Status string
	// Stage is set when Status is "failed".
	Stage string
	Err   error

	Skill       *skill.Skill
	ArticlePath string
	CoverPath   string
	Receipt     *publisher.Receipt

	// StaleCatalog marks a run that proceeded on last-known-good catalog
	// data after a failed refresh.
	StaleCatalog bool
	// AlreadyPublished marks a re-entry after a fully successful run on
	// the same date: nothing was generated or delivered again.
	AlreadyPublished bool
	// ReusedArticle marks a run that delivered a previously generated
	// artifact instead of regenerating it.
	ReusedArticle bool

	TokensIn  int
	TokensOut int
	Cost      float64

	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed reports whether the run ended at a failed stage.
func (o *Outcome) Failed() bool { return o.Status == StatusFailed }

func (o *Outcome) fail(stage string, err error) {
	o.Status = StatusFailed
	o.Stage = stage
	o.Err = err
}

// Pipeline runs the daily flow. Safe to invoke repeatedly for the same
// date: the selection log pins the pick, the artifact store pins the
// generated article, and the ledger write is idempotent.
type Pipeline struct {
	catalog    *catalog.Store
	agg        catalog.Aggregator
	selector   *selector.Selector
	ledger     *ledger.Ledger
	generator  *generator.Generator
	artifacts  *artifact.Store
	publisher  publisher.Publisher
	journal    *journal.Journal
	alerts     *notify.Dispatcher
	loc        *time.Location
	refreshTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// New assembles a Pipeline from its collaborators.
func New(deps Deps) *Pipeline {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	return &Pipeline{
		catalog:    deps.Catalog,
		agg:        deps.Aggregator,
		selector:   deps.Selector,
		ledger:     deps.Ledger,
		generator:  deps.Generator,
		artifacts:  deps.Artifacts,
		publisher:  deps.Publisher,
		journal:    deps.Journal,
		alerts:     deps.Alerts,
		loc:        loc,
		refreshTTL: deps.RefreshTTL,
		logger:     slog.Default(),
		now:        time.Now,
	}
}

// Run executes one invocation and always returns an Outcome, journaled and
// alerted best-effort. Callers decide process exit from Outcome.Failed().
func (p *Pipeline) Run(ctx context.Context, opts Options) *Outcome {
	started := p.now()
	date := opts.Date
	if date == "" {
		date = started.In(p.loc).Format(time.DateOnly)
	}

	out := &Outcome{Date: date, StartedAt: started}
	p.logger.Info("run started", "date", date, "force_refresh", opts.ForceRefresh)

	p.execute(ctx, opts, out)

	out.FinishedAt = p.now()
	if out.Failed() {
		p.logger.Error("run failed", "date", date, "stage", out.Stage, "error", out.Err)
	} else {
		p.logger.Info("run finished", "date", date, "status", out.Status)
	}

	p.record(ctx, out)
	p.alert(ctx, out)
	return out
}

func (p *Pipeline) execute(ctx context.Context, opts Options, out *Outcome) {
	snap, err := p.snapshot(ctx, opts.ForceRefresh)
	if err != nil {
		out.fail(StageFetching, err)
		return
	}
	out.StaleCatalog = snap.Stale

	res, err := p.selector.Pick(out.Date, snap, p.ledger)
	if err != nil {
		out.fail(StageSelecting, err)
		return
	}
	if !res.Eligible {
		out.Status = StatusNoEligible
		return
	}
	out.Skill = res.Skill
	sk := *res.Skill

	key := artifact.Key{Date: out.Date, Identity: sk.Identity, Name: sk.Name}
	out.ArticlePath = p.artifacts.ArticlePath(key)

	// A pick that is already in the ledger means an earlier run today
	// completed the whole flow. Nothing left to do.
	if p.ledger.Contains(sk.Identity) {
		out.AlreadyPublished = true
		out.Status = StatusPublished
		if p.publisher == nil {
			out.Status = StatusGenerated
		}
		p.logger.Info("already published, nothing to do", "date", out.Date, "name", sk.Name)
		return
	}

	post := publisher.Post{Title: generator.Title(sk), Date: out.Date}
	if p.artifacts.Exists(key) {
		markdown, err := p.artifacts.LoadArticle(key)
		if err != nil {
			out.fail(StageGenerating, err)
			return
		}
		post.Markdown = string(markdown)
		out.ReusedArticle = true
		p.logger.Info("reusing generated article", "date", out.Date, "path", out.ArticlePath)
	} else {
		art, err := p.generator.Generate(ctx, sk, out.Date)
		if err != nil {
			out.fail(StageGenerating, err)
			return
		}
		if err := p.artifacts.SaveArticle(key, []byte(art.Markdown)); err != nil {
			out.fail(StageGenerating, err)
			return
		}
		if art.CoverPNG != nil {
			if err := p.artifacts.SaveCover(key, art.CoverPNG); err != nil {
				p.logger.Warn("cover write failed", "name", sk.Name, "error", err)
			} else {
				out.CoverPath = p.artifacts.CoverPath(key)
			}
		}
		post.Title = art.Title
		post.Markdown = art.Markdown
		out.TokensIn = art.TokensIn
		out.TokensOut = art.TokensOut
		out.Cost = art.Cost
	}

	if p.publisher == nil {
		out.Status = StatusGenerated
	} else {
		receipt, err := p.publisher.Publish(ctx, post)
		if err != nil {
			out.fail(StagePublishing, err)
			return
		}
		out.Receipt = receipt
		out.Status = StatusPublished
		p.logger.Info("article delivered",
			"channel", p.publisher.Name(), "id", receipt.ID, "name", sk.Name)
	}

	if err := p.ledger.MarkPublished(sk.Identity, sk.Name, sk.Category, out.Date); err != nil {
		out.fail(StageMarkingPublished, err)
		return
	}
}

// snapshot returns the catalog for this run: the cached snapshot when it is
// younger than the TTL, otherwise a refresh. A refresh that fails with a
// prior snapshot on disk degrades to that snapshot (marked stale).
func (p *Pipeline) snapshot(ctx context.Context, force bool) (*catalog.Snapshot, error) {
	if !force {
		snap, err := p.catalog.Load()
		switch {
		case err == nil:
			if snap.Age(p.now()) <= p.refreshTTL {
				p.logger.Debug("using cached catalog",
					"skills", snap.Len(), "age", snap.Age(p.now()).Round(time.Minute))
				return snap, nil
			}
		case errors.Is(err, catalog.ErrNoSnapshot):
		default:
			return nil, err
		}
	}
	return p.catalog.Refresh(ctx, p.agg)
}

// record appends the outcome to the run journal. Journal failures are
// logged, never escalated: history is diagnostics, not state.
func (p *Pipeline) record(ctx context.Context, out *Outcome) {
	if p.journal == nil {
		return
	}
	run := journal.Run{
		Date:        out.Date,
		Status:      out.Status,
		Stage:       out.Stage,
		ArticlePath: out.ArticlePath,
		TokensIn:    out.TokensIn,
		TokensOut:   out.TokensOut,
		Cost:        out.Cost,
		StartedAt:   out.StartedAt,
		FinishedAt:  out.FinishedAt,
	}
	if out.Skill != nil {
		run.Identity = out.Skill.Identity
		run.Name = out.Skill.Name
		run.Category = out.Skill.Category
	}
	if out.Err != nil {
		run.Error = out.Err.Error()
	}
	if err := p.journal.Record(ctx, run); err != nil {
		p.logger.Warn("journal write failed", "date", out.Date, "error", err)
	}
}

// alert sends the run report to the registered channels. A re-entry that
// found the day already published stays quiet; everything else reports.
func (p *Pipeline) alert(ctx context.Context, out *Outcome) {
	if p.alerts == nil || !p.alerts.Registered() {
		return
	}
	if out.AlreadyPublished {
		return
	}
	data := notify.RunReportData{
		Date:        out.Date,
		Status:      out.Status,
		Stage:       out.Stage,
		ArticlePath: out.ArticlePath,
		TokensUsed:  out.TokensIn + out.TokensOut,
		Cost:        out.Cost,
	}
	if out.Skill != nil {
		data.ItemName = out.Skill.Name
		data.Category = out.Skill.Category
		data.SourceURL = out.Skill.SourceURL
	}
	if out.Err != nil {
		data.Err = out.Err.Error()
	}
	if err := p.alerts.SendAll(ctx, notify.FormatRunReport(data)); err != nil {
		p.logger.Warn("run alert failed", "date", out.Date, "error", err)
	}
}
