// Package journal records every pipeline run in a relational store, one
// row per invocation. The journal is observability, not state: selection
// and dedup decisions never read it.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/skilldigest/skilldigest/pkg/storage"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    date         TEXT NOT NULL,
    status       TEXT NOT NULL,
    stage        TEXT,
    identity     TEXT,
    name         TEXT,
    category     TEXT,
    article_path TEXT,
    error        TEXT,
    tokens_in    INTEGER DEFAULT 0,
    tokens_out   INTEGER DEFAULT 0,
    cost         REAL DEFAULT 0,
    started_at   TIMESTAMP,
    finished_at  TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(date);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id           BIGSERIAL PRIMARY KEY,
    date         TEXT NOT NULL,
    status       TEXT NOT NULL,
    stage        TEXT,
    identity     TEXT,
    name         TEXT,
    category     TEXT,
    article_path TEXT,
    error        TEXT,
    tokens_in    INTEGER DEFAULT 0,
    tokens_out   INTEGER DEFAULT 0,
    cost         DOUBLE PRECISION DEFAULT 0,
    started_at   TIMESTAMPTZ,
    finished_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(date);
`

// Run is one journal row.
type Run struct {
	Date        string
	Status      string
	Stage       string
	Identity    string
	Name        string
	Category    string
	ArticlePath string
	Error       string
	TokensIn    int
	TokensOut   int
	Cost        float64
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Journal persists run history.
type Journal struct {
	db     *storage.DB
	logger *slog.Logger
}

// Open migrates the runs table and returns a Journal over db.
func Open(ctx context.Context, db *storage.DB) (*Journal, error) {
	schema := sqliteSchema
	if db.DriverType() == storage.Postgres {
		schema = postgresSchema
	}
	if err := db.Migrate(ctx, schema); err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &Journal{db: db, logger: slog.Default()}, nil
}

// Record appends one run row.
func (j *Journal) Record(ctx context.Context, run Run) error {
	query := j.rebind(`
		INSERT INTO runs (date, status, stage, identity, name, category, article_path, error,
		                  tokens_in, tokens_out, cost, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := j.db.ExecContext(ctx, query,
		run.Date, run.Status, run.Stage, run.Identity, run.Name, run.Category,
		run.ArticlePath, run.Error, run.TokensIn, run.TokensOut, run.Cost,
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("journal record: %w", err)
	}
	j.logger.Debug("run journaled", "date", run.Date, "status", run.Status)
	return nil
}

// Recent returns up to limit runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := j.rebind(`
		SELECT date, status, stage, identity, name, category, article_path, error,
		       tokens_in, tokens_out, cost, started_at, finished_at
		FROM runs ORDER BY id DESC LIMIT ?
	`)
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("journal recent: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.Date, &r.Status, &r.Stage, &r.Identity, &r.Name, &r.Category,
			&r.ArticlePath, &r.Error, &r.TokensIn, &r.TokensOut, &r.Cost,
			&r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// rebind rewrites ? placeholders to $1..$n for Postgres; SQLite takes the
// query as written.
func (j *Journal) rebind(query string) string {
	if j.db.DriverType() != storage.Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
