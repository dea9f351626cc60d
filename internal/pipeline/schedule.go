package pipeline

import (
	"context"
	"fmt"
	"time"
)

// RunDaily blocks and invokes Run once per day at the wall-clock time at
// ("HH:MM") in the pipeline's timezone. It returns when ctx is canceled.
// Run outcomes are journaled and alerted as usual; a failed run does not
// stop the loop.
func (p *Pipeline) RunDaily(ctx context.Context, at string) error {
	trigger, err := time.Parse("15:04", at)
	if err != nil {
		return fmt.Errorf("schedule: parse %q: %w", at, err)
	}

	p.logger.Info("scheduler started", "at", at, "timezone", p.loc.String())
	for {
		next := nextRun(p.now().In(p.loc), trigger.Hour(), trigger.Minute())
		timer := time.NewTimer(time.Until(next))
		p.logger.Info("next run scheduled", "when", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("scheduler stopped")
			return nil
		case <-timer.C:
			p.Run(ctx, Options{})
		}
	}
}

// nextRun is the first instant at hour:min strictly after now, today or
// tomorrow.
func nextRun(now time.Time, hour, min int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
