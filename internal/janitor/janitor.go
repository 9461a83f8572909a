// Package janitor periodically clears password reset tokens that have expired.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/store-finder/internal/metrics"
	"github.com/robfig/cron/v3"
)

type tokenPurger interface {
	PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int, error)
}

type Janitor struct {
	users    tokenPurger
	schedule cron.Schedule
	logger   *slog.Logger
	now      func() time.Time
}

// New parses spec as a standard cron expression or descriptor such as "@every 15m".
func New(users tokenPurger, spec string, logger *slog.Logger) (*Janitor, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse purge schedule %q: %w", spec, err)
	}
	return &Janitor{
		users:    users,
		schedule: sched,
		logger:   logger.With("component", "janitor"),
		now:      time.Now,
	}, nil
}

// Start runs a sweep at every scheduled time until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("janitor started")

	for {
		next := j.schedule.Next(j.now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			j.logger.Info("janitor shut down")
			return
		case <-timer.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	n, err := j.users.PurgeExpiredResetTokens(ctx, j.now())
	if err != nil {
		j.logger.ErrorContext(ctx, "purge expired reset tokens", "error", err)
		return
	}
	if n > 0 {
		metrics.ResetTokensPurgedTotal.Add(float64(n))
		j.logger.InfoContext(ctx, "purged expired reset tokens", "count", n)
	}
}
