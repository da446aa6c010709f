package trigger

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ─────────────────────────────────────────────────────────────
// Scheduler: runs jobs on standard 5-field cron expressions
// ─────────────────────────────────────────────────────────────

// Scheduler wraps a cron scheduler whose jobs share one context.
type Scheduler struct {
	ctx  context.Context
	cron *cron.Cron
	jobs int
}

// NewScheduler creates a stopped scheduler. Jobs run with ctx.
func NewScheduler(ctx context.Context) *Scheduler {
	return &Scheduler{ctx: ctx, cron: cron.New()}
}

// Add registers fn under expr. name identifies the job in logs.
func (s *Scheduler) Add(expr, name string, fn func(ctx context.Context) error) error {
	logger := zerolog.Ctx(s.ctx)
	_, err := s.cron.AddFunc(expr, func() {
		logger.Info().Str("job", name).Msg("cron: running job")
		if err := fn(s.ctx); err != nil {
			logger.Error().Err(err).Str("job", name).Msg("cron: job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", expr, name, err)
	}
	s.jobs++
	return nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	zerolog.Ctx(s.ctx).Info().Int("jobs", s.jobs).Msg("cron: scheduled")
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
