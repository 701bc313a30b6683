package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Refresher re-uploads something the provider forgets over time
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler periodically refreshes the provider's context file. Gemini
// deletes uploaded files after 48 hours.
type Scheduler struct {
	cron      *cron.Cron
	schedule  cron.Schedule
	refresher Refresher
	logger    zerolog.Logger
	timezone  *time.Location
}

// NewScheduler creates a scheduler for a standard 5-field cron expression
// evaluated in timezone
func NewScheduler(refresher Refresher, expr, timezone string, logger zerolog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", timezone, err)
	}

	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", expr, err)
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		schedule:  schedule,
		refresher: refresher,
		logger:    logger.With().Str("component", "scheduler").Logger(),
		timezone:  loc,
	}, nil
}

// Start runs the scheduler until ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		s.runRefresh(ctx)
	}))
	s.cron.Start()

	s.logger.Info().
		Time("next_run", s.schedule.Next(time.Now().In(s.timezone))).
		Msg("Scheduler started")

	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
	return ctx.Err()
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runRefresh(ctx context.Context) {
	startTime := time.Now()
	s.logger.Info().Msg("Refreshing context file")

	if err := s.refresher.Refresh(ctx); err != nil {
		s.logger.Error().
			Err(err).
			Dur("duration", time.Since(startTime)).
			Msg("Context file refresh failed")
		return
	}

	s.logger.Info().
		Dur("duration", time.Since(startTime)).
		Msg("Context file refreshed")
}
