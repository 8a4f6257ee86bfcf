package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultInterval is the pause between passes when no schedule is configured.
const DefaultInterval = 5 * time.Minute

// Schedule yields the next activation time after a given time.
// cron.Schedule satisfies it.
type Schedule interface {
	Next(time.Time) time.Time
}

// Runner is what the Scheduler drives. *Orchestrator satisfies it.
type Runner interface {
	RunPass(ctx context.Context) (Report, error)
}

// ParseSchedule accepts a Go duration ("5m") or a cron spec
// ("@every 30s", "*/5 * * * *"). Empty means DefaultInterval.
func ParseSchedule(spec string) (Schedule, error) {
	if spec == "" {
		return cron.Every(DefaultInterval), nil
	}
	if d, err := time.ParseDuration(spec); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("sync interval must be positive, got %s", spec)
		}
		return cron.Every(d), nil
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	return sched, nil
}

// Scheduler runs passes periodically until its context is cancelled.
type Scheduler struct {
	runner     Runner
	schedule   Schedule
	runOnStart bool
	logger     zerolog.Logger
	now        func() time.Time
}

// NewScheduler creates a Scheduler. With runOnStart the first pass runs
// immediately instead of at the first scheduled time.
func NewScheduler(runner Runner, schedule Schedule, runOnStart bool, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		schedule:   schedule,
		runOnStart: runOnStart,
		logger:     logger.With().Str("component", "scheduler").Logger(),
		now:        time.Now,
	}
}

// Run blocks until ctx is done. A failing pass is logged and the loop goes on.
// Cancellation interrupts the wait between passes, not a running pass.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Bool("run_on_start", s.runOnStart).Msg("scheduler started")
	defer s.logger.Info().Msg("scheduler stopped")

	if s.runOnStart {
		s.runOnce(ctx)
	}

	for {
		now := s.now()
		wait := s.schedule.Next(now).Sub(now)
		if wait < 0 {
			wait = 0
		}
		s.logger.Debug().Dur("next_in", wait).Msg("waiting for next pass")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.runOnce(ctx)
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("sync pass panicked")
		}
	}()

	// A started pass finishes even if shutdown begins meanwhile.
	if _, err := s.runner.RunPass(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error().Err(err).Msg("sync pass failed")
	}
}
