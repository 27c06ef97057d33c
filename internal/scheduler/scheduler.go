// Package scheduler runs a job on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Job is one unit of scheduled work. The context is canceled when the
// scheduler stops.
type Job func(ctx context.Context) error

// Scheduler runs a Job immediately and then every interval. Runs never
// overlap; a tick that arrives while a run is in progress is skipped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	job       Job
	logger    *slog.Logger
	cancel    context.CancelFunc
}

// New creates a scheduler for job. interval must be positive.
func New(interval time.Duration, job Job, logger *slog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, errors.New("scheduler: interval must be positive")
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
		job:       job,
		logger:    logger,
	}, nil
}

// Start schedules the job and starts the underlying scheduler without blocking.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() {
		start := time.Now()
		s.logger.Info("scheduled run started")
		if err := s.job(ctx); err != nil {
			s.logger.Error("scheduled run failed", "error", err, "duration", time.Since(start))
			return
		}
		s.logger.Info("scheduled run completed", "duration", time.Since(start))
	})
	if err != nil {
		s.cancel()
		return err
	}

	s.logger.Info("scheduler started", "interval", s.interval)
	s.scheduler.StartAsync()
	return nil
}

// Stop cancels the running job's context and stops future runs.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.scheduler.Stop()
}
