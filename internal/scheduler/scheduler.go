// Package scheduler runs the forecast job on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/sounding-forecast/internal/observability"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler triggers a job on a cron expression evaluated in a fixed zone.
// Runs never overlap.
type Scheduler struct {
	scheduler *gocron.Scheduler
	expr      string
	job       Job
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics

	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
}

// New creates a scheduler. A zero timeout leaves runs unbounded.
func New(expr string, loc *time.Location, job Job, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		expr:      expr,
		job:       job,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers the job and starts the scheduler in the background.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Cron(s.expr).Do(s.run); err != nil {
		return fmt.Errorf("schedule %q: %w", s.expr, err)
	}
	s.scheduler.StartAsync()
	s.started.Store(true)
	s.metrics.SchedulerRunning.Set(1)

	_, next := s.scheduler.NextRun()
	s.logger.Info("scheduler started", "schedule", s.expr, "next_run", next)
	return nil
}

// Stop cancels an in-flight run and stops future ones.
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
	s.started.Store(false)
	s.metrics.SchedulerRunning.Set(0)
	s.logger.Info("scheduler stopped")
}

// CheckReadiness reports ready once the scheduler has started.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.started.Load() {
		return errors.New("scheduler not started")
	}
	return nil
}

func (s *Scheduler) run() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.logger.Info("scheduled run starting")
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled run failed", "error", err)
		return
	}
	s.logger.Info("scheduled run completed")
}
