package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/voltlot/voltlot-backend/pkg/logger"
	"github.com/voltlot/voltlot-backend/pkg/metrics"
)

const defaultInterval = 5 * time.Minute

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs the registered jobs once per interval. A cycle only runs on
// the instance holding Lock; each cycle is bounded by the interval.
type Service struct {
	ServiceParams
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case p.Lock == nil:
		return nil, fmt.Errorf("lock required")
	}
	if p.Registry == nil {
		p.Registry = NewRegistry()
	}
	if p.Interval <= 0 {
		p.Interval = defaultInterval
	}
	return &Service{ServiceParams: p}, nil
}

// Run fires a cycle immediately, then every Interval, until ctx is done.
// Overlapping cycles are rescheduled rather than stacked.
func (s *Service) Run(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(s.Interval),
		gocron.NewTask(func() { s.tick(ctx) }),
		gocron.WithName("voltlot-cron-cycle"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("schedule cycle: %w", err)
	}

	scheduler.Start()
	s.Logger.Info(s.Logger.WithField(ctx, "interval", s.Interval.String()), "cron.started")
	<-ctx.Done()

	if err := scheduler.Shutdown(); err != nil {
		s.Logger.Error(ctx, "cron.shutdown_failed", err)
	}
	s.Logger.Info(ctx, "cron.stopped")
	return ctx.Err()
}

func (s *Service) tick(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, s.Interval)
	defer cancel()
	if err := s.RunOnce(cycleCtx); err != nil {
		s.Logger.Error(ctx, "cron.cycle_failed", err)
	}
}

// RunOnce executes one cycle if the lock can be taken. Job failures are
// logged and counted; only lock errors are returned.
func (s *Service) RunOnce(ctx context.Context) error {
	held, err := s.Lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire cron lock: %w", err)
	}
	if !held {
		s.Logger.Info(ctx, "cron.cycle_skipped")
		return nil
	}
	defer func() {
		// release even when the cycle context has expired
		if err := s.Lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.Logger.Error(ctx, "cron.lock_release_failed", err)
		}
	}()

	for _, job := range s.Registry.Jobs() {
		s.execute(ctx, job)
	}
	return nil
}

func (s *Service) execute(ctx context.Context, job Job) {
	name := job.Name()
	jobCtx := s.Logger.WithField(ctx, "job", name)

	start := time.Now()
	err := runGuarded(jobCtx, job)
	elapsed := time.Since(start)

	jobCtx = s.Logger.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	s.Metrics.ObserveDuration(name, elapsed)
	if err != nil {
		s.Metrics.IncFailure(name)
		s.Logger.Error(jobCtx, "cron.job_failed", err)
		return
	}
	s.Metrics.IncSuccess(name)
	s.Logger.Info(jobCtx, "cron.job_completed")
}

// runGuarded turns a job panic into an error so one job cannot stop the cycle.
func runGuarded(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	return job.Run(ctx)
}
