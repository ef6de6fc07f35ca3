// Package scheduler runs the periodic ruleset lifecycle jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper is the draft lifecycle work done on a timer.
type Sweeper interface {
	SunsetSweep(ctx context.Context) ([]string, error)
	ActivationSweep(ctx context.Context) (int, error)
}

type Config struct {
	SunsetInterval     time.Duration
	ActivationInterval time.Duration
}

// Scheduler wraps a gocron scheduler. Each job runs in singleton mode so
// a slow sweep is never overlapped by the next tick.
type Scheduler struct {
	mu     sync.Mutex
	sched  gocron.Scheduler
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(logger *slog.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{sched: sched, logger: logger, ctx: ctx, cancel: cancel}, nil
}

// Every registers fn to run at each interval. Errors are logged.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(ctx context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			start := time.Now()
			if err := fn(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("job failed", "job", name, "error", err)
				return
			}
			s.logger.Debug("job finished", "job", name, "duration", time.Since(start))
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}
	return nil
}

// AddSweeps registers the sunset and activation sweeps.
func (s *Scheduler) AddSweeps(sw Sweeper, cfg Config) error {
	if err := s.Every("sunset-sweep", cfg.SunsetInterval, func(ctx context.Context) error {
		communities, err := sw.SunsetSweep(ctx)
		if err != nil {
			return err
		}
		if len(communities) > 0 {
			s.logger.Info("rulesets sunset", "communities", len(communities))
		}
		return nil
	}); err != nil {
		return err
	}
	return s.Every("activation-sweep", cfg.ActivationInterval, func(ctx context.Context) error {
		n, err := sw.ActivationSweep(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.Info("passed proposals activated", "count", n)
		}
		return nil
	})
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}

// JobCount reports the number of registered jobs.
func (s *Scheduler) JobCount() int {
	return len(s.sched.Jobs())
}

// RunOnce runs both sweeps immediately in order: sunset first so a passed
// proposal can replace a ruleset that just expired.
func RunOnce(ctx context.Context, sw Sweeper) (sunset []string, activated int, err error) {
	sunset, err = sw.SunsetSweep(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("sunset sweep: %w", err)
	}
	activated, err = sw.ActivationSweep(ctx)
	if err != nil {
		return sunset, 0, fmt.Errorf("activation sweep: %w", err)
	}
	return sunset, activated, nil
}
