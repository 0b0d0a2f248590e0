package scheduler

import (
	"context"
	"log/slog"
	"time"

	"car_resale/internal/domain"
)

// Runner performs one full pass.
type Runner interface {
	Run(ctx context.Context) (*domain.RunSummary, error)
}

type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(runner Runner, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// Start runs immediately and then on every tick until ctx is done. A run
// that overlaps a tick delays the next run rather than stacking.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "run_timeout", s.runTimeout)

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs a single pass bounded by the run timeout and logs its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) *domain.RunSummary {
	runCtx := ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	summary, err := s.runner.Run(runCtx)
	if err != nil {
		s.logger.Error("run failed", "error", err)
	}
	if summary == nil {
		return nil
	}
	for _, c := range summary.Crawls {
		s.logger.Info("site summary",
			"site", c.Site,
			"mode", c.Mode,
			"added", c.Added,
			"halt_reason", c.HaltReason,
		)
	}
	if summary.Reconcile != nil {
		s.logger.Info("reconcile summary",
			"sold", summary.Reconcile.Sold,
			"unrouted", summary.Reconcile.Unrouted,
		)
	}
	return summary
}
