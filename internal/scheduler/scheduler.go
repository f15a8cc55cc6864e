// Package scheduler drives recurring update runs from a cron expression.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jmylchreest/checkarr/internal/config"
	"github.com/jmylchreest/checkarr/internal/observability"
)

// cronParser accepts 6-field expressions with a seconds column.
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// RunFunc is one scheduled update pass.
type RunFunc func(ctx context.Context)

// Scheduler fires a run function on a cron schedule. Overlapping runs are
// skipped: a tick that lands while a pass is still active is dropped.
type Scheduler struct {
	mu sync.Mutex

	cfg    config.DaemonConfig
	run    RunFunc
	logger *slog.Logger

	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// New creates a scheduler for the given run function.
func New(cfg config.DaemonConfig, run RunFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:    cfg,
		run:    run,
		logger: observability.WithComponent(logger, "scheduler"),
	}
}

// ValidateCron validates a 6-field cron expression.
func ValidateCron(expr string) error {
	_, err := cronParser.Parse(expr)
	return err
}

// NextRun returns the next firing time of the configured expression.
func (s *Scheduler) NextRun() (time.Time, error) {
	schedule, err := cronParser.Parse(s.cfg.Cron)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule.Next(time.Now()), nil
}

// Start validates the schedule and begins firing. With run_on_start set, an
// immediate pass is launched before the first cron tick.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return fmt.Errorf("scheduler already started")
	}
	if err := ValidateCron(s.cfg.Cron); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", s.cfg.Cron, err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.cron = cron.New(cron.WithParser(cronParser))
	if _, err := s.cron.AddFunc(s.cfg.Cron, s.firePass); err != nil {
		return fmt.Errorf("registering cron job: %w", err)
	}

	if s.cfg.RunOnStart {
		s.firePass()
	}
	s.cron.Start()

	s.logger.Info("scheduler started",
		slog.String("cron", s.cfg.Cron),
		slog.Bool("run_on_start", s.cfg.RunOnStart))
	return nil
}

// Stop halts the cron loop and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.ctx = nil
	s.cancel = nil
	s.cron = nil
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// firePass launches one pass on a worker goroutine unless one is already
// active.
func (s *Scheduler) firePass() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous pass still active, skipping this tick")
		return
	}

	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		start := time.Now()
		s.logger.Info("scheduled pass starting")
		s.run(ctx)
		s.logger.Info("scheduled pass finished",
			slog.Duration("duration", time.Since(start)))
	}()
}
