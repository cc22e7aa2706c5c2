package sweep

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

// Scheduler runs a Runner on a cron spec. Overlapping ticks are skipped.
type Scheduler struct {
	cron    *cron.Cron
	runner  *Runner
	timeout time.Duration
	logger  *logging.Logger
	running atomic.Bool
}

func NewScheduler(runner *Runner, spec string, timeout time.Duration, logger *logging.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("sweep: runner required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	s := &Scheduler{cron: cron.New(), runner: runner, timeout: timeout, logger: logger}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("outreach sweep scheduler started", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop halts scheduling. The returned context is done once a running sweep finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) tick() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("outreach sweep still running; skipping tick")
		return
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.Error("outreach sweep failed", "error", err)
	}
}
