// Package scheduler triggers subscription renewal on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mattjoyce/livegate/internal/metrics"
	"github.com/mattjoyce/livegate/internal/websub"
)

// runTimeout bounds one renewal run, covering all backoff waits.
const runTimeout = 5 * time.Minute

// Renewer performs one subscription renewal.
type Renewer interface {
	Run(ctx context.Context) (websub.RenewResult, error)
}

// Scheduler runs the renewer on a cron expression. Each run is an
// independent invocation; overlapping triggers are skipped since a renewal
// in progress makes a second one pointless.
type Scheduler struct {
	renewer Renewer
	sink    metrics.Sink
	logger  *slog.Logger
	cron    *cron.Cron
	running atomic.Bool
}

// New creates a Scheduler for the given cron expression (standard 5-field
// syntax).
func New(schedule string, renewer Renewer, sink metrics.Sink, logger *slog.Logger) (*Scheduler, error) {
	if sink == nil {
		sink = metrics.Noop{}
	}
	s := &Scheduler{
		renewer: renewer,
		sink:    sink,
		logger:  logger.With("component", "scheduler"),
		cron:    cron.New(),
	}

	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return nil, fmt.Errorf("parse renew schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the cron loop (non-blocking).
func (s *Scheduler) Start() {
	s.logger.Info("starting renewal scheduler")
	s.cron.Start()
}

// Stop stops the cron loop and waits for a running renewal to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping renewal scheduler")
	<-s.cron.Stop().Done()
	s.logger.Info("renewal scheduler stopped")
}

// RunNow triggers a renewal outside the schedule (startup registration).
func (s *Scheduler) RunNow() {
	s.runOnce()
}

func (s *Scheduler) runOnce() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("skipping renewal, previous run still in progress")
		return
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	result, err := s.renewer.Run(ctx)
	if err != nil {
		s.sink.RenewalOutcome(metrics.RenewalFailed)
		s.logger.Error("subscription renewal failed", "error", err)
		return
	}

	s.sink.RenewalOutcome(metrics.RenewalSuccess)
	s.logger.Info("subscription renewal succeeded",
		"attempts", result.Attempts,
		"renewed_at", result.RenewedAt.Format(time.RFC3339),
	)
}
