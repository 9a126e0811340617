package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/lucratix100/cmga-invoice/internal/jobs"
	"github.com/lucratix100/cmga-invoice/internal/repository"
)

// Scheduler enqueues the recurring recovery batches. Both batches are
// idempotent, so a missed or doubled tick is harmless.
type Scheduler struct {
	queries  repository.Querier
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler enqueueing the batches every interval
// (typically 24h).
func NewScheduler(queries repository.Querier, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval == 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{queries: queries, interval: interval, logger: logger}
}

// Start enqueues one round immediately, then on every tick until the context
// is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.enqueueRound(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.enqueueRound(ctx)
		}
	}
}

func (s *Scheduler) enqueueRound(ctx context.Context) {
	now := time.Now()
	if err := jobs.EnqueueRecomputeUrgency(ctx, s.queries, now); err != nil {
		s.logger.Error("failed to enqueue urgency recomputation", "error", err)
	}
	if err := jobs.EnqueueReturnCorrection(ctx, s.queries, now); err != nil {
		s.logger.Error("failed to enqueue return correction", "error", err)
	}
}
