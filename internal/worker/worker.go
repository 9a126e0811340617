package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lucratix100/cmga-invoice/internal/domain"
	"github.com/lucratix100/cmga-invoice/internal/jobs"
	"github.com/lucratix100/cmga-invoice/internal/repository"
)

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// PollInterval is how often to check for new jobs
	PollInterval time.Duration

	// MaxConcurrency is the maximum number of jobs to process concurrently
	MaxConcurrency int

	// Queue name to process (empty string = all queues)
	Queue string
}

// Worker processes background jobs claimed from the Postgres queue.
// Overlapping runs of the same batch converge to the same state, so
// at-least-once delivery is acceptable.
type Worker struct {
	config         Config
	queries        repository.Querier
	invoiceService domain.InvoiceService
	logger         *slog.Logger
}

// NewWorker creates a new background job worker
func NewWorker(
	queries repository.Querier,
	invoiceService domain.InvoiceService,
	config Config,
	logger *slog.Logger,
) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 2
	}

	return &Worker{
		config:         config,
		queries:        queries,
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// Start begins processing jobs until the context is cancelled
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"worker_id", w.config.WorkerID,
		"queue", w.config.Queue,
		"poll_interval", w.config.PollInterval,
		"max_concurrency", w.config.MaxConcurrency,
	)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Semaphore for concurrency control
	sem := make(chan struct{}, w.config.MaxConcurrency)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down", "worker_id", w.config.WorkerID)
			return ctx.Err()

		case <-ticker.C:
			select {
			case sem <- struct{}{}:
				go func() {
					defer func() { <-sem }()
					w.claimAndProcess(ctx)
				}()
			default:
				// At max concurrency, skip this poll
			}
		}
	}
}

// claimAndProcess claims and processes a single job
func (w *Worker) claimAndProcess(ctx context.Context) {
	job, err := w.queries.ClaimNextJob(ctx, repository.ClaimNextJobParams{
		WorkerID: w.config.WorkerID,
		Queue:    w.config.Queue,
	})
	if err != nil {
		// No job available or database error
		return
	}

	w.logger.Info("processing job",
		"job_id", job.ID,
		"job_type", job.JobType,
		"retry_count", job.RetryCount,
	)

	err = w.processJob(ctx, &job)
	if err != nil {
		w.logger.Error("job failed",
			"job_id", job.ID,
			"job_type", job.JobType,
			"error", err,
		)
		_, _ = w.queries.FailJob(ctx, repository.FailJobParams{
			ID:           job.ID,
			ErrorMessage: err.Error(),
		})
		return
	}

	w.logger.Info("job completed",
		"job_id", job.ID,
		"job_type", job.JobType,
	)

	_ = w.queries.CompleteJob(ctx, job.ID)
}

// processJob processes a single job
func (w *Worker) processJob(ctx context.Context, job *repository.Job) error {
	jobCtx, cancel := context.WithTimeout(ctx, time.Duration(job.TimeoutSeconds)*time.Second)
	defer cancel()

	if jobs.IsRecoveryJob(job.JobType) {
		return w.processRecoveryJob(jobCtx, job)
	}

	return fmt.Errorf("unknown job type: %s", job.JobType)
}

// processRecoveryJob runs one of the recovery batches
func (w *Worker) processRecoveryJob(ctx context.Context, job *repository.Job) error {
	switch job.JobType {
	case jobs.JobTypeRecomputeUrgency:
		report, err := w.invoiceService.RunUrgencyRecomputation(ctx)
		if err != nil {
			return fmt.Errorf("urgency recomputation failed: %w", err)
		}
		w.logger.Info("urgency recomputation finished",
			"scanned", report.Scanned,
			"updated", report.Updated,
			"skipped", report.Skipped,
			"errors", len(report.Errors),
		)
		for _, e := range report.Errors {
			w.logger.Warn("urgency recomputation item failed",
				"invoice_id", e.InvoiceID, "reason", e.Reason)
		}
		return nil

	case jobs.JobTypeReturnCorrection:
		report, err := w.invoiceService.RunReturnCorrection(ctx)
		if err != nil {
			return fmt.Errorf("return correction failed: %w", err)
		}
		w.logger.Info("return correction finished",
			"scanned", report.Scanned,
			"corrected", len(report.Corrected),
			"errors", len(report.Errors),
		)
		return nil

	default:
		return fmt.Errorf("unknown recovery job type: %s", job.JobType)
	}
}
