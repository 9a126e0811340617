package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lucratix100/cmga-invoice/internal/repository"
)

// Job type constants for the recovery batches.
const (
	JobTypeRecomputeUrgency = "recovery:recompute_urgency"
	JobTypeReturnCorrection = "invoice:return_correction"
)

// RecomputeUrgencyPayload is the payload for the urgency batch.
// Empty: the batch processes every unpaid invoice.
type RecomputeUrgencyPayload struct{}

// ReturnCorrectionPayload is the payload for the return-correction batch.
// Empty: the batch scans every return-marked invoice.
type ReturnCorrectionPayload struct{}

// EnqueueRecomputeUrgency enqueues the urgency recomputation batch.
// Typically scheduled nightly; safe to enqueue on demand as well since the
// batch is idempotent.
func EnqueueRecomputeUrgency(ctx context.Context, q repository.Querier, scheduledAt time.Time) error {
	payload, err := json.Marshal(RecomputeUrgencyPayload{})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = q.EnqueueJob(ctx, repository.EnqueueJobParams{
		JobType:        JobTypeRecomputeUrgency,
		Queue:          "recovery",
		Payload:        payload,
		Priority:       50, // can run in off-peak hours
		MaxRetries:     3,
		TimeoutSeconds: 300,
		ScheduledAt:    scheduledAt,
	})
	return err
}

// EnqueueReturnCorrection enqueues the return-correction batch.
func EnqueueReturnCorrection(ctx context.Context, q repository.Querier, scheduledAt time.Time) error {
	payload, err := json.Marshal(ReturnCorrectionPayload{})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = q.EnqueueJob(ctx, repository.EnqueueJobParams{
		JobType:        JobTypeReturnCorrection,
		Queue:          "recovery",
		Payload:        payload,
		Priority:       60,
		MaxRetries:     3,
		TimeoutSeconds: 120,
		ScheduledAt:    scheduledAt,
	})
	return err
}

// IsRecoveryJob checks if a job type belongs to the recovery batches.
func IsRecoveryJob(jobType string) bool {
	switch jobType {
	case JobTypeRecomputeUrgency, JobTypeReturnCorrection:
		return true
	}
	return false
}
