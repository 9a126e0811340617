package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Job statuses.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Job is one queued background job.
type Job struct {
	ID             int64
	JobType        string
	Queue          string
	Payload        []byte
	Status         string
	Priority       int32
	RetryCount     int32
	MaxRetries     int32
	TimeoutSeconds int32
	ScheduledAt    time.Time
	StartedAt      pgtype.Timestamptz
	FinishedAt     pgtype.Timestamptz
	ErrorMessage   pgtype.Text
	WorkerID       pgtype.Text
	CreatedAt      time.Time
}

// EnqueueJobParams schedules a background job.
type EnqueueJobParams struct {
	JobType        string
	Queue          string
	Payload        []byte
	Priority       int32
	MaxRetries     int32
	TimeoutSeconds int32
	ScheduledAt    time.Time
}

// ClaimNextJobParams claims work for one worker.
type ClaimNextJobParams struct {
	WorkerID string
	Queue    string
}

// FailJobParams records a job failure. The job returns to pending while
// retries remain.
type FailJobParams struct {
	ID           int64
	ErrorMessage string
}

const jobColumns = `id, job_type, queue, payload, status, priority, retry_count,
	max_retries, timeout_seconds, scheduled_at, started_at, finished_at,
	error_message, worker_id, created_at`

func scanJob(row invoiceScanner) (Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.JobType, &j.Queue, &j.Payload, &j.Status, &j.Priority,
		&j.RetryCount, &j.MaxRetries, &j.TimeoutSeconds, &j.ScheduledAt,
		&j.StartedAt, &j.FinishedAt, &j.ErrorMessage, &j.WorkerID, &j.CreatedAt,
	)
	return j, err
}

// EnqueueJob inserts a pending job.
func (q *Queries) EnqueueJob(ctx context.Context, params EnqueueJobParams) (Job, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO jobs (job_type, queue, payload, status, priority, max_retries,
			timeout_seconds, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+jobColumns,
		params.JobType, params.Queue, params.Payload, JobPending, params.Priority,
		params.MaxRetries, params.TimeoutSeconds, params.ScheduledAt,
	)
	return scanJob(row)
}

// ClaimNextJob atomically claims the highest-priority due job. Row locking
// with SKIP LOCKED keeps concurrent workers from claiming the same job.
func (q *Queries) ClaimNextJob(ctx context.Context, params ClaimNextJobParams) (Job, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE jobs SET status = $1, worker_id = $2, started_at = now()
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = $3
			  AND scheduled_at <= now()
			  AND ($4 = '' OR queue = $4)
			ORDER BY priority DESC, scheduled_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+jobColumns,
		JobRunning, params.WorkerID, JobPending, params.Queue,
	)
	return scanJob(row)
}

// CompleteJob marks a job done.
func (q *Queries) CompleteJob(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx,
		`UPDATE jobs SET status = $2, finished_at = now() WHERE id = $1`,
		id, JobCompleted)
	return err
}

// FailJob records a failure, requeueing while retries remain.
func (q *Queries) FailJob(ctx context.Context, params FailJobParams) (Job, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE jobs SET
			retry_count = retry_count + 1,
			status = CASE WHEN retry_count + 1 >= max_retries THEN $2 ELSE $3 END,
			finished_at = CASE WHEN retry_count + 1 >= max_retries THEN now() ELSE NULL END,
			error_message = $4
		WHERE id = $1
		RETURNING `+jobColumns,
		params.ID, JobFailed, JobPending, params.ErrorMessage,
	)
	return scanJob(row)
}
