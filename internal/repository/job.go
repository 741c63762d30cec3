package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/muktar11/ledgersafe/internal/domain"
)

type jobRepo struct{}

// NewJobRepository returns a pgx-backed JobRepository.
func NewJobRepository() JobRepository {
	return &jobRepo{}
}

const jobColumns = `id, job_type, idempotency_key, attempt, status, last_error, next_eligible_at, created_at, updated_at`

func (r *jobRepo) Upsert(ctx context.Context, db DBTX, job domain.PayoutJob) error {
	_, err := db.Exec(ctx, `
		INSERT INTO payout_jobs (job_type, idempotency_key, attempt, status, last_error, next_eligible_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (job_type, idempotency_key) DO UPDATE SET
			attempt = EXCLUDED.attempt,
			status = EXCLUDED.status,
			last_error = EXCLUDED.last_error,
			next_eligible_at = EXCLUDED.next_eligible_at,
			updated_at = now()`,
		job.JobType, job.IdempotencyKey, job.Attempt, string(job.Status), job.LastError, job.NextEligibleAt)
	if err != nil {
		return fmt.Errorf("upsert payout job: %w", err)
	}
	return nil
}

func (r *jobRepo) Get(ctx context.Context, db DBTX, jobType, idempotencyKey string) (*domain.PayoutJob, error) {
	row := db.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM payout_jobs WHERE job_type = $1 AND idempotency_key = $2`,
		jobType, idempotencyKey)

	var j domain.PayoutJob
	var status string
	if err := row.Scan(&j.ID, &j.JobType, &j.IdempotencyKey, &j.Attempt, &status, &j.LastError, &j.NextEligibleAt, &j.CreatedAt, &j.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payout job: %w", err)
	}
	j.Status = domain.JobStatus(status)
	return &j, nil
}
