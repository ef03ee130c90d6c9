package repository

import (
	"context"
	"errors"
	"fmt"

	"coupon-admin/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const jobColumns = `id, original_file_name, storage_path, status, operator_id, created_at,
	completed_at, total_count, success_count, fail_count, failure_reason`

// jobRepository implements the JobRepository interface using PostgreSQL.
type jobRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewJobRepository creates a new PostgreSQL-backed job repository.
func NewJobRepository(pool *pgxpool.Pool, logger zerolog.Logger) JobRepository {
	return &jobRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "job").Logger(),
	}
}

// Create inserts a new job and sets its ID.
func (r *jobRepository) Create(ctx context.Context, job *model.IssuanceJob) error {
	query := `
		INSERT INTO issuance_jobs (original_file_name, storage_path, status, operator_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		job.OriginalFileName,
		job.StoragePath,
		job.Status,
		job.OperatorID,
		job.CreatedAt,
	).Scan(&job.ID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("storage_path", job.StoragePath).
			Msg("failed to create job")
		if mapped := mapPgError(err, "job for "+job.StoragePath); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to create job: %w", err)
	}

	r.logger.Debug().
		Int64("job_id", job.ID).
		Msg("job created successfully")

	return nil
}

// GetByID retrieves a job by its ID.
func (r *jobRepository) GetByID(ctx context.Context, id int64) (*model.IssuanceJob, error) {
	query := `SELECT ` + jobColumns + ` FROM issuance_jobs WHERE id = $1`

	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("job_id", id).Msg("job not found")
			return nil, model.ErrJobNotFound.WithMessage(fmt.Sprintf("issuance job %d not found", id))
		}
		r.logger.Error().Err(err).Int64("job_id", id).Msg("failed to query job")
		return nil, fmt.Errorf("failed to query job: %w", err)
	}

	return job, nil
}

// Update persists a transition made on job, guarded by its previous status.
func (r *jobRepository) Update(ctx context.Context, job *model.IssuanceJob, from model.JobStatus) error {
	query := `
		UPDATE issuance_jobs
		SET status = $2, completed_at = $3, total_count = $4, success_count = $5,
			fail_count = $6, failure_reason = $7
		WHERE id = $1 AND status = $8
	`

	tag, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Status,
		job.CompletedAt,
		job.TotalCount,
		job.SuccessCount,
		job.FailCount,
		job.FailureReason,
		from,
	)
	if err != nil {
		r.logger.Error().Err(err).Int64("job_id", job.ID).Msg("failed to update job")
		return fmt.Errorf("failed to update job: %w", err)
	}

	if tag.RowsAffected() == 0 {
		current, err := r.GetByID(ctx, job.ID)
		if err != nil {
			return err
		}
		r.logger.Warn().
			Int64("job_id", job.ID).
			Str("expected_status", string(from)).
			Str("actual_status", string(current.Status)).
			Msg("job status changed concurrently")
		return model.ErrInvalidTransition.WithMessage(fmt.Sprintf(
			"job %d is %s, expected %s", job.ID, current.Status, from,
		))
	}

	r.logger.Debug().
		Int64("job_id", job.ID).
		Str("status", string(job.Status)).
		Msg("job updated successfully")

	return nil
}

// List retrieves all jobs, newest first.
func (r *jobRepository) List(ctx context.Context) ([]model.IssuanceJob, error) {
	query := `SELECT ` + jobColumns + ` FROM issuance_jobs ORDER BY id DESC`
	return r.query(ctx, query)
}

// ListByStatus retrieves jobs in status, oldest first.
func (r *jobRepository) ListByStatus(ctx context.Context, status model.JobStatus) ([]model.IssuanceJob, error) {
	query := `SELECT ` + jobColumns + ` FROM issuance_jobs WHERE status = $1 ORDER BY id ASC`
	return r.query(ctx, query, status)
}

func (r *jobRepository) query(ctx context.Context, query string, args ...any) ([]model.IssuanceJob, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query jobs")
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	jobs := []model.IssuanceJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan job row")
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating job rows")
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}

	return jobs, nil
}

func scanJob(row pgx.Row) (*model.IssuanceJob, error) {
	var job model.IssuanceJob
	err := row.Scan(
		&job.ID,
		&job.OriginalFileName,
		&job.StoragePath,
		&job.Status,
		&job.OperatorID,
		&job.CreatedAt,
		&job.CompletedAt,
		&job.TotalCount,
		&job.SuccessCount,
		&job.FailCount,
		&job.FailureReason,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
