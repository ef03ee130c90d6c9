// Package issuance turns uploaded customer lists into coupons. The
// Orchestrator runs one job end to end; the Dispatcher feeds job ids to a
// bounded pool of workers.
package issuance

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"coupon-admin/internal/batch"
	"coupon-admin/internal/ingest"
	"coupon-admin/internal/lock"
	"coupon-admin/internal/metrics"
	"coupon-admin/internal/model"
	"coupon-admin/internal/repository"
	"coupon-admin/internal/storage"

	"github.com/rs/zerolog"
)

// ctxCheckInterval is how many rows are parsed between cancellation checks.
const ctxCheckInterval = 10_000

// finalizeTimeout bounds the write of a terminal status after the run context ended.
const finalizeTimeout = 10 * time.Second

// ErrAlreadyRunning is returned when another runner holds the job's lock.
var ErrAlreadyRunning = model.ErrConflict.WithMessage("issuance job is already running")

// Options tunes a run.
type Options struct {
	// BatchSize is the number of coupons persisted per transaction.
	BatchSize int
	// CouponValidity is added to the issue time to get the expiry.
	CouponValidity time.Duration
	// RunTimeout bounds one run; zero disables it.
	RunTimeout time.Duration
}

// Orchestrator owns the job state machine and drives validation, parsing and
// chunked persistence for one job at a time per call.
type Orchestrator struct {
	jobs    repository.JobRepository
	coupons repository.CouponRepository
	storage storage.Storage
	locker  lock.Locker
	opts    Options
	now     func() time.Time
	logger  zerolog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	jobs repository.JobRepository,
	coupons repository.CouponRepository,
	store storage.Storage,
	locker lock.Locker,
	opts Options,
	logger zerolog.Logger,
) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = batch.DefaultSize
	}
	if opts.CouponValidity <= 0 {
		opts.CouponValidity = model.DefaultCouponValidity
	}
	return &Orchestrator{
		jobs:    jobs,
		coupons: coupons,
		storage: store,
		locker:  locker,
		opts:    opts,
		now:     time.Now,
		logger:  logger.With().Str("component", "issuance-orchestrator").Logger(),
	}
}

// Run processes job jobID from UPLOADED to COMPLETED or FAILED.
//
// Errors before the job is started (unknown job, lock held, job not in
// UPLOADED) are returned without touching the job. Once started, any failure
// is recorded on the job as FAILED with the progress made so far and then
// returned. Chunks committed before a failure are kept.
func (o *Orchestrator) Run(ctx context.Context, jobID int64) error {
	if o.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.RunTimeout)
		defer cancel()
	}

	logger := o.logger.With().Int64("job_id", jobID).Logger()

	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	unlock, err := o.locker.TryLock(ctx, lockKey(jobID))
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			logger.Warn().Msg("issuance job is already running elsewhere")
			return ErrAlreadyRunning.WithMessage(fmt.Sprintf("issuance job %d is already running", jobID))
		}
		return err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Msg("failed to release job lock")
		}
	}()

	if err := job.Start(); err != nil {
		logger.Warn().Err(err).Str("status", string(job.Status)).Msg("issuance job cannot be started")
		return err
	}
	if err := o.jobs.Update(ctx, job, model.JobStatusUploaded); err != nil {
		logger.Error().Err(err).Msg("failed to mark issuance job pending")
		return err
	}

	logger.Info().
		Str("file", job.OriginalFileName).
		Str("storage_path", job.StoragePath).
		Msg("issuance job started")

	started := o.now()
	progress, runErr := o.process(ctx, job, logger)
	if runErr != nil {
		return o.fail(ctx, job, progress, runErr, started, logger)
	}
	return o.complete(ctx, job, progress, started, logger)
}

// process streams the job's file into coupon chunks. It recovers panics so
// the caller can still record the failure.
func (o *Orchestrator) process(ctx context.Context, job *model.IssuanceJob, logger zerolog.Logger) (progress model.Progress, err error) {
	acc := batch.New(o.opts.BatchSize, func(ctx context.Context, chunk []model.Coupon) error {
		err := o.coupons.InsertBatch(ctx, chunk)
		metrics.RecordChunk(len(chunk), err)
		return err
	})

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("panic while processing issuance job")
			err = model.ErrUnexpected.WithMessage(fmt.Sprintf("panic: %v", r))
		}
		progress.Committed = acc.Flushed()
	}()

	format, err := ingest.DetectFormat(job.OriginalFileName)
	if err != nil {
		return progress, err
	}

	rc, err := o.storage.Open(ctx, job.StoragePath)
	if err != nil {
		return progress, err
	}
	stream, err := storage.Rewindable(rc)
	if err != nil {
		return progress, err
	}
	defer stream.Close()

	if err := ingest.Validate(stream, format); err != nil {
		return progress, err
	}

	reader, err := ingest.NewReader(stream, format)
	if err != nil {
		return progress, err
	}
	defer reader.Close()

	for reader.Next() {
		// Check context cancellation periodically
		if progress.Parsed%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return progress, fmt.Errorf("issuance interrupted after %d rows: %w", progress.Parsed, err)
			}
		}

		progress.Parsed++
		coupon := model.NewCoupon(job.ID, reader.CustomerID(), o.now(), o.opts.CouponValidity)
		if err := acc.Add(ctx, coupon); err != nil {
			return progress, err
		}
	}
	if err := reader.Err(); err != nil {
		return progress, err
	}

	if err := acc.Flush(ctx); err != nil {
		return progress, err
	}

	logger.Debug().
		Int("parsed", progress.Parsed).
		Int("chunks", acc.Chunks()).
		Msg("issuance job file processed")

	return progress, nil
}

func (o *Orchestrator) complete(ctx context.Context, job *model.IssuanceJob, progress model.Progress, started time.Time, logger zerolog.Logger) error {
	if err := job.Complete(o.now(), progress.Parsed); err != nil {
		return err
	}

	ctx, cancel := finalizeContext(ctx)
	defer cancel()

	if err := o.jobs.Update(ctx, job, model.JobStatusPending); err != nil {
		logger.Error().Err(err).Msg("failed to mark issuance job completed")
		return fmt.Errorf("failed to mark job %d completed: %w", job.ID, err)
	}

	elapsed := o.now().Sub(started)
	metrics.RecordJobRun(string(model.JobStatusCompleted), elapsed.Seconds())

	logger.Info().
		Int("total", job.TotalCount).
		Dur("elapsed", elapsed).
		Msg("issuance job completed")

	return nil
}

func (o *Orchestrator) fail(ctx context.Context, job *model.IssuanceJob, progress model.Progress, cause error, started time.Time, logger zerolog.Logger) error {
	reason := fmt.Sprintf("%s: %s", model.ErrorCode(cause), cause.Error())
	if err := job.Fail(o.now(), reason, progress); err != nil {
		return errors.Join(cause, err)
	}

	ctx, cancel := finalizeContext(ctx)
	defer cancel()

	if err := o.jobs.Update(ctx, job, model.JobStatusPending); err != nil {
		logger.Error().Err(err).AnErr("cause", cause).Msg("failed to record issuance job failure")
		return errors.Join(cause, fmt.Errorf("failed to mark job %d failed: %w", job.ID, err))
	}

	elapsed := o.now().Sub(started)
	metrics.RecordJobRun(string(model.JobStatusFailed), elapsed.Seconds())

	logger.Error().
		Err(cause).
		Int("total", job.TotalCount).
		Int("success", job.SuccessCount).
		Int("failed", job.FailCount).
		Dur("elapsed", elapsed).
		Msg("issuance job failed")

	return cause
}

// finalizeContext detaches from the run's cancellation so a timed-out run can
// still record its terminal status.
func finalizeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
}

func lockKey(jobID int64) string {
	return fmt.Sprintf("issuance-job:%d", jobID)
}
