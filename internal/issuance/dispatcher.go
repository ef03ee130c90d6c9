package issuance

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"coupon-admin/internal/metrics"
	"coupon-admin/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Submission errors.
var (
	ErrQueueFull     = errors.New("issuance queue is full")
	ErrAlreadyQueued = errors.New("issuance job is already queued or running")
	ErrStopped       = errors.New("issuance dispatcher is stopped")
)

// Runner processes one job.
type Runner interface {
	Run(ctx context.Context, jobID int64) error
}

// JobLister finds jobs by status.
type JobLister interface {
	ListByStatus(ctx context.Context, status model.JobStatus) ([]model.IssuanceJob, error)
}

// Dispatcher runs submitted jobs on a fixed number of workers. A job id is
// accepted once until its run finishes.
type Dispatcher struct {
	runner  Runner
	workers int
	queue   chan int64
	logger  zerolog.Logger

	mu       sync.Mutex
	inflight map[int64]struct{}
	stopped  bool

	group  errgroup.Group
	cancel context.CancelFunc
}

// NewDispatcher creates a Dispatcher with workers goroutines and room for
// queueSize waiting jobs. Call Start before submitting.
func NewDispatcher(runner Runner, workers, queueSize int, logger zerolog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		runner:   runner,
		workers:  workers,
		queue:    make(chan int64, queueSize),
		inflight: make(map[int64]struct{}),
		logger:   logger.With().Str("component", "issuance-dispatcher").Logger(),
	}
}

// Start launches the workers. Runs use a context derived from ctx that is
// cancelled only if Shutdown gives up waiting.
func (d *Dispatcher) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel

	for i := 0; i < d.workers; i++ {
		worker := i
		d.group.Go(func() error {
			for jobID := range d.queue {
				d.execute(runCtx, worker, jobID)
			}
			return nil
		})
	}

	d.logger.Info().
		Int("workers", d.workers).
		Int("queue_size", cap(d.queue)).
		Msg("issuance dispatcher started")
}

// Submit queues jobID without blocking.
func (d *Dispatcher) Submit(jobID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		metrics.RecordRejection("stopped")
		return ErrStopped
	}
	if _, ok := d.inflight[jobID]; ok {
		metrics.RecordRejection("already_queued")
		return ErrAlreadyQueued
	}

	select {
	case d.queue <- jobID:
		d.inflight[jobID] = struct{}{}
		metrics.QueueDepth.Inc()
		d.logger.Debug().Int64("job_id", jobID).Msg("issuance job queued")
		return nil
	default:
		metrics.RecordRejection("queue_full")
		return ErrQueueFull
	}
}

// Resume submits every job still in UPLOADED, oldest first, and returns how
// many were queued. Jobs that do not fit in the queue stay UPLOADED.
func (d *Dispatcher) Resume(ctx context.Context, jobs JobLister) (int, error) {
	uploaded, err := jobs.ListByStatus(ctx, model.JobStatusUploaded)
	if err != nil {
		return 0, fmt.Errorf("failed to list uploaded jobs: %w", err)
	}

	queued := 0
	for _, job := range uploaded {
		if err := d.Submit(job.ID); err != nil {
			if errors.Is(err, ErrAlreadyQueued) {
				continue
			}
			d.logger.Warn().
				Err(err).
				Int("queued", queued).
				Int("remaining", len(uploaded)-queued).
				Msg("stopped resuming uploaded jobs")
			return queued, nil
		}
		queued++
	}

	if queued > 0 {
		d.logger.Info().Int("queued", queued).Msg("resumed uploaded issuance jobs")
	}
	return queued, nil
}

// Shutdown stops accepting jobs and waits for running jobs to finish. Jobs
// still queued are skipped and stay UPLOADED. If ctx ends first, running jobs
// are cancelled and Shutdown waits for them to record their failure.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = d.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info().Msg("issuance dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.logger.Warn().Msg("cancelling running issuance jobs")
		if d.cancel != nil {
			d.cancel()
		}
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) execute(ctx context.Context, worker int, jobID int64) {
	metrics.QueueDepth.Dec()
	defer d.release(jobID)

	logger := d.logger.With().Int("worker", worker).Int64("job_id", jobID).Logger()

	if d.isStopped() {
		logger.Info().Msg("skipping queued issuance job during shutdown")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("panic in issuance worker")
		}
	}()

	if err := d.runner.Run(ctx, jobID); err != nil {
		logger.Debug().Err(err).Msg("issuance job run returned an error")
	}
}

func (d *Dispatcher) release(jobID int64) {
	d.mu.Lock()
	delete(d.inflight, jobID)
	d.mu.Unlock()
}

func (d *Dispatcher) isStopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}
