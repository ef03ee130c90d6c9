package repository

import (
	"context"

	"coupon-admin/internal/model"
)

// JobRepository defines the interface for issuance job data access operations.
type JobRepository interface {
	// Create inserts a new job and sets its ID.
	Create(ctx context.Context, job *model.IssuanceJob) error

	// GetByID retrieves a job by its ID. Returns model.ErrJobNotFound if absent.
	GetByID(ctx context.Context, id int64) (*model.IssuanceJob, error)

	// Update persists the job's status, counters and completion fields, provided
	// the stored status still equals from. A concurrent change yields
	// model.ErrInvalidTransition.
	Update(ctx context.Context, job *model.IssuanceJob, from model.JobStatus) error

	// List retrieves all jobs, newest first.
	List(ctx context.Context) ([]model.IssuanceJob, error)

	// ListByStatus retrieves jobs in the given status, oldest first.
	ListByStatus(ctx context.Context, status model.JobStatus) ([]model.IssuanceJob, error)
}

// CouponRepository defines the interface for coupon data access operations.
type CouponRepository interface {
	// InsertBatch persists all coupons in one transaction, or none of them.
	InsertBatch(ctx context.Context, coupons []model.Coupon) error

	// CountByJob returns the number of coupons issued for a job.
	CountByJob(ctx context.Context, jobID int64) (int, error)
}

// OperatorRepository defines the interface for operator data access operations.
type OperatorRepository interface {
	// GetByName retrieves an operator by name. Returns model.ErrOperatorNotFound if absent.
	GetByName(ctx context.Context, name string) (*model.Operator, error)

	// Create inserts a new operator. Returns model.ErrConflict if the name is taken.
	Create(ctx context.Context, name string) (*model.Operator, error)
}
