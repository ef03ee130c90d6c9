package model

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of an issuance job.
type JobStatus string

const (
	// JobStatusUploaded is set when the job is registered for an uploaded file.
	JobStatusUploaded JobStatus = "UPLOADED"
	// JobStatusPending means a run has started processing the file.
	JobStatusPending JobStatus = "PENDING"
	// JobStatusCompleted is terminal: every parsed row was issued.
	JobStatusCompleted JobStatus = "COMPLETED"
	// JobStatusFailed is terminal: the run stopped on an error.
	JobStatusFailed JobStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusUploaded, JobStatusPending, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// IssuanceJob tracks one uploaded customer list from registration to a terminal status.
// Status, counters and timestamps change only through Start, Complete and Fail.
type IssuanceJob struct {
	ID               int64      `json:"id" db:"id"`
	OriginalFileName string     `json:"originalFileName" db:"original_file_name"`
	StoragePath      string     `json:"savedFilePath" db:"storage_path"`
	Status           JobStatus  `json:"status" db:"status"`
	OperatorID       int64      `json:"operatorId" db:"operator_id"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
	CompletedAt      *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	TotalCount       int        `json:"totalCount" db:"total_count"`
	SuccessCount     int        `json:"successCount" db:"success_count"`
	FailCount        int        `json:"failCount" db:"fail_count"`
	FailureReason    *string    `json:"failureReason,omitempty" db:"failure_reason"`
}

// Progress is how far a run got before it stopped.
type Progress struct {
	// Parsed is the number of customer ids read from the file.
	Parsed int
	// Committed is the number of coupons in chunks that were persisted.
	Committed int
}

// NewIssuanceJob returns a job in UPLOADED state.
func NewIssuanceJob(originalFileName, storagePath string, operatorID int64, now time.Time) *IssuanceJob {
	return &IssuanceJob{
		OriginalFileName: originalFileName,
		StoragePath:      storagePath,
		Status:           JobStatusUploaded,
		OperatorID:       operatorID,
		CreatedAt:        now,
	}
}

// Start moves the job from UPLOADED to PENDING.
func (j *IssuanceJob) Start() error {
	if j.Status != JobStatusUploaded {
		return j.transitionError(JobStatusPending)
	}
	j.Status = JobStatusPending
	return nil
}

// Complete moves a PENDING job to COMPLETED and records its counters.
func (j *IssuanceJob) Complete(now time.Time, total int) error {
	if j.Status != JobStatusPending {
		return j.transitionError(JobStatusCompleted)
	}
	if total < 0 {
		return fmt.Errorf("total count must not be negative: %d", total)
	}
	j.Status = JobStatusCompleted
	j.TotalCount = total
	j.SuccessCount = total
	j.FailCount = 0
	j.CompletedAt = &now
	j.FailureReason = nil
	return nil
}

// Fail moves a non-terminal job to FAILED. The counters record the rows parsed
// and the rows whose chunks were committed before the failure.
func (j *IssuanceJob) Fail(now time.Time, reason string, p Progress) error {
	if j.Status.IsTerminal() {
		return j.transitionError(JobStatusFailed)
	}
	committed := max(p.Committed, 0)
	parsed := max(p.Parsed, committed)

	j.Status = JobStatusFailed
	j.TotalCount = parsed
	j.SuccessCount = committed
	j.FailCount = parsed - committed
	j.CompletedAt = &now
	j.FailureReason = &reason
	return nil
}

func (j *IssuanceJob) transitionError(to JobStatus) error {
	return ErrInvalidTransition.WithMessage(
		fmt.Sprintf("job %d cannot move from %s to %s", j.ID, j.Status, to),
	)
}

// JobSummary is returned to the caller that registered a job.
type JobSummary struct {
	ID               int64     `json:"id"`
	OriginalFileName string    `json:"originalFileName"`
	Status           JobStatus `json:"status"`
	OperatorID       int64     `json:"operatorId"`
	CreatedAt        time.Time `json:"createdAt"`
}

// JobView is one row of the operator-facing job list.
type JobView struct {
	ID               int64      `json:"id"`
	OriginalFileName string     `json:"originalFileName"`
	Status           JobStatus  `json:"status"`
	TotalCount       int        `json:"totalCount"`
	SuccessCount     int        `json:"successCount"`
	FailCount        int        `json:"failCount"`
	FailureReason    *string    `json:"failureReason,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

// Summary returns the creation acknowledgement for j.
func (j *IssuanceJob) Summary() JobSummary {
	return JobSummary{
		ID:               j.ID,
		OriginalFileName: j.OriginalFileName,
		Status:           j.Status,
		OperatorID:       j.OperatorID,
		CreatedAt:        j.CreatedAt,
	}
}

// View returns the list representation of j.
func (j *IssuanceJob) View() JobView {
	return JobView{
		ID:               j.ID,
		OriginalFileName: j.OriginalFileName,
		Status:           j.Status,
		TotalCount:       j.TotalCount,
		SuccessCount:     j.SuccessCount,
		FailCount:        j.FailCount,
		FailureReason:    j.FailureReason,
		CreatedAt:        j.CreatedAt,
		CompletedAt:      j.CompletedAt,
	}
}

// CreateJobRequest registers an already-stored upload as a job.
type CreateJobRequest struct {
	OriginalFileName string `json:"originalFileName"`
	StoragePath      string `json:"savedFilePath"`
}
