package service

import (
	"context"
	"io"

	"coupon-admin/internal/model"
	"coupon-admin/internal/storage"
)

// JobService defines the operator-facing operations of the issuance pipeline.
type JobService interface {
	// CreateJob registers an uploaded file as an issuance job owned by
	// operatorName and queues it for processing.
	CreateJob(ctx context.Context, req model.CreateJobRequest, operatorName string) (*model.JobSummary, error)

	// ListJobs retrieves all jobs, newest first.
	ListJobs(ctx context.Context) ([]model.JobView, error)

	// DownloadFile opens the file a job was created from and returns it with
	// its original name. The caller closes the stream.
	DownloadFile(ctx context.Context, jobID int64) (io.ReadCloser, string, error)

	// UploadFile stores a customer list sent through the API and returns its storage path.
	UploadFile(ctx context.Context, r io.Reader, originalName string) (string, error)

	// PresignUpload returns a handle for uploading a customer list directly to storage.
	PresignUpload(ctx context.Context, fileName, fileType string) (*storage.UploadHandle, error)
}

// Submitter queues a job for processing without blocking.
type Submitter interface {
	Submit(jobID int64) error
}
