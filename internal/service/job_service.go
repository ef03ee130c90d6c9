package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"coupon-admin/internal/ingest"
	"coupon-admin/internal/issuance"
	"coupon-admin/internal/model"
	"coupon-admin/internal/repository"
	"coupon-admin/internal/storage"

	"github.com/rs/zerolog"
)

// jobService implements JobService.
type jobService struct {
	jobRepo      repository.JobRepository
	operatorRepo repository.OperatorRepository
	storage      storage.Storage
	submitter    Submitter
	now          func() time.Time
	logger       zerolog.Logger
}

// NewJobService creates a new job service.
func NewJobService(
	jobRepo repository.JobRepository,
	operatorRepo repository.OperatorRepository,
	store storage.Storage,
	submitter Submitter,
	logger zerolog.Logger,
) JobService {
	return &jobService{
		jobRepo:      jobRepo,
		operatorRepo: operatorRepo,
		storage:      store,
		submitter:    submitter,
		now:          time.Now,
		logger:       logger.With().Str("service", "job").Logger(),
	}
}

// CreateJob registers an uploaded file as an issuance job and queues it.
func (s *jobService) CreateJob(ctx context.Context, req model.CreateJobRequest, operatorName string) (*model.JobSummary, error) {
	if err := validateCreateJobRequest(req, operatorName); err != nil {
		return nil, err
	}

	// Reject unsupported files before touching storage or the database
	if _, err := ingest.DetectFormat(req.OriginalFileName); err != nil {
		s.logger.Warn().Str("file", req.OriginalFileName).Msg("unsupported file type")
		return nil, err
	}

	operator, err := s.operatorRepo.GetByName(ctx, operatorName)
	if err != nil {
		s.logger.Warn().Err(err).Str("operator", operatorName).Msg("failed to resolve operator")
		return nil, err
	}

	job := model.NewIssuanceJob(req.OriginalFileName, req.StoragePath, operator.ID, s.now())
	if err := s.jobRepo.Create(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("storage_path", req.StoragePath).Msg("failed to create job")
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	logger := s.logger.With().Int64("job_id", job.ID).Logger()

	if err := s.submitter.Submit(job.ID); err != nil {
		// The job stays UPLOADED and is picked up again on the next start
		if errors.Is(err, issuance.ErrQueueFull) {
			logger.Warn().Err(err).Msg("issuance queue full, job left uploaded")
		} else {
			logger.Warn().Err(err).Msg("failed to queue issuance job")
		}
	} else {
		logger.Info().
			Str("file", job.OriginalFileName).
			Int64("operator_id", operator.ID).
			Msg("issuance job created")
	}

	summary := job.Summary()
	return &summary, nil
}

// ListJobs retrieves all jobs, newest first.
func (s *jobService) ListJobs(ctx context.Context) ([]model.JobView, error) {
	jobs, err := s.jobRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list jobs")
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	views := make([]model.JobView, len(jobs))
	for i := range jobs {
		views[i] = jobs[i].View()
	}

	s.logger.Debug().Int("count", len(views)).Msg("retrieved jobs")
	return views, nil
}

// DownloadFile opens the stored file of a job.
func (s *jobService) DownloadFile(ctx context.Context, jobID int64) (io.ReadCloser, string, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		s.logger.Debug().Err(err).Int64("job_id", jobID).Msg("job lookup failed")
		return nil, "", err
	}

	rc, err := s.storage.Open(ctx, job.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).
			Int64("job_id", jobID).
			Str("storage_path", job.StoragePath).
			Msg("failed to open job file")
		return nil, "", err
	}

	return rc, job.OriginalFileName, nil
}

// UploadFile stores a customer list and returns its storage path.
func (s *jobService) UploadFile(ctx context.Context, r io.Reader, originalName string) (string, error) {
	if strings.TrimSpace(originalName) == "" {
		return "", model.ErrMissingField.WithMessage("file name is required")
	}
	if _, err := ingest.DetectFormat(originalName); err != nil {
		return "", err
	}

	path, err := s.storage.Save(ctx, r, originalName)
	if err != nil {
		s.logger.Error().Err(err).Str("file", originalName).Msg("failed to store upload")
		return "", err
	}

	s.logger.Info().Str("file", originalName).Str("storage_path", path).Msg("file uploaded")
	return path, nil
}

// PresignUpload returns a direct upload handle. The content type comes from
// fileType when given, otherwise from the file name's extension.
func (s *jobService) PresignUpload(ctx context.Context, fileName, fileType string) (*storage.UploadHandle, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, model.ErrMissingField.WithMessage("fileName is required")
	}

	var (
		format ingest.Format
		err    error
	)
	if strings.TrimSpace(fileType) != "" {
		format, err = ingest.ParseFormat(fileType)
	} else {
		format, err = ingest.DetectFormat(fileName)
	}
	if err != nil {
		return nil, err
	}

	handle, err := s.storage.PresignUpload(ctx, fileName, format.ContentType())
	if err != nil {
		if !errors.Is(err, model.ErrUnsupported) {
			s.logger.Error().Err(err).Str("file", fileName).Msg("failed to presign upload")
		}
		return nil, err
	}

	return &handle, nil
}

func validateCreateJobRequest(req model.CreateJobRequest, operatorName string) error {
	if strings.TrimSpace(req.OriginalFileName) == "" {
		return model.ErrMissingField.WithMessage("originalFileName is required")
	}
	if strings.TrimSpace(req.StoragePath) == "" {
		return model.ErrMissingField.WithMessage("savedFilePath is required")
	}
	if strings.TrimSpace(operatorName) == "" {
		return model.ErrMissingField.WithMessage("operator is required")
	}
	return nil
}
