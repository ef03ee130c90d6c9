package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"coupon-admin/internal/handler"
	"coupon-admin/internal/model"
	"coupon-admin/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

const testAPIKey = "router-test-key"

// stubJobService answers every call with an empty result.
type stubJobService struct{}

func (stubJobService) CreateJob(ctx context.Context, req model.CreateJobRequest, operatorName string) (*model.JobSummary, error) {
	return &model.JobSummary{ID: 1, Status: model.JobStatusUploaded}, nil
}

func (stubJobService) ListJobs(ctx context.Context) ([]model.JobView, error) {
	return []model.JobView{}, nil
}

func (stubJobService) DownloadFile(ctx context.Context, jobID int64) (io.ReadCloser, string, error) {
	if jobID != 1 {
		return nil, "", model.ErrJobNotFound
	}
	return io.NopCloser(strings.NewReader("customer_id\n")), "a.csv", nil
}

func (stubJobService) UploadFile(ctx context.Context, r io.Reader, originalName string) (string, error) {
	return "uploads/a.csv", nil
}

func (stubJobService) PresignUpload(ctx context.Context, fileName, fileType string) (*storage.UploadHandle, error) {
	return nil, model.ErrUnsupported
}

func newTestRouter() http.Handler {
	svc := stubJobService{}
	logger := zerolog.Nop()
	return New(handler.NewJobHandler(svc, logger), handler.NewFileHandler(svc, logger), testAPIKey, logger)
}

func TestRouter(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		withKey        bool
		expectedStatus int
	}{
		{"Health without key", http.MethodGet, "/health", "", false, http.StatusOK},
		{"Metrics without key", http.MethodGet, "/metrics", "", false, http.StatusOK},
		{"Jobs require key", http.MethodGet, "/api/jobs", "", false, http.StatusUnauthorized},
		{"List jobs", http.MethodGet, "/api/jobs", "", true, http.StatusOK},
		{"Create job", http.MethodPost, "/api/jobs", `{"originalFileName":"a.csv","savedFilePath":"uploads/a.csv"}`, true, http.StatusAccepted},
		{"Download file", http.MethodGet, "/api/jobs/1/file", "", true, http.StatusOK},
		{"Download missing job", http.MethodGet, "/api/jobs/2/file", "", true, http.StatusNotFound},
		{"Presign on local storage", http.MethodGet, "/api/files/presigned-url?fileName=a.csv", "", true, http.StatusNotImplemented},
		{"Wrong method", http.MethodDelete, "/api/jobs", "", true, http.StatusMethodNotAllowed},
		{"Unknown route", http.MethodGet, "/api/orders", "", true, http.StatusNotFound},
		{"Preflight", http.MethodOptions, "/api/jobs", "", false, http.StatusNoContent},
	}

	r := newTestRouter()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.withKey {
				req.Header.Set("X-API-Key", testAPIKey)
			}
			req.Header.Set(handler.OperatorHeader, "alice")
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}
