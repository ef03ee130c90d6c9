package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coupon-admin/internal/middleware"
	"coupon-admin/internal/model"
	"coupon-admin/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockJobService is a mock implementation of JobService.
type MockJobService struct {
	mock.Mock
}

func (m *MockJobService) CreateJob(ctx context.Context, req model.CreateJobRequest, operatorName string) (*model.JobSummary, error) {
	args := m.Called(ctx, req, operatorName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.JobSummary), args.Error(1)
}

func (m *MockJobService) ListJobs(ctx context.Context) ([]model.JobView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.JobView), args.Error(1)
}

func (m *MockJobService) DownloadFile(ctx context.Context, jobID int64) (io.ReadCloser, string, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.String(1), args.Error(2)
}

func (m *MockJobService) UploadFile(ctx context.Context, r io.Reader, originalName string) (string, error) {
	args := m.Called(ctx, r, originalName)
	return args.String(0), args.Error(1)
}

func (m *MockJobService) PresignUpload(ctx context.Context, fileName, fileType string) (*storage.UploadHandle, error) {
	args := m.Called(ctx, fileName, fileType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadHandle), args.Error(1)
}

func decodeError(t *testing.T, body io.Reader) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{"Invalid file", model.ErrInvalidFile.WithMessage("bad header"), http.StatusBadRequest, model.ErrCodeInvalidFile, "bad header"},
		{"Missing field", model.ErrMissingField, http.StatusBadRequest, model.ErrCodeMissingField, "required field is missing"},
		{"Job not found", model.ErrJobNotFound, http.StatusNotFound, model.ErrCodeNotFound, "issuance job not found"},
		{"Conflict", model.ErrConflict, http.StatusConflict, model.ErrCodeConflict, "resource already exists"},
		{"Invalid transition", model.ErrInvalidTransition, http.StatusConflict, model.ErrCodeInvalidTransition, "invalid job status transition"},
		{"Unsupported", model.ErrUnsupported, http.StatusNotImplemented, model.ErrCodeUnsupported, "operation not supported by this storage"},
		{"I/O failure", model.ErrIOFailure.Wrap(errors.New("s3 down")), http.StatusBadGateway, model.ErrCodeIOFailure, "storage I/O failure"},
		{"Unexpected hides detail", model.ErrUnexpected.WithMessage("nil map"), http.StatusInternalServerError, model.ErrCodeUnexpected, "internal server error"},
		{"Plain error", errors.New("db exploded"), http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
			w := httptest.NewRecorder()

			middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeServiceError(w, r, tt.err, zerolog.Nop())
			})).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			resp := decodeError(t, w.Body)
			assert.Equal(t, tt.expectedCode, resp.Error)
			assert.Equal(t, tt.expectedMsg, resp.Message)
			assert.NotEmpty(t, resp.CorrelationID)
		})
	}
}

func TestJobHandler_Create(t *testing.T) {
	summary := &model.JobSummary{
		ID:               1,
		OriginalFileName: "customers.csv",
		Status:           model.JobStatusUploaded,
		OperatorID:       7,
		CreatedAt:        time.Now(),
	}
	validReq := model.CreateJobRequest{OriginalFileName: "customers.csv", StoragePath: "uploads/a_customers.csv"}

	tests := []struct {
		name           string
		body           string
		operator       string
		mockReturn     *model.JobSummary
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Success",
			body:           `{"originalFileName":"customers.csv","savedFilePath":"uploads/a_customers.csv"}`,
			operator:       "alice",
			mockReturn:     summary,
			expectedStatus: http.StatusAccepted,
			expectService:  true,
		},
		{
			name:           "Invalid JSON",
			body:           `{"originalFileName":`,
			operator:       "alice",
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
		{
			name:           "Unsupported file",
			body:           `{"originalFileName":"customers.csv","savedFilePath":"uploads/a_customers.csv"}`,
			operator:       "alice",
			mockError:      model.ErrInvalidFile,
			expectedStatus: http.StatusBadRequest,
			expectService:  true,
		},
		{
			name:           "Unknown operator",
			body:           `{"originalFileName":"customers.csv","savedFilePath":"uploads/a_customers.csv"}`,
			operator:       "alice",
			mockError:      model.ErrOperatorNotFound,
			expectedStatus: http.StatusNotFound,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockJobService)
			handler := NewJobHandler(mockService, zerolog.Nop())

			if tt.expectService {
				mockService.On("CreateJob", mock.Anything, validReq, tt.operator).Return(tt.mockReturn, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(tt.body))
			req.Header.Set(OperatorHeader, tt.operator)
			w := httptest.NewRecorder()

			handler.Create(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusAccepted {
				var got model.JobSummary
				require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
				assert.Equal(t, int64(1), got.ID)
				assert.Equal(t, model.JobStatusUploaded, got.Status)
			}
			if tt.expectService {
				mockService.AssertExpectations(t)
			} else {
				mockService.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestJobHandler_List(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockJobService)
		handler := NewJobHandler(mockService, zerolog.Nop())
		views := []model.JobView{
			{ID: 2, OriginalFileName: "b.csv", Status: model.JobStatusPending},
			{ID: 1, OriginalFileName: "a.csv", Status: model.JobStatusCompleted, TotalCount: 5, SuccessCount: 5},
		}
		mockService.On("ListJobs", mock.Anything).Return(views, nil)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var got []model.JobView
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		require.Len(t, got, 2)
		assert.Equal(t, int64(2), got[0].ID)
		assert.Equal(t, 5, got[1].SuccessCount)
	})

	t.Run("Service error", func(t *testing.T) {
		mockService := new(MockJobService)
		handler := NewJobHandler(mockService, zerolog.Nop())
		mockService.On("ListJobs", mock.Anything).Return(nil, errors.New("database error"))

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestJobHandler_DownloadFile(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		setupMock      func(m *MockJobService)
		expectedStatus int
		expectedType   string
		expectedBody   string
	}{
		{
			name: "Success",
			id:   "3",
			setupMock: func(m *MockJobService) {
				m.On("DownloadFile", mock.Anything, int64(3)).
					Return(io.NopCloser(strings.NewReader("customer_id\nC1\n")), "customers.csv", nil)
			},
			expectedStatus: http.StatusOK,
			expectedType:   "text/csv",
			expectedBody:   "customer_id\nC1\n",
		},
		{
			name:           "Invalid ID",
			id:             "abc",
			setupMock:      func(m *MockJobService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Not found",
			id:   "9",
			setupMock: func(m *MockJobService) {
				m.On("DownloadFile", mock.Anything, int64(9)).Return(nil, "", model.ErrJobNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockJobService)
			handler := NewJobHandler(mockService, zerolog.Nop())
			tt.setupMock(mockService)

			req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+tt.id+"/file", nil)
			req.SetPathValue("id", tt.id)
			w := httptest.NewRecorder()

			handler.DownloadFile(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.expectedType, w.Header().Get("Content-Type"))
				assert.Equal(t, `attachment; filename="customers.csv"`, w.Header().Get("Content-Disposition"))
				assert.Equal(t, tt.expectedBody, w.Body.String())
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename="list.xlsx"`, contentDisposition("list.xlsx"))
	assert.Equal(t, `attachment; filename="evilname.csv"`, contentDisposition("evil\"\r\nname.csv"))
}

func multipartBody(t *testing.T, field, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("note", "ignored"))
	part, err := mw.CreateFormFile(field, fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestFileHandler_Upload(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockJobService)
		handler := NewFileHandler(mockService, zerolog.Nop())

		var received string
		mockService.On("UploadFile", mock.Anything, mock.Anything, "customers.csv").
			Run(func(args mock.Arguments) {
				data, _ := io.ReadAll(args.Get(1).(io.Reader))
				received = string(data)
			}).
			Return("uploads/u_customers.csv", nil)

		body, contentType := multipartBody(t, FileFormField, "customers.csv", "customer_id\nC1\n")
		req := httptest.NewRequest(http.MethodPost, "/api/files", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.Upload(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp UploadResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "uploads/u_customers.csv", resp.SavedFilePath)
		assert.Equal(t, "customers.csv", resp.OriginalFileName)
		assert.Equal(t, "customer_id\nC1\n", received)
	})

	t.Run("Rejected file type", func(t *testing.T) {
		mockService := new(MockJobService)
		handler := NewFileHandler(mockService, zerolog.Nop())
		mockService.On("UploadFile", mock.Anything, mock.Anything, "notes.txt").Return("", model.ErrInvalidFile)

		body, contentType := multipartBody(t, FileFormField, "notes.txt", "hello")
		req := httptest.NewRequest(http.MethodPost, "/api/files", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.Upload(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, model.ErrCodeInvalidFile, decodeError(t, w.Body).Error)
	})

	t.Run("Missing file field", func(t *testing.T) {
		mockService := new(MockJobService)
		handler := NewFileHandler(mockService, zerolog.Nop())

		body, contentType := multipartBody(t, "attachment", "customers.csv", "customer_id\n")
		req := httptest.NewRequest(http.MethodPost, "/api/files", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.Upload(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, model.ErrCodeMissingField, decodeError(t, w.Body).Error)
		mockService.AssertNotCalled(t, "UploadFile", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Not multipart", func(t *testing.T) {
		mockService := new(MockJobService)
		handler := NewFileHandler(mockService, zerolog.Nop())

		req := httptest.NewRequest(http.MethodPost, "/api/files", strings.NewReader("customer_id\n"))
		req.Header.Set("Content-Type", "text/csv")
		w := httptest.NewRecorder()

		handler.Upload(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFileHandler_PresignedURL(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		fileName       string
		fileType       string
		mockReturn     *storage.UploadHandle
		mockError      error
		expectedStatus int
	}{
		{
			name:           "Success",
			query:          "?fileName=customers.xlsx&fileType=xlsx",
			fileName:       "customers.xlsx",
			fileType:       "xlsx",
			mockReturn:     &storage.UploadHandle{URL: "https://example/put", Method: http.MethodPut, SavedFilePath: "uploads/u_customers.xlsx"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Local storage",
			query:          "?fileName=customers.csv",
			fileName:       "customers.csv",
			mockError:      model.ErrUnsupported,
			expectedStatus: http.StatusNotImplemented,
		},
		{
			name:           "Missing file name",
			query:          "",
			mockError:      model.ErrMissingField,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockJobService)
			handler := NewFileHandler(mockService, zerolog.Nop())
			mockService.On("PresignUpload", mock.Anything, tt.fileName, tt.fileType).Return(tt.mockReturn, tt.mockError)

			w := httptest.NewRecorder()
			handler.PresignedURL(w, httptest.NewRequest(http.MethodGet, "/api/files/presigned-url"+tt.query, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var got storage.UploadHandle
				require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
				assert.Equal(t, "uploads/u_customers.xlsx", got.SavedFilePath)
			}
			mockService.AssertExpectations(t)
		})
	}
}
