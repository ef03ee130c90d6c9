package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"coupon-admin/internal/ingest"
	"coupon-admin/internal/model"
	"coupon-admin/internal/service"

	"github.com/rs/zerolog"
)

// OperatorHeader names the operator that owns a created job.
const OperatorHeader = "X-Operator"

// maxJobRequestSize bounds the JSON body of a job creation request.
const maxJobRequestSize = 1 << 20

// JobHandler handles issuance job HTTP requests.
type JobHandler struct {
	service service.JobService
	logger  zerolog.Logger
}

// NewJobHandler creates a new job handler.
func NewJobHandler(service service.JobService, logger zerolog.Logger) *JobHandler {
	return &JobHandler{
		service: service,
		logger:  logger.With().Str("handler", "job").Logger(),
	}
}

// Create handles POST /api/jobs requests. The job is processed in the
// background; the response only acknowledges registration.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJobRequestSize)

	var req model.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	operator := strings.TrimSpace(r.Header.Get(OperatorHeader))

	summary, err := h.service.CreateJob(r.Context(), req, operator)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusAccepted, summary)
}

// List handles GET /api/jobs requests.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, jobs)
}

// DownloadFile handles GET /api/jobs/{id}/file requests.
func (h *JobHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || jobID <= 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid job ID format", h.logger)
		return
	}

	rc, name, err := h.service.DownloadFile(r.Context(), jobID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	defer rc.Close()

	contentType := "application/octet-stream"
	if f, err := ingest.DetectFormat(name); err == nil {
		contentType = f.ContentType()
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", contentDisposition(name))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		// Headers are already sent
		h.logger.Warn().Err(err).Int64("job_id", jobID).Msg("failed to stream job file")
	}
}

func contentDisposition(name string) string {
	name = strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(name)
	return `attachment; filename="` + name + `"`
}
