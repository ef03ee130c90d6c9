package handler

import (
	"errors"
	"io"
	"net/http"

	"coupon-admin/internal/model"
	"coupon-admin/internal/service"

	"github.com/rs/zerolog"
)

// FileFormField is the multipart field that carries an uploaded customer list.
const FileFormField = "file"

// maxUploadSize bounds a server-side upload.
const maxUploadSize = 512 << 20

// UploadResponse is returned after a server-side upload.
type UploadResponse struct {
	SavedFilePath    string `json:"savedFilePath"`
	OriginalFileName string `json:"originalFileName"`
}

// FileHandler handles customer-list upload HTTP requests.
type FileHandler struct {
	service service.JobService
	logger  zerolog.Logger
}

// NewFileHandler creates a new file handler.
func NewFileHandler(service service.JobService, logger zerolog.Logger) *FileHandler {
	return &FileHandler{
		service: service,
		logger:  logger.With().Str("handler", "file").Logger(),
	}
}

// Upload handles POST /api/files requests. The file part is streamed to
// storage without being buffered in memory.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidFile, "multipart form required", h.logger)
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidFile, "malformed multipart body", h.logger)
			return
		}
		if part.FormName() != FileFormField {
			part.Close()
			continue
		}

		name := part.FileName()
		path, err := h.service.UploadFile(r.Context(), part, name)
		part.Close()
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, r, http.StatusRequestEntityTooLarge, model.ErrCodeInvalidFile, "file is too large", h.logger)
				return
			}
			writeServiceError(w, r, err, h.logger)
			return
		}

		writeJSON(w, http.StatusCreated, UploadResponse{SavedFilePath: path, OriginalFileName: name})
		return
	}

	writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, `multipart field "file" is required`, h.logger)
}

// PresignedURL handles GET /api/files/presigned-url requests.
func (h *FileHandler) PresignedURL(w http.ResponseWriter, r *http.Request) {
	fileName := r.URL.Query().Get("fileName")
	fileType := r.URL.Query().Get("fileType")

	handle, err := h.service.PresignUpload(r.Context(), fileName, fileType)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, handle)
}
