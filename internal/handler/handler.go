package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"coupon-admin/internal/middleware"
	"coupon-admin/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	requestID := middleware.RequestIDFromContext(r.Context())

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("request_id", requestID).
		Str("code", code).
		Str("error", message).
		Int("status", status).
		Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: requestID,
	})
}

// writeServiceError maps err to an HTTP status by its domain code. Errors
// without a domain code are reported as internal errors without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("unclassified service error")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
		return
	}

	status := statusForCode(de.Code)
	message := de.Message
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("service failure")
		if de.Code == model.ErrCodeUnexpected {
			message = "internal server error"
		}
	}
	writeError(w, r, status, de.Code, message, logger)
}

func statusForCode(code string) int {
	switch code {
	case model.ErrCodeInvalidFile, model.ErrCodeMissingField, model.ErrCodeInvalidJSON:
		return http.StatusBadRequest
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeConflict, model.ErrCodeInvalidTransition:
		return http.StatusConflict
	case model.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeIOFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
