package router

import (
	"net/http"

	"coupon-admin/internal/handler"
	"coupon-admin/internal/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	jobHandler *handler.JobHandler,
	fileHandler *handler.FileHandler,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check and metrics endpoints (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Issuance jobs
	mux.HandleFunc("POST /api/jobs", jobHandler.Create)
	mux.HandleFunc("GET /api/jobs", jobHandler.List)
	mux.HandleFunc("GET /api/jobs/{id}/file", jobHandler.DownloadFile)

	// Customer-list uploads
	mux.HandleFunc("POST /api/files", fileHandler.Upload)
	mux.HandleFunc("GET /api/files/presigned-url", fileHandler.PresignedURL)

	// Apply middleware in order: Recovery -> RequestID -> Logging -> CORS -> APIKeyAuth
	var handler http.Handler = mux
	handler = middleware.APIKeyAuth(apiKey, logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
