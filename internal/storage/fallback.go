package storage

import (
	"context"
	"io"

	"github.com/rs/zerolog"
)

// fallbackStorage writes to primary and reads from primary first, then from
// secondary. It serves files uploaded to local disk before S3 was enabled.
type fallbackStorage struct {
	primary   Storage
	secondary Storage
	logger    zerolog.Logger
}

// NewFallbackStorage creates a Storage that falls back to secondary on reads.
// If secondary is nil, primary is returned as-is.
func NewFallbackStorage(primary, secondary Storage, logger zerolog.Logger) Storage {
	if secondary == nil {
		return primary
	}
	return &fallbackStorage{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With().Str("component", "fallback-storage").Logger(),
	}
}

func (s *fallbackStorage) Save(ctx context.Context, r io.Reader, originalName string) (string, error) {
	return s.primary.Save(ctx, r, originalName)
}

func (s *fallbackStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, err := s.primary.Open(ctx, path)
	if err == nil {
		return rc, nil
	}

	s.logger.Warn().
		Err(err).
		Str("path", path).
		Msg("failed to open from primary storage, falling back")

	return s.secondary.Open(ctx, path)
}

func (s *fallbackStorage) PresignUpload(ctx context.Context, fileName, contentType string) (UploadHandle, error) {
	return s.primary.PresignUpload(ctx, fileName, contentType)
}
