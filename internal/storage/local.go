package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"coupon-admin/internal/model"

	"github.com/rs/zerolog"
)

// localStorage keeps uploads below a directory on the local file system.
type localStorage struct {
	root   string
	logger zerolog.Logger
}

// NewLocalStorage creates a Storage rooted at dir, creating it if needed.
func NewLocalStorage(dir string, logger zerolog.Logger) (Storage, error) {
	if err := os.MkdirAll(filepath.Join(dir, UploadDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return &localStorage{
		root:   dir,
		logger: logger.With().Str("component", "local-storage").Logger(),
	}, nil
}

func (s *localStorage) Save(ctx context.Context, r io.Reader, originalName string) (string, error) {
	rel := uniquePath(originalName)
	full := filepath.Join(s.root, filepath.FromSlash(rel))

	file, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		s.logger.Error().Err(err).Str("path", rel).Msg("failed to create upload file")
		return "", model.ErrIOFailure.WithMessage("failed to create upload file").Wrap(err)
	}

	written, err := io.Copy(file, r)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(full)
		s.logger.Error().Err(err).Str("path", rel).Msg("failed to write upload file")
		return "", model.ErrIOFailure.WithMessage("failed to write upload file").Wrap(err)
	}

	s.logger.Info().
		Str("path", rel).
		Int64("bytes", written).
		Msg("upload saved")

	return rel, nil
}

func (s *localStorage) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	full, err := s.resolve(p)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, model.ErrNotFound.WithMessage(fmt.Sprintf("stored file %s not found", p))
		}
		s.logger.Error().Err(err).Str("path", p).Msg("failed to open stored file")
		return nil, model.ErrIOFailure.WithMessage("failed to open stored file").Wrap(err)
	}
	return file, nil
}

func (s *localStorage) PresignUpload(ctx context.Context, fileName, contentType string) (UploadHandle, error) {
	return UploadHandle{}, model.ErrUnsupported.WithMessage("local storage does not issue upload URLs")
}

// resolve maps a storage path to a file below root, rejecting escapes.
func (s *localStorage) resolve(p string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	if clean == "/" {
		return "", model.ErrNotFound.WithMessage(fmt.Sprintf("stored file %s not found", p))
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
