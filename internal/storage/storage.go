// Package storage keeps uploaded customer-list files on local disk or in S3.
package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UploadDir is the folder, relative to the storage root, that receives uploads.
const UploadDir = "uploads"

// UploadHandle lets a client upload a file directly to storage.
type UploadHandle struct {
	URL           string    `json:"url"`
	Method        string    `json:"method"`
	SavedFilePath string    `json:"savedFilePath"`
	ContentType   string    `json:"contentType"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Storage saves uploads and streams them back. Paths returned by Save and
// PresignUpload are opaque references meant to be stored on an issuance job.
type Storage interface {
	// Save writes r under a unique name derived from originalName and returns its path.
	Save(ctx context.Context, r io.Reader, originalName string) (string, error)
	// Open returns a fresh stream for path. A missing file yields model.ErrNotFound.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// PresignUpload returns a direct upload handle, or model.ErrUnsupported.
	PresignUpload(ctx context.Context, fileName, contentType string) (UploadHandle, error)
}

// uniquePath returns "uploads/<uuid>_<base name>".
func uniquePath(originalName string) string {
	return path.Join(UploadDir, uuid.NewString()+"_"+baseName(originalName))
}

// baseName strips directories from a client-supplied name.
func baseName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return "upload"
	}
	return name
}
