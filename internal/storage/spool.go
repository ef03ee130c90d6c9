package storage

import (
	"errors"
	"io"
	"os"

	"coupon-admin/internal/model"
)

// Rewindable returns rc as an io.ReadSeekCloser. Streams that already seek,
// such as local files, are returned unchanged. Others are copied to a
// temporary file that is removed on Close; rc is closed once copied.
func Rewindable(rc io.ReadCloser) (io.ReadSeekCloser, error) {
	if rsc, ok := rc.(io.ReadSeekCloser); ok {
		return rsc, nil
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "coupon-upload-*")
	if err != nil {
		return nil, model.ErrIOFailure.WithMessage("failed to create spool file").Wrap(err)
	}
	spool := &spoolFile{File: tmp}

	if _, err := io.Copy(tmp, rc); err != nil {
		_ = spool.Close()
		return nil, model.ErrIOFailure.WithMessage("failed to read stored file").Wrap(err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		_ = spool.Close()
		return nil, model.ErrIOFailure.WithMessage("failed to rewind spool file").Wrap(err)
	}
	return spool, nil
}

type spoolFile struct {
	*os.File
}

func (f *spoolFile) Close() error {
	return errors.Join(f.File.Close(), os.Remove(f.Name()))
}
