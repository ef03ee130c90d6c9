package ingest

import (
	"io"

	"coupon-admin/internal/model"
)

// Validate checks the structure of an upload: the first row must be the
// customer_id header and at least one non-blank id must follow. It reads only
// until the first id is found, then rewinds r to its start so the same stream
// can be parsed. r must implement io.Seeker.
func Validate(r io.Reader, f Format) error {
	seeker, ok := r.(io.Seeker)
	if !ok {
		return ErrNotRewindable
	}

	if err := validate(r, f); err != nil {
		return err
	}

	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return model.ErrIOFailure.WithMessage("failed to rewind stream after validation").Wrap(err)
	}
	return nil
}

func validate(r io.Reader, f Format) error {
	src, err := openSource(r, f)
	if err != nil {
		return err
	}
	defer src.close()

	header, ok, err := src.next()
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrInvalidFile.WithMessage("file is empty")
	}
	if !isHeader(header.value) {
		return model.ErrInvalidFile.WithMessage("first row must be the header \"customer_id\"")
	}

	for {
		first, ok, err := src.next()
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrInvalidFile.WithMessage("file has no customer ids after the header")
		}
		if first.customerID() != "" {
			return nil
		}
	}
}
