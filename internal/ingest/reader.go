package ingest

import (
	"io"

	"coupon-admin/internal/model"
)

// ErrNotRewindable is returned when validation is given a stream it cannot rewind.
var ErrNotRewindable = model.ErrIOFailure.WithMessage("stream does not support rewinding")

// Reader is a forward-only cursor over the customer ids of one file. The
// header row and blank rows are skipped and ids are trimmed. A Reader cannot
// be restarted; open a new one on a fresh stream instead.
type Reader interface {
	// Next advances to the next customer id. It returns false at the end of
	// the file or on error; check Err afterwards.
	Next() bool
	// CustomerID returns the id found by the last successful Next.
	CustomerID() string
	// Err returns the first error met while reading, if any.
	Err() error
	// Close releases resources held by the underlying decoder.
	Close() error
}

// rowSource yields the first cell of every row in file order, header included.
type rowSource interface {
	next() (first cell, ok bool, err error)
	close() error
}

// NewReader opens a Reader over r. Spreadsheet formats decode the first sheet only.
func NewReader(r io.Reader, f Format) (Reader, error) {
	src, err := openSource(r, f)
	if err != nil {
		return nil, err
	}
	return &cursor{src: src}, nil
}

func openSource(r io.Reader, f Format) (rowSource, error) {
	switch f {
	case FormatCSV:
		return newCSVSource(r), nil
	case FormatXLSX:
		return newXLSXSource(r)
	case FormatXLS:
		rs, ok := r.(io.ReadSeeker)
		if !ok {
			return nil, ErrNotRewindable
		}
		return newXLSSource(rs)
	default:
		return nil, model.ErrInvalidFile.WithMessage("unsupported file format " + string(f))
	}
}

// cursor adapts a rowSource to Reader.
type cursor struct {
	src     rowSource
	started bool
	done    bool
	current string
	err     error
}

func (c *cursor) Next() bool {
	if c.done {
		return false
	}
	if !c.started {
		c.started = true
		if _, ok, err := c.src.next(); err != nil || !ok {
			c.finish(err)
			return false
		}
	}
	for {
		first, ok, err := c.src.next()
		if err != nil || !ok {
			c.finish(err)
			return false
		}
		if id := first.customerID(); id != "" {
			c.current = id
			return true
		}
	}
}

func (c *cursor) finish(err error) {
	c.done = true
	c.current = ""
	c.err = err
}

func (c *cursor) CustomerID() string { return c.current }

func (c *cursor) Err() error { return c.err }

func (c *cursor) Close() error {
	c.done = true
	return c.src.close()
}
