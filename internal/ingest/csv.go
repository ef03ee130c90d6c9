package ingest

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"coupon-admin/internal/model"
)

// maxLineSize bounds a single CSV line.
const maxLineSize = 1024 * 1024

// csvSource reads one row per line; the whole line is the row's first cell.
type csvSource struct {
	scanner *bufio.Scanner
	first   bool
}

func newCSVSource(r io.Reader) *csvSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &csvSource{scanner: scanner, first: true}
}

func (s *csvSource) next() (cell, bool, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				return cell{}, false, model.ErrInvalidFile.WithMessage("csv line exceeds 1 MiB")
			}
			return cell{}, false, model.ErrIOFailure.WithMessage("failed to read csv").Wrap(err)
		}
		return cell{}, false, nil
	}
	line := s.scanner.Text()
	if s.first {
		s.first = false
		line = strings.TrimPrefix(line, utf8BOM)
	}
	return textCell(line), true, nil
}

func (s *csvSource) close() error { return nil }
