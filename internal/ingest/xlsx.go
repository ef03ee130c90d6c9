package ingest

import (
	"io"

	"coupon-admin/internal/model"

	"github.com/xuri/excelize/v2"
)

// xlsxSource walks the first worksheet. excelize.OpenReader reads the whole
// workbook into memory; rows are then decoded one at a time. The first cell
// type lookup decodes the first sheet in full, so a workbook costs roughly its
// unzipped sheet size in memory on top of the file itself.
type xlsxSource struct {
	file  *excelize.File
	rows  *excelize.Rows
	sheet string
	// row is the 1-based number of the last row returned.
	row int
}

func newXLSXSource(r io.Reader) (*xlsxSource, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, model.ErrIOFailure.WithMessage("failed to open xlsx workbook").Wrap(err)
	}

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		_ = file.Close()
		return nil, model.ErrInvalidFile.WithMessage("workbook has no sheets")
	}

	rows, err := file.Rows(sheets[0])
	if err != nil {
		_ = file.Close()
		return nil, model.ErrIOFailure.WithMessage("failed to read first sheet").Wrap(err)
	}

	return &xlsxSource{file: file, rows: rows, sheet: sheets[0]}, nil
}

func (s *xlsxSource) next() (cell, bool, error) {
	// Next reports rows missing from the sheet as empty ones, so row numbers
	// stay aligned with the count of calls.
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return cell{}, false, model.ErrIOFailure.WithMessage("failed to read xlsx row").Wrap(err)
		}
		return cell{}, false, nil
	}
	s.row++

	// Raw values keep number formats (thousands separators, dates) out of ids.
	cols, err := s.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return cell{}, false, model.ErrIOFailure.WithMessage("failed to read xlsx row").Wrap(err)
	}
	if len(cols) == 0 || cols[0] == "" {
		return cell{}, true, nil
	}

	ref, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return cell{}, false, model.ErrInvalidFile.WithMessage("xlsx sheet has too many rows").Wrap(err)
	}
	typ, err := s.file.GetCellType(s.sheet, ref)
	if err != nil {
		return cell{}, false, model.ErrIOFailure.WithMessage("failed to read xlsx cell type").Wrap(err)
	}
	return cell{value: cols[0], kind: xlsxCellKind(typ)}, true, nil
}

// xlsxCellKind maps a stored cell type. Numbers are usually written without a
// type attribute, which excelize reports as CellTypeUnset.
func xlsxCellKind(t excelize.CellType) cellKind {
	switch t {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return cellText
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		return cellNumber
	default:
		return cellOther
	}
}

func (s *xlsxSource) close() error {
	rowsErr := s.rows.Close()
	if err := s.file.Close(); err != nil {
		return err
	}
	return rowsErr
}
