package ingest

import (
	"fmt"
	"io"

	"coupon-admin/internal/model"

	"github.com/extrame/xls"
)

// xlsFormulaValue is what the BIFF decoder renders for every formula cell.
const xlsFormulaValue = "FormulaCol"

// xlsSheet is the part of a legacy BIFF worksheet the reader needs.
type xlsSheet interface {
	rowCount() int
	firstCell(row int) string
}

type workSheet struct {
	ws *xls.WorkSheet
}

func (w workSheet) rowCount() int {
	return int(w.ws.MaxRow) + 1
}

func (w workSheet) firstCell(i int) (value string) {
	// Row dereferences a nil row for indexes the sheet holds no record for.
	defer func() {
		if recover() != nil {
			value = ""
		}
	}()
	return w.ws.Row(i).Col(0)
}

// xlsSource walks the first sheet of a .xls workbook. BIFF files are decoded
// sheet-at-a-time by the library, so the sheet's cells are held in memory.
type xlsSource struct {
	sheet xlsSheet
	pos   int
}

func newXLSSource(rs io.ReadSeeker) (src *xlsSource, err error) {
	// The BIFF decoder panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			src = nil
			err = model.ErrIOFailure.WithMessage("failed to decode xls workbook").Wrap(fmt.Errorf("%v", r))
		}
	}()

	wb, err := xls.OpenReader(rs, "utf-8")
	if err != nil {
		return nil, model.ErrIOFailure.WithMessage("failed to open xls workbook").Wrap(err)
	}
	if wb == nil {
		return nil, model.ErrInvalidFile.WithMessage("file holds no xls workbook stream")
	}
	if wb.NumSheets() == 0 {
		return nil, model.ErrInvalidFile.WithMessage("workbook has no sheets")
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, model.ErrInvalidFile.WithMessage("workbook has no sheets")
	}
	return &xlsSource{sheet: workSheet{ws: ws}}, nil
}

func (s *xlsSource) next() (cell, bool, error) {
	if s.pos >= s.sheet.rowCount() {
		return cell{}, false, nil
	}
	value := s.sheet.firstCell(s.pos)
	s.pos++
	return xlsCell(value), true, nil
}

func (s *xlsSource) close() error { return nil }

// xlsCell classifies a rendered BIFF value. The decoder only exposes rendered
// strings and writes numbers as plain decimals, so text with that exact shape
// is read as a number.
func xlsCell(v string) cell {
	switch {
	case v == xlsFormulaValue:
		return cell{kind: cellOther}
	case isDecimal(v):
		return cell{value: v, kind: cellNumber}
	default:
		return textCell(v)
	}
}
