package ingest

import (
	"math"
	"strconv"
	"strings"
)

// utf8BOM is stripped from the first CSV line; spreadsheet tools often write it.
const utf8BOM = "\uFEFF"

// cellKind is the type a cell was stored with.
type cellKind int

const (
	cellText cellKind = iota
	cellNumber
	// cellOther covers booleans, errors, dates and formula results. Such
	// cells never hold a customer id.
	cellOther
)

// cell is the first cell of a row.
type cell struct {
	value string
	kind  cellKind
}

func textCell(v string) cell { return cell{value: v, kind: cellText} }

// customerID returns the id held by c, or "" when it holds none. Text is
// trimmed and otherwise kept as-is. Numbers are rendered in integer form.
func (c cell) customerID() string {
	switch c.kind {
	case cellText:
		return strings.TrimSpace(c.value)
	case cellNumber:
		return integerString(c.value)
	default:
		return ""
	}
}

// integerString renders a stored number without its fractional part:
// "12345.0", "1.2345E+4" and "12345.9" all become "12345", and
// "1.2345678901234568E+16" becomes "12345678901234568". Plain digit strings
// are returned unchanged so no precision is lost on them.
func integerString(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || isInteger(v) {
		return v
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return v
	}
	f = math.Trunc(f)
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', 0, 64)
}

// isInteger reports whether v is an optionally signed run of digits.
func isInteger(v string) bool {
	v = strings.TrimPrefix(v, "-")
	if v == "" {
		return false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isDecimal reports whether v looks like "-123" or "123.45", the only shapes
// the xls decoder renders numbers in.
func isDecimal(v string) bool {
	whole, frac, found := strings.Cut(v, ".")
	if !isInteger(whole) {
		return false
	}
	return !found || (frac != "" && isInteger(frac) && frac[0] != '-')
}
