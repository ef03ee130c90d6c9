// Package ingest validates and parses uploaded customer-id lists.
//
// Supported formats are CSV and Excel workbooks (.xls and .xlsx). Every format
// carries a single header cell "customer_id" followed by one id per row.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"coupon-admin/internal/model"
)

// HeaderToken is the required header of the customer-id column.
const HeaderToken = "customer_id"

// Format identifies how an uploaded file is encoded.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLS  Format = "xls"
	FormatXLSX Format = "xlsx"
)

var contentTypes = map[Format]string{
	FormatCSV:  "text/csv",
	FormatXLS:  "application/vnd.ms-excel",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// DetectFormat derives the format from a file name's extension, case-insensitively.
func DetectFormat(fileName string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(fileName)), "."))
	f := Format(ext)
	if _, ok := contentTypes[f]; !ok {
		return "", model.ErrInvalidFile.WithMessage(
			fmt.Sprintf("unsupported file type %q: only csv, xls and xlsx are accepted", fileName),
		)
	}
	return f, nil
}

// ParseFormat accepts a bare type such as "csv" or ".XLSX".
func ParseFormat(fileType string) (Format, error) {
	return DetectFormat("file." + strings.TrimPrefix(strings.TrimSpace(fileType), "."))
}

// ContentType returns the MIME type uploads of this format are stored with.
func (f Format) ContentType() string {
	if ct, ok := contentTypes[f]; ok {
		return ct
	}
	return "application/octet-stream"
}

func isHeader(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), HeaderToken)
}
