// Package sheets is the storage gateway. Each collection lives in one
// worksheet of a spreadsheet: the first row holds the headers and every
// following row is a record. Reads are cached for a short time and every
// write replaces the whole worksheet.
package sheets

import (
	"context"
	"strconv"
)

// Backend is the tabular service holding the worksheets.
type Backend interface {
	// EnsureWorksheet opens the worksheet named title, creating it when it
	// does not exist. created reports whether it was created.
	EnsureWorksheet(ctx context.Context, title string) (created bool, err error)

	// Values returns every non-empty row of the worksheet, header row first.
	// Rows may be shorter than the header when trailing cells are empty.
	Values(ctx context.Context, title string) ([][]string, error)

	// Replace makes rows the complete content of the worksheet. Cells are
	// strings or float64 values; nil is an empty cell.
	Replace(ctx context.Context, title string, rows [][]any) error
}

// cellString renders a cell value the way Values reports it.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return FormatNumber(t)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
