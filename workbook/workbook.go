// workbook/workbook.go
package workbook

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nclcancer/survival/frame"
	"github.com/xuri/excelize/v2"
)

// ErrSheetNotFound is wrapped by ParseError when the workbook has no sheet
// with the requested name.
var ErrSheetNotFound = errors.New("sheet not found")

// ParseError reports a workbook that cannot be read the way a dataset
// expects: unreadable file, missing sheet, or a skip offset past the data.
type ParseError struct {
	File  string
	Sheet string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("workbook %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("workbook %s, sheet %q: %v", e.File, e.Sheet, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Workbook is an open xlsx file.
type Workbook struct {
	f    *excelize.File
	name string
}

// Open reads a workbook from r. name is only used in errors and logs.
func Open(r io.Reader, name string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{File: name, Err: fmt.Errorf("failed to open workbook: %w", err)}
	}
	return &Workbook{f: f, name: name}, nil
}

// OpenFile opens the workbook at path.
func OpenFile(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &ParseError{File: path, Err: fmt.Errorf("failed to open workbook: %w", err)}
	}
	return &Workbook{f: f, name: path}, nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// Name returns the name the workbook was opened with.
func (w *Workbook) Name() string { return w.name }

// ReadSheet skips the first skip rows of sheet, uses the next row as the
// header and returns the remaining rows as a table. Header text is kept as
// written; blank headers become "column_<n>" and repeated headers get a
// "_<n>" suffix. Rows with no values are dropped.
//
// Empty cells are nil, numeric cells float64, boolean cells bool and
// everything else string, as typed in the workbook.
func (w *Workbook) ReadSheet(sheet string, skip int) (*frame.Table, error) {
	if !w.hasSheet(sheet) {
		return nil, &ParseError{File: w.name, Sheet: sheet, Err: ErrSheetNotFound}
	}
	if skip < 0 {
		return nil, &ParseError{File: w.name, Sheet: sheet, Err: fmt.Errorf("negative skip offset %d", skip)}
	}

	// Raw values keep numbers unformatted so they parse back to float64.
	rows, err := w.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{File: w.name, Sheet: sheet, Err: fmt.Errorf("failed to read rows: %w", err)}
	}
	if skip >= len(rows) {
		return nil, &ParseError{File: w.name, Sheet: sheet,
			Err: fmt.Errorf("skip offset %d leaves no header row (sheet has %d rows)", skip, len(rows))}
	}

	headers := headerNames(rows[skip])
	data := make([]frame.Row, 0, len(rows)-skip-1)
	for k, raw := range rows[skip+1:] {
		rowNum := skip + 2 + k
		row := make(frame.Row, len(headers))
		empty := true
		for i, h := range headers {
			var v any
			if i < len(raw) && raw[i] != "" {
				if v, err = w.cellValue(sheet, i+1, rowNum, raw[i]); err != nil {
					return nil, &ParseError{File: w.name, Sheet: sheet, Err: err}
				}
				empty = false
			}
			row[h] = v
		}
		if !empty {
			data = append(data, row)
		}
	}
	return frame.New(headers, data...), nil
}

func (w *Workbook) hasSheet(sheet string) bool {
	for _, s := range w.f.GetSheetList() {
		if s == sheet {
			return true
		}
	}
	return false
}

func headerNames(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = fmt.Sprintf("%s_%d", h, n)
		}
		headers[i] = h
	}
	return headers
}

// cellValue types a non-empty raw cell by the type stored in the workbook.
// Cells without a type attribute are numbers.
func (w *Workbook) cellValue(sheet string, col, row int, raw string) (any, error) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, err
	}
	typ, err := w.f.GetCellType(sheet, axis)
	if err != nil {
		return nil, fmt.Errorf("failed to read type of cell %s: %w", axis, err)
	}
	switch typ {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f, nil
		}
		return raw, nil
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	default:
		return raw, nil
	}
}
