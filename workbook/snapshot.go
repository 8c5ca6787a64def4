// workbook/snapshot.go
package workbook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nclcancer/survival/frame"
)

const (
	minSnapshotYear = 2000
	maxSnapshotYear = 2100
)

// SnapshotDateError means the notes sheet did not yield a usable snapshot
// date. It is never fatal: callers log it and store a null date.
type SnapshotDateError struct {
	Text   string // the cell text that was inspected, if any
	Reason string
	Err    error
}

func (e *SnapshotDateError) Error() string {
	msg := "snapshot date: " + e.Reason
	if e.Text != "" {
		msg += fmt.Sprintf(" (text %q)", e.Text)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SnapshotDateError) Unwrap() error { return e.Err }

// SnapshotDate reads the notes sheet and extracts its snapshot date label.
// Every failure, including a missing sheet, is a *SnapshotDateError.
func (w *Workbook) SnapshotDate(sheet string, skip int) (string, error) {
	notes, err := w.ReadSheet(sheet, skip)
	if err != nil {
		return "", &SnapshotDateError{Reason: "notes sheet unreadable", Err: err}
	}
	return ExtractSnapshotDate(notes)
}

// ExtractSnapshotDate takes the first cell of the first data row, splits it
// on whitespace and reads the third and second from last words as month and
// year. It returns "<Month> <Year>", e.g. "March 2024".
func ExtractSnapshotDate(notes *frame.Table) (string, error) {
	cols := notes.Columns()
	if len(cols) == 0 || notes.Len() == 0 {
		return "", &SnapshotDateError{Reason: "notes sheet has no data rows"}
	}
	text, ok := notes.Rows()[0].Text(cols[0])
	if !ok {
		return "", &SnapshotDateError{Reason: "first cell is not text"}
	}

	words := strings.Fields(text)
	if len(words) < 3 {
		return "", &SnapshotDateError{Text: text, Reason: "too few words"}
	}
	monthWord, yearWord := words[len(words)-3], words[len(words)-2]

	// time.Parse matches full month names case-insensitively.
	month, err := time.Parse("January", monthWord)
	if err != nil {
		return "", &SnapshotDateError{Text: text, Reason: fmt.Sprintf("%q is not a month", monthWord)}
	}
	year, err := strconv.Atoi(yearWord)
	if err != nil {
		return "", &SnapshotDateError{Text: text, Reason: fmt.Sprintf("%q is not a year", yearWord), Err: err}
	}
	if year < minSnapshotYear || year > maxSnapshotYear {
		return "", &SnapshotDateError{Text: text,
			Reason: fmt.Sprintf("year %d outside %d-%d", year, minSnapshotYear, maxSnapshotYear)}
	}
	return fmt.Sprintf("%s %d", month.Month(), year), nil
}
