// database/survival_store.go
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/nclcancer/survival/frame"
)

// LoadError reports a failed load into Destination. The destination keeps
// its previous contents.
type LoadError struct {
	Destination string
	Err         error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Destination, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Replace clears destination and inserts every row of t, in one
// transaction. Columns are inserted under the table's column names. It
// returns the number of rows inserted.
func (s *Store) Replace(ctx context.Context, destination string, t *frame.Table) (int64, error) {
	name, err := s.QualifiedName(destination)
	if err != nil {
		return 0, &LoadError{Destination: destination, Err: err}
	}
	cols := t.Columns()
	for _, c := range cols {
		if !identifierPattern.MatchString(c) {
			return 0, &LoadError{Destination: name, Err: fmt.Errorf("invalid column name %q", c)}
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, &LoadError{Destination: name, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+name); err != nil {
		return 0, &LoadError{Destination: name, Err: fmt.Errorf("failed to clear existing rows: %w", err)}
	}
	s.logger.Debug("Database: cleared destination", "destination", name)

	rows := t.Rows()
	batch := rowsPerInsert(s.batchSize, len(cols))
	var inserted int64
	for start := 0; start < len(rows); start += batch {
		end := min(start+batch, len(rows))
		query, args := insertStatement(name, cols, rows[start:end])
		if _, err := tx.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
			return 0, &LoadError{Destination: name, Err: fmt.Errorf("failed to insert rows %d-%d: %w", start+1, end, err)}
		}
		inserted += int64(end - start)
	}

	if err := tx.Commit(); err != nil {
		return 0, &LoadError{Destination: name, Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}

	s.logger.Info("Database: replaced destination", "destination", name, "rows", inserted)
	return inserted, nil
}

// maxPlaceholders is the most bind parameters one statement may carry. It is
// sqlite's limit, the lowest of the supported drivers.
const maxPlaceholders = 32766

// rowsPerInsert caps batch so one INSERT of ncols columns stays within
// maxPlaceholders.
func rowsPerInsert(batch, ncols int) int {
	if ncols > 0 && batch*ncols > maxPlaceholders {
		batch = maxPlaceholders / ncols
	}
	return max(batch, 1)
}

// insertStatement builds one multi-row INSERT with "?" placeholders.
func insertStatement(table string, cols []string, rows []frame.Row) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES ")

	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	args := make([]any, 0, len(cols)*len(rows))
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
		for _, c := range cols {
			v := r[c]
			if frame.IsNull(v) {
				v = nil
			}
			args = append(args, v)
		}
	}
	return b.String(), args
}
