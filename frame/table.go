// frame/table.go
package frame

import (
	"fmt"
	"math"
	"strings"
)

// Row is one record keyed by column name. Values are nil (null), float64,
// string, bool or time.Time.
type Row map[string]any

// Clone returns a shallow copy of the row. Values are immutable scalars so a
// shallow copy is a full copy.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Text returns the value of col as a string when it holds one.
func (r Row) Text(col string) (string, bool) {
	s, ok := r[col].(string)
	return s, ok
}

// IsNull reports whether col is missing, nil or a NaN float.
func (r Row) IsNull(col string) bool {
	return IsNull(r[col])
}

// IsNull reports whether v is a null cell value.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	}
	return false
}

// Table is an ordered set of columns plus rows. Operations never modify the
// receiver; they return a new Table and copy any row they change.
type Table struct {
	columns []string
	rows    []Row
}

// New builds a table with the given column order. Rows are used as given.
func New(columns []string, rows ...Row) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{columns: cols, rows: rows}
}

// Columns returns a copy of the column order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// Rows returns the rows. Callers must not modify them.
func (t *Table) Rows() []Row { return t.rows }

// Len returns the row count.
func (t *Table) Len() int { return len(t.rows) }

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

// MissingColumnError is returned when an operation references columns the
// table does not have, usually because a source sheet changed its layout.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column(s): %s", strings.Join(e.Columns, ", "))
}

// Require returns a *MissingColumnError listing every name not in the table.
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnError{Columns: missing}
	}
	return nil
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	rows := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return &Table{columns: t.Columns(), rows: rows}
}

// WithColumn sets name on every row to fn(row). The column is appended when
// it does not exist yet and overwritten in place otherwise.
func (t *Table) WithColumn(name string, fn func(Row) any) *Table {
	cols := t.Columns()
	if !t.HasColumn(name) {
		cols = append(cols, name)
	}
	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		nr := r.Clone()
		nr[name] = fn(r)
		rows[i] = nr
	}
	return &Table{columns: cols, rows: rows}
}

// Append returns a table holding t's rows followed by rows. Columns present
// in the new rows but not in t are added at the end.
func (t *Table) Append(rows ...Row) *Table {
	cols := t.Columns()
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		seen[c] = true
	}
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	all := make([]Row, 0, len(t.rows)+len(rows))
	all = append(all, t.rows...)
	all = append(all, rows...)
	return &Table{columns: cols, rows: all}
}

// Select projects the table onto cols, in that order.
func (t *Table) Select(cols ...string) (*Table, error) {
	if err := t.Require(cols...); err != nil {
		return nil, err
	}
	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		nr := make(Row, len(cols))
		for _, c := range cols {
			nr[c] = r[c]
		}
		rows[i] = nr
	}
	return New(cols, rows...), nil
}

// RenameFunc renames every column with fn. Two columns mapping to the same
// name is an error.
func (t *Table) RenameFunc(fn func(string) string) (*Table, error) {
	names := make(map[string]string, len(t.columns))
	cols := make([]string, len(t.columns))
	taken := make(map[string]string, len(t.columns))
	for i, c := range t.columns {
		n := fn(c)
		if prev, dup := taken[n]; dup {
			return nil, fmt.Errorf("columns %q and %q both rename to %q", prev, c, n)
		}
		taken[n] = c
		names[c] = n
		cols[i] = n
	}
	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		nr := make(Row, len(r))
		for k, v := range r {
			if n, ok := names[k]; ok {
				nr[n] = v
			} else {
				nr[k] = v
			}
		}
		rows[i] = nr
	}
	return New(cols, rows...), nil
}

// Rename renames the columns found in m. Unknown keys are ignored.
func (t *Table) Rename(m map[string]string) (*Table, error) {
	return t.RenameFunc(func(c string) string {
		if n, ok := m[c]; ok {
			return n
		}
		return c
	})
}

// Melt unpivots the value columns into rows: for each value column, in order,
// every input row yields one output row holding the id columns, varName set
// to the value column's name and valueName set to its value.
func (t *Table) Melt(ids, values []string, varName, valueName string) (*Table, error) {
	if err := t.Require(append(append([]string{}, ids...), values...)...); err != nil {
		return nil, err
	}
	cols := append(append([]string{}, ids...), varName, valueName)
	rows := make([]Row, 0, len(t.rows)*len(values))
	for _, v := range values {
		for _, r := range t.rows {
			nr := make(Row, len(cols))
			for _, id := range ids {
				nr[id] = r[id]
			}
			nr[varName] = v
			nr[valueName] = r[v]
			rows = append(rows, nr)
		}
	}
	return New(cols, rows...), nil
}

// Column returns the values of col in row order.
func (t *Table) Column(col string) []any {
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[col]
	}
	return out
}
