package domain

import (
	"fmt"
	"slices"
)

// Table is an ordered, column-oriented batch of rows. A nil cell is a null.
//
// Cells hold one of: nil, string, float64, int64, bool, or time.Time. Readers
// that produce other Go types convert them before appending.
type Table struct {
	columns []string
	data    map[string][]any
	rows    int
}

// NewTable returns an empty table with the given ordered columns.
func NewTable(columns ...string) *Table {
	t := &Table{data: make(map[string][]any, len(columns))}
	for _, c := range columns {
		if _, ok := t.data[c]; ok {
			continue
		}
		t.columns = append(t.columns, c)
		t.data[c] = nil
	}
	return t
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.rows
}

// Has reports whether the table carries the named column.
func (t *Table) Has(name string) bool {
	_, ok := t.data[name]
	return ok
}

// Column returns the cells of the named column, or nil if it is absent.
// The returned slice is shared with the table.
func (t *Table) Column(name string) []any {
	return t.data[name]
}

// Row returns a copy of the i-th row in column order.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.columns))
	for j, c := range t.columns {
		row[j] = t.data[c][i]
	}
	return row
}

// AppendRow adds one row. values must be in column order.
func (t *Table) AppendRow(values ...any) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("append row: got %d values for %d columns", len(values), len(t.columns))
	}
	for i, c := range t.columns {
		t.data[c] = append(t.data[c], values[i])
	}
	t.rows++
	return nil
}

// SetColumn replaces the named column, or appends it when absent.
// A table with no columns takes its row count from the first column set.
func (t *Table) SetColumn(name string, values []any) error {
	if len(t.columns) > 0 && len(values) != t.rows {
		return fmt.Errorf("set column %q: got %d values for %d rows", name, len(values), t.rows)
	}
	if !t.Has(name) {
		t.columns = append(t.columns, name)
	}
	t.data[name] = values
	t.rows = len(values)
	return nil
}

// Rename changes column names according to the from→to map. Columns whose
// source name is absent are ignored. Renaming onto an existing column
// replaces it.
func (t *Table) Rename(names map[string]string) {
	for _, from := range slices.Clone(t.columns) {
		to, ok := names[from]
		if !ok || to == from {
			continue
		}
		values := t.data[from]
		delete(t.data, from)
		if t.Has(to) {
			t.columns = slices.DeleteFunc(t.columns, func(c string) bool { return c == to })
		}
		idx := slices.Index(t.columns, from)
		t.columns[idx] = to
		t.data[to] = values
	}
}

// Clone returns a copy of the table that shares cell slices with t.
// Column-level changes to the copy do not affect t.
func (t *Table) Clone() *Table {
	c := &Table{
		columns: slices.Clone(t.columns),
		data:    make(map[string][]any, len(t.data)),
		rows:    t.rows,
	}
	for k, v := range t.data {
		c.data[k] = v
	}
	return c
}
