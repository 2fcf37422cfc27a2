// Package table is the in-memory tabular structure handed to the load pipeline.
package table

import (
	"fmt"
)

// Table is an ordered set of named columns with row-major values.
// A nil value is the null marker.
type Table struct {
	Columns []string
	Rows    [][]any
}

// New builds a table, checking that every row has one value per column.
func New(columns []string, rows [][]any) (*Table, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(r), len(columns))
		}
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of a column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the values in column i.
func (t *Table) Column(i int) []any {
	out := make([]any, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// SetColumn overwrites column i with vals. len(vals) must equal Len().
func (t *Table) SetColumn(i int, vals []any) {
	for r := range t.Rows {
		t.Rows[r][i] = vals[r]
	}
}

// Clone returns a deep copy of the row slices. Values themselves are shared,
// which is safe because the pipeline only ever replaces them.
func (t *Table) Clone() *Table {
	cols := make([]string, len(t.Columns))
	copy(cols, t.Columns)
	rows := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]any, len(r))
		copy(row, r)
		rows[i] = row
	}
	return &Table{Columns: cols, Rows: rows}
}

// Project returns a new table holding exactly names, in that order.
// The second return lists the requested names that t does not have; when it
// is non-empty the table is nil.
func (t *Table) Project(names []string) (*Table, []string) {
	idx := make([]int, len(names))
	var missing []string
	for i, n := range names {
		idx[i] = t.Index(n)
		if idx[i] < 0 {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return nil, missing
	}

	cols := make([]string, len(names))
	copy(cols, names)
	rows := make([][]any, len(t.Rows))
	for r, src := range t.Rows {
		row := make([]any, len(idx))
		for i, j := range idx {
			row[i] = src[j]
		}
		rows[r] = row
	}
	return &Table{Columns: cols, Rows: rows}, nil
}
