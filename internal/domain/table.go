package domain

import (
	"fmt"
	"sort"
)

// Row maps a column name to a scalar value. A missing key, a nil value and a
// float NaN are all treated as null.
type Row map[string]any

// Table is an ordered, column-named dataset of patient records. A Table is
// read-only once constructed; operations that clean data return a new Table.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Row
}

// NewTable builds a Table from an explicit column order and a set of rows.
// Column names must be unique and every row key must name a declared column.
func NewTable(columns []string, rows []Row) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if c == "" {
			return nil, NewValidationError("columns", "column name must not be empty", i)
		}
		if _, dup := index[c]; dup {
			return nil, NewValidationError("columns", fmt.Sprintf("duplicate column %q", c), c)
		}
		index[c] = i
	}
	for i, r := range rows {
		for k := range r {
			if _, ok := index[k]; !ok {
				return nil, fmt.Errorf("row %d: %w: %s", i, ErrUnknownColumn, k)
			}
		}
	}

	cols := make([]string, len(columns))
	copy(cols, columns)
	rs := make([]Row, len(rows))
	copy(rs, rows)

	return &Table{columns: cols, index: index, rows: rs}, nil
}

// TableFromRecords builds a Table from loosely structured records, e.g. JSON
// objects. Columns are ordered by first appearance, with keys inside a single
// record sorted so the result is deterministic.
func TableFromRecords(records []map[string]any) *Table {
	var columns []string
	seen := make(map[string]bool)
	rows := make([]Row, len(records))

	for i, rec := range records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
		rows[i] = Row(rec)
	}

	t, _ := NewTable(columns, rows)
	return t
}

// Columns returns a copy of the column names in insertion order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.columns) }

// HasColumn reports whether the table declares the named column.
func (t *Table) HasColumn(name string) bool {
	if name == "" {
		return false
	}
	_, ok := t.index[name]
	return ok
}

// Value returns the raw value of a cell. Nulls are returned as nil.
func (t *Table) Value(row int, column string) any {
	v := t.rows[row][column]
	if IsNull(v) {
		return nil
	}
	return v
}

// Row returns the underlying row. Callers must not modify it.
func (t *Table) Row(i int) Row { return t.rows[i] }

// Column returns the values of one column in row order.
func (t *Table) Column(name string) []any {
	out := make([]any, len(t.rows))
	for i := range t.rows {
		out[i] = t.Value(i, name)
	}
	return out
}

// Records returns the rows as plain maps with nulls omitted, suitable for
// JSON encoding.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.rows))
	for i := range t.rows {
		rec := make(map[string]any, len(t.columns))
		for _, c := range t.columns {
			if v := t.Value(i, c); v != nil {
				rec[c] = v
			}
		}
		out[i] = rec
	}
	return out
}

// SelectRows returns a new Table holding the given rows in the given order.
func (t *Table) SelectRows(indices []int) *Table {
	rows := make([]Row, len(indices))
	for i, idx := range indices {
		rows[i] = t.rows[idx]
	}
	return &Table{columns: t.Columns(), index: t.cloneIndex(), rows: rows}
}

// DropColumns returns a new Table without the named columns. Unknown names
// are ignored.
func (t *Table) DropColumns(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	var cols []string
	for _, c := range t.columns {
		if !drop[c] {
			cols = append(cols, c)
		}
	}

	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		nr := make(Row, len(cols))
		for _, c := range cols {
			if v, ok := r[c]; ok {
				nr[c] = v
			}
		}
		rows[i] = nr
	}

	out, _ := NewTable(cols, rows)
	return out
}

func (t *Table) cloneIndex() map[string]int {
	idx := make(map[string]int, len(t.index))
	for k, v := range t.index {
		idx[k] = v
	}
	return idx
}
