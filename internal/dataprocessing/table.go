package dataprocessing

import (
	"fmt"
)

// Table is a named, row-major set of cells with an ordered header. Column
// transforms operate on whole columns through MapColumn and SetColumn.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]Value
}

// NewTable creates an empty table with the given header.
func NewTable(name string, columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Name: name, Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of the first column named col, or -1.
func (t *Table) Index(col string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Has reports whether the column exists.
func (t *Table) Has(col string) bool {
	return t.Index(col) >= 0
}

// Get returns the cell at row for col, Null when the column is absent.
func (t *Table) Get(row int, col string) Value {
	idx := t.Index(col)
	if idx < 0 || row < 0 || row >= t.Len() {
		return Null
	}
	r := t.Rows[row]
	if idx >= len(r) {
		return Null
	}
	return r[idx]
}

// Column returns a copy of the column's cells, nil when absent.
func (t *Table) Column(col string) []Value {
	idx := t.Index(col)
	if idx < 0 {
		return nil
	}
	out := make([]Value, len(t.Rows))
	for i, r := range t.Rows {
		if idx < len(r) {
			out[i] = r[idx]
		}
	}
	return out
}

// SetColumn replaces the column's cells, appending the column when missing.
func (t *Table) SetColumn(col string, values []Value) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %s: got %d values for %d rows", col, len(values), len(t.Rows))
	}
	idx := t.Index(col)
	if idx < 0 {
		t.Columns = append(t.Columns, col)
		idx = len(t.Columns) - 1
	}
	for i := range t.Rows {
		t.ensureWidth(i)
		t.Rows[i][idx] = values[i]
	}
	return nil
}

// MapColumn applies fn to every cell of col. It returns false when the column
// is absent.
func (t *Table) MapColumn(col string, fn func(Value) Value) bool {
	idx := t.Index(col)
	if idx < 0 {
		return false
	}
	for i := range t.Rows {
		t.ensureWidth(i)
		t.Rows[i][idx] = fn(t.Rows[i][idx])
	}
	return true
}

// RenameColumn renames the first column named from.
func (t *Table) RenameColumn(from, to string) bool {
	idx := t.Index(from)
	if idx < 0 {
		return false
	}
	t.Columns[idx] = to
	return true
}

// AppendRow adds a row, padding or truncating it to the header width.
func (t *Table) AppendRow(row []Value) {
	r := make([]Value, len(t.Columns))
	copy(r, row)
	t.Rows = append(t.Rows, r)
}

// Filter returns a new table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := NewTable(t.Name, t.Columns)
	for i, r := range t.Rows {
		if keep(i) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := NewTable(t.Name, t.Columns)
	out.Rows = make([][]Value, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]Value, len(r))
		copy(row, r)
		out.Rows[i] = row
	}
	return out
}

// Record returns row as a column -> Go value map. Null cells map to nil.
func (t *Table) Record(row int) map[string]interface{} {
	rec := make(map[string]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		if _, seen := rec[c]; seen {
			continue
		}
		var v Value
		if i < len(t.Rows[row]) {
			v = t.Rows[row][i]
		}
		rec[c] = v.Interface()
	}
	return rec
}

// GroupIndex maps each distinct key text of col to its row positions, in
// row order. Rows with a null key are left out.
func (t *Table) GroupIndex(col string) map[string][]int {
	groups := make(map[string][]int)
	idx := t.Index(col)
	if idx < 0 {
		return groups
	}
	for i, r := range t.Rows {
		if idx >= len(r) || r[idx].IsNull() {
			continue
		}
		key := r[idx].Text()
		groups[key] = append(groups[key], i)
	}
	return groups
}

func (t *Table) ensureWidth(row int) {
	if missing := len(t.Columns) - len(t.Rows[row]); missing > 0 {
		t.Rows[row] = append(t.Rows[row], make([]Value, missing)...)
	}
}

// Concat stacks tables in order. The header is the union of all headers in
// first-seen order; cells for columns a table lacks are Null.
func Concat(name string, tables ...*Table) *Table {
	var columns []string
	seen := make(map[string]bool)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if !seen[c] {
				seen[c] = true
				columns = append(columns, c)
			}
		}
	}

	out := NewTable(name, columns)
	for _, t := range tables {
		if t == nil {
			continue
		}
		positions := make([]int, len(columns))
		for i, c := range columns {
			positions[i] = t.Index(c)
		}
		for _, r := range t.Rows {
			row := make([]Value, len(columns))
			for i, p := range positions {
				if p >= 0 && p < len(r) {
					row[i] = r[p]
				}
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}
