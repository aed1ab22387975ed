// Package table implements the small immutable, column-oriented table the
// pipeline passes between stages. Every operation returns a new table.
package table

import (
	"fmt"
	"strings"
)

// Table is an ordered set of equal-length columns.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New builds a table from columns. Column names must be unique and all
// columns must have the same length.
func New(columns ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if _, dup := t.index[c.name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.name, c.Len(), t.rows)
		}
		t.index[c.name] = i
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// MustNew is New for fixtures; it panics on invalid input.
func MustNew(columns ...*Column) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) NumRows() int { return t.rows }
func (t *Table) NumCols() int { return len(t.columns) }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column. Columns are immutable so the pointer is
// safe to share.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Missing returns the names that are not columns of t, in argument order.
func (t *Table) Missing(names ...string) []string {
	var missing []string
	for _, n := range names {
		if !t.Has(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Resolve maps canonical names to actual column names case-insensitively.
// The first matching column wins. Unresolved names are returned separately.
func (t *Table) Resolve(canonical ...string) (map[string]string, []string) {
	mapping := make(map[string]string, len(canonical))
	var missing []string
	for _, want := range canonical {
		found := false
		for _, c := range t.columns {
			if strings.EqualFold(c.name, want) {
				mapping[want] = c.name
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	return mapping, missing
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.Rename(c.name)
	}
	return MustNew(cols...)
}

// Select keeps the named columns in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	if missing := t.Missing(names...); len(missing) > 0 {
		return nil, fmt.Errorf("columns not found: %s", strings.Join(missing, ", "))
	}
	cols := make([]*Column, len(names))
	for i, n := range names {
		c, _ := t.Column(n)
		cols[i] = c
	}
	return New(cols...)
}

// Rename renames columns by old -> new. Unknown names are ignored.
func (t *Table) Rename(names map[string]string) (*Table, error) {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		if to, ok := names[c.name]; ok {
			cols[i] = c.Rename(to)
			continue
		}
		cols[i] = c
	}
	return New(cols...)
}

// WithColumn appends col, or replaces the column of the same name in place.
func (t *Table) WithColumn(col *Column) (*Table, error) {
	if len(t.columns) > 0 && col.Len() != t.rows {
		return nil, fmt.Errorf("column %q has %d rows, expected %d", col.name, col.Len(), t.rows)
	}
	cols := make([]*Column, 0, len(t.columns)+1)
	replaced := false
	for _, c := range t.columns {
		if c.name == col.name {
			cols = append(cols, col)
			replaced = true
			continue
		}
		cols = append(cols, c)
	}
	if !replaced {
		cols = append(cols, col)
	}
	return New(cols...)
}

// Drop removes the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	cols := make([]*Column, 0, len(t.columns))
	for _, c := range t.columns {
		if _, ok := drop[c.name]; ok {
			continue
		}
		cols = append(cols, c)
	}
	out := MustNew(cols...)
	if len(cols) == 0 {
		out.rows = t.rows
	}
	return out
}

// Row is a read-only view of one row.
type Row struct {
	t *Table
	i int
}

func (r Row) Index() int { return r.i }

// Value returns the cell of the named column, nil when null or absent.
func (r Row) Value(name string) any {
	c, ok := r.t.Column(name)
	if !ok {
		return nil
	}
	return c.values[r.i]
}

// String returns the named cell as text.
func (r Row) String(name string) (string, bool) {
	c, ok := r.t.Column(name)
	if !ok {
		return "", false
	}
	return c.String(r.i)
}

// Float returns the named cell as a number.
func (r Row) Float(name string) (float64, bool) {
	c, ok := r.t.Column(name)
	if !ok {
		return 0, false
	}
	return c.Float(r.i)
}

// Row returns the i-th row view.
func (t *Table) Row(i int) Row {
	return Row{t: t, i: i}
}

// Filter keeps the rows for which keep returns true, in order.
func (t *Table) Filter(keep func(r Row) bool) *Table {
	idx := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if keep(Row{t: t, i: i}) {
			idx = append(idx, i)
		}
	}
	return t.take(idx)
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	if n > t.rows {
		n = t.rows
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return t.take(idx)
}

// Records renders the table as a header plus text rows. Nulls are empty.
func (t *Table) Records() ([]string, [][]string) {
	header := t.Columns()
	rows := make([][]string, t.rows)
	for i := 0; i < t.rows; i++ {
		row := make([]string, len(t.columns))
		for j, c := range t.columns {
			row[j] = FormatValue(c.values[i])
		}
		rows[i] = row
	}
	return header, rows
}

// take builds a table from row indexes; a negative index yields a null row.
func (t *Table) take(idx []int) *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.take(idx)
	}
	out := MustNew(cols...)
	out.rows = len(idx)
	return out
}
