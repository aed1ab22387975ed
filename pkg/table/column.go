package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the semantic type of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	default:
		return "text"
	}
}

// Column is a named, typed, nullable vector. A nil cell is null. Text cells
// hold string values and number cells hold float64 values.
type Column struct {
	name   string
	kind   Kind
	values []any
}

// NewColumn builds a column, coercing every non-nil value to the column kind.
// Numbers that cannot be coerced become null.
func NewColumn(name string, kind Kind, values []any) *Column {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = coerce(kind, v)
	}
	return &Column{name: name, kind: kind, values: out}
}

// Text is a convenience constructor for a text column.
func Text(name string, values ...any) *Column {
	return NewColumn(name, KindText, values)
}

// Number is a convenience constructor for a number column.
func Number(name string, values ...any) *Column {
	return NewColumn(name, KindNumber, values)
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }
func (c *Column) Len() int     { return len(c.values) }

// Value returns the raw cell, nil for null.
func (c *Column) Value(i int) any {
	return c.values[i]
}

func (c *Column) IsNull(i int) bool {
	return c.values[i] == nil
}

// String returns the cell as text. Number cells are formatted without a
// trailing ".0" when integral.
func (c *Column) String(i int) (string, bool) {
	v := c.values[i]
	if v == nil {
		return "", false
	}
	return FormatValue(v), true
}

// Float returns the numeric value of the cell. Text cells are parsed.
func (c *Column) Float(i int) (float64, bool) {
	switch v := c.values[i].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.values {
		if v == nil {
			n++
		}
	}
	return n
}

// DistinctCount counts distinct non-null values.
func (c *Column) DistinctCount() int {
	seen := make(map[any]struct{}, len(c.values))
	for _, v := range c.values {
		if v == nil {
			continue
		}
		seen[v] = struct{}{}
	}
	return len(seen)
}

// UniqueCount counts distinct values with null counted as one value.
func (c *Column) UniqueCount() int {
	n := c.DistinctCount()
	if c.NullCount() > 0 {
		n++
	}
	return n
}

// Values returns a copy of the cells.
func (c *Column) Values() []any {
	out := make([]any, len(c.values))
	copy(out, c.values)
	return out
}

// Rename returns a copy of the column under a new name.
func (c *Column) Rename(name string) *Column {
	return &Column{name: name, kind: c.kind, values: c.Values()}
}

// Map applies fn to every cell and returns a new column of the given kind.
func (c *Column) Map(name string, kind Kind, fn func(v any) any) *Column {
	out := make([]any, len(c.values))
	for i, v := range c.values {
		out[i] = coerce(kind, fn(v))
	}
	return &Column{name: name, kind: kind, values: out}
}

func (c *Column) take(idx []int) *Column {
	out := make([]any, len(idx))
	for i, j := range idx {
		if j < 0 {
			continue
		}
		out[i] = c.values[j]
	}
	return &Column{name: c.name, kind: c.kind, values: out}
}

func coerce(kind Kind, v any) any {
	if v == nil {
		return nil
	}
	if kind == KindText {
		switch t := v.(type) {
		case string:
			return t
		case *string:
			if t == nil {
				return nil
			}
			return *t
		default:
			return FormatValue(t)
		}
	}
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		return f
	}
	return nil
}

// FormatValue renders a cell the way the CSV sink writes it.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
