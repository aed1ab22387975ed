package table

import "fmt"

// DefaultSuffix is appended to right-hand column names that collide with
// left-hand ones in a join.
const DefaultSuffix = "_right"

// LeftJoin joins right onto t. Every row of t is kept in order; a left row
// matching several right rows is repeated once per match; unmatched rows get
// null right-hand cells. Null keys never match. Keys are compared by their
// text form so a number key can meet a text key.
//
// The right key column is consumed by the join. Right columns whose names
// collide with left columns are renamed with suffix.
func (t *Table) LeftJoin(right *Table, leftOn, rightOn, suffix string) (*Table, error) {
	lk, ok := t.Column(leftOn)
	if !ok {
		return nil, fmt.Errorf("left join key %q not found", leftOn)
	}
	rk, ok := right.Column(rightOn)
	if !ok {
		return nil, fmt.Errorf("right join key %q not found", rightOn)
	}
	if suffix == "" {
		suffix = DefaultSuffix
	}

	lookup := make(map[string][]int, rk.Len())
	for i := 0; i < rk.Len(); i++ {
		key, ok := rk.String(i)
		if !ok {
			continue
		}
		lookup[key] = append(lookup[key], i)
	}

	leftIdx := make([]int, 0, t.rows)
	rightIdx := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		key, ok := lk.String(i)
		matches := lookup[key]
		if !ok || len(matches) == 0 {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, -1)
			continue
		}
		for _, j := range matches {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, j)
		}
	}

	cols := make([]*Column, 0, len(t.columns)+len(right.columns))
	for _, c := range t.columns {
		cols = append(cols, c.take(leftIdx))
	}
	for _, c := range right.columns {
		if c.name == rightOn {
			continue
		}
		rc := c.take(rightIdx)
		if t.Has(rc.name) {
			rc.name += suffix
		}
		cols = append(cols, rc)
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = len(leftIdx)
	return out, nil
}

// Groups returns, for each distinct non-null value of the named column, the
// row indexes holding it in row order. Groups are listed by first appearance.
func (t *Table) Groups(name string) ([][]int, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("group column %q not found", name)
	}
	pos := make(map[string]int)
	var groups [][]int
	for i := 0; i < c.Len(); i++ {
		key, ok := c.String(i)
		if !ok {
			continue
		}
		g, seen := pos[key]
		if !seen {
			g = len(groups)
			pos[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups, nil
}
