package table

import (
	"fmt"
	"strconv"
	"strings"
)

// ReadOptions controls how text records become typed columns.
type ReadOptions struct {
	// NullValues are cell values read as null, compared after trimming.
	NullValues []string
	// Numeric forces the named columns to numbers.
	Numeric []string
	// Text forces the named columns to text, even when Infer is set.
	Text []string
	// Infer makes every other column a number when all of its non-null
	// cells parse as one.
	Infer bool
}

// FromRecords builds a table from a header and rows. Every row must have
// exactly len(header) fields.
func FromRecords(header []string, records [][]string, opts ReadOptions) (*Table, error) {
	nulls := make(map[string]struct{}, len(opts.NullValues))
	for _, n := range opts.NullValues {
		nulls[n] = struct{}{}
	}
	numeric := toSet(opts.Numeric)
	text := toSet(opts.Text)

	raw := make([][]any, len(header))
	for j := range raw {
		raw[j] = make([]any, len(records))
	}
	for i, rec := range records {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("record %d has %d fields, expected %d", i+1, len(rec), len(header))
		}
		for j, v := range rec {
			if _, isNull := nulls[strings.TrimSpace(v)]; isNull {
				continue
			}
			raw[j][i] = v
		}
	}

	cols := make([]*Column, len(header))
	for j, name := range header {
		kind := KindText
		switch {
		case contains(text, name):
		case contains(numeric, name):
			kind = KindNumber
		case opts.Infer && allNumeric(raw[j]):
			kind = KindNumber
		}
		cols[j] = NewColumn(name, kind, raw[j])
	}
	return New(cols...)
}

func allNumeric(values []any) bool {
	seen := false
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func contains(set map[string]struct{}, name string) bool {
	_, ok := set[name]
	return ok
}
