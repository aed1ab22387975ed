package sink

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/Ramsey-B/fern/pkg/table"
)

const schemaName = "fern"

// parquetSchema maps every column to an optional leaf: UTF-8 strings for
// text columns and doubles for number columns.
func parquetSchema(t *table.Table) *parquet.Schema {
	group := make(parquet.Group, t.NumCols())
	for _, name := range t.Columns() {
		col, _ := t.Column(name)
		if col.Kind() == table.KindNumber {
			group[name] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
			continue
		}
		group[name] = parquet.Optional(parquet.String())
	}
	return parquet.NewSchema(schemaName, group)
}

// writeParquet encodes t as a single parquet file.
func writeParquet(w io.Writer, t *table.Table) error {
	schema := parquetSchema(t)

	type leaf struct {
		col   *table.Column
		index int
	}
	leaves := make([]leaf, 0, t.NumCols())
	for _, name := range t.Columns() {
		lc, ok := schema.Lookup(name)
		if !ok {
			return fmt.Errorf("column %q missing from parquet schema", name)
		}
		col, _ := t.Column(name)
		leaves = append(leaves, leaf{col: col, index: lc.ColumnIndex})
	}

	pw := parquet.NewWriter(w, schema)
	rows := make([]parquet.Row, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		row := make(parquet.Row, len(leaves))
		for _, l := range leaves {
			row[l.index] = parquetValue(l.col, i).Level(0, definitionLevel(l.col, i), l.index)
		}
		rows = append(rows, row)
	}

	if _, err := pw.WriteRows(rows); err != nil {
		pw.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	return pw.Close()
}

func parquetValue(col *table.Column, i int) parquet.Value {
	if col.IsNull(i) {
		return parquet.NullValue()
	}
	if col.Kind() == table.KindNumber {
		f, _ := col.Float(i)
		return parquet.DoubleValue(f)
	}
	s, _ := col.String(i)
	return parquet.ByteArrayValue([]byte(s))
}

func definitionLevel(col *table.Column, i int) int {
	if col.IsNull(i) {
		return 0
	}
	return 1
}
