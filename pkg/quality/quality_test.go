package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/table"
)

func wells() *table.Table {
	return table.MustNew(
		table.Text("Mode", "Flowing", "Pumping", "Flowing", nil, "Flowing"),
		table.Text("License Status", "Issued", "Issued", "Abandoned", "Issued", "Issued"),
		table.Number("Latest Month OIL Production Volume", 10, 0, nil, 5, nil),
		table.Number("Latest Month GAS Production Volume", nil, 100, nil, 0, nil),
	)
}

func TestCompute(t *testing.T) {
	t.Run("should count production and group it by status", func(t *testing.T) {
		m := Compute(wells())

		assert.True(t, m.Available)
		assert.Equal(t, 2, m.RowsWithOil)
		assert.Equal(t, 1, m.RowsWithGas)
		assert.Equal(t, 3, m.RowsWithProduction)
		assert.Equal(t, map[string]int{"Flowing": 1, "Pumping": 1, NullGroup: 1}, m.ProductionByStatus)
		assert.Equal(t, map[string]int{"Issued": 3}, m.ProductionByLicenceStatus)

		out := m.Map()
		assert.Equal(t, 3, out["rows_with_production"])
		assert.Contains(t, out, "production_by_license_status")
	})

	t.Run("should be empty without oil and gas volume columns", func(t *testing.T) {
		tbl := table.MustNew(
			table.Text("Mode", "Flowing"),
			table.Number("Latest Month OIL Production Volume", 1),
		)

		m := Compute(tbl)
		assert.False(t, m.Available)
		assert.Empty(t, m.Map())
	})

	t.Run("should skip groupings without status columns", func(t *testing.T) {
		tbl := table.MustNew(
			table.Number("Oil Volume", 1),
			table.Number("Gas Volume", 0),
		)

		m := Compute(tbl)
		assert.Equal(t, 1, m.RowsWithProduction)
		assert.Nil(t, m.ProductionByStatus)
		assert.NotContains(t, m.Map(), "production_by_status")
	})
}

func TestNewProfile(t *testing.T) {
	p := NewProfile(wells())

	require.Len(t, p.Columns, 4)
	assert.Equal(t, 5, p.Rows)

	mode := p.Columns[0]
	assert.Equal(t, "Mode", mode.Name)
	assert.Equal(t, "text", mode.Kind)
	assert.Equal(t, 1, mode.Nulls)
	assert.Equal(t, 20.0, mode.NullPercent)
	assert.Equal(t, 2, mode.Distinct)
	assert.Nil(t, mode.Min)

	oil := p.Columns[2]
	assert.Equal(t, "number", oil.Kind)
	assert.Equal(t, 40.0, oil.NullPercent)
	require.NotNil(t, oil.Min)
	assert.Equal(t, 0.0, *oil.Min)
	assert.Equal(t, 10.0, *oil.Max)
}

func TestCompareIdentifiers(t *testing.T) {
	t.Run("should compare display and compact conversions", func(t *testing.T) {
		tbl := table.MustNew(
			table.Text("UWI Display", "00/06-06-001-01W4/2", "00/06-06-002-02W4/2", nil),
			table.Text("UWI", "00400100106062", "0024020606002", "00400100106062"),
		)

		r, ok := CompareIdentifiers(tbl)
		require.True(t, ok)
		assert.Equal(t, 3, r.Display.Total)
		assert.Equal(t, 2, r.Display.Converted)
		assert.Equal(t, 2, r.Compact.Converted)
		assert.Equal(t, 1, r.Compact.Unchanged)
		assert.Equal(t, 1, r.Compared)
		assert.Equal(t, 0, r.Agreeing)
		assert.Equal(t, 0.0, r.AgreementRate())
	})

	t.Run("should report missing columns", func(t *testing.T) {
		_, ok := CompareIdentifiers(table.MustNew(table.Text("UWI Display", "x")))
		assert.False(t, ok)
	})
}
