package production

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/diagnostics"
	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/table"
)

func newTestAggregator() (*Aggregator, *diagnostics.Recorder) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	rec := diagnostics.NewRecorder(logger)
	return NewAggregator(logger, rec), rec
}

func productionTable(rows ...[]any) *table.Table {
	cols := make([][]any, 6)
	for _, r := range rows {
		for i, v := range r {
			cols[i] = append(cols[i], v)
		}
	}
	return table.MustNew(
		table.Text("ProductionMonth", cols[0]...),
		table.Text("FromToIDType", cols[1]...),
		table.Text("FromToIDIdentifier", cols[2]...),
		table.Text("ProductID", cols[3]...),
		table.Text("ActivityID", cols[4]...),
		table.Number("Volume", cols[5]...),
	)
}

func TestAggregate(t *testing.T) {
	t.Run("should sum volumes per well and product", func(t *testing.T) {
		input := productionTable(
			[]any{"2024-01", "WI", "A", "OIL", "PROD", 100},
			[]any{"2024-01", "WI", "A", "OIL", "PROD", 50},
			[]any{"2024-01", "WI", "A", "GAS", "PROD", 1000},
		)
		a, rec := newTestAggregator()

		out, err := a.Aggregate(context.Background(), input)
		require.NoError(t, err)

		assert.Equal(t, []string{
			ColUWI,
			VolumeColumn("OIL"),
			VolumeColumn("GAS"),
			ColProductionMonth,
		}, out.Columns())
		assert.Equal(t, 1, out.NumRows())
		assert.Equal(t, "A", out.Row(0).Value(ColUWI))
		assert.Equal(t, 150.0, out.Row(0).Value("Latest Month OIL Production Volume"))
		assert.Equal(t, 1000.0, out.Row(0).Value("Latest Month GAS Production Volume"))
		assert.Equal(t, "2024-01", out.Row(0).Value(ColProductionMonth))
		assert.Zero(t, rec.Count(diagnostics.DuplicateKey))
	})

	t.Run("should take the latest month before filtering", func(t *testing.T) {
		input := productionTable(
			[]any{"2024-01", "WI", "A", "OIL", "PROD", 1},
			[]any{"2024-03", "FA", "F1", "OIL", "PROD", 9},
			[]any{"2024-02", "WI", "B", "WATER", "PROD", 9},
		)
		a, _ := newTestAggregator()

		out, err := a.Aggregate(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, 1, out.NumRows())
		assert.Equal(t, "2024-03", out.Row(0).Value(ColProductionMonth))
		assert.False(t, out.Has(VolumeColumn("WATER")))
	})

	t.Run("should leave absent products null and keep first appearance order", func(t *testing.T) {
		input := productionTable(
			[]any{"2024-01", "WI", "B", "GAS", "PROD", 5},
			[]any{"2024-01", "WI", "A", "OIL", "PROD", 7},
			[]any{"2024-01", "WI", "C", "OIL", "PROD", nil},
			[]any{"2024-01", "WI", "A", "GAS", "INJ", 3},
		)
		a, _ := newTestAggregator()

		out, err := a.Aggregate(context.Background(), input)
		require.NoError(t, err)

		uwi, _ := out.Column(ColUWI)
		assert.Equal(t, []any{"B", "A", "C"}, uwi.Values())
		gas, _ := out.Column(VolumeColumn("GAS"))
		assert.Equal(t, []any{5.0, nil, nil}, gas.Values())
		oil, _ := out.Column(VolumeColumn("OIL"))
		assert.Equal(t, []any{nil, 7.0, 0.0}, oil.Values())
		assert.Equal(t, []string{ColUWI, VolumeColumn("GAS"), VolumeColumn("OIL"), ColProductionMonth}, out.Columns())
	})

	t.Run("should resolve columns case-insensitively", func(t *testing.T) {
		input := table.MustNew(
			table.Text("fromtoidtype", "WI"),
			table.Text("FROMTOIDIDENTIFIER", "A"),
			table.Text("productid", "OIL"),
			table.Text("activityid", "PROD"),
			table.Number("volume", 3),
		)
		a, rec := newTestAggregator()

		out, err := a.Aggregate(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, 3.0, out.Row(0).Value(VolumeColumn("OIL")))
		assert.Nil(t, out.Row(0).Value(ColProductionMonth))
		assert.Equal(t, 1, rec.Count(diagnostics.MissingColumn))
	})

	t.Run("should fail when required columns are missing", func(t *testing.T) {
		input := table.MustNew(table.Text("FromToIDType", "WI"), table.Number("Volume", 1))
		a, _ := newTestAggregator()

		_, err := a.Aggregate(context.Background(), input)
		require.Error(t, err)
		assert.True(t, ferrors.IsKind(err, ferrors.MissingColumn))
		assert.Contains(t, err.Error(), "FromToIDIdentifier")
	})

	t.Run("should fail when nothing passes the filter", func(t *testing.T) {
		input := productionTable([]any{"2024-01", "FA", "A", "OIL", "PROD", 1})
		a, _ := newTestAggregator()

		_, err := a.Aggregate(context.Background(), input)
		assert.True(t, ferrors.IsKind(err, ferrors.EmptyResult))
	})

	t.Run("should keep a null identifier as its own well without a duplicate warning", func(t *testing.T) {
		input := productionTable(
			[]any{"2024-01", "WI", "A", "OIL", "PROD", 10},
			[]any{"2024-01", "WI", nil, "OIL", "PROD", 20},
			[]any{"2024-01", "WI", nil, "OIL", "PROD", 5},
		)
		a, rec := newTestAggregator()

		out, err := a.Aggregate(context.Background(), input)
		require.NoError(t, err)

		require.Equal(t, 2, out.NumRows())
		assert.Nil(t, out.Row(1).Value(ColUWI))
		assert.Equal(t, 25.0, out.Row(1).Value(VolumeColumn("OIL")))
		assert.Equal(t, 0, rec.Count(diagnostics.DuplicateKey))
	})
}
