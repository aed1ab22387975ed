package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("should reject duplicate column names", func(t *testing.T) {
		_, err := New(Text("a", "x"), Text("a", "y"))
		assert.EqualError(t, err, `duplicate column "a"`)
	})

	t.Run("should reject columns of different lengths", func(t *testing.T) {
		_, err := New(Text("a", "x", "y"), Text("b", "z"))
		assert.EqualError(t, err, `column "b" has 1 rows, expected 2`)
	})

	t.Run("should coerce number cells", func(t *testing.T) {
		tbl := MustNew(Number("n", "1.5", 2, nil, "bad"))
		col, ok := tbl.Column("n")
		require.True(t, ok)
		assert.Equal(t, []any{1.5, float64(2), nil, nil}, col.Values())
		assert.Equal(t, 2, col.NullCount())
	})
}

func TestColumnString(t *testing.T) {
	col := Number("n", 150.0, 2.5)
	s, ok := col.String(0)
	assert.True(t, ok)
	assert.Equal(t, "150", s)

	s, _ = col.String(1)
	assert.Equal(t, "2.5", s)
}

func TestUniqueCount(t *testing.T) {
	col := Text("uwi", "A", nil, "A", nil)
	assert.Equal(t, 1, col.DistinctCount())
	assert.Equal(t, 2, col.UniqueCount())
	assert.Equal(t, 1, Text("uwi", "A", "A").UniqueCount())
}

func TestResolve(t *testing.T) {
	tbl := MustNew(Text("productid", "OIL"), Text("Volume", "1"))

	mapping, missing := tbl.Resolve("ProductID", "Volume", "ActivityID")
	assert.Equal(t, map[string]string{"ProductID": "productid", "Volume": "Volume"}, mapping)
	assert.Equal(t, []string{"ActivityID"}, missing)
}

func TestSelectRenameDrop(t *testing.T) {
	tbl := MustNew(Text("a", "1"), Text("b", "2"), Text("c", "3"))

	selected, err := tbl.Select("c", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, selected.Columns())

	_, err = tbl.Select("z")
	assert.EqualError(t, err, "columns not found: z")

	renamed, err := tbl.Rename(map[string]string{"a": "A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "b", "c"}, renamed.Columns())
	assert.Equal(t, []string{"a", "b", "c"}, tbl.Columns())

	dropped := tbl.Drop("b", "missing")
	assert.Equal(t, []string{"a", "c"}, dropped.Columns())
}

func TestWithColumn(t *testing.T) {
	tbl := MustNew(Text("a", "1", "2"))

	replaced, err := tbl.WithColumn(Text("a", "x", "y"))
	require.NoError(t, err)
	assert.Equal(t, "x", replaced.Row(0).Value("a"))
	assert.Equal(t, "1", tbl.Row(0).Value("a"))

	_, err = tbl.WithColumn(Text("b", "x"))
	assert.Error(t, err)
}

func TestFilterAndHead(t *testing.T) {
	tbl := MustNew(Text("k", "a", "b", "c"), Number("v", 1, 2, 3))

	big := tbl.Filter(func(r Row) bool {
		v, _ := r.Float("v")
		return v >= 2
	})
	assert.Equal(t, 2, big.NumRows())
	assert.Equal(t, "b", big.Row(0).Value("k"))

	assert.Equal(t, 1, tbl.Head(1).NumRows())
	assert.Equal(t, 3, tbl.Head(10).NumRows())
}

func TestRecords(t *testing.T) {
	tbl := MustNew(Text("k", "a", nil), Number("v", 1.25, nil))

	header, rows := tbl.Records()
	assert.Equal(t, []string{"k", "v"}, header)
	assert.Equal(t, [][]string{{"a", "1.25"}, {"", ""}}, rows)
}

func TestLeftJoin(t *testing.T) {
	t.Run("should keep every left row and suffix colliding names", func(t *testing.T) {
		left := MustNew(Text("key", "1", "2", nil), Text("status", "a", "b", "c"))
		right := MustNew(Text("key", "1", "3"), Text("status", "x", "y"), Text("extra", "e1", "e2"))

		joined, err := left.LeftJoin(right, "key", "key", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"key", "status", "status_right", "extra"}, joined.Columns())
		assert.Equal(t, 3, joined.NumRows())
		assert.Equal(t, "x", joined.Row(0).Value("status_right"))
		assert.Nil(t, joined.Row(1).Value("extra"))
		assert.Nil(t, joined.Row(2).Value("extra"))
	})

	t.Run("should repeat left rows for duplicate right keys", func(t *testing.T) {
		left := MustNew(Text("key", "1", "2"))
		right := MustNew(Text("id", "1", "1"), Number("v", 10, 20))

		joined, err := left.LeftJoin(right, "key", "id", DefaultSuffix)
		require.NoError(t, err)
		assert.Equal(t, 3, joined.NumRows())
		col, _ := joined.Column("v")
		assert.Equal(t, []any{10.0, 20.0, nil}, col.Values())
	})

	t.Run("should not match null keys", func(t *testing.T) {
		left := MustNew(Text("key", nil))
		right := MustNew(Text("key", nil), Text("v", "x"))

		joined, err := left.LeftJoin(right, "key", "key", "")
		require.NoError(t, err)
		assert.Nil(t, joined.Row(0).Value("v"))
	})

	t.Run("should fail on unknown keys", func(t *testing.T) {
		left := MustNew(Text("key", "1"))
		_, err := left.LeftJoin(left, "nope", "key", "")
		assert.Error(t, err)
	})
}

func TestGroups(t *testing.T) {
	tbl := MustNew(Text("g", "b", "a", nil, "b"))

	groups, err := tbl.Groups("g")
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 3}, {1}}, groups)
}

func TestFromRecords(t *testing.T) {
	header := []string{"id", "volume", "hours", "note"}
	records := [][]string{
		{"001", "12.5", "10", "NA"},
		{"002", "***", "20", "ok"},
	}

	tbl, err := FromRecords(header, records, ReadOptions{
		NullValues: []string{"NA", "***"},
		Text:       []string{"hours"},
		Infer:      true,
	})
	require.NoError(t, err)

	id, _ := tbl.Column("id")
	volume, _ := tbl.Column("volume")
	hours, _ := tbl.Column("hours")
	note, _ := tbl.Column("note")

	assert.Equal(t, KindNumber, id.Kind())
	assert.Equal(t, KindNumber, volume.Kind())
	assert.Equal(t, []any{12.5, nil}, volume.Values())
	assert.Equal(t, KindText, hours.Kind())
	assert.Equal(t, KindText, note.Kind())
	assert.Nil(t, note.Value(0))

	_, err = FromRecords(header, [][]string{{"1"}}, ReadOptions{})
	assert.Error(t, err)
}
