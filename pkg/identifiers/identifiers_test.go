package identifiers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/table"
)

func TestLicenceConvergence(t *testing.T) {
	licences := []string{"1000", "0123456", " 42 ", "", "W 1000", "ÅB12"}
	prefixes := []string{"W ", "  ", "AB", "0 ", "ÖÄ"}

	for _, l := range licences {
		for _, p := range prefixes {
			assert.Equal(t, LicenceFromStatusListing(l), LicenceFromRegistry(p+l), "prefix %q licence %q", p, l)
		}
	}
}

func TestLicenceFromRegistry(t *testing.T) {
	assert.Equal(t, "1000", LicenceFromRegistry("W 1000"))
	assert.Equal(t, "", LicenceFromRegistry("W"))
	assert.Equal(t, "", LicenceFromRegistry(""))
	assert.Equal(t, "0012", LicenceFromRegistry("XX 0012 "))
}

func TestLicenceFromStatusListing(t *testing.T) {
	assert.Equal(t, "0012", LicenceFromStatusListing("  0012 "))
	assert.Equal(t, "\t0012", LicenceFromStatusListing("\t0012"))
}

func TestDisplayToProduction(t *testing.T) {
	cases := []struct {
		input   string
		want    string
		outcome Outcome
	}{
		{"00/06-06-001-01W4/2", "100060600101W402", Converted},
		{"00/06-06-001-01W4/0", "100060600101W400", Converted},
		{"00/05-05-001-01W4/0", "100050500101W400", Converted},
		{"100060600101W402", "100060600101W402", Canonical},
		{"", "", Unchanged},
		{"//--", "//--", Unchanged},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			c := DisplayToProduction(tc.input)
			assert.Equal(t, tc.want, c.Value)
			assert.Equal(t, tc.outcome, c.Outcome)
			assert.Equal(t, tc.input, c.Input)
		})
	}
}

func TestDisplayToProductionIsIdempotent(t *testing.T) {
	inputs := []string{
		"00/06-06-001-01W4/2",
		"00/08-35-001-01W4/3",
		"F1/06-06-001-01W4/0",
		"00/16-36-126-29W4/9",
	}
	for _, in := range inputs {
		once := DisplayToProduction(in)
		require.True(t, once.OK())
		twice := DisplayToProduction(once.Value)
		assert.Equal(t, once.Value, twice.Value, in)
		assert.Equal(t, Canonical, twice.Outcome, in)
	}
}

func TestCompactToProduction(t *testing.T) {
	t.Run("should return short input unchanged", func(t *testing.T) {
		c := CompactToProduction("0014010606002")
		assert.Equal(t, Unchanged, c.Outcome)
		assert.Equal(t, "0014010606002", c.Value)
	})

	t.Run("should return values already in production format cleaned", func(t *testing.T) {
		c := CompactToProduction("1/00-06-06-001-01W4/02")
		assert.Equal(t, Canonical, c.Outcome)
		assert.Equal(t, "100060600101W402", c.Value)
	})

	t.Run("should reorder a compact identifier", func(t *testing.T) {
		// meridian 4, range 001, township 001, section 06, lsd 06, event 2
		c := CompactToProduction("00400100106062")
		assert.Equal(t, Converted, c.Outcome)
		assert.Equal(t, "10606001014W402", c.Value)
	})

	t.Run("should default fields that fall outside a short cleaned value", func(t *testing.T) {
		c := CompactToProduction("0-0-4-0-0-1-0-0-1-0-6-0")
		require.Equal(t, Converted, c.Outcome)
		assert.True(t, strings.HasPrefix(c.Value, "1"))
		assert.Contains(t, c.Value, "W4")
	})

	t.Run("should never panic", func(t *testing.T) {
		for n := 0; n <= 40; n++ {
			for _, ch := range []string{"0", "9", "-", "W", "é"} {
				in := strings.Repeat(ch, n)
				assert.NotPanics(t, func() { CompactToProduction(in) }, in)
			}
		}
	})

	t.Run("should give 15 characters for 14 digits with a two digit range", func(t *testing.T) {
		for _, in := range []string{"00000000000000", "12301234567899", "99909999999999", "00400100106062"} {
			c := CompactToProduction(in)
			require.Equal(t, Converted, c.Outcome, in)
			assert.Len(t, c.Value, 15, in)
			assert.True(t, strings.HasSuffix(c.Value, "W4"+zfill(in[13:], 2)), in)
		}
	})
}

func TestNullAndEmptyNeverPanic(t *testing.T) {
	for _, fn := range []Converter{DisplayToProduction, CompactToProduction} {
		assert.NotPanics(t, func() {
			c := fn("")
			assert.Equal(t, Unchanged, c.Outcome)
			assert.Equal(t, "", c.Value)
		})
	}

	col := table.Text("UWI Display", "00/06-06-001-01W4/2", nil, "")
	out, yield, failed := ConvertColumn(col, "Petrinex_UWI", DisplayToProduction)
	assert.Equal(t, []any{"100060600101W402", nil, ""}, out.Values())
	assert.Equal(t, Yield{Total: 3, Converted: 1, Unchanged: 2, Nulls: 1}, yield)
	require.Len(t, failed, 1)
	assert.Equal(t, "empty identifier", failed[0].Reason)
	assert.Equal(t, 0.5, yield.Rate())
}

func TestLookup(t *testing.T) {
	t.Run("should resolve the licence normalizers by name", func(t *testing.T) {
		fn, err := Lookup(NormalizeRegistryLicence)
		require.NoError(t, err)
		assert.Equal(t, "1000", fn("W  1000 "))

		fn, err = Lookup(NormalizeStatusLicence)
		require.NoError(t, err)
		assert.Equal(t, "0001000", fn(" 0001000 "))
	})

	t.Run("should strip punctuation", func(t *testing.T) {
		fn, err := Lookup(NormalizeAlphanumeric)
		require.NoError(t, err)
		assert.Equal(t, "abc12", fn(" a-b/c 12 "))
	})

	t.Run("should reject an unknown name", func(t *testing.T) {
		_, err := Lookup("uppercase")
		assert.Error(t, err)
	})
}
