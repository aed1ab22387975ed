package identifiers

import (
	"strings"

	"github.com/Ramsey-B/fern/pkg/table"
)

// Outcome reports what a conversion did with its input.
type Outcome int

const (
	// Converted means the value was rewritten into production format.
	Converted Outcome = iota
	// Canonical means the value was already in production format.
	Canonical
	// Unchanged means the value could not be parsed and is returned as is.
	Unchanged
)

func (o Outcome) String() string {
	switch o {
	case Converted:
		return "converted"
	case Canonical:
		return "canonical"
	default:
		return "unchanged"
	}
}

// Conversion is the typed result of an identifier conversion. Value always
// holds something usable: the converted identifier or the untouched input.
type Conversion struct {
	Input   string
	Value   string
	Outcome Outcome
	Reason  string
}

// OK reports whether Value is in production format.
func (c Conversion) OK() bool {
	return c.Outcome != Unchanged
}

func unchanged(input, reason string) Conversion {
	return Conversion{Input: input, Value: input, Outcome: Unchanged, Reason: reason}
}

// Converter is the signature shared by the identifier conversions.
type Converter func(string) Conversion

const productionMarker = "W4"

// DisplayToProduction converts an ST37 display UWI such as
// "00/06-06-001-01W4/2" into the Petrinex form "100060600101W402": separators
// are stripped, a leading "1" is added and the trailing event sequence digit
// is padded to two digits.
func DisplayToProduction(value string) Conversion {
	if value == "" {
		return unchanged(value, "empty identifier")
	}

	stripped := Alphanumeric(value)
	if stripped == "" {
		return unchanged(value, "no alphanumeric characters")
	}
	if strings.HasPrefix(stripped, "1") && strings.Contains(stripped, productionMarker) {
		return Conversion{Input: value, Value: stripped, Outcome: Canonical}
	}

	prefixed := []rune("1" + stripped)
	last := len(prefixed) - 1
	padded := string(prefixed[:last]) + "0" + string(prefixed[last])
	return Conversion{Input: value, Value: padded, Outcome: Converted}
}

// compactWidth is the length of a well-formed ST37 compact UWI.
const compactWidth = 14

// CompactToProduction converts an ST37 compact UWI into Petrinex form. The
// layout is read right-aligned against a 14-character frame: meridian at 2,
// range at 3..6, township at 6..9, section at 9..11, LSD at 11..13 and the
// event sequence from 13. Components that fall outside a shorter cleaned
// value take default values.
func CompactToProduction(value string) Conversion {
	if len([]rune(value)) < compactWidth {
		return unchanged(value, "shorter than 14 characters")
	}

	clean := []rune(Alphanumeric(value))
	if len(clean) == 0 {
		return unchanged(value, "no alphanumeric characters")
	}
	if strings.Contains(string(clean), productionMarker) {
		return Conversion{Input: value, Value: string(clean), Outcome: Canonical}
	}

	offset := max(0, compactWidth-len(clean))
	field := func(start, end int, fallback string) string {
		start -= offset
		if start < 0 || start >= len(clean) {
			return fallback
		}
		if end < 0 {
			return string(clean[start:])
		}
		end = min(end-offset, len(clean))
		return string(clean[start:end])
	}

	meridian := field(2, 3, "4")
	rng := field(3, 6, "000")
	township := field(6, 9, "000")
	section := field(9, 11, "00")
	lsd := field(11, 13, "00")
	event := field(13, -1, "0")

	rng = stripLeadingZeros(rng)
	township = stripLeadingZeros(township)

	var b strings.Builder
	b.WriteString("1")
	b.WriteString(lsd)
	b.WriteString(section)
	b.WriteString(zfill(township, 3))
	b.WriteString(zfill(rng, 2))
	b.WriteString(meridian)
	b.WriteString(productionMarker)
	b.WriteString(zfill(event, 2))
	return Conversion{Input: value, Value: b.String(), Outcome: Converted}
}

func stripLeadingZeros(s string) string {
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "0"
	}
	return s
}

func zfill(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return strings.Repeat("0", width-n) + s
}

// Yield counts conversion outcomes over a column.
type Yield struct {
	Total     int `json:"total"`
	Converted int `json:"converted"`
	Canonical int `json:"canonical"`
	Unchanged int `json:"unchanged"`
	Nulls     int `json:"nulls"`
}

// Rate is the share of non-null values that ended in production format.
func (y Yield) Rate() float64 {
	valued := y.Total - y.Nulls
	if valued == 0 {
		return 0
	}
	return float64(y.Converted+y.Canonical) / float64(valued)
}

// ConvertColumn applies fn to every cell of col and returns the converted
// column under name. Nulls stay null and unparsed values keep their input.
// Failed conversions are returned for reporting.
func ConvertColumn(col *table.Column, name string, fn Converter) (*table.Column, Yield, []Conversion) {
	var (
		y      Yield
		failed []Conversion
	)
	out := col.Map(name, table.KindText, func(v any) any {
		y.Total++
		if v == nil {
			y.Nulls++
			y.Unchanged++
			return nil
		}
		c := fn(table.FormatValue(v))
		switch c.Outcome {
		case Converted:
			y.Converted++
		case Canonical:
			y.Canonical++
		default:
			y.Unchanged++
			failed = append(failed, c)
		}
		return c.Value
	})
	return out, y, failed
}
