package quality

import (
	"context"
	"math"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/table"
)

// ColumnProfile describes one column of a table.
type ColumnProfile struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Nulls       int      `json:"nulls"`
	NullPercent float64  `json:"null_percent"`
	Distinct    int      `json:"distinct"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
}

// Profile is the per-column summary written next to the normalized output.
type Profile struct {
	Rows    int             `json:"rows"`
	Columns []ColumnProfile `json:"columns"`
}

// NewProfile profiles every column of t.
func NewProfile(t *table.Table) Profile {
	return Profile{
		Rows: t.NumRows(),
		Columns: ectolinq.Map(t.Columns(), func(name string) ColumnProfile {
			col, _ := t.Column(name)
			return profileColumn(col)
		}),
	}
}

func profileColumn(col *table.Column) ColumnProfile {
	p := ColumnProfile{
		Name:     col.Name(),
		Kind:     col.Kind().String(),
		Nulls:    col.NullCount(),
		Distinct: col.DistinctCount(),
	}
	if col.Len() > 0 {
		p.NullPercent = round2(float64(p.Nulls) / float64(col.Len()) * 100)
	}
	if col.Kind() != table.KindNumber {
		return p
	}
	for i := 0; i < col.Len(); i++ {
		v, ok := col.Float(i)
		if !ok {
			continue
		}
		if p.Min == nil || v < *p.Min {
			p.Min = &v
		}
		if p.Max == nil || v > *p.Max {
			p.Max = &v
		}
	}
	return p
}

// LogNulls writes one log line per column with its null share.
func LogNulls(ctx context.Context, logger ectologger.Logger, t *table.Table) {
	log := logger.WithContext(ctx)
	for _, c := range NewProfile(t).Columns {
		log.WithFields(map[string]any{
			"column":       c.Name,
			"nulls":        c.Nulls,
			"null_percent": c.NullPercent,
		}).Infof("Column %s has %.2f%% null values", c.Name, c.NullPercent)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
