package merging

import (
	"context"
	"strings"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/diagnostics"
	"github.com/Ramsey-B/fern/pkg/loader"
	"github.com/Ramsey-B/fern/pkg/table"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const fillStage = "fill"

// volumeSuffix marks the production columns filled across a licence group.
const volumeSuffix = "Volume"

// GapFiller propagates known values to the other rows of the same licence.
type GapFiller struct {
	logger  ectologger.Logger
	diag    diagnostics.Sink
	groupBy string
}

// NewGapFiller creates a gap filler grouping on the standardized licence.
func NewGapFiller(logger ectologger.Logger, diag diagnostics.Sink) *GapFiller {
	return &GapFiller{
		logger:  logger,
		diag:    diag,
		groupBy: ColStandardizedLicence,
	}
}

// FillColumns returns the columns of t that Fill touches: the display UWI
// and every column whose name ends in "Volume".
func FillColumns(t *table.Table) []string {
	return ectolinq.Filter(t.Columns(), func(name string) bool {
		return name == loader.ColUWIDisplay || strings.HasSuffix(name, volumeSuffix)
	})
}

// Fill forward fills then backward fills the fill columns within each
// licence group, in row order. Rows without a licence are left alone. When
// the group column is missing t is returned unchanged.
func (g *GapFiller) Fill(ctx context.Context, t *table.Table) *table.Table {
	ctx, span := tracing.StartSpan(ctx, "merging.GapFiller.Fill")
	defer span.End()

	log := g.logger.WithContext(ctx).WithFields(map[string]any{
		"stage":    fillStage,
		"group_by": g.groupBy,
	})

	groups, err := t.Groups(g.groupBy)
	if err != nil {
		g.diag.Error(ctx, diagnostics.Event{
			Stage:   fillStage,
			Kind:    diagnostics.MissingColumn,
			Message: "group column not found, skipping gap fill",
			Fields:  map[string]any{"column": g.groupBy},
		})
		return t
	}

	out := t
	filled := make(map[string]int)
	for _, name := range FillColumns(t) {
		col, _ := t.Column(name)
		values := col.Values()
		for _, rows := range groups {
			filled[name] += fillGroup(values, rows)
		}
		if filled[name] == 0 {
			continue
		}
		out, err = out.WithColumn(table.NewColumn(name, col.Kind(), values))
		if err != nil {
			g.diag.Error(ctx, diagnostics.Event{
				Stage:   fillStage,
				Kind:    diagnostics.Degraded,
				Message: "failed to replace filled column, skipping gap fill",
				Fields:  map[string]any{"column": name, "error": err.Error()},
			})
			return t
		}
	}

	log.WithFields(map[string]any{
		"groups": len(groups),
		"filled": filled,
	}).Infof("Filled gaps across %d licence groups", len(groups))

	return out
}

// fillGroup fills nulls at rows forward then backward and returns the number
// of cells it set.
func fillGroup(values []any, rows []int) int {
	n := 0
	var last any
	for _, i := range rows {
		if values[i] != nil {
			last = values[i]
			continue
		}
		if last != nil {
			values[i] = last
			n++
		}
	}
	last = nil
	for j := len(rows) - 1; j >= 0; j-- {
		i := rows[j]
		if values[i] != nil {
			last = values[i]
			continue
		}
		if last != nil {
			values[i] = last
			n++
		}
	}
	return n
}
