// Package production reduces Petrinex volumetric lines to one row per well
// with the latest month's oil and gas volumes.
package production

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/diagnostics"
	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/loader"
	"github.com/Ramsey-B/fern/pkg/table"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const stage = "aggregate"

// Output column names.
const (
	ColUWI             = "UWI"
	ColProductionMonth = "Production Month"
)

// Filter values selecting well production lines.
const (
	WellIDType     = "WI"
	ProductionCode = "PROD"
)

// Products kept by the aggregator.
var Products = []string{"OIL", "GAS"}

// required are the columns the aggregator cannot work without.
var required = []string{
	loader.ColFromToIDType,
	loader.ColFromToIDIdentifier,
	loader.ColProductID,
	loader.ColActivityID,
	loader.ColVolume,
}

// VolumeColumn returns the output column name for a product.
func VolumeColumn(product string) string {
	return fmt.Sprintf("Latest Month %s Production Volume", product)
}

// Aggregator pivots production lines into per-well volumes.
type Aggregator struct {
	logger ectologger.Logger
	diag   diagnostics.Sink
}

// NewAggregator creates a new production aggregator
func NewAggregator(logger ectologger.Logger, diag diagnostics.Sink) *Aggregator {
	return &Aggregator{
		logger: logger,
		diag:   diag,
	}
}

// Aggregate filters t to oil and gas production of wells and sums volumes per
// well and product. The result has one row per distinct well identifier, in
// order of first appearance, a volume column per product seen and a constant
// Production Month column holding the latest month of the whole input.
func (a *Aggregator) Aggregate(ctx context.Context, t *table.Table) (*table.Table, error) {
	ctx, span := tracing.StartSpan(ctx, "production.Aggregator.Aggregate")
	defer span.End()

	log := a.logger.WithContext(ctx).WithField("stage", stage)

	cols, missing := t.Resolve(append([]string{loader.ColProductionMonth}, required...)...)
	missing = ectolinq.Filter(missing, func(name string) bool {
		return name != loader.ColProductionMonth
	})
	if len(missing) > 0 {
		return nil, ferrors.NewPipelineError(ferrors.MissingColumn, "required production columns not found").
			AddStage(stage).AddColumns(missing...)
	}

	latest := a.latestMonth(ctx, t, cols)

	idType, _ := t.Column(cols[loader.ColFromToIDType])
	activity, _ := t.Column(cols[loader.ColActivityID])
	product, _ := t.Column(cols[loader.ColProductID])
	ident, _ := t.Column(cols[loader.ColFromToIDIdentifier])
	volume, _ := t.Column(cols[loader.ColVolume])

	type cell struct {
		sum float64
	}

	var (
		wells    []any
		wellPos  = make(map[string]int)
		products []string
		sums     = make(map[string]map[int]*cell)
		kept     int
	)

	for i := 0; i < t.NumRows(); i++ {
		if v, _ := idType.String(i); v != WellIDType {
			continue
		}
		if v, _ := activity.String(i); v != ProductionCode {
			continue
		}
		p, _ := product.String(i)
		if !ectolinq.Contains(Products, p) {
			continue
		}
		kept++

		var key string
		var id any
		if s, ok := ident.String(i); ok {
			key, id = "v:"+s, s
		} else {
			key = "null"
		}
		w, seen := wellPos[key]
		if !seen {
			w = len(wells)
			wellPos[key] = w
			wells = append(wells, id)
		}

		bucket, seen := sums[p]
		if !seen {
			bucket = make(map[int]*cell)
			sums[p] = bucket
			products = append(products, p)
		}
		c, seen := bucket[w]
		if !seen {
			c = &cell{}
			bucket[w] = c
		}
		if v, ok := volume.Float(i); ok {
			c.sum += v
		}
	}

	if kept == 0 {
		return nil, ferrors.NewPipelineError(ferrors.EmptyResult, "no WI oil or gas production rows").AddStage(stage)
	}

	out := []*table.Column{table.Text(ColUWI, wells...)}
	for _, p := range products {
		values := make([]any, len(wells))
		for w, c := range sums[p] {
			values[w] = c.sum
		}
		out = append(out, table.NewColumn(VolumeColumn(p), table.KindNumber, values))
	}
	month := make([]any, len(wells))
	for i := range month {
		month[i] = latest
	}
	out = append(out, table.NewColumn(ColProductionMonth, table.KindText, month))

	result, err := table.New(out...)
	if err != nil {
		return nil, fmt.Errorf("failed to build aggregated production: %w", err)
	}

	uwi, _ := result.Column(ColUWI)
	if distinct := uwi.UniqueCount(); distinct != result.NumRows() {
		a.diag.Warn(ctx, diagnostics.Event{
			Stage:   stage,
			Kind:    diagnostics.DuplicateKey,
			Message: fmt.Sprintf("UWI is not unique after aggregation: %d distinct of %d rows", distinct, result.NumRows()),
			Count:   result.NumRows() - distinct,
		})
	}

	log.WithFields(map[string]any{
		"input_rows":   t.NumRows(),
		"kept_rows":    kept,
		"wells":        result.NumRows(),
		"products":     products,
		"latest_month": latest,
	}).Infof("Aggregated production to %d wells", result.NumRows())

	return result, nil
}

// latestMonth is the greatest ProductionMonth of the unfiltered input, or nil
// when the column is absent or empty.
func (a *Aggregator) latestMonth(ctx context.Context, t *table.Table, cols map[string]string) any {
	name, ok := cols[loader.ColProductionMonth]
	if !ok {
		a.diag.Warn(ctx, diagnostics.Event{
			Stage:   stage,
			Kind:    diagnostics.MissingColumn,
			Message: "ProductionMonth column not found, Production Month will be null",
			Fields:  map[string]any{"column": loader.ColProductionMonth},
		})
		return nil
	}

	col, _ := t.Column(name)
	var latest string
	found := false
	for i := 0; i < col.Len(); i++ {
		v, ok := col.String(i)
		if !ok {
			continue
		}
		if !found || v > latest {
			latest = v
			found = true
		}
	}
	if !found {
		return nil
	}
	return latest
}
