// Package normalize runs the core of the pipeline: production aggregation,
// the licence/status and production joins, and the licence-group gap fill.
package normalize

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/diagnostics"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/production"
	"github.com/Ramsey-B/fern/pkg/table"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const stage = "normalize"

// Result carries the normalized table and what the run learned on the way.
type Result struct {
	Wells *table.Table
	// Production is the aggregated production, or the raw production table
	// when aggregation failed.
	Production  *table.Table
	Aggregated  bool
	LatestMonth string
}

// Normalizer wires the aggregator, the merge engine and the gap filler.
type Normalizer struct {
	logger     ectologger.Logger
	diag       diagnostics.Sink
	aggregator *production.Aggregator
	engine     *merging.Engine
	filler     *merging.GapFiller
}

// NewNormalizer creates a new normalizer
func NewNormalizer(logger ectologger.Logger, diag diagnostics.Sink) *Normalizer {
	return &Normalizer{
		logger:     logger,
		diag:       diag,
		aggregator: production.NewAggregator(logger, diag),
		engine:     merging.NewEngine(logger, diag),
		filler:     merging.NewGapFiller(logger, diag),
	}
}

// Normalize combines the three sources into one row per status row. Only a
// failure of the licence/status merge is returned; aggregation, production
// merge and gap fill degrade to a less enriched table.
func (n *Normalizer) Normalize(ctx context.Context, licences, statuses, prod *table.Table) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "normalize.Normalizer.Normalize")
	defer span.End()

	log := n.logger.WithContext(ctx).WithField("stage", stage)
	log.Info("Starting data normalization process")

	result := &Result{}

	start := time.Now()
	aggregated, err := n.aggregator.Aggregate(ctx, prod)
	metrics.StageDuration.WithLabelValues("aggregate").Observe(time.Since(start).Seconds())
	if err != nil {
		n.diag.Warn(ctx, diagnostics.Event{
			Stage:   stage,
			Kind:    diagnostics.Degraded,
			Message: "production aggregation failed, using original production data: " + err.Error(),
		})
		aggregated = prod
	} else {
		result.Aggregated = true
	}
	result.Production = aggregated
	result.LatestMonth = latestMonth(aggregated)
	log.WithField("latest_month", result.LatestMonth).Infof("Latest production month: %s", result.LatestMonth)

	start = time.Now()
	merged, err := n.engine.MergeLicenceAndStatus(ctx, licences, statuses)
	metrics.StageDuration.WithLabelValues("merge_licence_status").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	start = time.Now()
	merged = n.engine.MergeWithProduction(ctx, merged, aggregated)
	metrics.StageDuration.WithLabelValues("merge_production").Observe(time.Since(start).Seconds())

	start = time.Now()
	wells := n.filler.Fill(ctx, merged)
	metrics.StageDuration.WithLabelValues("fill").Observe(time.Since(start).Seconds())

	result.Wells = wells
	log.WithFields(map[string]any{
		"rows":    wells.NumRows(),
		"columns": wells.NumCols(),
	}).Infof("Normalization complete. Final shape: (%d, %d)", wells.NumRows(), wells.NumCols())

	return result, nil
}

// latestMonth reads the Production Month column, empty when absent or null.
func latestMonth(t *table.Table) string {
	col, ok := t.Column(production.ColProductionMonth)
	if !ok {
		return ""
	}
	var latest string
	for i := 0; i < col.Len(); i++ {
		if v, ok := col.String(i); ok && v > latest {
			latest = v
		}
	}
	return latest
}
