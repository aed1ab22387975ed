// Package merging joins the licence registry, the well status listing and the
// aggregated production into one table of wells, and fills gaps within
// licence groups.
package merging

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/diagnostics"
	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/identifiers"
	"github.com/Ramsey-B/fern/pkg/loader"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/production"
	"github.com/Ramsey-B/fern/pkg/table"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const stage = "merge"

// ColStandardizedLicence is the licence key shared by both sides of the
// licence/status join.
const ColStandardizedLicence = "Standardized_License"

// colPetrinexUWI is the temporary production-format key of the status side.
const colPetrinexUWI = "Petrinex_UWI"

// failureSamples caps the unconverted identifiers listed in a warning.
const failureSamples = 5

// Engine performs the two joins of the pipeline.
type Engine struct {
	logger ectologger.Logger
	diag   diagnostics.Sink
	// normalizer names that build the licence join key on each side
	registryKey string
	statusKey   string
}

// NewEngine creates a new merge engine
func NewEngine(logger ectologger.Logger, diag diagnostics.Sink) *Engine {
	return &Engine{
		logger:      logger,
		diag:        diag,
		registryKey: identifiers.NormalizeRegistryLicence,
		statusKey:   identifiers.NormalizeStatusLicence,
	}
}

// MergeLicenceAndStatus left-joins the well status listing with the licence
// registry on the standardized licence number. Every status row is kept; a
// licence number registered more than once repeats the status row.
func (e *Engine) MergeLicenceAndStatus(ctx context.Context, licences, statuses *table.Table) (*table.Table, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.MergeLicenceAndStatus")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"stage":        stage,
		"licence_rows": licences.NumRows(),
		"status_rows":  statuses.NumRows(),
	})

	if missing := licences.Missing(loader.ColLicenceNumber); len(missing) > 0 {
		return nil, ferrors.NewPipelineError(ferrors.MissingColumn, "licence number column not found in licence data").
			AddStage(stage).AddSource("st1").AddColumns(missing...)
	}
	if missing := statuses.Missing(loader.ColLicence, loader.ColUWIDisplay); len(missing) > 0 {
		return nil, ferrors.NewPipelineError(ferrors.MissingColumn, "required columns not found in status data").
			AddStage(stage).AddSource("st37").AddColumns(missing...)
	}

	licenceKeyed, err := withLicenceKey(licences, loader.ColLicenceNumber, e.registryKey)
	if err != nil {
		return nil, err
	}
	statusKeyed, err := withLicenceKey(statuses, loader.ColLicence, e.statusKey)
	if err != nil {
		return nil, err
	}

	e.reportDuplicateLicences(ctx, licenceKeyed)

	merged, err := statusKeyed.LeftJoin(licenceKeyed, ColStandardizedLicence, ColStandardizedLicence, table.DefaultSuffix)
	if err != nil {
		return nil, fmt.Errorf("failed to join licence and status data: %w", err)
	}

	uwi, _ := merged.Column(loader.ColUWIDisplay)
	matched := matchedRows(statusKeyed, ColStandardizedLicence, licenceKeyed, ColStandardizedLicence)
	log.WithFields(map[string]any{
		"merged_rows":      merged.NumRows(),
		"uwi_display_rate": share(merged.NumRows()-uwi.NullCount(), merged.NumRows()),
		"licence_matches":  matched,
		"match_rate":       share(matched, statusKeyed.NumRows()),
	}).Infof("Merged licence and status data: %d rows, %d columns", merged.NumRows(), merged.NumCols())

	return merged, nil
}

// MergeWithProduction attaches aggregated production to the merged wells by
// converting the display UWI into production format. It never fails: when
// the join cannot be made base is returned as is and a warning is raised.
func (e *Engine) MergeWithProduction(ctx context.Context, base, prod *table.Table) *table.Table {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.MergeWithProduction")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"stage":           stage,
		"base_rows":       base.NumRows(),
		"production_rows": prod.NumRows(),
	})

	if missing := append(base.Missing(loader.ColUWIDisplay), prod.Missing(production.ColUWI)...); len(missing) > 0 {
		e.diag.Warn(ctx, diagnostics.Event{
			Stage:   stage,
			Kind:    diagnostics.MissingColumn,
			Message: "cannot merge production data, returning wells without production",
			Fields:  map[string]any{"missing": missing},
		})
		return base
	}

	display, _ := base.Column(loader.ColUWIDisplay)
	converted, yield, failed := identifiers.ConvertColumn(display, colPetrinexUWI, identifiers.DisplayToProduction)
	recordYield("display", yield)

	log.WithFields(map[string]any{
		"total":      yield.Total,
		"converted":  yield.Converted,
		"canonical":  yield.Canonical,
		"unchanged":  yield.Unchanged,
		"yield_rate": yield.Rate(),
	}).Info("Converted display UWIs to production format")

	if len(failed) > 0 {
		samples := make([]string, 0, failureSamples)
		for _, c := range failed[:min(len(failed), failureSamples)] {
			samples = append(samples, fmt.Sprintf("%q (%s)", c.Input, c.Reason))
		}
		e.diag.Warn(ctx, diagnostics.Event{
			Stage:   stage,
			Kind:    diagnostics.ConversionFailure,
			Message: fmt.Sprintf("%d display UWIs could not be converted to production format", len(failed)),
			Count:   len(failed),
			Fields:  map[string]any{"samples": samples},
		})
	}

	keyed, err := base.WithColumn(converted)
	if err != nil {
		e.degraded(ctx, base, err)
		return base
	}

	merged, err := keyed.LeftJoin(prod, colPetrinexUWI, production.ColUWI, table.DefaultSuffix)
	if err != nil {
		e.degraded(ctx, base, err)
		return base
	}
	merged = merged.Drop(colPetrinexUWI)

	matched := matchedRows(keyed, colPetrinexUWI, prod, production.ColUWI)
	log.WithFields(map[string]any{
		"merged_rows":           merged.NumRows(),
		"production_matches":    matched,
		"production_match_rate": share(matched, keyed.NumRows()),
	}).Infof("Merged production data: %d rows, %d columns", merged.NumRows(), merged.NumCols())

	return merged
}

func (e *Engine) degraded(ctx context.Context, base *table.Table, err error) {
	e.diag.Warn(ctx, diagnostics.Event{
		Stage:   stage,
		Kind:    diagnostics.Degraded,
		Message: fmt.Sprintf("production merge failed, returning wells without production: %v", err),
		Fields:  map[string]any{"rows": base.NumRows()},
	})
}

func (e *Engine) reportDuplicateLicences(ctx context.Context, licences *table.Table) {
	key, _ := licences.Column(ColStandardizedLicence)
	valued := key.Len() - key.NullCount()
	if dups := valued - key.DistinctCount(); dups > 0 {
		e.diag.Warn(ctx, diagnostics.Event{
			Stage:   stage,
			Kind:    diagnostics.DuplicateKey,
			Message: fmt.Sprintf("%d licence numbers appear more than once in the registry, matching status rows will repeat", dups),
			Count:   dups,
		})
	}
}

// withLicenceKey returns a copy of t with the standardized licence column
// derived from the named column by the named normalizer.
func withLicenceKey(t *table.Table, from, normalizer string) (*table.Table, error) {
	fn, err := identifiers.Lookup(normalizer)
	if err != nil {
		return nil, err
	}
	src, _ := t.Column(from)
	key := src.Map(ColStandardizedLicence, table.KindText, func(v any) any {
		if v == nil {
			return nil
		}
		return fn(table.FormatValue(v))
	})
	return t.Clone().WithColumn(key)
}

// matchedRows counts rows of left whose key appears in right.
func matchedRows(left *table.Table, leftOn string, right *table.Table, rightOn string) int {
	lk, _ := left.Column(leftOn)
	rk, _ := right.Column(rightOn)

	keys := make(map[string]struct{}, rk.Len())
	for i := 0; i < rk.Len(); i++ {
		if v, ok := rk.String(i); ok {
			keys[v] = struct{}{}
		}
	}
	n := 0
	for i := 0; i < lk.Len(); i++ {
		v, ok := lk.String(i)
		if !ok {
			continue
		}
		if _, hit := keys[v]; hit {
			n++
		}
	}
	return n
}

func share(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func recordYield(codec string, y identifiers.Yield) {
	metrics.IdentifierConversions.WithLabelValues(codec, identifiers.Converted.String()).Add(float64(y.Converted))
	metrics.IdentifierConversions.WithLabelValues(codec, identifiers.Canonical.String()).Add(float64(y.Canonical))
	metrics.IdentifierConversions.WithLabelValues(codec, identifiers.Unchanged.String()).Add(float64(y.Unchanged))
}
