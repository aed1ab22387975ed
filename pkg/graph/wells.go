package graph

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	sinkName  = "graph"
	batchSize = 500
)

// upsertWells merges Well nodes, their Licence and the licensee Company.
// Wells without a key are skipped by the caller.
const upsertWells = `
UNWIND $wells AS w
MERGE (well:Well {key: w.key})
SET well += w.props, well.run_id = $run_id
WITH well, w
WHERE w.licence IS NOT NULL
MERGE (l:Licence {number: w.licence})
SET l.status = w.licence_status
MERGE (well)-[:LICENSED_UNDER]->(l)
WITH l, w
WHERE w.company IS NOT NULL
MERGE (c:Company {name: w.company})
MERGE (l)-[:HELD_BY]->(c)
`

// WellService writes run records into the graph.
type WellService struct {
	client *Client
	logger ectologger.Logger
}

// NewWellService creates a new well service
func NewWellService(client *Client, logger ectologger.Logger) *WellService {
	return &WellService{
		client: client,
		logger: logger,
	}
}

// Upsert writes wells in batches and returns the number written.
func (s *WellService) Upsert(ctx context.Context, runID string, wells []models.WellRecord) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.WellService.Upsert")
	defer span.End()

	params := WellParams(wells)
	for start := 0; start < len(params); start += batchSize {
		end := min(start+batchSize, len(params))
		batch := make([]any, 0, end-start)
		for _, p := range params[start:end] {
			batch = append(batch, p)
		}
		_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, upsertWells, map[string]any{
				"wells":  batch,
				"run_id": runID,
			})
			if err != nil {
				return nil, err
			}
			return result.Consume(ctx)
		})
		if err != nil {
			metrics.SinkWritesTotal.WithLabelValues(sinkName, "failure").Inc()
			s.logger.WithContext(ctx).WithError(err).WithField("written", start).Error("Failed to write wells to graph")
			return start, err
		}
	}

	metrics.SinkWritesTotal.WithLabelValues(sinkName, "success").Inc()
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id": runID,
		"wells":  len(params),
	}).Info("Wrote wells to graph")
	return len(params), nil
}

// WellParams builds the query parameters of the wells that have a key.
func WellParams(wells []models.WellRecord) []map[string]any {
	out := make([]map[string]any, 0, len(wells))
	for _, w := range wells {
		key := w.Key()
		if key == "" {
			continue
		}
		props := map[string]any{}
		setString(props, "uwi_display", w.UWIDisplay)
		setString(props, "uwi", w.UWI)
		setString(props, "well_name", w.WellName)
		setString(props, "field_code", w.FieldCode)
		setString(props, "pool_code", w.PoolCode)
		setString(props, "status_code", w.StatusCode)
		setString(props, "mode", w.Mode)
		setString(props, "primary_fluid", w.PrimaryFluid)
		setString(props, "production_month", w.ProductionMonth)
		setFloat(props, "latitude", w.Latitude)
		setFloat(props, "longitude", w.Longitude)
		setFloat(props, "oil_volume", w.OilVolume)
		setFloat(props, "gas_volume", w.GasVolume)

		out = append(out, map[string]any{
			"key":            key,
			"props":          props,
			"licence":        deref(w.StandardizedLicence),
			"licence_status": deref(w.LicenceStatus),
			"company":        deref(w.CompanyName),
		})
	}
	return out
}

func setString(m map[string]any, k string, v *string) {
	if v != nil {
		m[k] = *v
	}
}

func setFloat(m map[string]any, k string, v *float64) {
	if v != nil {
		m[k] = *v
	}
}

func deref(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
