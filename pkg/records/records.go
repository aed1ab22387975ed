// Package records turns rows of the normalized well table into the
// WellRecord model shared by the publication sinks.
package records

import (
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/loader"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/production"
	"github.com/Ramsey-B/fern/pkg/table"
)

// FromTable converts every row of t. Columns the table lacks stay nil.
func FromTable(runID uuid.UUID, t *table.Table) []models.WellRecord {
	out := make([]models.WellRecord, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		out = append(out, FromRow(runID, t, t.Row(i)))
	}
	return out
}

// FromRow converts one row.
func FromRow(runID uuid.UUID, t *table.Table, r table.Row) models.WellRecord {
	attributes := make(map[string]any, t.NumCols())
	for _, name := range t.Columns() {
		if v := r.Value(name); v != nil {
			attributes[name] = v
		}
	}

	return models.WellRecord{
		RunID:               runID,
		RowNumber:           r.Index(),
		UWIDisplay:          text(r, loader.ColUWIDisplay),
		UWI:                 text(r, loader.ColUWI),
		StandardizedLicence: text(r, merging.ColStandardizedLicence),
		LicenceNumber:       text(r, loader.ColLicenceNumber),
		CompanyName:         text(r, loader.ColCompanyName),
		LicenceStatus:       text(r, loader.ColLicenceStatus),
		WellName:            text(r, loader.ColWellName),
		FieldCode:           text(r, loader.ColFieldCode),
		PoolCode:            text(r, loader.ColPoolCode),
		StatusCode:          text(r, loader.ColStatusCode),
		Mode:                text(r, loader.ColMode),
		PrimaryFluid:        text(r, loader.ColPrimaryFluid),
		Latitude:            number(r, loader.ColLatitude),
		Longitude:           number(r, loader.ColLongitude),
		OilVolume:           number(r, production.VolumeColumn("OIL")),
		GasVolume:           number(r, production.VolumeColumn("GAS")),
		ProductionMonth:     text(r, production.ColProductionMonth),
		Attributes:          database.NewJSONB(attributes),
	}
}

func text(r table.Row, name string) *string {
	s, ok := r.String(name)
	if !ok {
		return nil
	}
	return &s
}

func number(r table.Row, name string) *float64 {
	f, ok := r.Float(name)
	if !ok {
		return nil
	}
	return &f
}
