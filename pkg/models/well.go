package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
)

// WellRecord is one row of the normalized well table as published to the
// database, the event stream and the graph. Attributes holds every column
// of the row by its table name.
type WellRecord struct {
	RunID               uuid.UUID                      `db:"run_id" json:"run_id"`
	RowNumber           int                            `db:"row_number" json:"row_number"`
	UWIDisplay          *string                        `db:"uwi_display" json:"uwi_display,omitempty"`
	UWI                 *string                        `db:"uwi" json:"uwi,omitempty"`
	StandardizedLicence *string                        `db:"standardized_license" json:"standardized_license,omitempty"`
	LicenceNumber       *string                        `db:"license_number" json:"license_number,omitempty"`
	CompanyName         *string                        `db:"company_name" json:"company_name,omitempty"`
	LicenceStatus       *string                        `db:"license_status" json:"license_status,omitempty"`
	WellName            *string                        `db:"well_name" json:"well_name,omitempty"`
	FieldCode           *string                        `db:"field_code" json:"field_code,omitempty"`
	PoolCode            *string                        `db:"pool_code" json:"pool_code,omitempty"`
	StatusCode          *string                        `db:"status_code" json:"status_code,omitempty"`
	Mode                *string                        `db:"mode" json:"mode,omitempty"`
	PrimaryFluid        *string                        `db:"primary_fluid" json:"primary_fluid,omitempty"`
	Latitude            *float64                       `db:"latitude" json:"latitude,omitempty"`
	Longitude           *float64                       `db:"longitude" json:"longitude,omitempty"`
	OilVolume           *float64                       `db:"oil_volume" json:"oil_volume,omitempty"`
	GasVolume           *float64                       `db:"gas_volume" json:"gas_volume,omitempty"`
	ProductionMonth     *string                        `db:"production_month" json:"production_month,omitempty"`
	Attributes          database.JSONB[map[string]any] `db:"attributes" json:"attributes"`
}

// Key identifies the well across runs: the display UWI when known, else the
// licence.
func (w WellRecord) Key() string {
	if w.UWIDisplay != nil && *w.UWIDisplay != "" {
		return *w.UWIDisplay
	}
	if w.StandardizedLicence != nil {
		return "licence:" + *w.StandardizedLicence
	}
	return ""
}

// RunStatus is the outcome of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the published record of a pipeline run.
type Run struct {
	ID          uuid.UUID                      `db:"id" json:"id"`
	Status      RunStatus                      `db:"status" json:"status"`
	StartedAt   time.Time                      `db:"started_at" json:"started_at"`
	FinishedAt  *time.Time                     `db:"finished_at" json:"finished_at,omitempty"`
	LatestMonth *string                        `db:"latest_month" json:"latest_month,omitempty"`
	RowCount    int                            `db:"row_count" json:"row_count"`
	Summary     database.JSONB[map[string]any] `db:"summary" json:"summary"`
}
