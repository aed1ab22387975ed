// Package quality summarizes the normalized table: production coverage by
// status, column profiles and identifier agreement.
package quality

import (
	"strings"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/fern/pkg/table"
)

// NullGroup is the group key used for rows whose status is null.
const NullGroup = "null"

// Metrics counts wells with production and breaks them down by status.
type Metrics struct {
	RowsWithOil               int            `json:"rows_with_oil"`
	RowsWithGas               int            `json:"rows_with_gas"`
	RowsWithProduction        int            `json:"rows_with_production"`
	ProductionByStatus        map[string]int `json:"production_by_status,omitempty"`
	ProductionByLicenceStatus map[string]int `json:"production_by_license_status,omitempty"`

	// Available is false when the table has no oil or no gas volume column.
	Available bool `json:"-"`
}

// Map renders the metrics as the quality report mapping. It is empty when
// the metrics are not available.
func (m Metrics) Map() map[string]any {
	out := make(map[string]any)
	if !m.Available {
		return out
	}
	out["rows_with_oil"] = m.RowsWithOil
	out["rows_with_gas"] = m.RowsWithGas
	out["rows_with_production"] = m.RowsWithProduction
	if m.ProductionByStatus != nil {
		out["production_by_status"] = m.ProductionByStatus
	}
	if m.ProductionByLicenceStatus != nil {
		out["production_by_license_status"] = m.ProductionByLicenceStatus
	}
	return out
}

// Compute counts rows with a positive oil or gas volume. Rows with
// production are grouped by the first column whose name contains "mode" and
// by the first whose name contains "licen" and "status", when present.
func Compute(t *table.Table) Metrics {
	columns := t.Columns()
	oil := findColumn(columns, "oil", "vol")
	gas := findColumn(columns, "gas", "vol")
	if oil == "" || gas == "" {
		return Metrics{}
	}

	oilCol, _ := t.Column(oil)
	gasCol, _ := t.Column(gas)

	m := Metrics{Available: true}
	var producing []int
	for i := 0; i < t.NumRows(); i++ {
		hasOil := positive(oilCol, i)
		hasGas := positive(gasCol, i)
		if hasOil {
			m.RowsWithOil++
		}
		if hasGas {
			m.RowsWithGas++
		}
		if hasOil || hasGas {
			m.RowsWithProduction++
			producing = append(producing, i)
		}
	}

	if mode := findColumn(columns, "mode"); mode != "" {
		col, _ := t.Column(mode)
		m.ProductionByStatus = countBy(col, producing)
	}
	if status := findColumn(columns, "licen", "status"); status != "" {
		col, _ := t.Column(status)
		m.ProductionByLicenceStatus = countBy(col, producing)
	}
	return m
}

// findColumn returns the first column whose lowercased name contains every
// fragment.
func findColumn(columns []string, fragments ...string) string {
	return ectolinq.Find(columns, func(name string) bool {
		lower := strings.ToLower(name)
		for _, f := range fragments {
			if !strings.Contains(lower, f) {
				return false
			}
		}
		return true
	})
}

func positive(col *table.Column, i int) bool {
	v, ok := col.Float(i)
	return ok && v > 0
}

func countBy(col *table.Column, rows []int) map[string]int {
	counts := make(map[string]int)
	for _, i := range rows {
		key, ok := col.String(i)
		if !ok {
			key = NullGroup
		}
		counts[key]++
	}
	return counts
}
