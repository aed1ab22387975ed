package quality

import (
	"github.com/Ramsey-B/fern/pkg/identifiers"
	"github.com/Ramsey-B/fern/pkg/loader"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/table"
)

// IdentifierReport compares the two production-format identifiers that can
// be derived from a status listing: one from the display UWI and one from
// the compact UWI.
type IdentifierReport struct {
	Display identifiers.Yield `json:"display"`
	Compact identifiers.Yield `json:"compact"`
	// Compared counts rows where both conversions succeeded.
	Compared int `json:"compared"`
	// Agreeing counts compared rows where both conversions gave the same value.
	Agreeing int `json:"agreeing"`
}

// AgreementRate is the share of compared rows that agree.
func (r IdentifierReport) AgreementRate() float64 {
	if r.Compared == 0 {
		return 0
	}
	return float64(r.Agreeing) / float64(r.Compared)
}

// CompareIdentifiers converts both identifier columns of a status table. It
// returns false when either column is missing.
func CompareIdentifiers(t *table.Table) (IdentifierReport, bool) {
	display, ok := t.Column(loader.ColUWIDisplay)
	if !ok {
		return IdentifierReport{}, false
	}
	compact, ok := t.Column(loader.ColUWI)
	if !ok {
		return IdentifierReport{}, false
	}

	var r IdentifierReport
	_, r.Display, _ = identifiers.ConvertColumn(display, loader.ColUWIDisplay, identifiers.DisplayToProduction)
	_, r.Compact, _ = identifiers.ConvertColumn(compact, loader.ColUWI, identifiers.CompactToProduction)

	for i := 0; i < t.NumRows(); i++ {
		d, dok := display.String(i)
		c, cok := compact.String(i)
		if !dok || !cok {
			continue
		}
		fromDisplay := identifiers.DisplayToProduction(d)
		fromCompact := identifiers.CompactToProduction(c)
		if !fromDisplay.OK() || !fromCompact.OK() {
			continue
		}
		r.Compared++
		if fromDisplay.Value == fromCompact.Value {
			r.Agreeing++
		}
	}

	metrics.IdentifierConversions.WithLabelValues("compact", identifiers.Converted.String()).Add(float64(r.Compact.Converted))
	metrics.IdentifierConversions.WithLabelValues("compact", identifiers.Canonical.String()).Add(float64(r.Compact.Canonical))
	metrics.IdentifierConversions.WithLabelValues("compact", identifiers.Unchanged.String()).Add(float64(r.Compact.Unchanged))
	return r, true
}
