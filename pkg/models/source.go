package models

// Source identifies one of the three input datasets.
type Source string

const (
	// SourceLicences is the AER ST1 well licence registry.
	SourceLicences Source = "st1"
	// SourceStatuses is the AER ST37 list of wells.
	SourceStatuses Source = "st37"
	// SourceProduction is the Petrinex volumetric production feed.
	SourceProduction Source = "petrinex"
)

// Sources lists every dataset in load order.
var Sources = []Source{SourceLicences, SourceStatuses, SourceProduction}

func (s Source) String() string {
	return string(s)
}
