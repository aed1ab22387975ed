package loader

import (
	"context"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/table"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Canonical ST37 column names.
const (
	ColUWIDisplay       = "UWI Display"
	ColUWI              = "UWI"
	ColWellName         = "Well Name"
	ColFieldCode        = "Field Code"
	ColPoolCode         = "Pool Code"
	ColOSArea           = "OS-Area"
	ColLicence          = "License"
	ColStatusLicStatus  = "License Status"
	ColLicenceIssueDate = "License Issue Date"
	ColLicenseeCode     = "Licensee Code"
	ColOperatorCode     = "Operator Code"
	ColRigReleaseDate   = "Rig Release Date"
	ColTotalDepth       = "TD"
	ColStatusCode       = "Status Code"
	ColStatusDate       = "Status Date"
	ColPrimaryFluid     = "Primary Fluid"
	ColMode             = "Mode"
	ColType             = "Type"
	ColStructure        = "Structure"
	ColSchemeType       = "Scheme Type"
	ColSchemeSubType    = "Scheme Sub-Type"
)

// StatusLayout is the positional column layout of the ST37 list of wells.
var StatusLayout = []string{
	"UWI Display format",
	"UWI",
	"Update-Flag",
	"Well-Name",
	"Field Code",
	"Pool Code",
	"OS-Area- Code",
	"OS-Dep- Code",
	"License-No",
	"License-Status",
	"License-Issue-Date",
	"Licensee-Code",
	"Agent-Code",
	"Operator-Code",
	"Fin-Drl-Date",
	"Well-Total-Depth",
	"Well-Stat-Code",
	"Well-Stat-Date",
	"Fluid_Short_Description",
	"Mode_Short_Description",
	"Type_Short_Description",
	"Structure_Short_Description",
	"Scheme_Type",
	"Scheme_Sub_Type",
}

// statusKeep lists the layout columns the pipeline keeps, in output order.
var statusKeep = []string{
	"UWI Display format",
	"UWI",
	"Well-Name",
	"Field Code",
	"Pool Code",
	"OS-Area- Code",
	"License-No",
	"License-Status",
	"License-Issue-Date",
	"Licensee-Code",
	"Operator-Code",
	"Fin-Drl-Date",
	"Well-Total-Depth",
	"Well-Stat-Code",
	"Well-Stat-Date",
	"Fluid_Short_Description",
	"Mode_Short_Description",
	"Type_Short_Description",
	"Structure_Short_Description",
	"Scheme_Type",
	"Scheme_Sub_Type",
}

var statusRename = map[string]string{
	"UWI Display format":          ColUWIDisplay,
	"UWI":                         ColUWI,
	"Well-Name":                   ColWellName,
	"Field Code":                  ColFieldCode,
	"Pool Code":                   ColPoolCode,
	"OS-Area- Code":               ColOSArea,
	"License-No":                  ColLicence,
	"License-Status":              ColStatusLicStatus,
	"License-Issue-Date":          ColLicenceIssueDate,
	"Licensee-Code":               ColLicenseeCode,
	"Operator-Code":               ColOperatorCode,
	"Fin-Drl-Date":                ColRigReleaseDate,
	"Well-Total-Depth":            ColTotalDepth,
	"Well-Stat-Code":              ColStatusCode,
	"Well-Stat-Date":              ColStatusDate,
	"Fluid_Short_Description":     ColPrimaryFluid,
	"Mode_Short_Description":      ColMode,
	"Type_Short_Description":      ColType,
	"Structure_Short_Description": ColStructure,
	"Scheme_Type":                 ColSchemeType,
	"Scheme_Sub_Type":             ColSchemeSubType,
}

// LoadStatuses reads the ST37 list of wells: tab separated, no header, one
// well per row in the fixed StatusLayout order.
func (l *Loader) LoadStatuses(ctx context.Context, path string) (*table.Table, error) {
	ctx, span := tracing.StartSpan(ctx, "loader.Loader.LoadStatuses")
	defer span.End()

	source := models.SourceStatuses
	l.logger.WithContext(ctx).Infof("Loading AER ST37 data from %s", path)

	f, err := openSource(path)
	if err != nil {
		return nil, ferrors.WrapPipelineError(ferrors.IOFailure, err).AddStage(stage).AddSource(source.String())
	}
	defer f.Close()

	_, records, err := readRecords(utf8Reader(f), csvFormat{
		comma:     '\t',
		lazy:      true,
		fieldsPer: len(StatusLayout),
	})
	if err != nil {
		return nil, ferrors.NewPipelineErrorf(ferrors.IOFailure, "failed to parse ST37 listing: %w", err).AddStage(stage).AddSource(source.String())
	}

	raw, err := table.FromRecords(StatusLayout, records, table.ReadOptions{
		NullValues: []string{""},
		Numeric:    []string{"Well-Total-Depth"},
	})
	if err != nil {
		return nil, ferrors.NewPipelineErrorf(ferrors.IOFailure, "failed to build ST37 table: %w", err).AddStage(stage).AddSource(source.String())
	}

	out, missing, err := narrow(raw, statusKeep, statusRename)
	if err != nil {
		return nil, ferrors.WrapPipelineError(ferrors.IOFailure, err).AddStage(stage).AddSource(source.String())
	}
	if len(missing) > 0 {
		return nil, ferrors.NewPipelineError(ferrors.MissingColumn, "columns missing from AER ST37 data").
			AddStage(stage).AddSource(source.String()).AddColumns(missing...)
	}

	l.loaded(ctx, source, path, out)
	return out, nil
}
