package loader

import (
	"context"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/table"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Canonical ST1 column names.
const (
	ColLicenceNumber     = "License Number"
	ColCompanyName       = "Company Name"
	ColLatitude          = "Latitude"
	ColLongitude         = "Longitude"
	ColSurfaceLocation   = "Surface Location"
	ColLicenceStatus     = "License Status"
	ColLicenceStatusDate = "License Status Date"
	ColIsNonRoutine      = "Is Non-Routine"
)

// LicenceColumns are the raw ST1 columns that must be present, in output order.
var LicenceColumns = []string{
	"01.Licence Number",
	"02.Company Name",
	"03.Latitude",
	"04.Longitude",
	"05.Surface Location",
	"08.Licence Status",
	"09.Licence Status Date",
	"10.Non-Routine Licence (Y or N)",
}

var licenceRename = map[string]string{
	"01.Licence Number":               ColLicenceNumber,
	"02.Company Name":                 ColCompanyName,
	"03.Latitude":                     ColLatitude,
	"04.Longitude":                    ColLongitude,
	"05.Surface Location":             ColSurfaceLocation,
	"08.Licence Status":               ColLicenceStatus,
	"09.Licence Status Date":          ColLicenceStatusDate,
	"10.Non-Routine Licence (Y or N)": ColIsNonRoutine,
}

// LoadLicences reads the ST1 well licence CSV.
func (l *Loader) LoadLicences(ctx context.Context, path string) (*table.Table, error) {
	ctx, span := tracing.StartSpan(ctx, "loader.Loader.LoadLicences")
	defer span.End()

	source := models.SourceLicences
	l.logger.WithContext(ctx).Infof("Loading AER ST1 data from %s", path)

	f, err := openSource(path)
	if err != nil {
		return nil, ferrors.WrapPipelineError(ferrors.IOFailure, err).AddStage(stage).AddSource(source.String())
	}
	defer f.Close()

	header, records, err := readRecords(utf8Reader(f), csvFormat{comma: ',', header: true, lazy: true})
	if err != nil {
		return nil, ferrors.NewPipelineErrorf(ferrors.IOFailure, "failed to parse ST1 csv: %w", err).AddStage(stage).AddSource(source.String())
	}

	raw, err := table.FromRecords(header, records, table.ReadOptions{
		NullValues: []string{""},
		Numeric:    []string{"03.Latitude", "04.Longitude"},
	})
	if err != nil {
		return nil, ferrors.NewPipelineErrorf(ferrors.IOFailure, "failed to build ST1 table: %w", err).AddStage(stage).AddSource(source.String())
	}

	l.reportSparse(ctx, source, raw, LicenceColumns)

	out, missing, err := narrow(raw, LicenceColumns, licenceRename)
	if err != nil {
		return nil, ferrors.WrapPipelineError(ferrors.IOFailure, err).AddStage(stage).AddSource(source.String())
	}
	if len(missing) > 0 {
		return nil, ferrors.NewPipelineError(ferrors.MissingColumn, "essential columns missing from AER ST1 data").
			AddStage(stage).AddSource(source.String()).AddColumns(missing...)
	}

	l.loaded(ctx, source, path, out)
	return out, nil
}
