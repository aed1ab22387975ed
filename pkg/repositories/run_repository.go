package repositories

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	runsTable        = "runs"
	wellRecordsTable = "well_records"

	// recordBatchSize bounds the rows of one multi-row INSERT; Postgres
	// accepts at most 65535 bind parameters per statement.
	recordBatchSize = 500
)

var (
	runStruct    = database.NewStruct(new(models.Run))
	recordStruct = database.NewStruct(new(models.WellRecord))
)

// RunRepository stores runs and their normalized well records.
type RunRepository struct {
	*Repository
}

// NewRunRepository creates a new run repository
func NewRunRepository(db database.DB, logger ectologger.Logger) *RunRepository {
	return &RunRepository{
		Repository: NewRepository(db, logger),
	}
}

// SaveSnapshot upserts the run and replaces its well records in one
// transaction.
func (r *RunRepository) SaveSnapshot(ctx context.Context, run *models.Run, wells []models.WellRecord) error {
	ctx, span := tracing.StartSpan(ctx, "RunRepository.SaveSnapshot")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id": run.ID,
		"rows":   len(wells),
	})

	err := database.WithTx(ctx, r.logger, r.db, func(tx *sqlx.Tx) error {
		ib := runStruct.InsertInto(runsTable, run)
		ib.OnConflictUpdate([]string{"id"}, "status", "finished_at", "latest_month", "row_count", "summary")
		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		del := database.NewDeleteBuilder()
		del.DeleteFrom(wellRecordsTable).Where(del.Equal("run_id", run.ID))
		query, args = del.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		for start := 0; start < len(wells); start += recordBatchSize {
			end := min(start+recordBatchSize, len(wells))
			batch := make([]any, 0, end-start)
			for i := start; i < end; i++ {
				batch = append(batch, &wells[i])
			}
			query, args := recordStruct.InsertInto(wellRecordsTable, batch...).Build()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("failed to save run snapshot")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save run snapshot")
	}

	log.Debugf("Saved %s snapshot", runsTable)
	return nil
}

// Latest returns the most recently started run.
func (r *RunRepository) Latest(ctx context.Context) (*models.Run, error) {
	ctx, span := tracing.StartSpan(ctx, "RunRepository.Latest")
	defer span.End()

	sb := runStruct.SelectFrom(runsTable)
	sb.OrderBy("started_at").Desc().Limit(1)

	query, args := sb.Build()
	var run models.Run
	err := r.db.GetContext(ctx, &run, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("no runs recorded")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to get latest run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get latest run")
	}
	return &run, nil
}

// ListWells returns the records of a run whose display UWI or licence
// matches key, or every record when key is empty, paged by limit.
func (r *RunRepository) ListWells(ctx context.Context, run *models.Run, key string, limit, offset int) ([]models.WellRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "RunRepository.ListWells")
	defer span.End()

	sb := recordStruct.SelectFrom(wellRecordsTable)
	sb.Where(sb.Equal("run_id", run.ID))
	if key != "" {
		sb.Where(sb.Or(sb.Equal("uwi_display", key), sb.Equal("standardized_license", key)))
	}
	sb.OrderBy("row_number").Limit(limit).Offset(offset)

	query, args := sb.Build()
	wells := []models.WellRecord{}
	if err := r.db.SelectContext(ctx, &wells, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("run_id", run.ID).Error("failed to list well records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list well records")
	}
	return wells, nil
}
