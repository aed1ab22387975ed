package repositories

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/migrations"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

func getTestLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// getTestDB connects to the database named by the DB_* variables and applies
// the migrations. Tests are skipped when DB_HOST is unset.
func getTestDB(t *testing.T) database.DB {
	t.Helper()
	host := os.Getenv("DB_HOST")
	if host == "" {
		t.Skip("DB_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("DB_PORT"))
	if port == 0 {
		port = 5432
	}

	pg := database.NewPostgres(database.Config{
		Host:     host,
		Port:     port,
		User:     envOr("DB_USER", "postgres"),
		Password: envOr("DB_PASSWORD", "password"),
		Name:     envOr("DB_NAME", "fern"),
	}, getTestLogger())
	require.NoError(t, pg.Start(context.Background()), "Failed to connect to test database")
	t.Cleanup(func() { pg.Stop(context.Background()) })

	require.NoError(t, database.NewMigrationService(getTestLogger(), migrations.FS, nil).Migrate(pg.SQL()))
	return pg.DB()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func ptr[T any](v T) *T { return &v }

func TestRunRepository_Snapshot(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	repo := NewRunRepository(getTestDB(t), getTestLogger())
	ctx := context.Background()

	run := &models.Run{
		ID:          uuid.New(),
		Status:      models.RunStatusSucceeded,
		StartedAt:   time.Now().UTC().Add(time.Hour),
		LatestMonth: ptr("2024-01"),
		RowCount:    2,
		Summary:     database.NewJSONB(map[string]any{"rows": 2}),
	}
	wells := []models.WellRecord{
		{RunID: run.ID, RowNumber: 0, UWIDisplay: ptr("00/06-06-001-01W4/2"), StandardizedLicence: ptr("1000"), OilVolume: ptr(150.0),
			Attributes: database.NewJSONB(map[string]any{"Field Code": "F1"})},
		{RunID: run.ID, RowNumber: 1, StandardizedLicence: ptr("2000"),
			Attributes: database.NewJSONB(map[string]any{})},
	}

	t.Run("should save and replace a snapshot", func(t *testing.T) {
		require.NoError(t, repo.SaveSnapshot(ctx, run, wells))
		require.NoError(t, repo.SaveSnapshot(ctx, run, wells[:1]))

		latest, err := repo.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, run.ID, latest.ID)
		assert.Equal(t, "2024-01", *latest.LatestMonth)

		got, err := repo.ListWells(ctx, latest, "", 10, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 150.0, *got[0].OilVolume)
		assert.Equal(t, "F1", got[0].Attributes.Data["Field Code"])
	})

	t.Run("should filter wells by licence", func(t *testing.T) {
		require.NoError(t, repo.SaveSnapshot(ctx, run, wells))

		got, err := repo.ListWells(ctx, run, "2000", 10, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 1, got[0].RowNumber)
	})
}

func TestNotFound(t *testing.T) {
	err := NotFound("run %s does not exist", "abc")
	assert.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}
