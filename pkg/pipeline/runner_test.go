package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/fetcher"
	"github.com/Ramsey-B/fern/pkg/loader"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/sink"
)

const licenceCSV = "01.Licence Number,02.Company Name,03.Latitude,04.Longitude,05.Surface Location,06.Field,07.Pool,08.Licence Status,09.Licence Status Date,10.Non-Routine Licence (Y or N)\n" +
	"0001000,Company A,53.1234,-113.1234,01-01-001-01W5,F,P,Issued,2023-01-01,N\n" +
	"0002000,Company B,53.5678,-113.5678,02-02-002-02W5,F,P,Issued,2023-02-01,N\n"

const productionCSV = "ProductionMonth,OperatorBAID,ReportingFacilityID,ActivityID,ProductID,FromToIDType,FromToIDIdentifier,Volume,Hours\n" +
	"2024-02,A1,F1,PROD,OIL,WI,100060600101W402,100,24\n" +
	"2024-02,A1,F1,PROD,GAS,WI,100060600101W402,1000,24\n"

func statusLine(display, uwi, licence string) string {
	fields := make([]string, len(loader.StatusLayout))
	for i := range fields {
		fields[i] = "x"
	}
	fields[0] = display
	fields[1] = uwi
	fields[8] = licence
	fields[15] = "1234.5"
	return strings.Join(fields, "\t")
}

type testEnv struct {
	raw    string
	cfg    Config
	logger ectologger.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		raw: filepath.Join(root, "raw"),
		cfg: Config{
			StagingDir:      filepath.Join(root, "staging"),
			IntermediateDir: filepath.Join(root, "intermediate"),
			OutputDir:       filepath.Join(root, "output"),
			MetricsTextfile: filepath.Join(root, "output", "metrics.prom"),
			LockTTL:         time.Minute,
		},
		logger: ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}),
	}
	require.NoError(t, os.MkdirAll(env.raw, 0o755))
	return env
}

func (e *testEnv) writeInputs(t *testing.T) {
	t.Helper()
	statuses := statusLine("00/06-06-001-01W4/2", "0014010606002", "0001000") + "\n" +
		statusLine("00/06-06-002-02W4/2", "0024020606002", "0002000") + "\n"
	files := map[string]string{
		fetcher.LicenceFile:        licenceCSV,
		fetcher.StatusFile:         statuses,
		"Petrinex_Vol_2024-02.csv": productionCSV,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(e.raw, name), []byte(content), 0o644))
	}
}

func (e *testEnv) runner(locker Locker, publishers ...Publisher) *Runner {
	f := fetcher.NewFetcher(
		fetcher.Config{RawDir: e.raw, MaxAttempts: 1},
		fetcher.DefaultManifest("2024-02"),
		fetcher.NewClient(fetcher.DefaultClientConfig(), e.logger),
		e.logger,
	)
	return NewRunner(e.cfg, f, sink.NewFileSink(e.logger), locker, e.logger, publishers...)
}

type recordingPublisher struct {
	name  string
	err   error
	snaps []*Snapshot
}

func (p *recordingPublisher) Name() string { return p.name }

func (p *recordingPublisher) Publish(_ context.Context, snap *Snapshot) error {
	p.snaps = append(p.snaps, snap)
	return p.err
}

type stubLocker struct {
	err   error
	calls int
}

func (l *stubLocker) WithLock(ctx context.Context, _ string, _ time.Duration, fn func(ctx context.Context) error) error {
	l.calls++
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

func TestRunnerRun(t *testing.T) {
	t.Run("should write every output and a succeeded summary", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeInputs(t)
		r := env.runner(nil)

		summary, err := r.Run(context.Background(), Options{SkipDownload: true})
		require.NoError(t, err)

		assert.Equal(t, models.RunStatusSucceeded, summary.Status)
		assert.Equal(t, 2, summary.Rows["normalized"])
		assert.Equal(t, 2, summary.Rows[models.SourceStatuses.String()])
		assert.Equal(t, "2024-02", summary.LatestMonth)
		assert.True(t, summary.Aggregated)
		assert.NotNil(t, summary.Quality)
		assert.Contains(t, summary.Stages, "normalize")

		for _, name := range []string{WellsParquet, WellsCSV, QualityFile, ProfileFile, SummaryFile, "metrics.prom"} {
			assert.FileExists(t, filepath.Join(env.cfg.OutputDir, name))
		}
		assert.FileExists(t, filepath.Join(env.cfg.IntermediateDir, PreparedFile))
		assert.FileExists(t, filepath.Join(env.cfg.StagingDir, "st1.parquet"))
		assert.FileExists(t, filepath.Join(env.cfg.StagingDir, "Petrinex_Vol_2024-02.parquet"))

		onDisk, err := ReadSummary(filepath.Join(env.cfg.OutputDir, SummaryFile))
		require.NoError(t, err)
		assert.Equal(t, summary.RunID, onDisk.RunID)

		latest, err := r.Latest()
		require.NoError(t, err)
		assert.Same(t, summary, latest)
	})

	t.Run("should skip the profile report", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeInputs(t)

		_, err := env.runner(nil).Run(context.Background(), Options{SkipDownload: true, SkipProfile: true})
		require.NoError(t, err)
		assert.NoFileExists(t, filepath.Join(env.cfg.OutputDir, ProfileFile))
	})

	t.Run("should write a failed summary when inputs are missing", func(t *testing.T) {
		env := newTestEnv(t)

		summary, err := env.runner(nil).Run(context.Background(), Options{SkipDownload: true})
		require.Error(t, err)
		require.NotNil(t, summary)
		assert.Equal(t, models.RunStatusFailed, summary.Status)
		assert.NotEmpty(t, summary.Error)

		onDisk, err := ReadSummary(filepath.Join(env.cfg.OutputDir, SummaryFile))
		require.NoError(t, err)
		assert.Equal(t, models.RunStatusFailed, onDisk.Status)
	})

	t.Run("should hand the wells to every publisher and record failures", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeInputs(t)
		ok := &recordingPublisher{name: "ok"}
		broken := &recordingPublisher{name: "broken", err: errors.New("unreachable")}

		summary, err := env.runner(nil, ok, broken).Run(context.Background(), Options{SkipDownload: true})
		require.NoError(t, err)

		require.Len(t, ok.snaps, 1)
		assert.Len(t, ok.snaps[0].Wells, 2)
		assert.Equal(t, summary.RunID, ok.snaps[0].RunID.String())
		assert.Contains(t, ok.snaps[0].Files, filepath.Join(env.cfg.OutputDir, WellsParquet))
		assert.Equal(t, "ok", summary.Published["ok"])
		assert.Equal(t, "unreachable", summary.Published["broken"])
	})

	t.Run("should run inside the lock", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeInputs(t)
		locker := &stubLocker{}

		_, err := env.runner(locker).Run(context.Background(), Options{SkipDownload: true})
		require.NoError(t, err)
		assert.Equal(t, 1, locker.calls)
	})

	t.Run("should report a run in progress when the lock is held", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeInputs(t)
		locker := &stubLocker{err: redis.ErrLockNotAcquired}

		summary, err := env.runner(locker).Run(context.Background(), Options{SkipDownload: true})
		assert.ErrorIs(t, err, ErrRunInProgress)
		assert.Nil(t, summary)
		assert.NoFileExists(t, filepath.Join(env.cfg.OutputDir, SummaryFile))
	})
}

func TestRunnerLatest(t *testing.T) {
	t.Run("should fail before any run", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.runner(nil).Latest()
		assert.Error(t, err)
	})
}
