// Package pipeline runs one end-to-end normalization: fetch, load, normalize,
// write outputs and publish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/fern/pkg/diagnostics"
	"github.com/Ramsey-B/fern/pkg/fetcher"
	"github.com/Ramsey-B/fern/pkg/loader"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
	"github.com/Ramsey-B/fern/pkg/quality"
	"github.com/Ramsey-B/fern/pkg/records"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/sink"
	"github.com/Ramsey-B/fern/pkg/table"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	lockKey     = "pipeline-run"
	previewRows = 5
	publishedOK = "ok"
)

// Output file names.
const (
	WellsParquet = "normalized_wells_ab.parquet"
	WellsCSV     = "normalized_wells_ab.csv"
	QualityFile  = "quality_metrics.json"
	ProfileFile  = "profile.json"
	PreparedFile = "prepared_petrinex.parquet"
)

// ErrRunInProgress is returned when another run holds the run lock.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Options are the per-run switches of the run command.
type Options struct {
	SkipDownload bool
	SkipProfile  bool
}

// Config locates the run's output directories.
type Config struct {
	StagingDir      string
	IntermediateDir string
	OutputDir       string
	MetricsTextfile string
	LockTTL         time.Duration
}

// Resolver yields the input files of a run.
type Resolver interface {
	Resolve(ctx context.Context, skipDownload bool) (fetcher.Paths, error)
}

// Locker serializes runs across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

// Runner executes pipeline runs.
type Runner struct {
	cfg        Config
	resolver   Resolver
	files      *sink.FileSink
	locker     Locker
	publishers []Publisher
	logger     ectologger.Logger

	mu      sync.Mutex
	running bool
	latest  *Summary
}

// NewRunner creates a new runner. locker may be nil for single-process use.
func NewRunner(cfg Config, resolver Resolver, files *sink.FileSink, locker Locker, logger ectologger.Logger, publishers ...Publisher) *Runner {
	return &Runner{
		cfg:        cfg,
		resolver:   resolver,
		files:      files,
		locker:     locker,
		publishers: publishers,
		logger:     logger,
	}
}

// Latest returns the summary of the last run in this process, falling back
// to run_summary.json in the output directory.
func (r *Runner) Latest() (*Summary, error) {
	r.mu.Lock()
	latest := r.latest
	r.mu.Unlock()
	if latest != nil {
		return latest, nil
	}
	return ReadSummary(filepath.Join(r.cfg.OutputDir, SummaryFile))
}

// Running reports whether this process is executing a run.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Run executes one run. The summary is returned, and written to disk, even
// when the run fails.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	if r.locker == nil {
		return r.run(ctx, opts)
	}

	var (
		summary *Summary
		runErr  error
	)
	err := r.locker.WithLock(ctx, lockKey, r.cfg.LockTTL, func(ctx context.Context) error {
		summary, runErr = r.run(ctx, opts)
		return nil
	})
	switch {
	case errors.Is(err, redis.ErrLockNotAcquired):
		r.logger.WithContext(ctx).Warn("Another process holds the run lock")
		return nil, ErrRunInProgress
	case err != nil && summary == nil:
		return nil, fmt.Errorf("failed to take the run lock: %w", err)
	case err != nil:
		r.logger.WithContext(ctx).WithError(err).Warn("Run lock was not released cleanly")
	}
	return summary, runErr
}

func (r *Runner) run(ctx context.Context, opts Options) (*Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Runner.Run")
	defer span.End()

	runID := uuid.New()
	summary := newSummary(runID.String(), time.Now().UTC())
	log := r.logger.WithContext(ctx).WithField("run_id", summary.RunID)
	log.Info("Starting Alberta well data normalization pipeline")

	rec := diagnostics.NewRecorder(r.logger)
	err := r.execute(ctx, runID, opts, rec, summary)

	summary.Warnings = rec.Counts()
	summary.finish(err)

	if writeErr := r.files.WriteReport(ctx, summary, filepath.Join(r.cfg.OutputDir, SummaryFile)); writeErr != nil {
		log.WithError(writeErr).Warn("Failed to write run summary")
	}
	metrics.RunsTotal.WithLabelValues(string(summary.Status)).Inc()
	if r.cfg.MetricsTextfile != "" {
		if mErr := metrics.WriteTextfile(r.cfg.MetricsTextfile); mErr != nil {
			log.WithError(mErr).Warn("Failed to write metrics textfile")
		}
	}

	r.mu.Lock()
	r.latest = summary
	r.mu.Unlock()

	if err != nil {
		tracing.Fail(span, err)
		log.WithError(err).Error("Pipeline run failed")
		return summary, err
	}
	log.WithField("duration_seconds", summary.DurationSeconds).Info("Alberta well data normalization pipeline completed successfully")
	return summary, nil
}

func (r *Runner) execute(ctx context.Context, runID uuid.UUID, opts Options, rec *diagnostics.Recorder, summary *Summary) error {
	log := r.logger.WithContext(ctx).WithField("run_id", summary.RunID)

	// Fetch
	log.Info("STEP 1: Resolving data files")
	stageStart := time.Now()
	paths, err := r.resolver.Resolve(ctx, opts.SkipDownload)
	summary.stage("fetch", stageStart)
	if err != nil {
		return err
	}
	summary.Inputs = paths
	log.WithFields(map[string]any{
		"st1":      paths.Licences,
		"st37":     paths.Statuses,
		"petrinex": paths.Production,
	}).Info("Using resolved input files")

	// Load
	log.Info("STEP 2: Loading data files")
	stageStart = time.Now()
	tables, err := r.load(ctx, loader.NewLoader(r.logger, rec), paths)
	summary.stage("load", stageStart)
	if err != nil {
		return err
	}
	licences, statuses, prod := tables[models.SourceLicences], tables[models.SourceStatuses], tables[models.SourceProduction]
	for source, t := range tables {
		summary.Rows[source.String()] = t.NumRows()
	}
	r.writeStaging(ctx, tables, paths)

	// Normalize
	log.Info("STEP 3: Normalizing data")
	stageStart = time.Now()
	result, err := normalize.NewNormalizer(r.logger, rec).Normalize(ctx, licences, statuses, prod)
	summary.stage("normalize", stageStart)
	if err != nil {
		return err
	}
	wells := result.Wells
	summary.Rows["normalized"] = wells.NumRows()
	summary.Rows["production"] = result.Production.NumRows()
	summary.LatestMonth = result.LatestMonth
	summary.Aggregated = result.Aggregated
	metrics.OutputRows.Set(float64(wells.NumRows()))

	if result.Aggregated {
		path := filepath.Join(r.cfg.IntermediateDir, PreparedFile)
		if err := r.files.WriteTable(ctx, result.Production, path); err != nil {
			log.WithError(err).Warn("Failed to save prepared production data")
		}
	}

	log.WithFields(map[string]any{
		"rows":    wells.NumRows(),
		"columns": wells.NumCols(),
	}).Infof("Normalized data shape: %d rows, %d columns", wells.NumRows(), wells.NumCols())
	quality.LogNulls(ctx, r.logger, wells)
	r.logPreview(ctx, wells)

	// Output
	log.Info("STEP 4: Saving normalized data and analyzing data quality")
	stageStart = time.Now()
	if err := r.writeOutputs(ctx, wells, opts, summary); err != nil {
		summary.stage("output", stageStart)
		return err
	}
	if report, ok := quality.CompareIdentifiers(statuses); ok {
		summary.Identifiers = &report
	}
	summary.stage("output", stageStart)

	// Publish
	if len(r.publishers) > 0 {
		stageStart = time.Now()
		r.publish(ctx, &Snapshot{
			RunID:   runID,
			Summary: summary,
			Wells:   records.FromTable(runID, wells),
			Files:   summary.Outputs,
		})
		summary.stage("publish", stageStart)
	}
	return nil
}

// load reads the three sources concurrently.
func (r *Runner) load(ctx context.Context, ld *loader.Loader, paths fetcher.Paths) (map[models.Source]*table.Table, error) {
	var mu sync.Mutex
	tables := make(map[models.Source]*table.Table, len(models.Sources))

	g, gctx := errgroup.WithContext(ctx)
	for _, source := range models.Sources {
		g.Go(func() error {
			t, err := ld.Load(gctx, source, paths.Get(source))
			if err != nil {
				return err
			}
			mu.Lock()
			tables[source] = t
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

func (r *Runner) writeStaging(ctx context.Context, tables map[models.Source]*table.Table, paths fetcher.Paths) {
	for _, source := range models.Sources {
		stem := source.String()
		if source == models.SourceProduction {
			base := filepath.Base(paths.Production)
			stem = strings.TrimSuffix(base, filepath.Ext(base))
		}
		r.files.WriteStaging(ctx, tables[source], r.cfg.StagingDir, stem)
	}
}

// writeOutputs writes the normalized table and its reports. Only a failed
// parquet write is returned.
func (r *Runner) writeOutputs(ctx context.Context, wells *table.Table, opts Options, summary *Summary) error {
	log := r.logger.WithContext(ctx)

	parquetPath := filepath.Join(r.cfg.OutputDir, WellsParquet)
	if err := r.files.WriteTable(ctx, wells, parquetPath); err != nil {
		return fmt.Errorf("failed to save normalized data: %w", err)
	}
	summary.Outputs = append(summary.Outputs, parquetPath)

	csvPath := filepath.Join(r.cfg.OutputDir, WellsCSV)
	if err := r.files.WriteTable(ctx, wells, csvPath); err != nil {
		log.WithError(err).Warn("Failed to save normalized data as CSV")
	} else {
		summary.Outputs = append(summary.Outputs, csvPath)
	}

	if opts.SkipProfile {
		log.Info("Skipping profile report generation")
	} else {
		profilePath := filepath.Join(r.cfg.OutputDir, ProfileFile)
		if err := r.files.WriteReport(ctx, quality.NewProfile(wells), profilePath); err != nil {
			log.WithError(err).Warn("Failed to save profile report")
		} else {
			summary.Outputs = append(summary.Outputs, profilePath)
		}
	}

	report := quality.Compute(wells).Map()
	summary.Quality = report
	qualityPath := filepath.Join(r.cfg.OutputDir, QualityFile)
	if err := r.files.WriteReport(ctx, report, qualityPath); err != nil {
		log.WithError(err).Warn("Failed to save quality metrics")
	} else {
		summary.Outputs = append(summary.Outputs, qualityPath)
	}
	return nil
}

func (r *Runner) publish(ctx context.Context, snap *Snapshot) {
	for _, p := range r.publishers {
		log := r.logger.WithContext(ctx).WithField("publisher", p.Name())
		if err := p.Publish(ctx, snap); err != nil {
			log.WithError(err).Errorf("Failed to publish run to %s", p.Name())
			snap.Summary.Published[p.Name()] = err.Error()
			continue
		}
		snap.Summary.Published[p.Name()] = publishedOK
		log.Infof("Published run to %s", p.Name())
	}
}

func (r *Runner) logPreview(ctx context.Context, t *table.Table) {
	header, rows := t.Head(previewRows).Records()
	log := r.logger.WithContext(ctx)
	log.Debugf("Normalized columns: %s", strings.Join(header, " | "))
	for _, row := range rows {
		log.Debugf("  %s", strings.Join(row, " | "))
	}
}
