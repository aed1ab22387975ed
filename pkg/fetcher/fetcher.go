// Package fetcher downloads the source datasets into the raw data directory
// or, when downloads are skipped, resolves the files already there.
package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/errgroup"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/loader"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const stage = "fetch"

// Config controls where files land and how downloads are retried.
type Config struct {
	RawDir      string
	MaxAttempts int
	RetryUnit   time.Duration
}

// Paths holds the local file of every source.
type Paths struct {
	Licences   string `json:"st1"`
	Statuses   string `json:"st37"`
	Production string `json:"petrinex"`
}

// Get returns the path of source.
func (p Paths) Get(source models.Source) string {
	switch source {
	case models.SourceLicences:
		return p.Licences
	case models.SourceStatuses:
		return p.Statuses
	case models.SourceProduction:
		return p.Production
	}
	return ""
}

func (p *Paths) set(source models.Source, path string) {
	switch source {
	case models.SourceLicences:
		p.Licences = path
	case models.SourceStatuses:
		p.Statuses = path
	case models.SourceProduction:
		p.Production = path
	}
}

// Fetcher downloads the datasets of a manifest.
type Fetcher struct {
	cfg      Config
	manifest Manifest
	client   *Client
	logger   ectologger.Logger
}

// NewFetcher creates a new fetcher
func NewFetcher(cfg Config, manifest Manifest, client *Client, logger ectologger.Logger) *Fetcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Fetcher{
		cfg:      cfg,
		manifest: manifest,
		client:   client,
		logger:   logger,
	}
}

// Resolve returns the files of a run: freshly downloaded, or the existing
// ones in the raw directory when skipDownload is set.
func (f *Fetcher) Resolve(ctx context.Context, skipDownload bool) (Paths, error) {
	if skipDownload {
		f.logger.WithContext(ctx).Info("Skipping download step, using existing files")
		return LocalPaths(f.cfg.RawDir)
	}
	return f.FetchAll(ctx)
}

// FetchAll downloads every dataset concurrently. The first failure cancels
// the others.
func (f *Fetcher) FetchAll(ctx context.Context) (Paths, error) {
	var (
		paths Paths
		mu    sync.Mutex
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, source := range models.Sources {
		g.Go(func() error {
			path, err := f.Fetch(ctx, source)
			if err != nil {
				return err
			}
			mu.Lock()
			paths.set(source, path)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

// Fetch downloads one dataset, retrying with backoff, and returns the path
// of the file the loader reads.
func (f *Fetcher) Fetch(ctx context.Context, source models.Source) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "fetcher.Fetcher.Fetch")
	defer span.End()

	dataset, ok := f.manifest.Dataset(source)
	if !ok {
		return "", ferrors.NewPipelineErrorf(ferrors.IOFailure, "no dataset configured").AddStage(stage).AddSource(source.String())
	}

	log := f.logger.WithContext(ctx).WithFields(map[string]any{
		"source": source.String(),
		"url":    dataset.URL,
	})
	log.Infof("Attempting to download %s", dataset.File)

	start := time.Now()
	var path string
	err := startup.Retry(ctx, f.logger, "download "+source.String(), f.cfg.MaxAttempts, f.cfg.RetryUnit, func(ctx context.Context, _ int) error {
		var err error
		path, err = f.fetchOnce(ctx, dataset)
		return err
	})
	metrics.DownloadDuration.WithLabelValues(source.String()).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.DownloadsTotal.WithLabelValues(source.String(), "failure").Inc()
		log.WithError(err).Errorf("Failed to download %s", source)
		return "", ferrors.WrapPipelineError(ferrors.IOFailure, err).AddStage(stage).AddSource(source.String())
	}

	metrics.DownloadsTotal.WithLabelValues(source.String(), "success").Inc()
	log.WithField("path", path).Infof("Successfully downloaded %s", filepath.Base(path))
	return path, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, d Dataset) (string, error) {
	dest := filepath.Join(f.cfg.RawDir, d.File)
	if !d.Archive {
		n, err := f.client.Download(ctx, d.URL, dest)
		if err != nil {
			return "", err
		}
		metrics.DownloadBytes.WithLabelValues(d.Source.String()).Add(float64(n))
		return dest, nil
	}

	archive := filepath.Join(f.cfg.RawDir, d.Source.String()+".zip")
	n, err := f.client.Download(ctx, d.URL, archive)
	if err != nil {
		return "", err
	}
	metrics.DownloadBytes.WithLabelValues(d.Source.String()).Add(float64(n))
	defer os.Remove(archive)

	tmp, err := os.MkdirTemp(f.cfg.RawDir, d.Source.String()+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create extraction directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	members, err := loader.ExtractArchive(ctx, f.logger, archive, tmp)
	if err != nil {
		return "", err
	}

	member, ok := loader.FindMember(members, d.Member)
	if !ok {
		return "", fmt.Errorf("archive from %s has no %s member", d.URL, d.Member)
	}

	if err := os.Rename(member, dest); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", filepath.Base(member), err)
	}
	return dest, nil
}

// LocalPaths resolves the files of a previous download in dir: the fixed
// licence and status files and the name-sorted last production file. Every
// file must exist.
func LocalPaths(dir string) (Paths, error) {
	matches, err := filepath.Glob(filepath.Join(dir, ProductionPattern))
	if err != nil {
		return Paths{}, err
	}
	if len(matches) == 0 {
		return Paths{}, ferrors.NewPipelineErrorf(ferrors.IOFailure, "no %s files found in %s", ProductionPattern, dir).
			AddStage(stage).AddSource(models.SourceProduction.String())
	}
	sort.Strings(matches)

	paths := Paths{
		Licences:   filepath.Join(dir, LicenceFile),
		Statuses:   filepath.Join(dir, StatusFile),
		Production: matches[len(matches)-1],
	}

	for _, source := range models.Sources {
		path := paths.Get(source)
		if _, err := os.Stat(path); err != nil {
			return Paths{}, ferrors.NewPipelineErrorf(ferrors.IOFailure, "file not found: %s", path).
				AddStage(stage).AddSource(source.String())
		}
	}
	return paths, nil
}
