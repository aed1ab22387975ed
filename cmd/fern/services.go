package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/migrations"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/fetcher"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/pipeline"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/repositories"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	"github.com/Ramsey-B/fern/pkg/sink"
	"github.com/Ramsey-B/fern/pkg/startup"
)

// kafkaRequireAll waits for every in-sync replica.
const kafkaRequireAll = -1

// services holds the runner and the optional dependencies enabled by
// configuration.
type services struct {
	logger   ectologger.Logger
	startup  *startup.Startup
	postgres *database.Postgres
	redis    *redis.Client
	runs     *repositories.RunRepository
	runner   *pipeline.Runner
}

// buildManifest starts from the default dataset locations, applies the
// configured URLs and then the optional manifest file.
func buildManifest(cfg *config.Config, now time.Time) (fetcher.Manifest, error) {
	month := cfg.ProductionMonth(now)
	base := fetcher.DefaultManifest(month)

	manifest, err := base.Merge(fetcher.Manifest{Datasets: []fetcher.Dataset{
		{Source: models.SourceLicences, URL: cfg.LicenceURL},
		{Source: models.SourceStatuses, URL: cfg.StatusURL, Archive: true},
		{Source: models.SourceProduction, URL: cfg.ProductionURL, Archive: true},
	}})
	if err != nil {
		return base, err
	}

	if cfg.DatasetManifest != "" {
		if manifest, err = fetcher.LoadManifest(cfg.DatasetManifest, manifest); err != nil {
			return base, err
		}
	}
	return manifest.WithMonth(month), nil
}

func postgresConfig(cfg *config.Config) database.Config {
	return database.Config{
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		User:            cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}
}

// migrate applies the embedded migrations.
func migrate(pg *database.Postgres, a app, version uint) error {
	return database.NewMigrationService(a.logger, migrations.FS, &database.MigrationConfig{
		Version: version,
		Force:   a.cfg.DatabaseMigrationForce,
	}).Migrate(pg.SQL())
}

// buildServices wires the runner, starts every enabled dependency and
// returns them. Callers must call stop.
func buildServices(ctx context.Context, a app) (*services, error) {
	cfg, logger := a.cfg, a.logger
	s := &services{
		logger:  logger,
		startup: startup.NewStartup(logger, cfg.StartupMaxAttempts, cfg.StartupRetryUnit),
	}

	manifest, err := buildManifest(cfg, time.Now())
	if err != nil {
		return nil, err
	}

	var (
		producer *kafka.Producer
		graphDB  *graph.Client
		uploader *sink.GCSUploader
	)
	if cfg.DatabaseEnabled {
		s.postgres = database.NewPostgres(postgresConfig(cfg), logger)
		s.startup.AddDependency(s.postgres)
	}
	if cfg.RedisEnabled {
		s.redis = redis.NewClient(redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		s.startup.AddDependency(s.redis)
	}
	if cfg.KafkaEnabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Brokers(),
			Topic:        cfg.KafkaTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: cfg.KafkaBatchTimeout,
			RequiredAcks: kafkaRequireAll,
			Compression:  cfg.KafkaCompression,
		}, logger)
		s.startup.AddDependency(producer)
	}
	if cfg.GraphEnabled {
		if graphDB, err = graph.NewClient(graph.Config{
			Host:     cfg.GraphHost,
			Port:     cfg.GraphPort,
			Username: cfg.GraphUsername,
			Password: cfg.GraphPassword,
		}, logger); err != nil {
			return nil, err
		}
		s.startup.AddDependency(graphDB)
	}
	if cfg.GCSEnabled {
		if uploader, err = sink.NewGCSUploader(ctx, sink.GCSConfig{
			Bucket:          cfg.GCSBucket,
			Prefix:          cfg.GCSPrefix,
			CredentialsFile: cfg.GCSCredentialsFile,
		}, logger); err != nil {
			return nil, err
		}
		s.startup.AddDependency(uploader)
	}

	if err := s.startup.Start(ctx); err != nil {
		s.stop(ctx)
		return nil, fmt.Errorf("failed to start dependencies: %w", err)
	}

	var publishers []pipeline.Publisher
	if s.postgres != nil {
		if cfg.DatabaseMigrateOnRun {
			if err := migrate(s.postgres, a, 0); err != nil {
				s.stop(ctx)
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		s.runs = repositories.NewRunRepository(s.postgres.DB(), logger)
		publishers = append(publishers, pipeline.NewRepositoryPublisher(s.runs))
	}
	if producer != nil {
		publishers = append(publishers, pipeline.NewEventPublisher(producer))
	}
	if graphDB != nil {
		publishers = append(publishers, pipeline.NewGraphPublisher(graph.NewWellService(graphDB, logger)))
	}
	if uploader != nil {
		publishers = append(publishers, pipeline.NewUploadPublisher(uploader))
	}

	var locker pipeline.Locker
	if s.redis != nil {
		locker = redis.NewLocker(s.redis, "")
	}

	client := fetcher.NewClient(fetcher.ClientConfig{
		Timeout:         cfg.FetchTimeout,
		MaxIdleConns:    fetcher.DefaultClientConfig().MaxIdleConns,
		IdleConnTimeout: fetcher.DefaultClientConfig().IdleConnTimeout,
		UserAgent:       cfg.FetchUserAgent,
	}, logger)
	f := fetcher.NewFetcher(fetcher.Config{
		RawDir:      cfg.RawDir,
		MaxAttempts: cfg.FetchMaxAttempts,
		RetryUnit:   cfg.FetchRetryUnit,
	}, manifest, client, logger)

	s.runner = pipeline.NewRunner(pipeline.Config{
		StagingDir:      cfg.StagingDir,
		IntermediateDir: cfg.IntermediateDir,
		OutputDir:       cfg.OutputDir,
		MetricsTextfile: cfg.MetricsTextfile,
		LockTTL:         cfg.RunLockTTL,
	}, f, sink.NewFileSink(logger), locker, logger, publishers...)

	return s, nil
}

// healthChecks returns a pinger per started dependency.
func (s *services) healthChecks() map[string]health.Pinger {
	checks := map[string]health.Pinger{}
	if s.postgres != nil {
		checks["postgres"] = s.postgres.DB()
	}
	if s.redis != nil {
		checks["redis"] = health.PingFunc(s.redis.Ping)
	}
	return checks
}

func (s *services) stop(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if err := s.startup.Stop(ctx); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to stop dependencies")
	}
}
