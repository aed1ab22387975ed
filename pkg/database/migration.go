package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrationLogger adapts ectologger to migrate.Logger.
type MigrationLogger struct {
	ectologger.Logger
}

func (l MigrationLogger) Verbose() bool {
	return true
}

func (l MigrationLogger) Printf(format string, v ...any) {
	l.Infof(format, v...)
}

type MigrationConfig struct {
	// Version migrates to a specific version instead of the latest.
	Version uint
	// Force marks the database as being at this version before migrating.
	Force int
}

// MigrationService applies SQL migrations read from an fs.FS.
type MigrationService struct {
	config *MigrationConfig
	source fs.FS
	logger ectologger.Logger
}

func NewMigrationService(logger ectologger.Logger, source fs.FS, config *MigrationConfig) *MigrationService {
	if config == nil {
		config = &MigrationConfig{}
	}
	return &MigrationService{
		config: config,
		source: source,
		logger: logger,
	}
}

// Migrate applies the migrations to db.
func (ms *MigrationService) Migrate(db *sql.DB) error {
	src, err := iofs.New(ms.source, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		ms.logger.WithError(err).Error("Failed to create migrate instance")
		return err
	}
	m.Log = MigrationLogger{Logger: ms.logger}

	return ms.runMigration(m)
}

func (ms *MigrationService) runMigration(m *migrate.Migrate) error {
	if ms.config.Force != 0 {
		if err := m.Force(ms.config.Force); err != nil {
			ms.logger.WithError(err).Errorf("Failed to force database to version %d", ms.config.Force)
			return err
		}
	}

	previous, _, versionErr := m.Version()
	if versionErr != nil && !errors.Is(versionErr, migrate.ErrNilVersion) {
		ms.logger.WithError(versionErr).Error("Failed to get current migration version")
	}

	start := time.Now()
	var err error
	if ms.config.Version != 0 {
		err = m.Migrate(ms.config.Version)
	} else {
		err = m.Up()
	}
	ms.logger.Infof("Database migrations completed in %v", time.Since(start))

	switch {
	case err == nil:
		current, _, _ := m.Version()
		ms.logger.WithFields(map[string]any{
			"from_version": previous,
			"to_version":   current,
		}).Info("Successfully applied migrations")
		return nil
	case errors.Is(err, migrate.ErrNoChange):
		ms.logger.Info("No new migrations to apply")
		return nil
	}

	ms.logger.WithError(err).Errorf("Migration failed with error: %v", err)
	if version, dirty, vErr := m.Version(); vErr == nil && dirty {
		ms.logger.Warnf("Database is dirty at version %d; fix the failed migration and rerun with a forced version", version)
	}
	return fmt.Errorf("failed to apply migrations: %w", err)
}
