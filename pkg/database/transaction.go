package database

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

// WithTx runs fn in a transaction, committing when fn succeeds and rolling
// back otherwise.
func WithTx(ctx context.Context, logger ectologger.Logger, db DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Errorf("error while beginning transaction")
		return fmt.Errorf("error while beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.WithContext(ctx).WithError(rbErr).Errorf("error while rolling back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.WithContext(ctx).WithError(err).Errorf("error while committing transaction")
		return fmt.Errorf("error while committing transaction: %w", err)
	}
	return nil
}
