package pg

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/retry"
)

const (
	maxTxAttempts = 3
)

// ExecuteInTx runs fn in a new DB transaction, committing when fn succeeds and
// rolling back otherwise. The whole transaction is retried when Postgres
// aborts it with a serialization failure or deadlock, so fn must not have
// side effects outside of tx.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	if isolation == sql.LevelDefault {
		isolation = sql.LevelReadCommitted
	}

	_, err := retry.Retry(
		func() error {
			return executeOnce(ctx, db, isolation, fn)
		},
		retry.RetriableFunc(IsRetriable),
		retry.Limit(maxTxAttempts),
		retry.Context(ctx),
	)
	return err
}

func executeOnce(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: isolation,
	})
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		// Rollback releases the connection back to the pool.
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Wrapf(rollbackErr, "failed to rollback transaction after: %v", err)
		}
		return err
	}
	return tx.Commit()
}
