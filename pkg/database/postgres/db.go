package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/code-payments/collateral-server/pkg/retry"
	"github.com/code-payments/collateral-server/pkg/retry/backoff"
)

const maxTxAttempts = 3

var errSerialization = errors.New("serialization failure")

// ExecuteInTx runs fn within a new transaction at the requested isolation
// level. The transaction commits when fn succeeds and rolls back otherwise.
// Serialization failures restart the whole transaction a bounded number of
// times.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	if isolation == sql.LevelDefault {
		isolation = sql.LevelReadCommitted // Postgres default
	}

	var lastErr error
	_, err := retry.Retry(
		func() error {
			lastErr = runTx(ctx, db, isolation, fn)
			if IsSerializationFailure(lastErr) {
				return errSerialization
			}
			return lastErr
		},
		retry.RetriableErrors(errSerialization),
		retry.Context(ctx),
		retry.Limit(maxTxAttempts),
		retry.Backoff(backoff.Linear(10*time.Millisecond), 100*time.Millisecond),
	)
	if err == errSerialization {
		return lastErr
	}
	return err
}

func runTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: isolation,
	})
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		// Rollback always runs so sql.DB releases the connection.
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Wrap(rollbackErr, "failed to rollback transaction")
		}
		return err
	}
	return tx.Commit()
}
