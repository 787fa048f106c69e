package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/joshuxchn/qloo/internal/platform/logger"
	"github.com/joshuxchn/qloo/internal/redact"
)

// TxFn is a function that executes within a database transaction.
// It receives the context and a transaction, and returns an error if the operation fails.
// The transaction is committed if the function returns nil, or rolled back if it returns an error.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// ConnFn is a function that executes against a connection scope, which is
// always a transaction: either one opened for it or the caller's.
type ConnFn func(ctx context.Context, conn DBTX) error

// RunInTransaction executes the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// Otherwise, the transaction is committed.
// The function handles rollbacks in case of panic and logs appropriate information.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) error {
	return RunInTransactionWithOptions(ctx, db, nil, fn)
}

// RunInTransactionWithOptions is RunInTransaction with explicit isolation and
// read-only options.
func RunInTransactionWithOptions(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFn) error {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		log.Error("failed to begin transaction",
			slog.String("error", redact.Error(err)))
		return fmt.Errorf("%w: failed to begin transaction: %w", ErrConnection, err)
	}

	defer func() {
		if p := recover(); p != nil {
			txErr := tx.Rollback()
			if txErr != nil && !errors.Is(txErr, sql.ErrTxDone) {
				log.Error("failed to roll back transaction after panic",
					slog.String("error", redact.Error(txErr)),
					slog.Any("panic", p))
			} else {
				log.Error("rolled back transaction after panic",
					slog.Any("panic", p))
			}
			// ALLOW-PANIC: Propagating caught panic from transaction
			panic(p)
		}
	}()

	err = fn(ctx, tx)
	if err != nil {
		err = classifyConnectionFailure(err)

		rollbackErr := tx.Rollback()
		// ErrTxDone means the driver already rolled back, e.g. on cancellation.
		if rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			log.Error("failed to roll back transaction",
				slog.String("rollback_error", redact.Error(rollbackErr)),
				slog.String("original_error", redact.Error(err)))
			return fmt.Errorf(
				"error rolling back transaction: %v (original error: %w)",
				rollbackErr,
				err,
			)
		}
		log.Debug("rolled back transaction due to error",
			slog.String("error", redact.Error(err)))
		return err
	}

	err = tx.Commit()
	if err != nil {
		log.Error("failed to commit transaction",
			slog.String("error", redact.Error(err)))
		if isConnectionFailure(err) {
			return fmt.Errorf("%w: %w: %w", ErrTransactionFailed, ErrConnection, err)
		}
		return fmt.Errorf("%w: failed to commit transaction: %w", ErrTransactionFailed, err)
	}

	log.Debug("transaction committed successfully")
	return nil
}

// WithConnection scopes fn to a single transaction. When db is a *sql.DB a
// new transaction is opened, committed when fn succeeds and rolled back
// otherwise. When db is already a *sql.Tx, fn joins it and the owner of that
// transaction decides the outcome. Other DBTX implementations are used as-is.
func WithConnection(ctx context.Context, db DBTX, opts *sql.TxOptions, fn ConnFn) error {
	switch conn := db.(type) {
	case *sql.DB:
		return RunInTransactionWithOptions(ctx, conn, opts, func(ctx context.Context, tx *sql.Tx) error {
			return fn(ctx, tx)
		})
	default:
		if err := fn(ctx, conn); err != nil {
			return classifyConnectionFailure(err)
		}
		return nil
	}
}

// classifyConnectionFailure tags infrastructure failures with ErrConnection
// unless they already carry a kind.
func classifyConnectionFailure(err error) error {
	if err == nil || errors.Is(err, ErrConnection) || !isConnectionFailure(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrConnection, err)
}

// isConnectionFailure reports whether err means the store could not complete
// the operation for reasons unrelated to the data.
func isConnectionFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
