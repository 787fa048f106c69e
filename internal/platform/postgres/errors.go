package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/joshuxchn/qloo/internal/store"
)

// PostgreSQL error codes
const (
	// uniqueViolationCode is the PostgreSQL error code for unique constraint violations
	uniqueViolationCode = "23505"

	// foreignKeyViolationCode is the PostgreSQL error code for foreign key violations
	foreignKeyViolationCode = "23503"

	// checkViolationCode is the PostgreSQL error code for check constraint violations
	checkViolationCode = "23514"

	// notNullViolationCode is the PostgreSQL error code for not null violations
	notNullViolationCode = "23502"

	// queryCanceledCode is raised when statement_timeout cancels a statement
	queryCanceledCode = "57014"

	// serializationFailureCode and deadlockDetectedCode are raised when
	// concurrent transactions cannot both commit
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"

	// connectionExceptionClass is the SQLSTATE class for lost connections
	connectionExceptionClass = "08"
	// adminShutdownClass covers server shutdown and crash recovery
	adminShutdownClass = "57P"
	// dataExceptionClass covers values the column types cannot hold:
	// numeric overflow, bad encodings, NUL bytes
	dataExceptionClass = "22"
)

// errorKinds are the sentinels MapError leaves untouched when an error
// already carries one of them.
var errorKinds = []error{
	store.ErrConnection,
	store.ErrIntegrity,
	store.ErrNotFound,
	store.ErrSerialization,
	store.ErrConflict,
	store.ErrTransactionFailed,
}

// MapError maps a database error to the store error taxonomy.
// It wraps the original error to preserve context and provide better debugging information.
// This function should be used in all database operations to ensure consistent error handling.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	for _, kind := range errorKinds {
		if errors.Is(err, kind) {
			return err
		}
	}

	// Handle common SQL errors
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	}

	// Handle PostgreSQL-specific errors
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == uniqueViolationCode:
			return fmt.Errorf("%w: unique violation (%s): %w", store.ErrDuplicate, pgErr.ConstraintName, err)
		case pgErr.Code == foreignKeyViolationCode:
			return fmt.Errorf(
				"%w: foreign key violation (%s): %w",
				store.ErrInvalidEntity,
				pgErr.ConstraintName,
				err,
			)
		case pgErr.Code == checkViolationCode:
			return fmt.Errorf(
				"%w: check constraint violation (%s): %w",
				store.ErrInvalidEntity,
				pgErr.ConstraintName,
				err,
			)
		case pgErr.Code == notNullViolationCode:
			return fmt.Errorf(
				"%w: not null violation (%s): %w",
				store.ErrInvalidEntity,
				pgErr.ColumnName,
				err,
			)
		case pgErr.Code == serializationFailureCode, pgErr.Code == deadlockDetectedCode:
			return fmt.Errorf("%w: %w", store.ErrConflict, err)
		case pgErr.Code == queryCanceledCode,
			strings.HasPrefix(pgErr.Code, connectionExceptionClass),
			strings.HasPrefix(pgErr.Code, adminShutdownClass):
			return fmt.Errorf("%w: %w", store.ErrConnection, err)
		case strings.HasPrefix(pgErr.Code, dataExceptionClass):
			return fmt.Errorf("%w: data exception (%s): %w", store.ErrSerialization, pgErr.ColumnName, err)
		}
		return err
	}

	if IsConnectionFailure(err) {
		return fmt.Errorf("%w: %w", store.ErrConnection, err)
	}

	// Return the original error for errors that don't have specific mappings
	return err
}

// IsConnectionFailure reports whether err means the database could not be
// reached or the statement did not finish in time.
func IsConnectionFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		pgconn.Timeout(err) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == queryCanceledCode ||
			strings.HasPrefix(pgErr.Code, connectionExceptionClass) ||
			strings.HasPrefix(pgErr.Code, adminShutdownClass)
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsUniqueViolation checks if the given error is a PostgreSQL unique constraint violation.
// This is useful for detecting duplicate records that violate unique constraints.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// IsForeignKeyViolation checks if the given error is a PostgreSQL foreign key constraint violation.
// This occurs when an operation would violate referential integrity constraints.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}

// constraintName returns the violated constraint, or "" for other errors.
func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// CheckRowsAffected examines the number of rows affected by a database operation.
// If no rows were affected, it returns notFound.
// This is useful for UPDATE and DELETE operations where the absence of affected rows
// typically indicates that the target record doesn't exist.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return MapError(fmt.Errorf("failed to get rows affected: %w", err))
	}

	if rowsAffected == 0 {
		if notFound == nil {
			return store.ErrNotFound
		}
		return notFound
	}

	return nil
}
