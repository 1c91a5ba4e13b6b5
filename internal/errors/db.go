package errors

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapDBError maps database errors to AppError instances:
//   - pgx.ErrNoRows → not_found
//   - unique constraint violations → conflict
//   - context deadline/cancellation → dependency
//
// Anything else is wrapped as a dependency error: the store itself failed,
// which is fatal for the current request.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Dependency("database request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return Dependency("database request was canceled", err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return &AppError{
			Code:    ErrCodeNotFound,
			Message: "resource not found",
			Cause:   err,
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	return Dependency("database error", err)
}

// mapPgError maps PostgreSQL-specific errors to AppError instances.
func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return &AppError{
			Code:    ErrCodeConflict,
			Message: "this value already exists",
			Field:   pgErr.ColumnName,
			Cause:   pgErr,
		}
	case pgerrcode.ForeignKeyViolation, pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		return &AppError{
			Code:    ErrCodeValidation,
			Message: "invalid data for this operation",
			Field:   pgErr.ColumnName,
			Cause:   pgErr,
		}
	default:
		return Dependency("database error", pgErr)
	}
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation, before or after MapDBError translation. Account creation relies
// on this to turn the store's uniqueness constraint into
// AccountAlreadyExists without a check-then-act race.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
