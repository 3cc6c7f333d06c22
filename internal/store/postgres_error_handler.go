package store

import (
	"errors"

	apperrors "github.com/Taichi-iskw/yt-vocab/internal/errors"
	"github.com/jackc/pgx/v5/pgconn"
)

// handlePostgreSQLError converts PostgreSQL-specific errors to appropriate AppError codes
func handlePostgreSQLError(err error, operation string) *apperrors.AppError {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return apperrors.Wrap(err, apperrors.CodeInternal, operation)
	}

	switch pgErr.Code {
	case "23505": // UNIQUE_VIOLATION
		return apperrors.Wrap(err, apperrors.CodeConflict, operation+": key already exists")

	case "23502": // NOT_NULL_VIOLATION
		return apperrors.Wrap(err, apperrors.CodeInvalidArg, operation+": required field is missing")

	case "22P02", "22032": // INVALID_TEXT_REPRESENTATION, INVALID_JSON_TEXT
		return apperrors.Wrap(err, apperrors.CodeInvalidArg, operation+": value is not valid JSON")

	case "42P01": // UNDEFINED_TABLE
		return apperrors.Wrap(err, apperrors.CodeInternal, "database schema error: table not found (run 'ytvocab db migrate')")

	case "08000", "08003", "08006": // CONNECTION_EXCEPTION variants
		return apperrors.Wrap(err, apperrors.CodeInternal, "database connection error")

	case "53300": // TOO_MANY_CONNECTIONS
		return apperrors.Wrap(err, apperrors.CodeInternal, "database connection limit reached")

	default:
		return apperrors.Wrap(err, apperrors.CodeInternal, operation+" (PostgreSQL code: "+pgErr.Code+")")
	}
}
