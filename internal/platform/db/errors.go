package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ehr/booking/internal/platform/apperr"
)

// SQLSTATE codes for integrity constraint violations.
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
)

// Classify maps storage errors onto the apperr taxonomy. pgx.ErrNoRows
// becomes a NotFoundError for entity, integrity violations become a
// ConstraintViolation, and everything else is returned unchanged.
func Classify(err error, entity, key string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(entity, key)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation, codeForeignKeyViolation, codeCheckViolation:
			return &apperr.ConstraintViolation{Constraint: pgErr.ConstraintName, Err: err}
		}
	}
	return err
}
