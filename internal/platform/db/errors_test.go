package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ehr/booking/internal/platform/apperr"
)

func TestClassify_NoRows(t *testing.T) {
	err := Classify(fmt.Errorf("get: %w", pgx.ErrNoRows), "time slot", "abc")
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if err.Error() != "time slot not found" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestClassify_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "agendas_room_id_weekday_key"}
	err := Classify(pgErr, "agenda", "")
	var cv *apperr.ConstraintViolation
	if !errors.As(err, &cv) {
		t.Fatalf("expected ConstraintViolation, got %T", err)
	}
	if cv.Constraint != "agendas_room_id_weekday_key" {
		t.Errorf("expected constraint name, got %q", cv.Constraint)
	}
}

func TestClassify_ForeignKeyAndCheck(t *testing.T) {
	for _, code := range []string{"23503", "23514"} {
		if err := Classify(&pgconn.PgError{Code: code}, "booking", ""); !apperr.IsConstraint(err) {
			t.Errorf("code %s: expected ConstraintViolation, got %v", code, err)
		}
	}
}

func TestClassify_Passthrough(t *testing.T) {
	orig := errors.New("connection reset")
	if err := Classify(orig, "booking", ""); err != orig {
		t.Errorf("expected original error, got %v", err)
	}
	if Classify(nil, "booking", "") != nil {
		t.Error("expected nil for nil error")
	}
}

func TestRollbackError_Unwrap(t *testing.T) {
	cause := errors.New("insert booking")
	err := &RollbackError{Err: cause, RollbackErr: errors.New("conn closed")}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if err.Error() != "insert booking (rollback failed: conn closed)" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestConnFromContext_Empty(t *testing.T) {
	if q := ConnFromContext(context.Background()); q != nil {
		t.Error("expected nil querier outside a transaction")
	}
}
