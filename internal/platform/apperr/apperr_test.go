package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("work_start", "expected HH:MM"), http.StatusBadRequest},
		{"not found", NotFound("ward", "3"), http.StatusNotFound},
		{"conflict", Conflict("agendas_pkey", "agenda already exists"), http.StatusConflict},
		{"wrapped not found", fmt.Errorf("reserve: %w", NotFound("time slot", "x")), http.StatusNotFound},
		{"partial", &PartialFailureError{Op: "materialize slots", Completed: 2, Err: errors.New("boom")}, http.StatusInternalServerError},
		{"partial over conflict", &PartialFailureError{Op: "sweep", Err: Conflict("fk", "still referenced")}, http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNotFoundError_NamesEntity(t *testing.T) {
	err := NotFound("building", "7")
	if err.Error() != "building not found" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestValidationError_Message(t *testing.T) {
	err := Validation("duration", "must be positive")
	if err.Error() != "invalid duration: must be positive" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	bare := &ValidationError{Message: "doctor_id is required"}
	if bare.Error() != "doctor_id is required" {
		t.Errorf("unexpected message: %q", bare.Error())
	}
}

func TestPartialFailure_Unwraps(t *testing.T) {
	cause := errors.New("insert failed")
	err := fmt.Errorf("agenda: %w", &PartialFailureError{Op: "materialize slots", Completed: 3, Err: cause})
	if !IsPartialFailure(err) {
		t.Fatal("expected partial failure")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through errors.Is")
	}
}

func TestConstraintViolation_Message(t *testing.T) {
	err := &ConstraintViolation{Constraint: "agendas_room_weekday_key", Err: errors.New("duplicate key")}
	if err.Error() != "constraint agendas_room_weekday_key violated: duplicate key" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !IsConstraint(fmt.Errorf("wrap: %w", err)) {
		t.Error("expected IsConstraint through wrapping")
	}
}
