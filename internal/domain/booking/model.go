package booking

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/booking/internal/domain/scheduling"
	"github.com/ehr/booking/internal/platform/apperr"
	"github.com/ehr/booking/pkg/pagination"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
)

// Decision is a doctor's answer to a pending booking.
type Decision string

const (
	Confirm Decision = "confirm"
	Reject  Decision = "reject"
)

func (d Decision) status() Status {
	if d == Confirm {
		return StatusConfirmed
	}
	return StatusRejected
}

var (
	ErrSlotUnavailable = &apperr.ConstraintViolation{
		Constraint: "time_slot_available",
		Message:    "time slot is no longer available",
	}
	ErrAlreadyResolved = &apperr.ConstraintViolation{
		Constraint: "booking_pending",
		Message:    "booking has already been resolved",
	}
)

// Booking is a patient's reservation of a time slot. Feedback stays empty
// while the booking is pending. TimeSlotID is nil once the slot was purged.
type Booking struct {
	ID         uuid.UUID             `json:"id"`
	Day        time.Time             `json:"-"`
	TimeSlotID *uuid.UUID            `json:"time_slot_id"`
	SlotTime   *scheduling.TimeOfDay `json:"slot_time,omitempty"`
	PatientID  uuid.UUID             `json:"patient_id"`
	DoctorID   uuid.UUID             `json:"doctor_id"`
	Status     Status                `json:"status"`
	Feedback   string                `json:"feedback"`
	CreatedAt  time.Time             `json:"created_at"`
	ResolvedAt *time.Time            `json:"resolved_at,omitempty"`
}

func (b Booking) MarshalJSON() ([]byte, error) {
	type alias Booking
	return json.Marshal(struct {
		alias
		Day string `json:"day"`
	}{alias: alias(b), Day: b.Day.Format(scheduling.DateLayout)})
}

// BookingQuery narrows booking listings. From and To bound the booking day,
// both inclusive.
type BookingQuery struct {
	From *time.Time
	To   *time.Time
	Sort []pagination.SortField
	Page pagination.Params
}

// SortFields whitelists the public sort names for BookingQuery.
var SortFields = map[string]string{
	"day":        "b.day",
	"slot_time":  "s.slot_time",
	"created_at": "b.created_at",
	"status":     "b.status",
}

// ListFilter selects whose bookings a listing returns.
type ListFilter struct {
	DoctorID    *uuid.UUID
	PatientID   *uuid.UUID
	PendingOnly bool
}
