package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AgendaRepository interface {
	RoomFinder
	Get(ctx context.Context, doctorID uuid.UUID, weekday string) (*Agenda, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Agenda, error)
	ListAll(ctx context.Context) ([]*Agenda, error)
	Insert(ctx context.Context, a *Agenda) error
	Update(ctx context.Context, a *Agenda) error
}

type SlotRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	// InsertDay stores the slots of one date in a single batch. Rows that
	// already exist for (day, slot_time, doctor) are skipped; the return value
	// counts the rows actually inserted.
	InsertDay(ctx context.Context, slots []*TimeSlot) (int, error)
	// DeleteFrom removes the doctor's slots on weekday dated on or after from.
	DeleteFrom(ctx context.Context, doctorID uuid.UUID, weekday string, from time.Time) (int64, error)
	// LockUpcoming row-locks the doctor's slots for weekday dated on or after
	// from until the surrounding transaction ends. A reservation that already
	// claimed one of them is waited for.
	LockUpcoming(ctx context.Context, doctorID uuid.UUID, weekday string, from time.Time) error
	// CountActiveBookings counts pending or confirmed bookings on the doctor's
	// slots for weekday dated on or after from.
	CountActiveBookings(ctx context.Context, doctorID uuid.UUID, weekday string, from time.Time) (int, error)
	// Available lists available slots matching q dated on or after today.
	Available(ctx context.Context, q SlotQuery, today time.Time) ([]*TimeSlot, int, error)
	// Claim flips an available slot to unavailable. It reports false when the
	// slot was already taken.
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	Release(ctx context.Context, id uuid.UUID) error
}
