package booking

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	// Resolve moves a pending booking to status with feedback. ok is false
	// when the booking was no longer pending.
	Resolve(ctx context.Context, id uuid.UUID, status Status, feedback string) (b *Booking, ok bool, err error)
	List(ctx context.Context, f ListFilter, q BookingQuery) ([]*Booking, int, error)
}
