package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ehr/booking/internal/platform/apperr"
)

// RoomFinder looks up rooms of a ward that are free on a weekday.
type RoomFinder interface {
	// FreeRoom returns the lowest-id ambulatory of wardID that no agenda on
	// weekday uses, ignoring the agenda doctorID already holds there.
	// ok is false when every room is taken.
	FreeRoom(ctx context.Context, wardID int64, weekday string, doctorID uuid.UUID) (id int64, ok bool, err error)
}

// Allocator assigns consultation rooms to weekly agendas so that no room is
// used by two agendas on the same weekday.
type Allocator struct {
	rooms RoomFinder
}

func NewAllocator(rooms RoomFinder) *Allocator {
	return &Allocator{rooms: rooms}
}

// AllocateRoom picks a room for doctorID's agenda on weekday in wardID. It
// performs no writes.
func (a *Allocator) AllocateRoom(ctx context.Context, wardID int64, weekday string, doctorID uuid.UUID) (int64, error) {
	id, ok, err := a.rooms.FreeRoom(ctx, wardID, weekday, doctorID)
	if err != nil {
		return 0, fmt.Errorf("find free room: %w", err)
	}
	if !ok {
		return 0, &apperr.NotFoundError{Entity: "ambulatory", Key: fmt.Sprintf("ward %d on %s", wardID, weekday)}
	}
	return id, nil
}
