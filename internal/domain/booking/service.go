package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/booking/internal/domain/catalog"
	"github.com/ehr/booking/internal/domain/scheduling"
	"github.com/ehr/booking/internal/platform/apperr"
	"github.com/ehr/booking/internal/platform/db"
	"github.com/ehr/booking/internal/platform/metrics"
)

// SlotStore is the time slot access the booking engine needs.
type SlotStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*scheduling.TimeSlot, error)
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	Release(ctx context.Context, id uuid.UUID) error
}

type AgendaLookup interface {
	Get(ctx context.Context, doctorID uuid.UUID, weekday string) (*scheduling.Agenda, error)
}

// Directory resolves patients and room locations from the catalog.
type Directory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*catalog.Patient, error)
	ResolveLocation(ctx context.Context, ambulatoryID int64) (*catalog.Location, error)
}

type Service struct {
	bookings  Repository
	slots     SlotStore
	agendas   AgendaLookup
	directory Directory
	tx        db.TxManager
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService wires the booking engine. Slot dates are compared with today in loc.
func NewService(bookings Repository, slots SlotStore, agendas AgendaLookup, dir Directory,
	tx db.TxManager, m *metrics.Metrics, logger zerolog.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		bookings:  bookings,
		slots:     slots,
		agendas:   agendas,
		directory: dir,
		tx:        tx,
		metrics:   m,
		logger:    logger.With().Str("component", "booking").Logger(),
		now:       func() time.Time { return time.Now().In(loc) },
	}
}

// Reserve books timeSlotID for patientID. The slot is taken with a
// conditional update inside the same transaction that inserts the booking,
// so two concurrent reservations cannot both succeed.
func (s *Service) Reserve(ctx context.Context, patientID, timeSlotID uuid.UUID) (*Booking, error) {
	var booking *Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		slot, err := s.slots.GetByID(ctx, timeSlotID)
		if err != nil {
			return err
		}
		// Past slots linger until the next sweep.
		if slot.Day.Before(scheduling.DateOf(s.now())) {
			return ErrSlotUnavailable
		}
		if _, err := s.directory.GetPatient(ctx, patientID); err != nil {
			return err
		}

		claimed, err := s.slots.Claim(ctx, slot.ID)
		if err != nil {
			return fmt.Errorf("claim time slot: %w", err)
		}
		if !claimed {
			return ErrSlotUnavailable
		}

		slotID := slot.ID
		at := slot.SlotTime
		b := &Booking{
			ID:         uuid.New(),
			Day:        slot.Day,
			TimeSlotID: &slotID,
			SlotTime:   &at,
			PatientID:  patientID,
			DoctorID:   slot.DoctorID,
			Status:     StatusPending,
		}
		if err := s.bookings.Create(ctx, b); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		booking = b
		return nil
	})

	switch {
	case err == nil:
		s.metrics.Reservation("ok")
		s.logger.Info().Str("booking_id", booking.ID.String()).Str("time_slot_id", timeSlotID.String()).
			Str("patient_id", patientID.String()).Msg("slot reserved")
		return booking, nil
	case errors.Is(err, ErrSlotUnavailable):
		s.metrics.Reservation("unavailable")
		return nil, err
	}
	s.metrics.Reservation("error")
	return nil, s.txError("reserve", err)
}

// ResolvePending confirms or rejects a pending booking. A non-blank feedback
// replaces the generated message. Rejecting frees the slot again; the
// booking row is kept either way.
func (s *Service) ResolvePending(ctx context.Context, bookingID uuid.UUID, decision Decision, feedback string) (*Booking, error) {
	if decision != Confirm && decision != Reject {
		return nil, apperr.Validation("decision", "must be confirm or reject")
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPending {
		return nil, ErrAlreadyResolved
	}
	if b.TimeSlotID == nil {
		return nil, apperr.NotFound("time slot", "")
	}
	slot, err := s.slots.GetByID(ctx, *b.TimeSlotID)
	if err != nil {
		return nil, err
	}
	agenda, err := s.agendas.Get(ctx, slot.DoctorID, slot.Weekday)
	if err != nil {
		return nil, err
	}
	loc, err := s.directory.ResolveLocation(ctx, agenda.RoomID)
	if err != nil {
		return nil, err
	}

	message := strings.TrimSpace(feedback)
	if message == "" {
		if decision == Confirm {
			message = confirmationMessage(slot.Day, slot.SlotTime, loc)
		} else {
			message = rejectionMessage
		}
	}

	var resolved *Booking
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		updated, ok, err := s.bookings.Resolve(ctx, bookingID, decision.status(), message)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyResolved
		}
		if decision == Reject {
			if err := s.slots.Release(ctx, slot.ID); err != nil {
				return fmt.Errorf("release time slot: %w", err)
			}
		}
		at := slot.SlotTime
		updated.SlotTime = &at
		resolved = updated
		return nil
	})
	if err != nil {
		return nil, s.txError("resolve booking", err)
	}

	s.metrics.Resolution(string(decision))
	s.logger.Info().Str("booking_id", bookingID.String()).Str("decision", string(decision)).Msg("booking resolved")
	return resolved, nil
}

// txError turns a failed rollback into a PartialFailureError, since the
// writes of the transaction are then in an unknown state.
func (s *Service) txError(op string, err error) error {
	var rbErr *db.RollbackError
	if errors.As(err, &rbErr) {
		s.logger.Error().Err(rbErr.RollbackErr).AnErr("cause", rbErr.Err).Str("op", op).
			Msg("transaction rollback failed")
		return &apperr.PartialFailureError{Op: op, Err: err}
	}
	return err
}

// -- Reads --

func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// PendingForDoctor lists the doctor's bookings that have no feedback yet.
func (s *Service) PendingForDoctor(ctx context.Context, doctorID uuid.UUID, q BookingQuery) ([]*Booking, int, error) {
	if err := normalizeQuery(&q); err != nil {
		return nil, 0, err
	}
	return s.bookings.List(ctx, ListFilter{DoctorID: &doctorID, PendingOnly: true}, q)
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, q BookingQuery) ([]*Booking, int, error) {
	if err := normalizeQuery(&q); err != nil {
		return nil, 0, err
	}
	return s.bookings.List(ctx, ListFilter{PatientID: &patientID}, q)
}

func normalizeQuery(q *BookingQuery) error {
	for _, d := range []**time.Time{&q.From, &q.To} {
		if *d != nil {
			v := scheduling.DateOf(**d)
			*d = &v
		}
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return apperr.Validation("to", "must not be before from")
	}
	q.Page = q.Page.Normalize()
	return nil
}
