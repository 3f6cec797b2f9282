package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/booking/internal/domain/catalog"
	"github.com/ehr/booking/internal/platform/apperr"
	"github.com/ehr/booking/internal/platform/db"
	"github.com/ehr/booking/internal/platform/lock"
	"github.com/ehr/booking/internal/platform/metrics"
)

// Catalog is the subset of the hospital catalog the agenda manager reads.
type Catalog interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*catalog.Doctor, error)
	WardForSpecialty(ctx context.Context, buildingID int64, specialty string) (*catalog.Ward, error)
}

type Service struct {
	agendas AgendaRepository
	slots   SlotRepository
	catalog Catalog
	alloc   *Allocator
	tx      db.TxManager
	locker  lock.Locker
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService wires the agenda manager. Dates such as "today" are taken in loc.
func NewService(agendas AgendaRepository, slots SlotRepository, cat Catalog, tx db.TxManager,
	locker lock.Locker, m *metrics.Metrics, logger zerolog.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		agendas: agendas,
		slots:   slots,
		catalog: cat,
		alloc:   NewAllocator(agendas),
		tx:      tx,
		locker:  locker,
		metrics: m,
		logger:  logger.With().Str("component", "agenda").Logger(),
		now:     func() time.Time { return time.Now().In(loc) },
	}
}

func (s *Service) today() time.Time { return DateOf(s.now()) }

// -- Agenda writes --

// CreateOrUpdateAgenda validates req, allocates a room and stores the agenda,
// then materializes its slots over the generation window. When only the
// materialization fails the stored agenda is returned together with a
// PartialFailureError.
func (s *Service) CreateOrUpdateAgenda(ctx context.Context, req AgendaRequest) (*Agenda, error) {
	op := "create"
	if req.IsUpdate {
		op = "update"
	}
	a, err := s.createOrUpdate(ctx, req)
	s.metrics.AgendaWrite(op, metrics.Outcome(err))
	return a, err
}

func (s *Service) createOrUpdate(ctx context.Context, req AgendaRequest) (*Agenda, error) {
	agenda, err := validateAgenda(req)
	if err != nil {
		return nil, err
	}

	doctor, err := s.catalog.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	ward, err := s.catalog.WardForSpecialty(ctx, req.BuildingID, doctor.Specialty)
	if err != nil {
		return nil, err
	}

	today := s.today()
	key := fmt.Sprintf("agenda:%d:%s", ward.ID, agenda.Weekday)
	err = s.locker.WithLock(ctx, key, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			return s.storeAgenda(ctx, agenda, ward.ID, req.IsUpdate, today)
		})
	})
	if err != nil {
		return nil, s.agendaWriteError(agenda, err)
	}

	s.logger.Info().
		Str("doctor_id", agenda.DoctorID.String()).
		Str("weekday", agenda.Weekday).
		Int64("room_id", agenda.RoomID).
		Bool("update", req.IsUpdate).
		Msg("agenda stored")

	if _, err := s.materialize(ctx, agenda, today); err != nil {
		return agenda, err
	}
	return agenda, nil
}

// storeAgenda runs inside the agenda transaction. The room is allocated
// before any slot is deleted so a full ward leaves the old agenda intact.
func (s *Service) storeAgenda(ctx context.Context, agenda *Agenda, wardID int64, isUpdate bool, today time.Time) error {
	_, err := s.agendas.Get(ctx, agenda.DoctorID, agenda.Weekday)
	if err != nil && !apperr.IsNotFound(err) {
		return err
	}
	exists := err == nil
	if exists && !isUpdate {
		return &apperr.ConstraintViolation{Constraint: "agendas_pkey", Message: "agenda already exists"}
	}
	if !exists && isUpdate {
		return err
	}

	if isUpdate {
		// Locking first makes the count and the later delete see every
		// reservation committed before us and block the ones after.
		if err := s.slots.LockUpcoming(ctx, agenda.DoctorID, agenda.Weekday, today); err != nil {
			return fmt.Errorf("lock upcoming slots: %w", err)
		}
		n, err := s.slots.CountActiveBookings(ctx, agenda.DoctorID, agenda.Weekday, today)
		if err != nil {
			return fmt.Errorf("count active bookings: %w", err)
		}
		if n > 0 {
			return &apperr.ConstraintViolation{
				Constraint: "agenda_active_bookings",
				Message:    fmt.Sprintf("agenda has %d active bookings on upcoming dates", n),
			}
		}
	}

	room, err := s.alloc.AllocateRoom(ctx, wardID, agenda.Weekday, agenda.DoctorID)
	if err != nil {
		return err
	}
	agenda.RoomID = room

	if !isUpdate {
		return s.agendas.Insert(ctx, agenda)
	}

	deleted, err := s.slots.DeleteFrom(ctx, agenda.DoctorID, agenda.Weekday, today)
	if err != nil {
		return fmt.Errorf("delete upcoming slots: %w", err)
	}
	s.logger.Debug().Int64("deleted", deleted).Str("weekday", agenda.Weekday).Msg("upcoming slots cleared")
	return s.agendas.Update(ctx, agenda)
}

func (s *Service) agendaWriteError(agenda *Agenda, err error) error {
	if errors.Is(err, lock.ErrLockNotAcquired) {
		return &apperr.ConstraintViolation{
			Constraint: "agenda_lock",
			Message:    "another agenda write for this ward and weekday is in progress",
			Err:        err,
		}
	}
	var rbErr *db.RollbackError
	if errors.As(err, &rbErr) {
		s.logger.Error().Err(rbErr.RollbackErr).AnErr("cause", rbErr.Err).
			Str("doctor_id", agenda.DoctorID.String()).Str("weekday", agenda.Weekday).
			Msg("agenda transaction rollback failed")
		return &apperr.PartialFailureError{Op: "agenda write", Err: err}
	}
	return err
}

func validateAgenda(req AgendaRequest) (*Agenda, error) {
	if req.DoctorID == uuid.Nil {
		return nil, apperr.Validation("doctor_id", "is required")
	}
	if req.BuildingID <= 0 {
		return nil, apperr.Validation("building_id", "is required")
	}

	wd, err := ParseWeekday(req.Weekday)
	if err != nil {
		return nil, err
	}

	var times [4]TimeOfDay
	for i, f := range []struct{ name, raw string }{
		{"work_start", req.WorkStart},
		{"break_start", req.BreakStart},
		{"break_end", req.BreakEnd},
		{"work_end", req.WorkEnd},
	} {
		t, err := ParseTimeOfDay(f.raw)
		if err != nil {
			return nil, apperr.Validation(f.name, "%q is not a valid HH:MM time", f.raw)
		}
		times[i] = t
	}
	ws, bs, be, we := times[0], times[1], times[2], times[3]
	// Report the first field that does not come after its predecessor.
	for _, f := range []struct {
		name, after string
		prev, t     TimeOfDay
	}{
		{"break_start", "work_start", ws, bs},
		{"break_end", "break_start", bs, be},
		{"work_end", "break_end", be, we},
	} {
		if f.t <= f.prev {
			return nil, apperr.Validation(f.name, "%s must be after %s %s", f.t, f.after, f.prev)
		}
	}

	duration, err := ParseDuration(req.Duration)
	if err != nil {
		return nil, err
	}

	return &Agenda{
		DoctorID:        req.DoctorID,
		Weekday:         WeekdayLabel(wd),
		WorkStart:       ws,
		BreakStart:      bs,
		BreakEnd:        be,
		WorkEnd:         we,
		DurationMinutes: duration,
	}, nil
}

// materialize inserts the agenda's slots for every matching date of the
// generation window, one batch per date. Existing rows are left untouched.
func (s *Service) materialize(ctx context.Context, a *Agenda, today time.Time) (int, error) {
	wd, err := ParseWeekday(a.Weekday)
	if err != nil {
		return 0, err
	}
	times, err := a.SlotTimes()
	if err != nil {
		return 0, err
	}
	from, to := GenerationWindow(today)

	inserted := 0
	for i, day := range DatesForWeekday(wd, from, to) {
		batch := make([]*TimeSlot, 0, len(times))
		for _, t := range times {
			batch = append(batch, &TimeSlot{
				ID:        uuid.New(),
				Day:       day,
				Weekday:   a.Weekday,
				DoctorID:  a.DoctorID,
				SlotTime:  t,
				Available: true,
			})
		}
		n, err := s.slots.InsertDay(ctx, batch)
		if err != nil {
			s.metrics.SlotsMaterialized(inserted)
			s.logger.Error().Err(err).
				Str("doctor_id", a.DoctorID.String()).
				Str("weekday", a.Weekday).
				Str("day", day.Format(DateLayout)).
				Int("dates_completed", i).
				Msg("slot materialization stopped")
			return inserted, &apperr.PartialFailureError{Op: "materialize slots", Completed: i, Err: err}
		}
		inserted += n
	}
	s.metrics.SlotsMaterialized(inserted)
	return inserted, nil
}

// RegenerateSlots re-materializes an existing agenda's window. It only adds
// missing slots, so it is safe to repeat after a partial failure.
func (s *Service) RegenerateSlots(ctx context.Context, doctorID uuid.UUID, weekday string) (int, error) {
	wd, err := ParseWeekday(weekday)
	if err != nil {
		return 0, err
	}
	a, err := s.agendas.Get(ctx, doctorID, WeekdayLabel(wd))
	if err != nil {
		return 0, err
	}
	return s.materialize(ctx, a, s.today())
}

// RefreshWindows extends every agenda's slots to the current generation
// window. Agendas that fail are skipped and reported together.
func (s *Service) RefreshWindows(ctx context.Context) (int, error) {
	agendas, err := s.agendas.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list agendas: %w", err)
	}

	today := s.today()
	inserted, done := 0, 0
	var errs []error
	for _, a := range agendas {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		n, err := s.materialize(ctx, a, today)
		inserted += n
		if err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", a.DoctorID, a.Weekday, err))
			continue
		}
		done++
	}

	s.logger.Info().Int("agendas", len(agendas)).Int("slots_inserted", inserted).
		Int("failed", len(errs)).Msg("slot windows refreshed")
	if len(errs) > 0 {
		return inserted, &apperr.PartialFailureError{Op: "refresh windows", Completed: done, Err: errors.Join(errs...)}
	}
	return inserted, nil
}

// -- Reads --

func (s *Service) GetAgenda(ctx context.Context, doctorID uuid.UUID, weekday string) (*Agenda, error) {
	wd, err := ParseWeekday(weekday)
	if err != nil {
		return nil, err
	}
	return s.agendas.Get(ctx, doctorID, WeekdayLabel(wd))
}

func (s *Service) ListAgendasByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Agenda, error) {
	if _, err := s.catalog.GetDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.agendas.ListByDoctor(ctx, doctorID)
}

// GetSlot returns one time slot regardless of availability.
func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	return s.slots.GetByID(ctx, id)
}

// AvailableSlots lists the doctor's free slots dated today or later.
func (s *Service) AvailableSlots(ctx context.Context, q SlotQuery) ([]*TimeSlot, int, error) {
	if q.DoctorID == uuid.Nil {
		return nil, 0, apperr.Validation("doctor_id", "is required")
	}
	for _, d := range []**time.Time{&q.Day, &q.From, &q.To} {
		if *d != nil {
			v := DateOf(**d)
			*d = &v
		}
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, 0, apperr.Validation("to", "must not be before from")
	}
	q.Page = q.Page.Normalize()
	return s.slots.Available(ctx, q, s.today())
}
