package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/booking/internal/domain/catalog"
	"github.com/ehr/booking/internal/domain/scheduling"
	"github.com/ehr/booking/internal/platform/apperr"
	"github.com/ehr/booking/internal/platform/db"
)

// -- bookings --

type mockRepo struct {
	mu         sync.Mutex
	store      map[uuid.UUID]*Booking
	failCreate error
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*Booking)}
}

func (m *mockRepo) Create(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	cp := *b
	cp.CreatedAt = time.Now()
	m.store[b.ID] = &cp
	b.CreatedAt = cp.CreatedAt
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("booking", id.String())
	}
	cp := *b
	return &cp, nil
}

func (m *mockRepo) Resolve(_ context.Context, id uuid.UUID, status Status, feedback string) (*Booking, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.store[id]
	if !ok || b.Status != StatusPending {
		return nil, false, nil
	}
	now := time.Now()
	b.Status = status
	b.Feedback = feedback
	b.ResolvedAt = &now
	cp := *b
	return &cp, true, nil
}

func (m *mockRepo) List(_ context.Context, f ListFilter, q BookingQuery) ([]*Booking, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Booking
	for _, b := range m.store {
		if f.DoctorID != nil && b.DoctorID != *f.DoctorID {
			continue
		}
		if f.PatientID != nil && b.PatientID != *f.PatientID {
			continue
		}
		if f.PendingOnly && b.Feedback != "" {
			continue
		}
		if q.From != nil && b.Day.Before(*q.From) {
			continue
		}
		if q.To != nil && b.Day.After(*q.To) {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, len(out), nil
}

func (m *mockRepo) snapshot() func() {
	m.mu.Lock()
	saved := make(map[uuid.UUID]Booking, len(m.store))
	for id, b := range m.store {
		saved[id] = *b
	}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.store = make(map[uuid.UUID]*Booking, len(saved))
		for id, b := range saved {
			b := b
			m.store[id] = &b
		}
	}
}

// -- slots --

type mockSlots struct {
	mu    sync.Mutex
	store map[uuid.UUID]*scheduling.TimeSlot
}

func newMockSlots() *mockSlots {
	return &mockSlots{store: make(map[uuid.UUID]*scheduling.TimeSlot)}
}

func (m *mockSlots) add(s *scheduling.TimeSlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.ID] = s
}

func (m *mockSlots) GetByID(_ context.Context, id uuid.UUID) (*scheduling.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("time slot", id.String())
	}
	cp := *s
	return &cp, nil
}

func (m *mockSlots) Claim(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok || !s.Available {
		return false, nil
	}
	s.Available = false
	return true, nil
}

func (m *mockSlots) Release(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return apperr.NotFound("time slot", id.String())
	}
	s.Available = true
	return nil
}

func (m *mockSlots) available(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[id].Available
}

func (m *mockSlots) snapshot() func() {
	m.mu.Lock()
	saved := make(map[uuid.UUID]bool, len(m.store))
	for id, s := range m.store {
		saved[id] = s.Available
	}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for id, avail := range saved {
			if s, ok := m.store[id]; ok {
				s.Available = avail
			}
		}
	}
}

// -- agendas and catalog --

type mockAgendas struct {
	store map[string]*scheduling.Agenda
}

func (m *mockAgendas) Get(_ context.Context, doctorID uuid.UUID, weekday string) (*scheduling.Agenda, error) {
	a, ok := m.store[doctorID.String()+"/"+weekday]
	if !ok {
		return nil, apperr.NotFound("agenda", doctorID.String()+"/"+weekday)
	}
	return a, nil
}

type mockDirectory struct {
	patients  map[uuid.UUID]*catalog.Patient
	locations map[int64]*catalog.Location
}

func (m *mockDirectory) GetPatient(_ context.Context, id uuid.UUID) (*catalog.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient", id.String())
	}
	return p, nil
}

func (m *mockDirectory) ResolveLocation(_ context.Context, ambulatoryID int64) (*catalog.Location, error) {
	l, ok := m.locations[ambulatoryID]
	if !ok {
		return nil, apperr.NotFound("ambulatory", "")
	}
	return l, nil
}

// -- transactions --

// snapshotTx serializes transactions and restores the mock stores when fn
// fails, which is how the database behaves on rollback.
type snapshotTx struct {
	mu          sync.Mutex
	repo        *mockRepo
	slots       *mockSlots
	rollbackErr error
}

func (t *snapshotTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	restoreBookings, restoreSlots := t.repo.snapshot(), t.slots.snapshot()
	if err := fn(ctx); err != nil {
		if t.rollbackErr != nil {
			return &db.RollbackError{Err: err, RollbackErr: t.rollbackErr}
		}
		restoreBookings()
		restoreSlots()
		return err
	}
	return nil
}

// -- fixture --

var errConnReset = errors.New("connection reset")

type fixture struct {
	svc     *Service
	repo    *mockRepo
	slots   *mockSlots
	tx      *snapshotTx
	doctor  uuid.UUID
	patient uuid.UUID
	slot    uuid.UUID
	day     time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newMockRepo(),
		slots:   newMockSlots(),
		doctor:  uuid.New(),
		patient: uuid.New(),
		slot:    uuid.New(),
		day:     time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
	}
	f.tx = &snapshotTx{repo: f.repo, slots: f.slots}
	f.slots.add(&scheduling.TimeSlot{
		ID: f.slot, Day: f.day, Weekday: "Monday", DoctorID: f.doctor,
		SlotTime: 9 * 60, Available: true,
	})

	agendas := &mockAgendas{store: map[string]*scheduling.Agenda{
		f.doctor.String() + "/Monday": {DoctorID: f.doctor, Weekday: "Monday", RoomID: 7},
	}}
	dir := &mockDirectory{
		patients: map[uuid.UUID]*catalog.Patient{
			f.patient: {ID: f.patient, FirstName: "Ada", LastName: "Rossi"},
		},
		locations: map[int64]*catalog.Location{
			7: {
				Ambulatory: catalog.Ambulatory{ID: 7, RoomNumber: 101, WardID: 3},
				Ward:       catalog.Ward{ID: 3, BuildingID: 1, Sector: "A", Specialty: "Cardiology"},
				Building:   catalog.Building{ID: 1, Name: "San Raffaele"},
			},
		},
	}
	f.svc = NewService(f.repo, f.slots, agendas, dir, f.tx, nil, zerolog.Nop(), time.UTC)
	f.svc.now = func() time.Time { return time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC) }
	return f
}

// addPatient registers one more patient in the directory.
func (f *fixture) addPatient() uuid.UUID {
	id := uuid.New()
	f.svc.directory.(*mockDirectory).patients[id] = &catalog.Patient{ID: id}
	return id
}
