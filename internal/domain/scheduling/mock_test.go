package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/booking/internal/domain/catalog"
	"github.com/ehr/booking/internal/platform/apperr"
	"github.com/ehr/booking/internal/platform/lock"
)

// -- agendas --

type agendaKey struct {
	doctor  uuid.UUID
	weekday string
}

type mockAgendaRepo struct {
	store map[agendaKey]*Agenda
	rooms map[int64][]int64 // ward -> room ids
}

func newMockAgendaRepo() *mockAgendaRepo {
	return &mockAgendaRepo{store: make(map[agendaKey]*Agenda), rooms: make(map[int64][]int64)}
}

func (m *mockAgendaRepo) Get(_ context.Context, doctorID uuid.UUID, weekday string) (*Agenda, error) {
	a, ok := m.store[agendaKey{doctorID, weekday}]
	if !ok {
		return nil, apperr.NotFound("agenda", doctorID.String()+"/"+weekday)
	}
	cp := *a
	return &cp, nil
}

func (m *mockAgendaRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*Agenda, error) {
	var out []*Agenda
	for k, a := range m.store {
		if k.doctor == doctorID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAgendaRepo) ListAll(_ context.Context) ([]*Agenda, error) {
	var out []*Agenda
	for _, a := range m.store {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DoctorID.String() < out[j].DoctorID.String() })
	return out, nil
}

func (m *mockAgendaRepo) Insert(_ context.Context, a *Agenda) error {
	k := agendaKey{a.DoctorID, a.Weekday}
	if _, ok := m.store[k]; ok {
		return &apperr.ConstraintViolation{Constraint: "agendas_pkey"}
	}
	cp := *a
	m.store[k] = &cp
	return nil
}

func (m *mockAgendaRepo) Update(_ context.Context, a *Agenda) error {
	k := agendaKey{a.DoctorID, a.Weekday}
	if _, ok := m.store[k]; !ok {
		return apperr.NotFound("agenda", "")
	}
	cp := *a
	m.store[k] = &cp
	return nil
}

func (m *mockAgendaRepo) FreeRoom(_ context.Context, wardID int64, weekday string, doctorID uuid.UUID) (int64, bool, error) {
	ids := append([]int64(nil), m.rooms[wardID]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		taken := false
		for k, a := range m.store {
			if a.RoomID == id && k.weekday == weekday && k.doctor != doctorID {
				taken = true
				break
			}
		}
		if !taken {
			return id, true, nil
		}
	}
	return 0, false, nil
}

// -- slots --

type slotKey struct {
	day    string
	time   TimeOfDay
	doctor uuid.UUID
}

type mockSlotRepo struct {
	byKey         map[slotKey]*TimeSlot
	activeCount   int
	insertCalls   int
	failOnInsert  int // 1-based call number that fails; 0 never
	deleteCalls   int
	calls         []string
	lastQuery     SlotQuery
	lastQueryDate time.Time
}

func newMockSlotRepo() *mockSlotRepo {
	return &mockSlotRepo{byKey: make(map[slotKey]*TimeSlot)}
}

func (m *mockSlotRepo) GetByID(_ context.Context, id uuid.UUID) (*TimeSlot, error) {
	for _, s := range m.byKey {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("time slot", id.String())
}

func (m *mockSlotRepo) InsertDay(_ context.Context, slots []*TimeSlot) (int, error) {
	m.insertCalls++
	if m.failOnInsert != 0 && m.insertCalls == m.failOnInsert {
		return 0, errors.New("connection reset")
	}
	n := 0
	for _, s := range slots {
		k := slotKey{s.Day.Format(DateLayout), s.SlotTime, s.DoctorID}
		if _, ok := m.byKey[k]; ok {
			continue
		}
		cp := *s
		m.byKey[k] = &cp
		n++
	}
	return n, nil
}

func (m *mockSlotRepo) DeleteFrom(_ context.Context, doctorID uuid.UUID, weekday string, from time.Time) (int64, error) {
	m.deleteCalls++
	m.calls = append(m.calls, "delete")
	var n int64
	for k, s := range m.byKey {
		if s.DoctorID == doctorID && s.Weekday == weekday && !s.Day.Before(from) {
			delete(m.byKey, k)
			n++
		}
	}
	return n, nil
}

func (m *mockSlotRepo) LockUpcoming(_ context.Context, _ uuid.UUID, _ string, _ time.Time) error {
	m.calls = append(m.calls, "lock")
	return nil
}

func (m *mockSlotRepo) CountActiveBookings(_ context.Context, _ uuid.UUID, _ string, _ time.Time) (int, error) {
	m.calls = append(m.calls, "count")
	return m.activeCount, nil
}

func (m *mockSlotRepo) Available(_ context.Context, q SlotQuery, today time.Time) ([]*TimeSlot, int, error) {
	m.lastQuery = q
	m.lastQueryDate = today
	var out []*TimeSlot
	for _, s := range m.byKey {
		if s.DoctorID == q.DoctorID && s.Available && !s.Day.Before(today) {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (m *mockSlotRepo) Claim(_ context.Context, id uuid.UUID) (bool, error) {
	for _, s := range m.byKey {
		if s.ID == id {
			if !s.Available {
				return false, nil
			}
			s.Available = false
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSlotRepo) Release(_ context.Context, id uuid.UUID) error {
	for _, s := range m.byKey {
		if s.ID == id {
			s.Available = true
			return nil
		}
	}
	return apperr.NotFound("time slot", id.String())
}

func (m *mockSlotRepo) countFor(doctorID uuid.UUID) int {
	n := 0
	for _, s := range m.byKey {
		if s.DoctorID == doctorID {
			n++
		}
	}
	return n
}

// -- catalog --

type mockCatalog struct {
	doctors map[uuid.UUID]*catalog.Doctor
	wards   []*catalog.Ward
}

func (m *mockCatalog) GetDoctor(_ context.Context, id uuid.UUID) (*catalog.Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, apperr.NotFound("doctor", id.String())
	}
	return d, nil
}

func (m *mockCatalog) WardForSpecialty(_ context.Context, buildingID int64, specialty string) (*catalog.Ward, error) {
	for _, w := range m.wards {
		if w.BuildingID == buildingID && w.Specialty == specialty {
			return w, nil
		}
	}
	return nil, apperr.NotFound("ward", fmt.Sprintf("%d/%s", buildingID, specialty))
}

// -- infrastructure --

type passthroughTx struct{ calls int }

func (t *passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type busyLocker struct{}

func (busyLocker) WithLock(context.Context, string, func(context.Context) error) error {
	return lock.ErrLockNotAcquired
}

// Sunday 2026-10-18, 10:00 UTC.
var fixedNow = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

const (
	buildingID int64 = 1
	cardioWard int64 = 10
)

type fixture struct {
	svc     *Service
	agendas *mockAgendaRepo
	slots   *mockSlotRepo
	catalog *mockCatalog
	tx      *passthroughTx
	doctor  uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		agendas: newMockAgendaRepo(),
		slots:   newMockSlotRepo(),
		tx:      &passthroughTx{},
		doctor:  uuid.New(),
	}
	f.catalog = &mockCatalog{
		doctors: map[uuid.UUID]*catalog.Doctor{
			f.doctor: {ID: f.doctor, FirstName: "Anna", LastName: "Bianchi", Specialty: "Cardiology"},
		},
		wards: []*catalog.Ward{{ID: cardioWard, BuildingID: buildingID, Sector: "A", Specialty: "Cardiology"}},
	}
	f.agendas.rooms[cardioWard] = []int64{101, 102}
	f.svc = NewService(f.agendas, f.slots, f.catalog, f.tx, lock.NewLocalLocker(), nil, zerolog.Nop(), time.UTC)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) addDoctor(specialty string) uuid.UUID {
	id := uuid.New()
	f.catalog.doctors[id] = &catalog.Doctor{ID: id, FirstName: "X", LastName: "Y", Specialty: specialty}
	return id
}

func mondayRequest(doctorID uuid.UUID) AgendaRequest {
	return AgendaRequest{
		DoctorID:   doctorID,
		Weekday:    "monday",
		BuildingID: buildingID,
		WorkStart:  "09:00",
		BreakStart: "11:00",
		BreakEnd:   "11:15",
		WorkEnd:    "13:00",
		Duration:   "00:30",
	}
}
