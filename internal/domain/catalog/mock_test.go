package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/ehr/booking/internal/platform/apperr"
	"github.com/ehr/booking/pkg/pagination"
)

type mockBuildingRepo struct {
	store  map[int64]*Building
	nextID int64
}

func newMockBuildingRepo() *mockBuildingRepo {
	return &mockBuildingRepo{store: make(map[int64]*Building)}
}

func (m *mockBuildingRepo) GetByID(_ context.Context, id int64) (*Building, error) {
	b, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("building", fmt.Sprint(id))
	}
	return b, nil
}

func (m *mockBuildingRepo) List(_ context.Context, page pagination.Params) ([]*Building, int, error) {
	var all []*Building
	for _, b := range m.store {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := len(all)
	if page.Offset >= total {
		return nil, total, nil
	}
	end := page.Offset + page.Limit
	if end > total {
		end = total
	}
	return all[page.Offset:end], total, nil
}

func (m *mockBuildingRepo) Upsert(_ context.Context, b *Building) error {
	for id, existing := range m.store {
		if existing.Name == b.Name {
			b.ID = id
			cp := *b
			m.store[id] = &cp
			return nil
		}
	}
	m.nextID++
	b.ID = m.nextID
	cp := *b
	m.store[b.ID] = &cp
	return nil
}

type mockWardRepo struct {
	store  map[int64]*Ward
	nextID int64
}

func newMockWardRepo() *mockWardRepo { return &mockWardRepo{store: make(map[int64]*Ward)} }

func (m *mockWardRepo) GetByID(_ context.Context, id int64) (*Ward, error) {
	w, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("ward", fmt.Sprint(id))
	}
	return w, nil
}

func (m *mockWardRepo) FindForSpecialty(_ context.Context, buildingID int64, specialty string) (*Ward, error) {
	var best *Ward
	for _, w := range m.store {
		if w.BuildingID == buildingID && w.Specialty == specialty && (best == nil || w.ID < best.ID) {
			best = w
		}
	}
	if best == nil {
		return nil, apperr.NotFound("ward", specialty)
	}
	return best, nil
}

func (m *mockWardRepo) Upsert(_ context.Context, w *Ward) error {
	for id, existing := range m.store {
		if existing.BuildingID == w.BuildingID && existing.Sector == w.Sector {
			w.ID = id
			existing.Specialty = w.Specialty
			return nil
		}
	}
	m.nextID++
	w.ID = m.nextID
	cp := *w
	m.store[w.ID] = &cp
	return nil
}

type mockAmbulatoryRepo struct {
	store  map[int64]*Ambulatory
	nextID int64
}

func newMockAmbulatoryRepo() *mockAmbulatoryRepo {
	return &mockAmbulatoryRepo{store: make(map[int64]*Ambulatory)}
}

func (m *mockAmbulatoryRepo) GetByID(_ context.Context, id int64) (*Ambulatory, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("ambulatory", fmt.Sprint(id))
	}
	return a, nil
}

func (m *mockAmbulatoryRepo) Ensure(_ context.Context, a *Ambulatory) error {
	for id, existing := range m.store {
		if existing.WardID == a.WardID && existing.RoomNumber == a.RoomNumber {
			a.ID = id
			return nil
		}
	}
	m.nextID++
	a.ID = m.nextID
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

type mockDoctorRepo struct {
	store      map[uuid.UUID]*Doctor
	withAgenda map[uuid.UUID]bool
	lastQuery  DoctorQuery
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{store: make(map[uuid.UUID]*Doctor), withAgenda: make(map[uuid.UUID]bool)}
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("doctor", id.String())
	}
	return d, nil
}

func (m *mockDoctorRepo) List(_ context.Context, q DoctorQuery) ([]*Doctor, int, error) {
	m.lastQuery = q
	var out []*Doctor
	for _, d := range m.store {
		if q.Specialty != "" && d.Specialty != q.Specialty {
			continue
		}
		if q.WithAgenda && !m.withAgenda[d.ID] {
			continue
		}
		out = append(out, d)
	}
	return out, len(out), nil
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.store[d.ID] = d
	return nil
}

type mockPatientRepo struct {
	store map[uuid.UUID]*Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{store: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("patient", id.String())
	}
	return p, nil
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.store[p.ID] = p
	return nil
}

type passthroughTx struct{ calls int }

func (t *passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type fixture struct {
	svc          *Service
	buildings    *mockBuildingRepo
	wards        *mockWardRepo
	ambulatories *mockAmbulatoryRepo
	doctors      *mockDoctorRepo
	patients     *mockPatientRepo
	tx           *passthroughTx
}

func newFixture() *fixture {
	f := &fixture{
		buildings:    newMockBuildingRepo(),
		wards:        newMockWardRepo(),
		ambulatories: newMockAmbulatoryRepo(),
		doctors:      newMockDoctorRepo(),
		patients:     newMockPatientRepo(),
		tx:           &passthroughTx{},
	}
	f.svc = NewService(f.buildings, f.wards, f.ambulatories, f.doctors, f.patients, f.tx)
	return f
}
