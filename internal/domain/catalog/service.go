package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ehr/booking/internal/platform/apperr"
	"github.com/ehr/booking/internal/platform/db"
	"github.com/ehr/booking/pkg/pagination"
)

type Service struct {
	buildings    BuildingRepository
	wards        WardRepository
	ambulatories AmbulatoryRepository
	doctors      DoctorRepository
	patients     PatientRepository
	tx           db.TxManager
}

func NewService(b BuildingRepository, w WardRepository, a AmbulatoryRepository, d DoctorRepository, p PatientRepository, tx db.TxManager) *Service {
	return &Service{buildings: b, wards: w, ambulatories: a, doctors: d, patients: p, tx: tx}
}

// -- Reads --

func (s *Service) ListBuildings(ctx context.Context, page pagination.Params) ([]*Building, int, error) {
	return s.buildings.List(ctx, page.Normalize())
}

func (s *Service) GetBuilding(ctx context.Context, id int64) (*Building, error) {
	return s.buildings.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, q DoctorQuery) ([]*Doctor, int, error) {
	q.Page = q.Page.Normalize()
	return s.doctors.List(ctx, q)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetAmbulatory(ctx context.Context, id int64) (*Ambulatory, error) {
	return s.ambulatories.GetByID(ctx, id)
}

// WardForSpecialty resolves the ward of buildingID that serves specialty.
func (s *Service) WardForSpecialty(ctx context.Context, buildingID int64, specialty string) (*Ward, error) {
	return s.wards.FindForSpecialty(ctx, buildingID, specialty)
}

// ResolveLocation walks ambulatory → ward → building. A missing link is a
// NotFoundError naming it.
func (s *Service) ResolveLocation(ctx context.Context, ambulatoryID int64) (*Location, error) {
	amb, err := s.ambulatories.GetByID(ctx, ambulatoryID)
	if err != nil {
		return nil, err
	}
	ward, err := s.wards.GetByID(ctx, amb.WardID)
	if err != nil {
		return nil, err
	}
	building, err := s.buildings.GetByID(ctx, ward.BuildingID)
	if err != nil {
		return nil, err
	}
	return &Location{Ambulatory: *amb, Ward: *ward, Building: *building}, nil
}

// -- Seeding --

// ImportResult counts the catalog rows written by Import.
type ImportResult struct {
	Buildings    int
	Wards        int
	Ambulatories int
}

// Import upserts buildings by name, wards by (building, sector) and rooms by
// (room number, ward) in one transaction. Running it twice is a no-op.
func (s *Service) Import(ctx context.Context, entries []BuildingImport) (ImportResult, error) {
	var res ImportResult
	for i, e := range entries {
		if strings.TrimSpace(e.Building.Name) == "" {
			return res, apperr.Validation("building.name", "entry %d has no name", i)
		}
		for _, w := range e.Wards {
			if w.Sector == "" || w.Specialty == "" {
				return res, apperr.Validation("ward", "building %q has a ward without sector or specialty", e.Building.Name)
			}
		}
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		res = ImportResult{}
		for _, e := range entries {
			b := e.Building
			if err := s.buildings.Upsert(ctx, &b); err != nil {
				return fmt.Errorf("upsert building %q: %w", b.Name, err)
			}
			res.Buildings++
			for _, wi := range e.Wards {
				w := Ward{BuildingID: b.ID, Sector: wi.Sector, Specialty: wi.Specialty}
				if err := s.wards.Upsert(ctx, &w); err != nil {
					return fmt.Errorf("upsert ward %s/%s: %w", b.Name, wi.Sector, err)
				}
				res.Wards++
				for _, room := range wi.Rooms {
					a := Ambulatory{RoomNumber: room, WardID: w.ID}
					if err := s.ambulatories.Ensure(ctx, &a); err != nil {
						return fmt.Errorf("ensure room %d in ward %s: %w", room, wi.Sector, err)
					}
					res.Ambulatories++
				}
			}
		}
		return nil
	})
	return res, err
}

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.FirstName == "" || d.LastName == "" {
		return apperr.Validation("name", "first and last name are required")
	}
	if d.Specialty == "" {
		return apperr.Validation("specialty", "is required")
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return apperr.Validation("name", "first and last name are required")
	}
	return s.patients.Create(ctx, p)
}
