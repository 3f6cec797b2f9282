package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/ehr/booking/pkg/pagination"
)

type BuildingRepository interface {
	GetByID(ctx context.Context, id int64) (*Building, error)
	List(ctx context.Context, page pagination.Params) ([]*Building, int, error)
	// Upsert inserts b or updates the row with the same name, and sets b.ID.
	Upsert(ctx context.Context, b *Building) error
}

type WardRepository interface {
	GetByID(ctx context.Context, id int64) (*Ward, error)
	// FindForSpecialty returns the lowest-id ward of the building for specialty.
	FindForSpecialty(ctx context.Context, buildingID int64, specialty string) (*Ward, error)
	Upsert(ctx context.Context, w *Ward) error
}

type AmbulatoryRepository interface {
	GetByID(ctx context.Context, id int64) (*Ambulatory, error)
	// Ensure inserts the room when it is missing and sets a.ID either way.
	Ensure(ctx context.Context, a *Ambulatory) error
}

// DoctorQuery filters the doctor listing.
type DoctorQuery struct {
	Specialty  string
	WithAgenda bool
	Page       pagination.Params
}

type DoctorRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	List(ctx context.Context, q DoctorQuery) ([]*Doctor, int, error)
	Create(ctx context.Context, d *Doctor) error
}

type PatientRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Create(ctx context.Context, p *Patient) error
}
