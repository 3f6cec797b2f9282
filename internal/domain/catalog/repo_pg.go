package catalog

import (
	"context"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/booking/internal/platform/db"
	"github.com/ehr/booking/pkg/pagination"
)

// =========== Building Repository ===========

type buildingRepoPG struct{ pool *pgxpool.Pool }

func NewBuildingRepoPG(pool *pgxpool.Pool) BuildingRepository { return &buildingRepoPG{pool: pool} }

func (r *buildingRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const buildingCols = `id, name, address, city, postal_code, province, region, phone`

func scanBuilding(row pgx.Row) (*Building, error) {
	var b Building
	err := row.Scan(&b.ID, &b.Name, &b.Address, &b.City, &b.PostalCode, &b.Province, &b.Region, &b.Phone)
	return &b, err
}

func (r *buildingRepoPG) GetByID(ctx context.Context, id int64) (*Building, error) {
	b, err := scanBuilding(r.conn(ctx).QueryRow(ctx, `SELECT `+buildingCols+` FROM buildings WHERE id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "building", strconv.FormatInt(id, 10))
	}
	return b, nil
}

func (r *buildingRepoPG) List(ctx context.Context, page pagination.Params) ([]*Building, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM buildings`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+buildingCols+` FROM buildings ORDER BY name LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Building
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

func (r *buildingRepoPG) Upsert(ctx context.Context, b *Building) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO buildings (name, address, city, postal_code, province, region, phone)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (name) DO UPDATE SET address = EXCLUDED.address, city = EXCLUDED.city,
			postal_code = EXCLUDED.postal_code, province = EXCLUDED.province,
			region = EXCLUDED.region, phone = EXCLUDED.phone
		RETURNING id`,
		b.Name, b.Address, b.City, b.PostalCode, b.Province, b.Region, b.Phone).Scan(&b.ID)
	return db.Classify(err, "building", b.Name)
}

// =========== Ward Repository ===========

type wardRepoPG struct{ pool *pgxpool.Pool }

func NewWardRepoPG(pool *pgxpool.Pool) WardRepository { return &wardRepoPG{pool: pool} }

func (r *wardRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const wardCols = `id, building_id, sector, specialty`

func scanWard(row pgx.Row) (*Ward, error) {
	var w Ward
	err := row.Scan(&w.ID, &w.BuildingID, &w.Sector, &w.Specialty)
	return &w, err
}

func (r *wardRepoPG) GetByID(ctx context.Context, id int64) (*Ward, error) {
	w, err := scanWard(r.conn(ctx).QueryRow(ctx, `SELECT `+wardCols+` FROM wards WHERE id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "ward", strconv.FormatInt(id, 10))
	}
	return w, nil
}

func (r *wardRepoPG) FindForSpecialty(ctx context.Context, buildingID int64, specialty string) (*Ward, error) {
	w, err := scanWard(r.conn(ctx).QueryRow(ctx, `
		SELECT `+wardCols+` FROM wards
		WHERE building_id = $1 AND specialty = $2
		ORDER BY id ASC LIMIT 1`, buildingID, specialty))
	if err != nil {
		return nil, db.Classify(err, "ward", fmt.Sprintf("%d/%s", buildingID, specialty))
	}
	return w, nil
}

func (r *wardRepoPG) Upsert(ctx context.Context, w *Ward) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO wards (building_id, sector, specialty) VALUES ($1,$2,$3)
		ON CONFLICT (building_id, sector) DO UPDATE SET specialty = EXCLUDED.specialty
		RETURNING id`, w.BuildingID, w.Sector, w.Specialty).Scan(&w.ID)
	return db.Classify(err, "ward", w.Sector)
}

// =========== Ambulatory Repository ===========

type ambulatoryRepoPG struct{ pool *pgxpool.Pool }

func NewAmbulatoryRepoPG(pool *pgxpool.Pool) AmbulatoryRepository {
	return &ambulatoryRepoPG{pool: pool}
}

func (r *ambulatoryRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

func (r *ambulatoryRepoPG) GetByID(ctx context.Context, id int64) (*Ambulatory, error) {
	var a Ambulatory
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, room_number, ward_id FROM ambulatories WHERE id = $1`, id).
		Scan(&a.ID, &a.RoomNumber, &a.WardID)
	if err != nil {
		return nil, db.Classify(err, "ambulatory", strconv.FormatInt(id, 10))
	}
	return &a, nil
}

func (r *ambulatoryRepoPG) Ensure(ctx context.Context, a *Ambulatory) error {
	// DO UPDATE with a no-op assignment so RETURNING yields the existing id.
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO ambulatories (room_number, ward_id) VALUES ($1,$2)
		ON CONFLICT (room_number, ward_id) DO UPDATE SET room_number = EXCLUDED.room_number
		RETURNING id`, a.RoomNumber, a.WardID).Scan(&a.ID)
	return db.Classify(err, "ambulatory", strconv.Itoa(a.RoomNumber))
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

var doctorCols = []string{"d.id", "d.first_name", "d.last_name", "d.specialty", "d.created_at"}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Specialty, &d.CreatedAt)
	return &d, err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	query, args, err := db.Select(doctorCols...).From("doctors d").Where(sq.Eq{"d.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build doctor query: %w", err)
	}
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, db.Classify(err, "doctor", id.String())
	}
	return d, nil
}

func (r *doctorRepoPG) List(ctx context.Context, q DoctorQuery) ([]*Doctor, int, error) {
	b := db.Select(doctorCols...).From("doctors d")
	if q.Specialty != "" {
		b = b.Where(sq.Eq{"d.specialty": q.Specialty})
	}
	if q.WithAgenda {
		b = b.Where("EXISTS (SELECT 1 FROM agendas a WHERE a.doctor_id = d.id)")
	}

	total, err := db.Count(ctx, r.conn(ctx), b)
	if err != nil {
		return nil, 0, err
	}

	query, args, err := b.OrderBy("d.last_name", "d.first_name", "d.id").
		Limit(uint64(q.Page.Limit)).Offset(uint64(q.Page.Offset)).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build doctor list query: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (id, first_name, last_name, specialty) VALUES ($1,$2,$3,$4)
		RETURNING created_at`, d.ID, d.FirstName, d.LastName, d.Specialty).Scan(&d.CreatedAt)
	return db.Classify(err, "doctor", d.ID.String())
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, first_name, last_name, email, created_at FROM patients WHERE id = $1`, id).
		Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.CreatedAt)
	if err != nil {
		return nil, db.Classify(err, "patient", id.String())
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, first_name, last_name, email) VALUES ($1,$2,$3,$4)
		RETURNING created_at`, p.ID, p.FirstName, p.LastName, p.Email).Scan(&p.CreatedAt)
	return db.Classify(err, "patient", p.ID.String())
}
