package booking

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/booking/internal/platform/db"
)

type bookingRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &bookingRepoPG{pool: pool} }

func (r *bookingRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

var bookingCols = []string{
	"b.id", "b.day", "b.time_slot_id", "s.slot_time", "b.patient_id", "b.doctor_id",
	"b.status", "b.feedback", "b.created_at", "b.resolved_at",
}

const bookingFrom = "bookings b LEFT JOIN time_slots s ON s.id = b.time_slot_id"

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.Day, &b.TimeSlotID, &b.SlotTime, &b.PatientID, &b.DoctorID,
		&b.Status, &b.Feedback, &b.CreatedAt, &b.ResolvedAt)
	return &b, err
}

func (r *bookingRepoPG) Create(ctx context.Context, b *Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bookings (id, day, time_slot_id, patient_id, doctor_id, status, feedback)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		b.ID, b.Day, b.TimeSlotID, b.PatientID, b.DoctorID, b.Status, b.Feedback).Scan(&b.CreatedAt)
	return db.Classify(err, "booking", b.ID.String())
}

func (r *bookingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	query, args, err := db.Select(bookingCols...).From(bookingFrom).Where(sq.Eq{"b.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build booking query: %w", err)
	}
	b, err := scanBooking(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, db.Classify(err, "booking", id.String())
	}
	return b, nil
}

func (r *bookingRepoPG) Resolve(ctx context.Context, id uuid.UUID, status Status, feedback string) (*Booking, bool, error) {
	var b Booking
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE bookings SET status = $2, feedback = $3, resolved_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING id, day, time_slot_id, patient_id, doctor_id, status, feedback, created_at, resolved_at`,
		id, status, feedback).
		Scan(&b.ID, &b.Day, &b.TimeSlotID, &b.PatientID, &b.DoctorID, &b.Status, &b.Feedback, &b.CreatedAt, &b.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, db.Classify(err, "booking", id.String())
	}
	return &b, true, nil
}

func (r *bookingRepoPG) List(ctx context.Context, f ListFilter, q BookingQuery) ([]*Booking, int, error) {
	b := db.Select(bookingCols...).From(bookingFrom)
	if f.DoctorID != nil {
		b = b.Where(sq.Eq{"b.doctor_id": *f.DoctorID})
	}
	if f.PatientID != nil {
		b = b.Where(sq.Eq{"b.patient_id": *f.PatientID})
	}
	if f.PendingOnly {
		b = b.Where(sq.Eq{"b.feedback": ""})
	}
	if q.From != nil {
		b = b.Where(sq.GtOrEq{"b.day": *q.From})
	}
	if q.To != nil {
		b = b.Where(sq.LtOrEq{"b.day": *q.To})
	}

	total, err := db.Count(ctx, r.conn(ctx), b)
	if err != nil {
		return nil, 0, err
	}

	if len(q.Sort) == 0 {
		b = b.OrderBy("b.day ASC", "s.slot_time ASC NULLS LAST", "b.created_at ASC")
	} else {
		for _, s := range q.Sort {
			b = b.OrderBy(s.OrderBy())
		}
	}
	query, args, err := b.Limit(uint64(q.Page.Limit)).Offset(uint64(q.Page.Offset)).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build booking list query: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Booking
	for rows.Next() {
		bk, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, bk)
	}
	return items, total, rows.Err()
}
