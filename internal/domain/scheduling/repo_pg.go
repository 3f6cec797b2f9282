package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/booking/internal/platform/db"
)

// =========== Agenda Repository ===========

type agendaRepoPG struct{ pool *pgxpool.Pool }

func NewAgendaRepoPG(pool *pgxpool.Pool) AgendaRepository { return &agendaRepoPG{pool: pool} }

func (r *agendaRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const agendaCols = `doctor_id, weekday, room_id, work_start, break_start, break_end, work_end,
	duration_minutes, created_at, updated_at`

func scanAgenda(row pgx.Row) (*Agenda, error) {
	var a Agenda
	err := row.Scan(&a.DoctorID, &a.Weekday, &a.RoomID, &a.WorkStart, &a.BreakStart, &a.BreakEnd,
		&a.WorkEnd, &a.DurationMinutes, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *agendaRepoPG) Get(ctx context.Context, doctorID uuid.UUID, weekday string) (*Agenda, error) {
	a, err := scanAgenda(r.conn(ctx).QueryRow(ctx,
		`SELECT `+agendaCols+` FROM agendas WHERE doctor_id = $1 AND weekday = $2`, doctorID, weekday))
	if err != nil {
		return nil, db.Classify(err, "agenda", doctorID.String()+"/"+weekday)
	}
	return a, nil
}

func (r *agendaRepoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Agenda, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Agenda
	for rows.Next() {
		a, err := scanAgenda(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *agendaRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Agenda, error) {
	return r.list(ctx, `SELECT `+agendaCols+` FROM agendas WHERE doctor_id = $1
		ORDER BY array_position(ARRAY['Monday','Tuesday','Wednesday','Thursday','Friday','Saturday','Sunday']::varchar[], weekday)`,
		doctorID)
}

func (r *agendaRepoPG) ListAll(ctx context.Context) ([]*Agenda, error) {
	return r.list(ctx, `SELECT `+agendaCols+` FROM agendas ORDER BY doctor_id, weekday`)
}

func (r *agendaRepoPG) Insert(ctx context.Context, a *Agenda) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO agendas (doctor_id, weekday, room_id, work_start, break_start, break_end, work_end, duration_minutes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		a.DoctorID, a.Weekday, a.RoomID, a.WorkStart, a.BreakStart, a.BreakEnd, a.WorkEnd, a.DurationMinutes).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	return db.Classify(err, "agenda", a.DoctorID.String()+"/"+a.Weekday)
}

func (r *agendaRepoPG) Update(ctx context.Context, a *Agenda) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE agendas SET room_id=$3, work_start=$4, break_start=$5, break_end=$6, work_end=$7,
			duration_minutes=$8, updated_at=NOW()
		WHERE doctor_id = $1 AND weekday = $2
		RETURNING created_at, updated_at`,
		a.DoctorID, a.Weekday, a.RoomID, a.WorkStart, a.BreakStart, a.BreakEnd, a.WorkEnd, a.DurationMinutes).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	return db.Classify(err, "agenda", a.DoctorID.String()+"/"+a.Weekday)
}

func (r *agendaRepoPG) FreeRoom(ctx context.Context, wardID int64, weekday string, doctorID uuid.UUID) (int64, bool, error) {
	var id int64
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT a.id FROM ambulatories a
		WHERE a.ward_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM agendas g
			WHERE g.room_id = a.id AND g.weekday = $2 AND g.doctor_id <> $3)
		ORDER BY a.id ASC
		LIMIT 1`, wardID, weekday, doctorID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// =========== Slot Repository ===========

type slotRepoPG struct{ pool *pgxpool.Pool }

func NewSlotRepoPG(pool *pgxpool.Pool) SlotRepository { return &slotRepoPG{pool: pool} }

func (r *slotRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

var slotCols = []string{"id", "day", "weekday", "doctor_id", "slot_time", "available"}

func scanSlot(row pgx.Row) (*TimeSlot, error) {
	var s TimeSlot
	err := row.Scan(&s.ID, &s.Day, &s.Weekday, &s.DoctorID, &s.SlotTime, &s.Available)
	return &s, err
}

func (r *slotRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	query, args, err := db.Select(slotCols...).From("time_slots").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build slot query: %w", err)
	}
	s, err := scanSlot(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, db.Classify(err, "time slot", id.String())
	}
	return s, nil
}

func (r *slotRepoPG) InsertDay(ctx context.Context, slots []*TimeSlot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, s := range slots {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		batch.Queue(`
			INSERT INTO time_slots (id, day, weekday, doctor_id, slot_time, available)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (day, slot_time, doctor_id) DO NOTHING`,
			s.ID, s.Day, s.Weekday, s.DoctorID, s.SlotTime, s.Available)
	}

	br := r.conn(ctx).SendBatch(ctx, batch)
	inserted := 0
	for range slots {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return inserted, db.Classify(err, "time slot", "")
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, br.Close()
}

func (r *slotRepoPG) DeleteFrom(ctx context.Context, doctorID uuid.UUID, weekday string, from time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM time_slots WHERE doctor_id = $1 AND weekday = $2 AND day >= $3`, doctorID, weekday, from)
	if err != nil {
		return 0, db.Classify(err, "time slot", "")
	}
	return tag.RowsAffected(), nil
}

func (r *slotRepoPG) LockUpcoming(ctx context.Context, doctorID uuid.UUID, weekday string, from time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		SELECT id FROM time_slots
		WHERE doctor_id = $1 AND weekday = $2 AND day >= $3
		FOR UPDATE`, doctorID, weekday, from)
	if err != nil {
		return db.Classify(err, "time slot", "")
	}
	return nil
}

func (r *slotRepoPG) CountActiveBookings(ctx context.Context, doctorID uuid.UUID, weekday string, from time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM bookings b
		JOIN time_slots s ON s.id = b.time_slot_id
		WHERE s.doctor_id = $1 AND s.weekday = $2 AND s.day >= $3
		  AND b.status IN ('pending', 'confirmed')`, doctorID, weekday, from).Scan(&n)
	return n, err
}

func (r *slotRepoPG) Available(ctx context.Context, q SlotQuery, today time.Time) ([]*TimeSlot, int, error) {
	b := db.Select(slotCols...).From("time_slots").
		Where(sq.Eq{"doctor_id": q.DoctorID, "available": true}).
		Where(sq.GtOrEq{"day": today})
	switch {
	case q.Day != nil:
		b = b.Where(sq.Eq{"day": *q.Day})
	default:
		if q.From != nil {
			b = b.Where(sq.GtOrEq{"day": *q.From})
		}
		if q.To != nil {
			b = b.Where(sq.LtOrEq{"day": *q.To})
		}
	}

	total, err := db.Count(ctx, r.conn(ctx), b)
	if err != nil {
		return nil, 0, err
	}

	if len(q.Sort) == 0 {
		b = b.OrderBy("day ASC", "slot_time ASC")
	} else {
		for _, f := range q.Sort {
			b = b.OrderBy(f.OrderBy())
		}
	}
	query, args, err := b.Limit(uint64(q.Page.Limit)).Offset(uint64(q.Page.Offset)).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build available slots query: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*TimeSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *slotRepoPG) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE time_slots SET available = false WHERE id = $1 AND available = true`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *slotRepoPG) Release(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE time_slots SET available = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.Classify(pgx.ErrNoRows, "time slot", id.String())
	}
	return nil
}
