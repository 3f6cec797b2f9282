package retention

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/booking/internal/platform/db"
)

// Repository deletes rows whose day lies before a cutoff date.
type Repository interface {
	DeleteBookingsBefore(ctx context.Context, day time.Time) (int64, error)
	DeleteSlotsBefore(ctx context.Context, day time.Time) (int64, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) DeleteBookingsBefore(ctx context.Context, day time.Time) (int64, error) {
	return r.deleteBefore(ctx, "bookings", day)
}

func (r *repoPG) DeleteSlotsBefore(ctx context.Context, day time.Time) (int64, error) {
	return r.deleteBefore(ctx, "time_slots", day)
}

func (r *repoPG) deleteBefore(ctx context.Context, table string, day time.Time) (int64, error) {
	query, args, err := db.Delete(table).Where("day < ?", day).ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
