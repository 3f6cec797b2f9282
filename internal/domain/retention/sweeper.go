// Package retention purges past bookings and time slots.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/booking/internal/domain/scheduling"
	"github.com/ehr/booking/internal/platform/apperr"
	"github.com/ehr/booking/internal/platform/metrics"
)

// Result counts the rows removed by one sweep.
type Result struct {
	Bookings int64 `json:"bookings"`
	Slots    int64 `json:"slots"`
}

type Sweeper struct {
	repo    Repository
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewSweeper builds a sweeper whose "today" is the current date in loc.
func NewSweeper(repo Repository, m *metrics.Metrics, logger zerolog.Logger, loc *time.Location) *Sweeper {
	if loc == nil {
		loc = time.Local
	}
	return &Sweeper{
		repo:    repo,
		metrics: m,
		logger:  logger.With().Str("component", "retention").Logger(),
		now:     func() time.Time { return time.Now().In(loc) },
	}
}

// Run deletes bookings and then time slots dated before today. Bookings go
// first so no booking is left pointing at a purged slot of the same sweep.
// When only the slot delete fails the booking count is still returned,
// together with a PartialFailureError.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	var res Result
	today := scheduling.DateOf(s.now())

	n, err := s.repo.DeleteBookingsBefore(ctx, today)
	if err != nil {
		return res, fmt.Errorf("delete past bookings: %w", err)
	}
	res.Bookings = n
	s.metrics.Swept("bookings", n)

	n, err = s.repo.DeleteSlotsBefore(ctx, today)
	if err != nil {
		s.logger.Error().Err(err).Int64("bookings", res.Bookings).Msg("past bookings purged but time slots were not")
		return res, &apperr.PartialFailureError{Op: "retention sweep", Completed: 1, Err: fmt.Errorf("delete past time slots: %w", err)}
	}
	res.Slots = n
	s.metrics.Swept("time_slots", n)

	s.logger.Info().Str("before", today.Format(scheduling.DateLayout)).
		Int64("bookings", res.Bookings).Int64("slots", res.Slots).Msg("retention sweep done")
	return res, nil
}

// Loop runs fn immediately and then every interval until ctx is done.
// Errors are left to fn to report.
func Loop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	fn(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
