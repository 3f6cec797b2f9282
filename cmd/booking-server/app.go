package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ehr/booking/internal/config"
	"github.com/ehr/booking/internal/domain/booking"
	"github.com/ehr/booking/internal/domain/catalog"
	"github.com/ehr/booking/internal/domain/retention"
	"github.com/ehr/booking/internal/domain/scheduling"
	"github.com/ehr/booking/internal/platform/db"
	"github.com/ehr/booking/internal/platform/lock"
	"github.com/ehr/booking/internal/platform/logging"
	"github.com/ehr/booking/internal/platform/metrics"
)

// app holds the wired services shared by the subcommands.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	pool    *pgxpool.Pool
	redis   *redis.Client
	metrics *metrics.Metrics

	catalog    *catalog.Service
	scheduling *scheduling.Service
	bookings   *booking.Service
	sweeper    *retention.Sweeper
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := logging.New(logging.Options{Env: cfg.Env, Level: cfg.LogLevel, File: cfg.LogFile})
	return cfg, logger, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
		TimeZone: cfg.TimeZone,
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("connected to database")

	a := &app{cfg: cfg, logger: logger, pool: pool}

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.RedisURL != "" {
		client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = client
		locker = lock.NewRedisLocker(client, cfg.LockTTL, logger)
		logger.Info().Dur("ttl", cfg.LockTTL).Msg("agenda lock backed by redis")
	} else {
		logger.Warn().Msg("REDIS_URL not set, agenda lock is in-process only")
	}

	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		a.metrics = metrics.New(reg)
	}

	tx := db.NewTxManager(pool)
	agendaRepo := scheduling.NewAgendaRepoPG(pool)
	slotRepo := scheduling.NewSlotRepoPG(pool)

	a.catalog = catalog.NewService(
		catalog.NewBuildingRepoPG(pool),
		catalog.NewWardRepoPG(pool),
		catalog.NewAmbulatoryRepoPG(pool),
		catalog.NewDoctorRepoPG(pool),
		catalog.NewPatientRepoPG(pool),
		tx,
	)
	a.scheduling = scheduling.NewService(agendaRepo, slotRepo, a.catalog, tx, locker, a.metrics, logger, loc)
	a.bookings = booking.NewService(booking.NewRepoPG(pool), slotRepo, agendaRepo, a.catalog, tx, a.metrics, logger, loc)
	a.sweeper = retention.NewSweeper(retention.NewRepoPG(pool), a.metrics, logger, loc)
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.pool.Close()
}

// maintain purges past rows and then extends every agenda's generation
// window. Failures are logged; the caller keeps running.
func (a *app) maintain(ctx context.Context) {
	start := time.Now()
	if _, err := a.sweeper.Run(ctx); err != nil {
		a.logger.Error().Err(err).Msg("retention sweep failed")
	}
	n, err := a.scheduling.RefreshWindows(ctx)
	if err != nil {
		a.logger.Error().Err(err).Int("inserted", n).Msg("window refresh failed")
	}
	a.logger.Info().Int("slots_inserted", n).Dur("took", time.Since(start)).Msg("maintenance done")
}
