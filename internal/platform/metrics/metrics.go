// Package metrics holds the Prometheus collectors for the booking service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "booking"

type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	reservations  *prometheus.CounterVec
	resolutions   *prometheus.CounterVec
	agendaWrites  *prometheus.CounterVec
	slotsInserted prometheus.Counter
	sweptRows     *prometheus.CounterVec
}

// New registers every collector on reg. Passing a fresh registry keeps tests
// independent of the global default.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Reservation attempts by outcome.",
		}, []string{"outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Pending bookings resolved, by decision.",
		}, []string{"decision"}),
		agendaWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agenda_writes_total",
			Help:      "Agenda create/update attempts by operation and outcome.",
		}, []string{"op", "outcome"}),
		slotsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_materialized_total",
			Help:      "Time slot rows inserted by agenda materialization.",
		}),
		sweptRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_deleted_rows_total",
			Help:      "Rows purged by the retention sweeper, by table.",
		}, []string{"table"}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.reservations, m.resolutions,
		m.agendaWrites, m.slotsInserted, m.sweptRows)
	return m
}

// Outcome labels an operation result for the counters.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) Reservation(outcome string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Resolution(decision string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(decision).Inc()
}

func (m *Metrics) AgendaWrite(op, outcome string) {
	if m == nil {
		return
	}
	m.agendaWrites.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) SlotsMaterialized(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.slotsInserted.Add(float64(n))
}

func (m *Metrics) Swept(table string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sweptRows.WithLabelValues(table).Add(float64(n))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latency keyed by the route pattern,
// not the raw path, so ids do not explode label cardinality.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
			m.httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
