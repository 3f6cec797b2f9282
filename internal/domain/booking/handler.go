package booking

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/booking/internal/domain/scheduling"
	"github.com/ehr/booking/internal/platform/apperr"
	"github.com/ehr/booking/internal/platform/auth"
	"github.com/ehr/booking/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	shared := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	shared.GET("/bookings/:id", h.GetBooking)

	patient := api.Group("", auth.RequireRole(auth.RolePatient))
	patient.POST("/bookings", h.Reserve)
	patient.GET("/patients/:patient_id/bookings", h.ListForPatient)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.POST("/bookings/:id/confirm", h.Confirm)
	doctor.POST("/bookings/:id/reject", h.Reject)
	doctor.GET("/doctors/:doctor_id/bookings/pending", h.PendingForDoctor)
}

type reserveRequest struct {
	TimeSlotID uuid.UUID `json:"time_slot_id"`
	PatientID  string    `json:"patient_id"`
}

type resolveRequest struct {
	Feedback string `json:"feedback"`
}

// Reserve books a slot. patient_id defaults to the caller.
func (h *Handler) Reserve(c echo.Context) error {
	var req reserveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.TimeSlotID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "time_slot_id is required")
	}
	if req.PatientID == "" {
		req.PatientID = auth.UserIDFromContext(c.Request().Context())
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	if err := auth.RequireSelf(c, patientID.String()); err != nil {
		return err
	}

	b, err := h.svc.Reserve(c.Request().Context(), patientID, req.TimeSlotID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.GetBooking(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if auth.RequireSelf(c, b.PatientID.String()) != nil {
		if err := auth.RequireSelf(c, b.DoctorID.String()); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Confirm(c echo.Context) error { return h.resolve(c, Confirm) }

func (h *Handler) Reject(c echo.Context) error { return h.resolve(c, Reject) }

func (h *Handler) resolve(c echo.Context, decision Decision) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req resolveRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	ctx := c.Request().Context()
	current, err := h.svc.GetBooking(ctx, id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if err := auth.RequireSelf(c, current.DoctorID.String()); err != nil {
		return err
	}

	b, err := h.svc.ResolvePending(ctx, id, decision, req.Feedback)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) PendingForDoctor(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	if err := auth.RequireSelf(c, doctorID.String()); err != nil {
		return err
	}
	q, err := bookingQuery(c)
	if err != nil {
		return err
	}
	items, total, err := h.svc.PendingForDoctor(c.Request().Context(), doctorID, q)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, q.Page.Limit, q.Page.Offset))
}

func (h *Handler) ListForPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	if err := auth.RequireSelf(c, patientID.String()); err != nil {
		return err
	}
	q, err := bookingQuery(c)
	if err != nil {
		return err
	}
	items, total, err := h.svc.ListForPatient(c.Request().Context(), patientID, q)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, q.Page.Limit, q.Page.Offset))
}

// bookingQuery reads ?from=, ?to= (YYYY-MM-DD), ?sort= and limit/offset.
func bookingQuery(c echo.Context) (BookingQuery, error) {
	q := BookingQuery{Page: pagination.FromContext(c)}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &q.From}, {"to", &q.To}} {
		raw := c.QueryParam(p.name)
		if raw == "" {
			continue
		}
		d, err := time.Parse(scheduling.DateLayout, raw)
		if err != nil {
			return q, echo.NewHTTPError(http.StatusBadRequest, "invalid "+p.name+": expected YYYY-MM-DD")
		}
		*p.dst = &d
	}
	sort, err := pagination.ParseSort(c.QueryParam("sort"), SortFields)
	if err != nil {
		return q, apperr.ToHTTP(err)
	}
	q.Sort = sort
	return q, nil
}
