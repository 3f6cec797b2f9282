package scheduling

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	read := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	read.GET("/doctors/:doctor_id/agendas", h.ListAgendas)
	read.GET("/doctors/:doctor_id/agendas/:weekday", h.GetAgenda)
	read.GET("/doctors/:doctor_id/slots", h.ListAvailableSlots)

	write := api.Group("", auth.RequireRole(auth.RoleDoctor))
	write.POST("/agendas", h.CreateAgenda)
	write.PUT("/agendas/:weekday", h.UpdateAgenda)
	write.POST("/doctors/:doctor_id/agendas/:weekday/regenerate", h.RegenerateSlots)
}

func (h *Handler) CreateAgenda(c echo.Context) error {
	var req AgendaRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.IsUpdate = false
	return h.writeAgenda(c, req, http.StatusCreated)
}

func (h *Handler) UpdateAgenda(c echo.Context) error {
	var req AgendaRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Weekday = c.Param("weekday")
	req.IsUpdate = true
	return h.writeAgenda(c, req, http.StatusOK)
}

func (h *Handler) writeAgenda(c echo.Context, req AgendaRequest, status int) error {
	if err := auth.RequireSelf(c, req.DoctorID.String()); err != nil {
		return err
	}
	agenda, err := h.svc.CreateOrUpdateAgenda(c.Request().Context(), req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(status, agenda)
}

func (h *Handler) GetAgenda(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	agenda, err := h.svc.GetAgenda(c.Request().Context(), doctorID, c.Param("weekday"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, agenda)
}

func (h *Handler) ListAgendas(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	items, err := h.svc.ListAgendasByDoctor(c.Request().Context(), doctorID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Agenda{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) RegenerateSlots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	if err := auth.RequireSelf(c, doctorID.String()); err != nil {
		return err
	}
	n, err := h.svc.RegenerateSlots(c.Request().Context(), doctorID, c.Param("weekday"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"inserted": n})
}

// ListAvailableSlots serves ?day=, ?from=, ?to= (YYYY-MM-DD), ?sort=day,-slot_time
// and the usual limit/offset.
func (h *Handler) ListAvailableSlots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	pg := pagination.FromContext(c)
	q := SlotQuery{DoctorID: doctorID, Page: pg}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"day", &q.Day}, {"from", &q.From}, {"to", &q.To}} {
		raw := c.QueryParam(p.name)
		if raw == "" {
			continue
		}
		d, err := time.Parse(DateLayout, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid "+p.name+": expected YYYY-MM-DD")
		}
		*p.dst = &d
	}

	if q.Sort, err = pagination.ParseSort(c.QueryParam("sort"), SlotSortFields); err != nil {
		return apperr.ToHTTP(err)
	}

	items, total, err := h.svc.AvailableSlots(c.Request().Context(), q)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
