package catalog

import (
	"net/http"
	"strconv"

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
	read.GET("/buildings", h.ListBuildings)
	read.GET("/buildings/:id", h.GetBuilding)
	read.GET("/doctors", h.ListDoctors)
	read.GET("/doctors/:doctor_id", h.GetDoctor)
}

func (h *Handler) ListBuildings(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBuildings(c.Request().Context(), pg)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetBuilding(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.GetBuilding(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, b)
}

// ListDoctors supports ?specialty= and ?with_agenda=true, the latter
// restricting the list to doctors that have at least one weekly agenda.
func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	q := DoctorQuery{Specialty: c.QueryParam("specialty"), Page: pg}
	if raw := c.QueryParam("with_agenda"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid with_agenda")
		}
		q.WithAgenda = v
	}
	items, total, err := h.svc.ListDoctors(c.Request().Context(), q)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}
