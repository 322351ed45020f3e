package booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/domain/availability"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/caltime"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RolePractitioner))
	read.GET("/appointments/:id", h.Get)
	read.GET("/practitioners/:id/appointments", h.ListByPractitioner)
	read.GET("/patients/:id/appointments", h.ListByPatient)
	read.GET("/practitioners/:id/open-slots", h.OpenSlots)

	// Booking and rescheduling are reception tasks; practitioners only move
	// appointments through the visit lifecycle.
	desk := api.Group("", auth.RequireRole(auth.RoleReceptionist))
	desk.POST("/appointments", h.Book)
	desk.PUT("/appointments/:id/reschedule", h.Reschedule)
	desk.POST("/appointments/:id/cancel", h.Cancel)

	lifecycle := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RolePractitioner))
	lifecycle.POST("/appointments/:id/status", h.UpdateStatus)
}

// conflictBody is the 409 payload.
type conflictBody struct {
	Message        string              `json:"message"`
	Conflicts      []string            `json:"conflicts"`
	SuggestedTimes []caltime.TimeOfDay `json:"suggested_times,omitempty"`
}

func httpError(err error) *echo.HTTPError {
	var sc *SchedulingConflict
	switch {
	case errors.As(err, &sc):
		return echo.NewHTTPError(http.StatusConflict, conflictBody{
			Message:        "horário indisponível",
			Conflicts:      sc.Conflicts,
			SuggestedTimes: sc.SuggestedTimes,
		})
	case errors.Is(err, ErrAppointmentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	case errors.Is(err, ErrStaleStatus):
		return echo.NewHTTPError(http.StatusConflict, "appointment was modified, reload and retry")
	default:
		return availability.HTTPError(err)
	}
}

type slotRequest struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r slotRequest) parse() (caltime.Date, caltime.Interval, error) {
	date, err := caltime.ParseDate(r.Date)
	if err != nil {
		return caltime.Date{}, caltime.Interval{}, caltime.WithField(err, "date")
	}
	iv, err := caltime.ParseInterval(r.Start, r.End)
	if err != nil {
		return caltime.Date{}, caltime.Interval{}, err
	}
	return date, iv, nil
}

type bookRequest struct {
	slotRequest
	PractitionerID uuid.UUID  `json:"practitioner_id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	ServiceID      *uuid.UUID `json:"service_id,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

func (h *Handler) Book(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, iv, err := req.parse()
	if err != nil {
		return httpError(err)
	}
	a, err := h.svc.Book(c.Request().Context(), BookRequest{
		PractitionerID: req.PractitionerID,
		PatientID:      req.PatientID,
		ServiceID:      req.ServiceID,
		Date:           date,
		Interval:       iv,
		Notes:          req.Notes,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := availability.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req slotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, iv, err := req.parse()
	if err != nil {
		return httpError(err)
	}
	a, err := h.svc.Reschedule(c.Request().Context(), id, date, iv)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := availability.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := availability.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		Status Status `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := availability.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// OpenSlots handles GET /practitioners/:id/open-slots?date=&duration=.
// duration defaults to 30 minutes.
func (h *Handler) OpenSlots(c echo.Context) error {
	pid, err := availability.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	date, err := availability.ParseDateQuery(c, "date")
	if err != nil {
		return err
	}
	duration := 30
	if d := c.QueryParam("duration"); d != "" {
		if duration, err = strconv.Atoi(d); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid duration")
		}
	}
	slots, err := h.svc.OpenSlots(c.Request().Context(), pid, date, duration)
	if err != nil {
		return httpError(err)
	}
	if slots == nil {
		slots = []caltime.Interval{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":     date,
		"duration": duration,
		"slots":    slots,
	})
}

// ListByPractitioner accepts ?date= for a single day or ?from=&to= for a range.
func (h *Handler) ListByPractitioner(c echo.Context) error {
	pid, err := availability.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var from, to caltime.Date
	if c.QueryParam("date") != "" {
		if from, err = availability.ParseDateQuery(c, "date"); err != nil {
			return err
		}
		to = from
	} else {
		if from, err = availability.ParseDateQuery(c, "from"); err != nil {
			return err
		}
		if to, err = availability.ParseDateQuery(c, "to"); err != nil {
			return err
		}
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPractitioner(c.Request().Context(), pid, from, to, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	pid, err := availability.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
