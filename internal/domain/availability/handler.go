package availability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/caltime"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Reads: every staff role
	read := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RolePractitioner))
	read.GET("/practitioners/:id/availability", h.CheckAvailability)
	read.GET("/practitioners/:id/weekly-availability", h.ListWeekly)
	read.GET("/practitioners/:id/blocked-dates", h.ListBlocks)
	read.GET("/blocked-dates/:id", h.GetBlock)

	// Writes: reception manages agendas, practitioners their own
	agenda := read.Group("/practitioners/:id", auth.RequireAgendaAccess("id"))
	agenda.PUT("/weekly-availability/:day", h.SetWeekly)
	agenda.DELETE("/weekly-availability/:day", h.DeactivateWeekly)
	agenda.POST("/blocked-dates", h.BlockDate)
	// The block id only resolves to a practitioner after lookup.
	read.DELETE("/blocked-dates/:id", h.UnblockDate)
}

// HTTPError maps availability and time-format errors to HTTP responses.
// Unknown errors become 500 with the cause kept as the internal error.
func HTTPError(err error) *echo.HTTPError {
	var (
		fe *caltime.FormatError
		ve *ValidationError
	)
	switch {
	case errors.As(err, &fe):
		return echo.NewHTTPError(http.StatusBadRequest, fe.Error())
	case errors.Is(err, caltime.ErrInvalidInterval):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]string{
			"field":   ve.Field,
			"message": ve.Reason,
		})
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}

// ParseUUIDParam reads a path parameter as a UUID.
func ParseUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// ParseDateQuery reads a required YYYY-MM-DD query parameter.
func ParseDateQuery(c echo.Context, name string) (caltime.Date, error) {
	d, err := caltime.ParseDate(c.QueryParam(name))
	if err != nil {
		return caltime.Date{}, HTTPError(caltime.WithField(err, name))
	}
	return d, nil
}

func parseDayParam(c echo.Context) (time.Weekday, error) {
	raw := c.Param("day")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > 6 {
		return 0, HTTPError(&caltime.FormatError{Field: "day", Kind: "day of week", Value: raw, Expected: "0-6"})
	}
	return time.Weekday(n), nil
}

// parseOptionalInterval parses a start/end pair of HH:MM strings. Both empty
// yields nil. Ordering is left to the model's Validate.
func parseOptionalInterval(startField, endField, start, end string) (*caltime.Interval, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	s, err := caltime.ParseTimeOfDay(start)
	if err != nil {
		return nil, caltime.WithField(err, startField)
	}
	e, err := caltime.ParseTimeOfDay(end)
	if err != nil {
		return nil, caltime.WithField(err, endField)
	}
	return &caltime.Interval{Start: s, End: e}, nil
}

// -- Availability --

func (h *Handler) CheckAvailability(c echo.Context) error {
	pid, err := ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	date, err := ParseDateQuery(c, "date")
	if err != nil {
		return err
	}
	iv, err := caltime.ParseInterval(c.QueryParam("start"), c.QueryParam("end"))
	if err != nil {
		return HTTPError(err)
	}
	res, err := h.svc.CheckAvailability(c.Request().Context(), pid, date, iv)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// -- Weekly availability --

type weeklyRequest struct {
	WorkStart  string `json:"work_start"`
	WorkEnd    string `json:"work_end"`
	BreakStart string `json:"break_start,omitempty"`
	BreakEnd   string `json:"break_end,omitempty"`
}

func (h *Handler) SetWeekly(c echo.Context) error {
	pid, err := ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	day, err := parseDayParam(c)
	if err != nil {
		return err
	}
	var req weeklyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	work, err := parseOptionalInterval("work_start", "work_end", req.WorkStart, req.WorkEnd)
	if err != nil {
		return HTTPError(err)
	}
	if work == nil {
		return HTTPError(&ValidationError{Field: "work_start", Reason: "horário de trabalho é obrigatório"})
	}
	brk, err := parseOptionalInterval("break_start", "break_end", req.BreakStart, req.BreakEnd)
	if err != nil {
		return HTTPError(err)
	}

	w := &WeeklyAvailability{PractitionerID: pid, DayOfWeek: day, Work: *work, Break: brk}
	if err := h.svc.SetWeeklyAvailability(c.Request().Context(), w); err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) ListWeekly(c echo.Context) error {
	pid, err := ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	includeInactive, _ := strconv.ParseBool(c.QueryParam("include_inactive"))
	items, err := h.svc.ListWeeklyAvailability(c.Request().Context(), pid, includeInactive)
	if err != nil {
		return HTTPError(err)
	}
	if items == nil {
		items = []*WeeklyAvailability{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DeactivateWeekly(c echo.Context) error {
	pid, err := ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	day, err := parseDayParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeactivateWeeklyAvailability(c.Request().Context(), pid, day); err != nil {
		return HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Blocked dates --

type blockRequest struct {
	Date   string `json:"date"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
	Reason string `json:"reason"`
}

func (h *Handler) BlockDate(c echo.Context) error {
	pid, err := ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req blockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := caltime.ParseDate(req.Date)
	if err != nil {
		return HTTPError(caltime.WithField(err, "date"))
	}
	window, err := parseOptionalInterval("start", "end", req.Start, req.End)
	if err != nil {
		return HTTPError(err)
	}

	b := &BlockedDate{PractitionerID: pid, Date: date, Window: window, Reason: req.Reason}
	if err := h.svc.BlockDate(c.Request().Context(), b); err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) ListBlocks(c echo.Context) error {
	pid, err := ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	from, err := ParseDateQuery(c, "from")
	if err != nil {
		return err
	}
	to := from
	if c.QueryParam("to") != "" {
		if to, err = ParseDateQuery(c, "to"); err != nil {
			return err
		}
	}
	items, err := h.svc.ListBlocks(c.Request().Context(), pid, from, to)
	if err != nil {
		return HTTPError(err)
	}
	if items == nil {
		items = []*BlockedDate{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetBlock(c echo.Context) error {
	id, err := ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	b, err := h.svc.GetBlock(c.Request().Context(), id)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) UnblockDate(c echo.Context) error {
	id, err := ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	b, err := h.svc.GetBlock(ctx, id)
	if err != nil {
		return HTTPError(err)
	}
	if !auth.CanManageAgenda(ctx, b.PractitionerID.String()) {
		return echo.NewHTTPError(http.StatusForbidden, "agenda belongs to another practitioner")
	}
	if err := h.svc.UnblockDate(ctx, id); err != nil {
		return HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
