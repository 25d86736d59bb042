package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booking-engine/internal/apperr"
	"github.com/iliyamo/booking-engine/internal/availability"
)

// AvailabilityHandler answers slot queries.
type AvailabilityHandler struct {
	Engine *availability.Engine
	log    zerolog.Logger
}

func NewAvailabilityHandler(engine *availability.Engine) *AvailabilityHandler {
	if engine == nil {
		panic("nil engine passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Engine: engine, log: handlerLogger("availability")}
}

// Get handles GET /v1/:businessId/availability.  Query parameters: date,
// party_size (restaurants) or service_id with optional staff_id (spas), and
// an optional time_start/time_end pair.
func (h *AvailabilityHandler) Get(c echo.Context) error {
	req := availability.Request{
		BusinessID: c.Param("businessId"),
		Date:       c.QueryParam("date"),
		ServiceID:  c.QueryParam("service_id"),
		StaffID:    c.QueryParam("staff_id"),
		TimeStart:  c.QueryParam("time_start"),
		TimeEnd:    c.QueryParam("time_end"),
	}
	if req.Date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	if v := c.QueryParam("party_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return respondError(c, h.log, apperr.Validation("party_size must be a positive integer"))
		}
		req.PartySize = n
	}

	slots, err := h.Engine.Availability(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": req.Date, "slots": slots})
}
