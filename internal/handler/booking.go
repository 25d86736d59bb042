package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booking-engine/internal/booking"
)

// BookingHandler exposes the customer side of the booking service.  These
// routes are unauthenticated; the booking id or reference acts as the
// customer's handle.
type BookingHandler struct {
	Bookings *booking.Service
	log      zerolog.Logger
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	if svc == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: svc, log: handlerLogger("booking")}
}

// Create handles POST /v1/:businessId/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	var req booking.CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	b, err := h.Bookings.Create(c.Request().Context(), c.Param("businessId"), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": b})
}

// Get handles GET /v1/:businessId/bookings/:bookingId.
func (h *BookingHandler) Get(c echo.Context) error {
	b, err := h.Bookings.Get(c.Request().Context(), c.Param("businessId"), c.Param("bookingId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// GetByReference handles GET /v1/:businessId/bookings/ref/:reference.
func (h *BookingHandler) GetByReference(c echo.Context) error {
	b, err := h.Bookings.GetByReference(c.Request().Context(), c.Param("businessId"), c.Param("reference"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// ListByPhone handles GET /v1/:businessId/bookings?phone=.
func (h *BookingHandler) ListByPhone(c echo.Context) error {
	list, err := h.Bookings.ListByPhone(c.Request().Context(), c.Param("businessId"), c.QueryParam("phone"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// Modify handles PATCH /v1/:businessId/bookings/:bookingId.
func (h *BookingHandler) Modify(c echo.Context) error {
	var req booking.ModifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	b, err := h.Bookings.Modify(c.Request().Context(), c.Param("businessId"), c.Param("bookingId"), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// Cancel handles POST /v1/:businessId/bookings/:bookingId/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	b, err := h.Bookings.Cancel(c.Request().Context(), c.Param("businessId"), c.Param("bookingId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}
