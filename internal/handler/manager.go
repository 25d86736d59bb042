package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booking-engine/internal/apperr"
	"github.com/iliyamo/booking-engine/internal/booking"
	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/store"
	"github.com/iliyamo/booking-engine/internal/timeofday"
)

// BlockStore is what the manager routes need to read and write blocks.
type BlockStore interface {
	store.Blocks
	ListBlocks(ctx context.Context, businessID, date string) ([]model.SlotBlock, error)
}

// ManagerHandler serves the manager routes.  JWTAuth, RequireRole and
// RequireBusiness have already run, so :businessId is the caller's own.
type ManagerHandler struct {
	Bookings *booking.Service
	Blocks   BlockStore
	log      zerolog.Logger
}

func NewManagerHandler(svc *booking.Service, blocks BlockStore) *ManagerHandler {
	if svc == nil || blocks == nil {
		panic("nil dependency passed to NewManagerHandler")
	}
	return &ManagerHandler{Bookings: svc, Blocks: blocks, log: handlerLogger("manager")}
}

// NoShow handles POST /v1/manager/:businessId/bookings/:bookingId/no-show.
func (h *ManagerHandler) NoShow(c echo.Context) error {
	b, err := h.Bookings.MarkNoShow(c.Request().Context(), c.Param("businessId"), c.Param("bookingId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// Reassign handles POST /v1/manager/:businessId/bookings/:bookingId/reassign.
func (h *ManagerHandler) Reassign(c echo.Context) error {
	var req booking.ReassignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	b, err := h.Bookings.Reassign(c.Request().Context(), c.Param("businessId"), c.Param("bookingId"), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// ListBookings handles GET /v1/manager/:businessId/bookings?date&status.
func (h *ManagerHandler) ListBookings(c echo.Context) error {
	list, err := h.Bookings.List(c.Request().Context(), c.Param("businessId"), booking.ListFilter{
		Date:   c.QueryParam("date"),
		Status: model.BookingStatus(c.QueryParam("status")),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// ListBlocks handles GET /v1/manager/:businessId/blocks?date.
func (h *ManagerHandler) ListBlocks(c echo.Context) error {
	date := c.QueryParam("date")
	if date != "" {
		if _, err := timeofday.ParseDate(date); err != nil {
			return respondError(c, h.log, apperr.Validation("date must be YYYY-MM-DD"))
		}
	}
	blocks, err := h.Blocks.ListBlocks(c.Request().Context(), c.Param("businessId"), date)
	if err != nil {
		return respondError(c, h.log, apperr.Store("list blocks", err))
	}
	if blocks == nil {
		blocks = []model.SlotBlock{}
	}
	return c.JSON(http.StatusOK, echo.Map{"blocks": blocks})
}

type blockRequest struct {
	Date         string  `json:"date"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	ResourceType *string `json:"resource_type"`
	ResourceID   *string `json:"resource_id"`
	Reason       *string `json:"reason"`
}

// CreateBlock handles POST /v1/manager/:businessId/blocks.
func (h *ManagerHandler) CreateBlock(c echo.Context) error {
	var req blockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	b := model.SlotBlock{
		ID:         uuid.NewString(),
		BusinessID: c.Param("businessId"),
		Date:       req.Date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		ResourceID: req.ResourceID,
		Reason:     req.Reason,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if req.ResourceType != nil {
		rt := model.ResourceType(strings.ToLower(*req.ResourceType))
		b.ResourceType = &rt
	}
	if err := b.Validate(); err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.Blocks.InsertBlock(c.Request().Context(), b); err != nil {
		return respondError(c, h.log, apperr.Store("create block", err))
	}
	h.log.Info().Str("business_id", b.BusinessID).Str("block_id", b.ID).Str("date", b.Date).Msg("block created")
	return c.JSON(http.StatusCreated, echo.Map{"block": b})
}

// DeleteBlock handles DELETE /v1/manager/:businessId/blocks/:blockId.
func (h *ManagerHandler) DeleteBlock(c echo.Context) error {
	err := h.Blocks.DeleteBlock(c.Request().Context(), c.Param("businessId"), c.Param("blockId"))
	if errors.Is(err, store.ErrNotFound) {
		return respondError(c, h.log, apperr.NotFound("block not found"))
	}
	if err != nil {
		return respondError(c, h.log, apperr.Store("delete block", err))
	}
	return c.NoContent(http.StatusNoContent)
}
