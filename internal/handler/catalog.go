package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booking-engine/internal/apperr"
	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/store"
)

// CatalogHandler serves a business's public configuration: hours and either
// its tables or its services and staff.
type CatalogHandler struct {
	Catalog store.Catalog
	log     zerolog.Logger
}

func NewCatalogHandler(catalog store.Catalog) *CatalogHandler {
	if catalog == nil {
		panic("nil catalog passed to NewCatalogHandler")
	}
	return &CatalogHandler{Catalog: catalog, log: handlerLogger("catalog")}
}

// Catalog is the GET /v1/:businessId/catalog response.
type Catalog struct {
	Business model.Business        `json:"business"`
	Hours    []model.BusinessHours `json:"hours"`

	RestaurantConfig *model.RestaurantConfig `json:"restaurant_config,omitempty"`
	Tables           []model.Table           `json:"tables,omitempty"`

	Services []model.Service `json:"services,omitempty"`
	Staff    []model.Staff   `json:"staff,omitempty"`
}

// Get handles GET /v1/:businessId/catalog.
func (h *CatalogHandler) Get(c echo.Context) error {
	out, err := h.load(c.Request().Context(), c.Param("businessId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) load(ctx context.Context, businessID string) (Catalog, error) {
	biz, err := h.Catalog.GetBusiness(ctx, businessID)
	if errors.Is(err, store.ErrNotFound) {
		return Catalog{}, apperr.NotFound("business not found")
	}
	if err != nil {
		return Catalog{}, apperr.Store("load business", err)
	}
	out := Catalog{Business: biz}
	if out.Hours, err = h.Catalog.ListBusinessHours(ctx, biz.ID); err != nil {
		return Catalog{}, apperr.Store("load hours", err)
	}

	switch biz.Type {
	case model.BusinessRestaurant:
		cfg, err := h.Catalog.GetRestaurantConfig(ctx, biz.ID)
		if errors.Is(err, store.ErrNotFound) {
			cfg = model.DefaultRestaurantConfig(biz.ID)
		} else if err != nil {
			return Catalog{}, apperr.Store("load restaurant config", err)
		}
		out.RestaurantConfig = &cfg
		if out.Tables, err = h.Catalog.ListTables(ctx, biz.ID); err != nil {
			return Catalog{}, apperr.Store("load tables", err)
		}
	case model.BusinessSpa:
		if out.Services, err = h.Catalog.ListServices(ctx, biz.ID); err != nil {
			return Catalog{}, apperr.Store("load services", err)
		}
		if out.Staff, err = h.Catalog.ListStaff(ctx, biz.ID); err != nil {
			return Catalog{}, apperr.Store("load staff", err)
		}
	}
	return out, nil
}
