// Package router registers the HTTP routes of the booking API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/booking-engine/internal/config"
	"github.com/iliyamo/booking-engine/internal/handler"
	"github.com/iliyamo/booking-engine/internal/metrics"
	"github.com/iliyamo/booking-engine/internal/middleware"
	"github.com/iliyamo/booking-engine/internal/utils"
)

// Deps carries what the routes are built from.  Redis may be nil; rate
// limiting then runs in process and catalog caching is off.
type Deps struct {
	Catalog      *handler.CatalogHandler
	Availability *handler.AvailabilityHandler
	Bookings     *handler.BookingHandler
	Manager      *handler.ManagerHandler

	JWTSecret string
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
}

// RegisterRoutes wires the ops, public and manager routes onto e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	RegisterPublic(e, d)
	RegisterManager(e, d)
}

// RegisterPublic registers the unauthenticated customer routes under
// /v1/:businessId.  All of them are rate limited; the catalog is cached.
func RegisterPublic(e *echo.Echo, d Deps) {
	g := e.Group("/v1/:businessId", metrics.Middleware(), middleware.NewTokenBucket(d.RateLimit, d.Redis))

	g.GET("/catalog", d.Catalog.Get, middleware.NewRedisCache(d.Cache, d.Redis))
	g.GET("/availability", d.Availability.Get)

	g.POST("/bookings", d.Bookings.Create)
	g.GET("/bookings", d.Bookings.ListByPhone)
	g.GET("/bookings/ref/:reference", d.Bookings.GetByReference)
	g.GET("/bookings/:bookingId", d.Bookings.Get)
	g.PATCH("/bookings/:bookingId", d.Bookings.Modify)
	g.POST("/bookings/:bookingId/cancel", d.Bookings.Cancel)
}

// RegisterManager registers the manager routes under
// /v1/manager/:businessId.  A request needs a MANAGER token whose
// business_id claim names the business in the path.
func RegisterManager(e *echo.Echo, d Deps) {
	g := e.Group("/v1/manager/:businessId",
		metrics.Middleware(),
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(utils.RoleManager),
		middleware.RequireBusiness("businessId"),
	)

	g.GET("/bookings", d.Manager.ListBookings)
	g.POST("/bookings/:bookingId/no-show", d.Manager.NoShow)
	g.POST("/bookings/:bookingId/reassign", d.Manager.Reassign)

	g.GET("/blocks", d.Manager.ListBlocks)
	g.POST("/blocks", d.Manager.CreateBlock)
	g.DELETE("/blocks/:blockId", d.Manager.DeleteBlock)
}
