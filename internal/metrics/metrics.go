// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Availability metrics
	SlotComputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_slot_computations_total",
			Help: "Total number of slot list computations by business type",
		},
		[]string{"business_type"},
	)

	SlotComputationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_slot_computation_duration_seconds",
			Help:    "Slot list computation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"business_type"},
	)

	// Booking metrics
	BookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_bookings_created_total",
			Help: "Total number of committed bookings by business type",
		},
		[]string{"business_type"},
	)

	BookingsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_bookings_failed_total",
			Help: "Total number of failed booking attempts by reason",
		},
		[]string{"reason"},
	)

	BookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Total number of booking state changes by operation",
		},
		[]string{"operation"},
	)

	// Hold metrics
	HoldsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_holds_created_total",
			Help: "Total number of slot holds written",
		},
	)

	HoldsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_holds_swept_total",
			Help: "Total number of expired slot holds deleted",
		},
	)

	// Notification metrics
	NotificationsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_notifications_total",
			Help: "Total number of notification attempts by event and result",
		},
		[]string{"event", "result"},
	)

	// API metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(SlotComputations)
	prometheus.MustRegister(SlotComputationDuration)
	prometheus.MustRegister(BookingsCreated)
	prometheus.MustRegister(BookingsFailed)
	prometheus.MustRegister(BookingTransitions)
	prometheus.MustRegister(HoldsCreated)
	prometheus.MustRegister(HoldsSwept)
	prometheus.MustRegister(NotificationsPublished)
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation for a histogram.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time on h.
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}

// Middleware records request counts and latency per matched route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			timer := NewTimer()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			method := c.Request().Method
			HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			timer.ObserveDuration(HTTPRequestDuration.WithLabelValues(method, route))
			return err
		}
	}
}
