package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booking-engine/internal/availability"
	"github.com/iliyamo/booking-engine/internal/booking"
	"github.com/iliyamo/booking-engine/internal/config"
	"github.com/iliyamo/booking-engine/internal/handler"
	"github.com/iliyamo/booking-engine/internal/hold"
	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/store/memstore"
	"github.com/iliyamo/booking-engine/internal/utils"
)

const (
	jwtSecret = "router-test-secret"
	testDate  = "2025-06-01" // a Sunday
)

var testNow = time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)

type apiResponse struct {
	Error    string              `json:"error"`
	Booking  model.Booking       `json:"booking"`
	Bookings []model.Booking     `json:"bookings"`
	Slots    []availability.Slot `json:"slots"`
	Block    model.SlotBlock     `json:"block"`
	Blocks   []model.SlotBlock   `json:"blocks"`
}

type server struct {
	t  *testing.T
	e  *echo.Echo
	st *memstore.Store
}

func newServer(t *testing.T) *server {
	t.Helper()
	st := memstore.New()
	st.PutBusiness(model.Business{
		ID: "r1", Name: "Trattoria", Type: model.BusinessRestaurant, Timezone: "UTC", SlotInterval: 30,
		AllowSameDay: true, NotesEnabled: true,
	})
	st.PutHours(model.BusinessHours{BusinessID: "r1", DayOfWeek: 0, OpenTime: "09:00", CloseTime: "22:00"})
	st.PutRestaurantConfig(model.RestaurantConfig{BusinessID: "r1", SeatingDurationMinutes: 90, MaxPartySize: 8})
	st.PutTable(model.Table{ID: "t4", BusinessID: "r1", Name: "Window", Capacity: 4, IsActive: true})
	st.PutTable(model.Table{ID: "t6", BusinessID: "r1", Name: "Booth", Capacity: 6, IsActive: true})

	clock := func() time.Time { return testNow }
	engine := availability.NewEngine(st).WithClock(clock)
	holds := hold.NewManager(st, time.Minute).WithClock(clock)
	svc := booking.NewService(st, engine, holds, nil).WithClock(clock)

	e := echo.New()
	RegisterRoutes(e, Deps{
		Catalog:      handler.NewCatalogHandler(st),
		Availability: handler.NewAvailabilityHandler(engine),
		Bookings:     handler.NewBookingHandler(svc),
		Manager:      handler.NewManagerHandler(svc, st),
		JWTSecret:    jwtSecret,
		RateLimit:    config.RateLimitConfig{Enabled: false},
		Cache:        config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}},
	})
	return &server{t: t, e: e, st: st}
}

func (s *server) do(method, path, body, token string) (*httptest.ResponseRecorder, apiResponse) {
	s.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var out apiResponse
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func managerToken(t *testing.T, businessID string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(jwtSecret, "m1", utils.RoleManager, businessID, 10)
	require.NoError(t, err)
	return tok.Token
}

const dinnerBody = `{"date":"2025-06-01","start_time":"18:00","customer_name":"Ada","customer_phone":"+15550100","party_size":4,"notes":"window"}`

func TestOpsRoutes(t *testing.T) {
	s := newServer(t)
	rec, _ := s.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	s.do(http.MethodGet, "/v1/r1/availability?date="+testDate+"&party_size=2", "", "")
	rec, _ = s.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "booking_slot_computations_total")
	assert.Contains(t, rec.Body.String(), "booking_http_requests_total")
}

func TestCatalog(t *testing.T) {
	s := newServer(t)
	rec, _ := s.do(http.MethodGet, "/v1/r1/catalog", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var cat handler.Catalog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cat))
	assert.Equal(t, "Trattoria", cat.Business.Name)
	assert.Len(t, cat.Hours, 1)
	require.NotNil(t, cat.RestaurantConfig)
	assert.Equal(t, 8, cat.RestaurantConfig.MaxPartySize)
	assert.Len(t, cat.Tables, 2)
	assert.Empty(t, cat.Services)

	rec, out := s.do(http.MethodGet, "/v1/nope/catalog", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "business not found", out.Error)
}

func TestAvailability(t *testing.T) {
	s := newServer(t)

	rec, out := s.do(http.MethodGet, "/v1/r1/availability?date="+testDate+"&party_size=4", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, out.Slots)
	assert.Equal(t, "09:00", out.Slots[0].StartTime)
	assert.Equal(t, "10:30", out.Slots[0].EndTime)
	assert.Equal(t, "20:30", out.Slots[len(out.Slots)-1].StartTime)

	rec, out = s.do(http.MethodGet, "/v1/r1/availability?date="+testDate+"&party_size=4&time_start=12:00&time_end=14:00", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, out.Slots, 2)
	assert.Equal(t, "12:00", out.Slots[0].StartTime)

	tests := []struct {
		name  string
		query string
		code  int
	}{
		{"missing date", "party_size=2", http.StatusBadRequest},
		{"bad party size", "date=" + testDate + "&party_size=two", http.StatusBadRequest},
		{"missing party size", "date=" + testDate, http.StatusBadRequest},
		{"bad date", "date=01-06-2025&party_size=2", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := s.do(http.MethodGet, "/v1/r1/availability?"+tt.query, "", "")
			assert.Equal(t, tt.code, rec.Code)
			assert.NotEmpty(t, out.Error)
		})
	}

	rec, _ = s.do(http.MethodGet, "/v1/nope/availability?date="+testDate+"&party_size=2", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCustomerBookingFlow(t *testing.T) {
	s := newServer(t)

	rec, out := s.do(http.MethodPost, "/v1/r1/bookings", dinnerBody, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := out.Booking
	assert.Equal(t, model.StatusConfirmed, created.Status)
	assert.Equal(t, "19:30", created.EndTime)
	require.Len(t, created.Assignments, 1)
	assert.Equal(t, "t4", created.Assignments[0].ResourceID)

	rec, out = s.do(http.MethodGet, "/v1/r1/bookings/"+created.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.Reference, out.Booking.Reference)

	rec, out = s.do(http.MethodGet, "/v1/r1/bookings/ref/"+created.Reference, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, out.Booking.ID)

	rec, out = s.do(http.MethodGet, "/v1/r1/bookings?phone=%2B15550100", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, out.Bookings, 1)

	rec, out = s.do(http.MethodPatch, "/v1/r1/bookings/"+created.ID, `{"start_time":"19:00"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "20:30", out.Booking.EndTime)

	rec, out = s.do(http.MethodPost, "/v1/r1/bookings/"+created.ID+"/cancel", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusCancelled, out.Booking.Status)

	rec, out = s.do(http.MethodPost, "/v1/r1/bookings/"+created.ID+"/cancel", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "booking is already cancelled", out.Error)

	rec, out = s.do(http.MethodGet, "/v1/r2/bookings/"+created.ID, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "booking not found", out.Error)
}

func TestCreateBookingErrors(t *testing.T) {
	s := newServer(t)

	rec, _ := s.do(http.MethodPost, "/v1/r1/bookings", dinnerBody, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = s.do(http.MethodPost, "/v1/r1/bookings", dinnerBody, "")
	require.Equal(t, http.StatusCreated, rec.Code, "the booth still seats four")

	rec, out := s.do(http.MethodPost, "/v1/r1/bookings", dinnerBody, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "the selected time is no longer available", out.Error)

	rec, out = s.do(http.MethodPost, "/v1/r1/bookings", `{"date":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", out.Error)

	rec, out = s.do(http.MethodPost, "/v1/r1/bookings", `{"date":"2025-06-01","start_time":"12:00","customer_name":"Ada","customer_phone":"+1"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "party_size is required for restaurant bookings", out.Error)

	rec, _ = s.do(http.MethodPost, "/v1/nope/bookings", dinnerBody, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 2, s.st.BookingCount())
}

func TestManagerRoutesRequireToken(t *testing.T) {
	s := newServer(t)

	rec, _ := s.do(http.MethodGet, "/v1/manager/r1/bookings", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out := s.do(http.MethodGet, "/v1/manager/r1/bookings", "", managerToken(t, "r2"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", out.Error)

	rec, _ = s.do(http.MethodGet, "/v1/manager/r1/bookings", "", managerToken(t, "r1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestManagerBookingRoutes(t *testing.T) {
	s := newServer(t)
	token := managerToken(t, "r1")

	_, out := s.do(http.MethodPost, "/v1/r1/bookings", dinnerBody, "")
	id := out.Booking.ID
	require.NotEmpty(t, id)

	rec, out := s.do(http.MethodPost, "/v1/manager/r1/bookings/"+id+"/reassign", `{"resource_id":"t6"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "t6", out.Booking.Assignments[0].ResourceID)

	rec, out = s.do(http.MethodPost, "/v1/manager/r1/bookings/"+id+"/reassign", `{"resource_type":"room","resource_id":"x"}`, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "booking has no room assignment", out.Error)

	rec, out = s.do(http.MethodGet, "/v1/manager/r1/bookings?date="+testDate+"&status=confirmed", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out.Bookings, 1)

	rec, out = s.do(http.MethodGet, "/v1/manager/r1/bookings?status=maybe", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, out.Error)

	rec, out = s.do(http.MethodPost, "/v1/manager/r1/bookings/"+id+"/no-show", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusNoShow, out.Booking.Status)

	rec, _ = s.do(http.MethodPost, "/v1/manager/r1/bookings/missing/no-show", "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestManagerBlocks(t *testing.T) {
	s := newServer(t)
	token := managerToken(t, "r1")

	rec, out := s.do(http.MethodPost, "/v1/manager/r1/blocks",
		`{"date":"2025-06-01","start_time":"18:00","end_time":"19:00","reason":"private event"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	block := out.Block
	assert.NotEmpty(t, block.ID)
	assert.True(t, block.IsGlobal())

	_, out = s.do(http.MethodGet, "/v1/r1/availability?date="+testDate+"&party_size=2", "", "")
	for _, slot := range out.Slots {
		assert.NotEqual(t, "18:00", slot.StartTime)
		assert.NotEqual(t, "17:00", slot.StartTime, "17:00 to 18:30 overlaps the block")
	}

	rec, out = s.do(http.MethodGet, "/v1/manager/r1/blocks?date="+testDate, "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, out.Blocks, 1)
	assert.Equal(t, block.ID, out.Blocks[0].ID)

	invalid := []string{
		`{"date":"2025-06-01","start_time":"19:00","end_time":"18:00"}`,
		`{"date":"2025-06-01","start_time":"18:00","end_time":"19:00","resource_id":"t4"}`,
		`{"date":"2025-06-01","start_time":"18:00","end_time":"19:00","resource_type":"chair","resource_id":"c1"}`,
		`{"date":"June","start_time":"18:00","end_time":"19:00"}`,
	}
	for _, body := range invalid {
		rec, _ := s.do(http.MethodPost, "/v1/manager/r1/blocks", body, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec, _ = s.do(http.MethodDelete, "/v1/manager/r1/blocks/"+block.ID, "", token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, out = s.do(http.MethodDelete, "/v1/manager/r1/blocks/"+block.ID, "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "block not found", out.Error)

	rec, out = s.do(http.MethodGet, "/v1/manager/r1/blocks", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, out.Blocks)
}
