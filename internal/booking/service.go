// Package booking turns a chosen slot into a committed booking and runs the
// booking state machine: confirmed -> cancelled, confirmed -> no_show.
//
// Create uses hold-then-verify.  The slot is recomputed, its resources are
// held, and occupancy is read again with the caller's own holds left out.
// Only when nothing else claims the resources are the booking, its
// assignments and the removal of the holds written, in one transaction.  A
// racing caller therefore always sees either a hold or a booking; under
// contention both callers may abort, but both can never succeed.
package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booking-engine/internal/apperr"
	"github.com/iliyamo/booking-engine/internal/availability"
	"github.com/iliyamo/booking-engine/internal/hold"
	"github.com/iliyamo/booking-engine/internal/logging"
	"github.com/iliyamo/booking-engine/internal/metrics"
	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/notify"
	"github.com/iliyamo/booking-engine/internal/store"
	"github.com/iliyamo/booking-engine/internal/timeofday"
)

// referenceAttempts bounds retries after a reference collision.
const referenceAttempts = 3

// Service commits and mutates bookings.
type Service struct {
	st       store.Store
	engine   *availability.Engine
	holds    *hold.Manager
	notifier notify.Notifier
	now      func() time.Time
	log      zerolog.Logger
}

// NewService wires a service over st.  A nil notifier disables
// notifications.
func NewService(st store.Store, engine *availability.Engine, holds *hold.Manager, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		st:       st,
		engine:   engine,
		holds:    holds,
		notifier: notifier,
		now:      time.Now,
		log:      logging.WithComponent("booking"),
	}
}

// WithClock replaces the clock used for the booking window and timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateRequest is a customer's booking attempt.
type CreateRequest struct {
	Date          string  `json:"date"`
	StartTime     string  `json:"start_time"`
	CustomerName  string  `json:"customer_name"`
	CustomerPhone string  `json:"customer_phone"`
	PartySize     *int    `json:"party_size"`
	ServiceID     *string `json:"service_id"`
	StaffID       *string `json:"staff_id"`
	Notes         *string `json:"notes"`
}

// ModifyRequest patches a booking.  Nil fields are left unchanged.
type ModifyRequest struct {
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	PartySize *int    `json:"party_size"`
	ServiceID *string `json:"service_id"`
	StaffID   *string `json:"staff_id"`
	Notes     *string `json:"notes"`
}

// touchesSlot reports whether the patch needs the slot revalidated.
func (r ModifyRequest) touchesSlot() bool {
	return r.Date != nil || r.StartTime != nil || r.PartySize != nil || r.ServiceID != nil || r.StaffID != nil
}

// ReassignRequest moves one assignment to another resource.  An empty
// ResourceType means tables for restaurants and staff for spas.
type ReassignRequest struct {
	ResourceType model.ResourceType `json:"resource_type"`
	ResourceID   string             `json:"resource_id"`
}

// ListFilter narrows a manager's booking list.
type ListFilter struct {
	Date   string
	Status model.BookingStatus
}

// Create commits a booking for the slot starting at req.StartTime.
func (s *Service) Create(ctx context.Context, businessID string, req CreateRequest) (model.Booking, error) {
	biz, err := s.business(ctx, businessID)
	if err != nil {
		return model.Booking{}, err
	}

	b := model.Booking{
		BusinessID:    biz.ID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		BookingDate:   req.Date,
		StartTime:     req.StartTime,
		PartySize:     req.PartySize,
		ServiceID:     req.ServiceID,
		Status:        model.StatusConfirmed,
	}
	if biz.NotesEnabled && req.Notes != nil && strings.TrimSpace(*req.Notes) != "" {
		notes := strings.TrimSpace(*req.Notes)
		b.Notes = &notes
	}
	if err := b.Validate(biz.Type); err != nil {
		s.failed("validation")
		return model.Booking{}, err
	}
	if err := s.checkRequest(ctx, biz, b); err != nil {
		s.failed("validation")
		return model.Booking{}, err
	}

	areq := availability.Request{BusinessID: biz.ID, Date: b.BookingDate}
	if b.PartySize != nil {
		areq.PartySize = *b.PartySize
	}
	if b.ServiceID != nil {
		areq.ServiceID = *b.ServiceID
	}
	if req.StaffID != nil {
		areq.StaffID = *req.StaffID
	}

	slot, holdIDs, err := s.claim(ctx, biz, areq, b.StartTime)
	if err != nil {
		return model.Booking{}, err
	}

	now := s.stamp()
	b.ID = uuid.NewString()
	b.EndTime = slot.EndTime
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Assignments = assignmentsFor(b.ID, slot.Resources)

	for attempt := 1; ; attempt++ {
		b.Reference = NewReference()
		err = s.st.InTx(ctx, func(tx store.Tx) error {
			if err := tx.InsertBooking(ctx, b); err != nil {
				return err
			}
			if err := tx.InsertAssignments(ctx, b.Assignments); err != nil {
				return err
			}
			return tx.DeleteHolds(ctx, holdIDs)
		})
		if errors.Is(err, store.ErrDuplicate) && attempt < referenceAttempts {
			s.log.Warn().Str("reference", b.Reference).Int("attempt", attempt).Msg("booking reference collision, retrying")
			continue
		}
		break
	}
	if err != nil {
		s.release(ctx, holdIDs)
		s.failed("store")
		return model.Booking{}, apperr.Store("create booking", err)
	}

	metrics.BookingsCreated.WithLabelValues(string(biz.Type)).Inc()
	s.log.Info().
		Str("business_id", biz.ID).
		Str("booking_id", b.ID).
		Str("reference", b.Reference).
		Str("date", b.BookingDate).
		Str("start_time", b.StartTime).
		Msg("booking created")

	if biz.SMSEnabled {
		var svc *model.Service
		if b.ServiceID != nil {
			if found, err := s.st.GetService(ctx, biz.ID, *b.ServiceID); err == nil {
				svc = &found
			}
		}
		s.notifier.BookingCreated(ctx, b, biz, svc)
	}
	return b, nil
}

// claim finds the slot starting at start, holds its resources and checks
// that nothing else claimed them in the meantime.  On success the caller
// owns the returned holds.
func (s *Service) claim(ctx context.Context, biz model.Business, req availability.Request, start string) (availability.Slot, []string, error) {
	slots, err := s.engine.Compute(ctx, biz, req)
	if err != nil {
		s.failed("availability")
		return availability.Slot{}, nil, err
	}
	slot, ok := availability.Find(slots, start)
	if !ok {
		s.failed("slot_unavailable")
		return availability.Slot{}, nil, apperr.SlotUnavailable("the selected time is no longer available")
	}

	holdIDs, err := s.holds.Create(ctx, biz.ID, req.Date, slot.StartTime, slot.EndTime, slot.Resources)
	if err != nil {
		s.failed("hold")
		return availability.Slot{}, nil, err
	}

	free, err := s.engine.Verify(ctx, biz.ID, req.Date, slot, holdIDs, req.ExcludeBookingID)
	if err != nil || !free {
		s.release(ctx, holdIDs)
		if err != nil {
			s.failed("store")
			return availability.Slot{}, nil, err
		}
		s.failed("slot_unavailable")
		return availability.Slot{}, nil, apperr.SlotUnavailable("the selected time is no longer available")
	}
	return slot, holdIDs, nil
}

// checkRequest applies the business settings that Validate cannot see: the
// restaurant party limit and the booking window.
func (s *Service) checkRequest(ctx context.Context, biz model.Business, b model.Booking) error {
	if biz.Type == model.BusinessRestaurant && b.PartySize != nil {
		cfg, err := s.st.GetRestaurantConfig(ctx, biz.ID)
		if errors.Is(err, store.ErrNotFound) {
			cfg = model.DefaultRestaurantConfig(biz.ID)
		} else if err != nil {
			return apperr.Store("load restaurant config", err)
		}
		if cfg.MaxPartySize > 0 && *b.PartySize > cfg.MaxPartySize {
			return apperr.Validation("party_size exceeds the maximum for this restaurant")
		}
	}
	return checkWindow(biz, s.now(), b.BookingDate, timeofday.MustMinutes(b.StartTime))
}

// Get returns a booking with its assignments.  A non-empty businessID must
// match the booking's business.
func (s *Service) Get(ctx context.Context, businessID, bookingID string) (model.Booking, error) {
	b, err := s.st.GetBooking(ctx, bookingID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && businessID != "" && b.BusinessID != businessID) {
		return model.Booking{}, apperr.NotFound("booking not found")
	}
	if err != nil {
		return model.Booking{}, apperr.Store("load booking", err)
	}
	return b, nil
}

// GetByReference looks a booking up by its customer-facing reference.
func (s *Service) GetByReference(ctx context.Context, businessID, reference string) (model.Booking, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if reference == "" {
		return model.Booking{}, apperr.Validation("reference is required")
	}
	b, err := s.st.GetBookingByReference(ctx, businessID, reference)
	if errors.Is(err, store.ErrNotFound) {
		return model.Booking{}, apperr.NotFound("booking not found")
	}
	if err != nil {
		return model.Booking{}, apperr.Store("load booking", err)
	}
	return b, nil
}

// ListByPhone returns the customer's confirmed bookings from today on, in
// date and start time order.
func (s *Service) ListByPhone(ctx context.Context, businessID, phone string) ([]model.Booking, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, apperr.Validation("phone is required")
	}
	biz, err := s.business(ctx, businessID)
	if err != nil {
		return nil, err
	}
	today := s.now().In(biz.Location()).Format(timeofday.DateLayout)
	out, err := s.st.ListBookings(ctx, store.BookingFilter{
		BusinessID: biz.ID,
		Phone:      phone,
		FromDate:   today,
		Status:     model.StatusConfirmed,
	})
	if err != nil {
		return nil, apperr.Store("list bookings", err)
	}
	return out, nil
}

// List returns a business's bookings, optionally for one date and status.
func (s *Service) List(ctx context.Context, businessID string, f ListFilter) ([]model.Booking, error) {
	if f.Date != "" {
		if _, err := timeofday.ParseDate(f.Date); err != nil {
			return nil, apperr.Validation("date must be YYYY-MM-DD")
		}
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("status must be confirmed, cancelled or no_show")
	}
	if _, err := s.business(ctx, businessID); err != nil {
		return nil, err
	}
	out, err := s.st.ListBookings(ctx, store.BookingFilter{BusinessID: businessID, Date: f.Date, Status: f.Status})
	if err != nil {
		return nil, apperr.Store("list bookings", err)
	}
	return out, nil
}

func (s *Service) business(ctx context.Context, id string) (model.Business, error) {
	if id == "" {
		return model.Business{}, apperr.Validation("business_id is required")
	}
	biz, err := s.st.GetBusiness(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Business{}, apperr.NotFound("business not found")
	}
	if err != nil {
		return model.Business{}, apperr.Store("load business", err)
	}
	return biz, nil
}

// release drops holds on a failure path.  The hold TTL bounds the damage
// when this fails too.
func (s *Service) release(ctx context.Context, ids []string) {
	if err := s.holds.Release(ctx, ids); err != nil {
		s.log.Warn().Err(err).Strs("hold_ids", ids).Msg("release holds failed")
	}
}

func (s *Service) failed(reason string) {
	metrics.BookingsFailed.WithLabelValues(reason).Inc()
}

func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

func assignmentsFor(bookingID string, res []model.ResourceRef) []model.BookingAssignment {
	out := make([]model.BookingAssignment, 0, len(res))
	for _, r := range res {
		out = append(out, model.BookingAssignment{
			ID:           uuid.NewString(),
			BookingID:    bookingID,
			ResourceType: r.Type,
			ResourceID:   r.ID,
		})
	}
	return out
}
