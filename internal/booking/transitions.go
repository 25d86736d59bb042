package booking

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/booking-engine/internal/apperr"
	"github.com/iliyamo/booking-engine/internal/availability"
	"github.com/iliyamo/booking-engine/internal/metrics"
	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/store"
)

// Modify applies a customer patch to a confirmed booking.  A patch that
// moves the booking (date, time, party size, service or staff) is
// revalidated like a new booking, with the booking itself left out of
// occupancy, and its assignments are replaced.  A notes-only patch is
// written in place.
func (s *Service) Modify(ctx context.Context, businessID, bookingID string, req ModifyRequest) (model.Booking, error) {
	cur, err := s.Get(ctx, businessID, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if !cur.IsConfirmed() {
		return model.Booking{}, apperr.InvalidState("only confirmed bookings can be modified")
	}
	biz, err := s.business(ctx, cur.BusinessID)
	if err != nil {
		return model.Booking{}, err
	}

	next := cur
	next.Assignments = nil
	if req.Notes != nil && biz.NotesEnabled {
		if notes := strings.TrimSpace(*req.Notes); notes != "" {
			next.Notes = &notes
		} else {
			next.Notes = nil
		}
	}

	if !req.touchesSlot() {
		if req.Notes == nil {
			return model.Booking{}, apperr.Validation("nothing to update")
		}
		next.UpdatedAt = s.stamp()
		if err := s.st.InTx(ctx, func(tx store.Tx) error { return tx.UpdateBooking(ctx, next, cur.Status) }); err != nil {
			return model.Booking{}, writeError("update booking", err)
		}
		next.Assignments = cur.Assignments
		metrics.BookingTransitions.WithLabelValues("modify").Inc()
		return next, nil
	}

	if req.Date != nil {
		next.BookingDate = *req.Date
	}
	if req.StartTime != nil {
		next.StartTime = *req.StartTime
	}
	if req.PartySize != nil {
		next.PartySize = req.PartySize
	}
	if req.ServiceID != nil {
		next.ServiceID = req.ServiceID
	}
	next.EndTime = ""
	if err := next.Validate(biz.Type); err != nil {
		return model.Booking{}, err
	}
	if err := s.checkRequest(ctx, biz, next); err != nil {
		return model.Booking{}, err
	}

	areq := availability.Request{BusinessID: biz.ID, Date: next.BookingDate, ExcludeBookingID: cur.ID}
	if next.PartySize != nil {
		areq.PartySize = *next.PartySize
	}
	if next.ServiceID != nil {
		areq.ServiceID = *next.ServiceID
	}
	if req.StaffID != nil {
		areq.StaffID = *req.StaffID
	}

	slot, holdIDs, err := s.claim(ctx, biz, areq, next.StartTime)
	if err != nil {
		return model.Booking{}, err
	}

	next.EndTime = slot.EndTime
	next.UpdatedAt = s.stamp()
	next.Assignments = assignmentsFor(next.ID, slot.Resources)
	err = s.st.InTx(ctx, func(tx store.Tx) error {
		if err := tx.UpdateBooking(ctx, next, cur.Status); err != nil {
			return err
		}
		if err := tx.DeleteAssignments(ctx, next.ID); err != nil {
			return err
		}
		if err := tx.InsertAssignments(ctx, next.Assignments); err != nil {
			return err
		}
		return tx.DeleteHolds(ctx, holdIDs)
	})
	if err != nil {
		s.release(ctx, holdIDs)
		return model.Booking{}, writeError("modify booking", err)
	}

	metrics.BookingTransitions.WithLabelValues("modify").Inc()
	s.log.Info().Str("business_id", biz.ID).Str("booking_id", next.ID).Str("date", next.BookingDate).Str("start_time", next.StartTime).Msg("booking modified")
	if biz.SMSEnabled {
		s.notifier.BookingModified(ctx, next, biz)
	}
	return next, nil
}

// Cancel moves a confirmed booking to cancelled.  Cancelling twice fails
// with InvalidState and leaves the booking as it was.
func (s *Service) Cancel(ctx context.Context, businessID, bookingID string) (model.Booking, error) {
	cur, err := s.Get(ctx, businessID, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if !cur.IsConfirmed() {
		return model.Booking{}, apperr.InvalidState("booking is already " + string(cur.Status))
	}
	biz, err := s.business(ctx, cur.BusinessID)
	if err != nil {
		return model.Booking{}, err
	}

	next, err := s.setStatus(ctx, cur, model.StatusCancelled)
	if err != nil {
		return model.Booking{}, err
	}
	metrics.BookingTransitions.WithLabelValues("cancel").Inc()
	s.log.Info().Str("business_id", biz.ID).Str("booking_id", next.ID).Msg("booking cancelled")
	if biz.SMSEnabled {
		s.notifier.BookingCancelled(ctx, next, biz)
	}
	return next, nil
}

// MarkNoShow sets a booking to no_show whatever its current status.  A
// booking that was not confirmed is logged, not refused.
func (s *Service) MarkNoShow(ctx context.Context, businessID, bookingID string) (model.Booking, error) {
	cur, err := s.Get(ctx, businessID, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if !cur.IsConfirmed() {
		s.log.Warn().Str("booking_id", cur.ID).Str("status", string(cur.Status)).Msg("marking non-confirmed booking as no-show")
	}
	next, err := s.setStatus(ctx, cur, model.StatusNoShow)
	if err != nil {
		return model.Booking{}, err
	}
	metrics.BookingTransitions.WithLabelValues("no_show").Inc()
	return next, nil
}

// Reassign points one of a confirmed booking's assignments at another
// resource.  The new resource is not checked for conflicts.
func (s *Service) Reassign(ctx context.Context, businessID, bookingID string, req ReassignRequest) (model.Booking, error) {
	if strings.TrimSpace(req.ResourceID) == "" {
		return model.Booking{}, apperr.Validation("resource_id is required")
	}
	cur, err := s.Get(ctx, businessID, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if !cur.IsConfirmed() {
		return model.Booking{}, apperr.InvalidState("only confirmed bookings can be reassigned")
	}
	rt := req.ResourceType
	if rt == "" {
		biz, err := s.business(ctx, cur.BusinessID)
		if err != nil {
			return model.Booking{}, err
		}
		rt = model.ResourceTable
		if biz.Type == model.BusinessSpa {
			rt = model.ResourceStaff
		}
	}
	if !rt.Valid() {
		return model.Booking{}, apperr.Validation("resource_type must be table, staff or room")
	}

	now := s.stamp()
	next := cur
	next.UpdatedAt = now
	next.Assignments = nil
	err = s.st.InTx(ctx, func(tx store.Tx) error {
		if err := tx.UpdateBooking(ctx, next, cur.Status); err != nil {
			return err
		}
		return tx.UpdateAssignmentResource(ctx, cur.ID, rt, req.ResourceID)
	})
	if errors.Is(err, store.ErrConflict) {
		return model.Booking{}, writeError("reassign booking", err)
	}
	if errors.Is(err, store.ErrNotFound) {
		return model.Booking{}, apperr.NotFound("booking has no " + string(rt) + " assignment")
	}
	if err != nil {
		return model.Booking{}, apperr.Store("reassign booking", err)
	}

	metrics.BookingTransitions.WithLabelValues("reassign").Inc()
	s.log.Info().Str("booking_id", cur.ID).Str("resource_type", string(rt)).Str("resource_id", req.ResourceID).Msg("booking reassigned")
	return s.Get(ctx, "", cur.ID)
}

func (s *Service) setStatus(ctx context.Context, cur model.Booking, status model.BookingStatus) (model.Booking, error) {
	next := cur
	next.Status = status
	next.UpdatedAt = s.stamp()
	next.Assignments = nil
	if err := s.st.InTx(ctx, func(tx store.Tx) error { return tx.UpdateBooking(ctx, next, cur.Status) }); err != nil {
		return model.Booking{}, writeError("update booking", err)
	}
	next.Assignments = cur.Assignments
	return next, nil
}

// writeError maps a failed booking write.  ErrConflict means another
// request changed the booking's status after it was read.
func writeError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return apperr.InvalidState("booking was changed by another request")
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("booking not found")
	default:
		return apperr.Store(op, err)
	}
}
