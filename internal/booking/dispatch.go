package booking

import (
	"context"

	"github.com/example/fleet-dispatch/internal/event"
	"github.com/example/fleet-dispatch/internal/faults"
	"github.com/example/fleet-dispatch/internal/geo"
	"github.com/example/fleet-dispatch/internal/models"
	"github.com/example/fleet-dispatch/internal/observability"
)

const dispatchObjectType = "booking-request"

// Dispatch broadcasts a pending booking to every active mechanic inside
// the dispatch radius, persists a notification per candidate, and arms the
// expiry countdown. Fan-out is best-effort: one unreachable mechanic does
// not stop delivery to the rest. When no candidate qualifies the driver is
// told, the booking stays pending and no timer is armed.
func (s *Service) Dispatch(ctx context.Context, bookingID, driverID string) error {
	if bookingID == "" || driverID == "" {
		err := faults.Validation("missing bookingId or driverId")
		if driverID != "" {
			s.emitFault(driverID, dispatchObjectType, err)
		}
		return err
	}

	b, err := s.Store.GetBooking(ctx, bookingID)
	if err != nil {
		s.emitFault(driverID, dispatchObjectType, err)
		return err
	}
	if b.Status != models.StatusPending {
		err := faults.Conflict("booking %s is %s, not pending", bookingID, b.Status)
		s.emitFault(driverID, dispatchObjectType, err)
		return err
	}

	driver, err := s.Store.GetUser(ctx, driverID)
	if err != nil {
		s.emitFault(driverID, dispatchObjectType, err)
		return err
	}
	if !driver.IsActive {
		err := faults.Conflict("driver %s is inactive", driverID)
		s.emitFault(driverID, dispatchObjectType, err)
		return err
	}

	mechanics, err := s.activeMechanicsNear(ctx, b.Location, s.DispatchRadius)
	if err != nil {
		s.emitFault(driverID, dispatchObjectType, err)
		return err
	}
	if len(mechanics) == 0 {
		err := &faults.NoCandidatesError{}
		s.emitFault(driverID, dispatchObjectType, err)
		return err
	}

	offer := event.Success(dispatchObjectType, "A driver has requested a booking", b)
	for i := range mechanics {
		m := &mechanics[i]
		s.Rooms.EmitTo(m.ID, EventResponse, offer)
		observability.OffersEmitted.Inc()
		s.notify(ctx, driver.ID, m.ID,
			driver.FullName()+" has requested an emergency booking",
			models.NotifyBooking, b.ID)
		s.pushTo(ctx, m, "New booking request",
			driver.FullName()+" has requested an emergency booking", b)
	}

	s.Timers.Arm(b.ID, s.RequestTimeout, func() {
		s.expireBooking(context.Background(), b.ID, driver.ID)
	})
	observability.DispatchesTotal.Inc()
	s.Log.Info("booking dispatched",
		"booking_id", b.ID, "driver_id", driver.ID, "candidates", len(mechanics))
	return nil
}

// expireBooking runs when a dispatch timer fires. The conditional delete
// is the guard: a booking that already left pending is untouched and the
// driver hears nothing.
func (s *Service) expireBooking(ctx context.Context, bookingID, driverID string) {
	deleted, err := s.Store.DeleteIfPending(ctx, bookingID)
	if err != nil {
		s.Log.Error("expiry delete failed", "booking_id", bookingID, "error", err)
		s.Rooms.EmitTo(driverID, EventError,
			event.Error(dispatchObjectType, "Timeout error: "+err.Error(), nil))
		return
	}
	if !deleted {
		return
	}
	if _, err := s.Store.DeleteQuotesForBooking(ctx, bookingID); err != nil {
		s.Log.Error("expiry quote sweep failed", "booking_id", bookingID, "error", err)
	}
	s.Geo.Remove(geo.KindBookings, bookingID)
	observability.BookingsExpired.Inc()
	s.Log.Info("booking expired", "booking_id", bookingID, "driver_id", driverID)
	s.Rooms.EmitTo(driverID, EventResponse,
		event.Failed(dispatchObjectType, "No mechanic responded. Booking expired.", nil))
}
