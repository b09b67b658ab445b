package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/example/fleet-dispatch/internal/event"
	"github.com/example/fleet-dispatch/internal/faults"
	"github.com/example/fleet-dispatch/internal/geo"
	"github.com/example/fleet-dispatch/internal/models"
	"github.com/example/fleet-dispatch/internal/observability"
)

// SubmitQuote records a mechanic's offer against a pending booking and
// forwards it to the driver. A mechanic may hold at most one outstanding
// quote per booking; the store rejects duplicates atomically.
// totalAmount = estimatedHours x the mechanic's hourly rate.
func (s *Service) SubmitQuote(ctx context.Context, bookingID, mechanicID string, estimatedHours float64) (*models.Quote, error) {
	const objectType = "send-quote-to-driver"

	fail := func(err error) (*models.Quote, error) {
		s.emitFault(mechanicID, objectType, err)
		return nil, err
	}

	if bookingID == "" || mechanicID == "" {
		return fail(faults.Validation("missing bookingId or mechanicId"))
	}
	if estimatedHours <= 0 {
		return fail(faults.Validation("estimated time must be positive"))
	}

	b, err := s.Store.GetBooking(ctx, bookingID)
	if err != nil {
		return fail(err)
	}
	if b.Status != models.StatusPending {
		return fail(faults.Conflict("booking %s is %s, not pending", bookingID, b.Status))
	}

	mechanic, err := s.Store.GetUser(ctx, mechanicID)
	if err != nil {
		return fail(err)
	}
	if mechanic.Role != models.RoleMechanic || !mechanic.IsActive {
		return fail(faults.Conflict("mechanic %s is not an active mechanic", mechanicID))
	}

	driver, err := s.Store.GetUser(ctx, b.DriverID)
	if err != nil {
		return fail(err)
	}
	if !driver.IsActive {
		return fail(faults.Conflict("driver %s is inactive", driver.ID))
	}

	q := &models.Quote{
		ID:          uuid.NewString(),
		BookingID:   b.ID,
		MechanicID:  mechanic.ID,
		TotalTime:   estimatedHours,
		TotalAmount: estimatedHours * mechanic.HourlyRate,
	}
	if err := s.Store.CreateQuote(ctx, q); err != nil {
		return fail(err)
	}

	s.notify(ctx, mechanic.ID, driver.ID, mechanic.FullName()+" has sent a quote", models.NotifyQuote, q.ID)
	s.pushTo(ctx, driver, "New notification", mechanic.FullName()+" has sent a quote", q)
	s.Rooms.EmitTo(driver.ID, EventResponse,
		event.Success(objectType, "Quote sent to driver", q))
	observability.QuotesSubmitted.Inc()
	s.Log.Info("quote submitted", "quote_id", q.ID, "booking_id", b.ID, "mechanic_id", mechanic.ID)
	return q, nil
}

// AcceptQuote copies the quote terms onto the booking, moves it to
// accepted, sweeps every quote on that booking (the winner included), and
// disarms the expiry timer. The accept itself is a conditional update, so
// of two racing accepts exactly one wins and the loser sees a conflict.
func (s *Service) AcceptQuote(ctx context.Context, quoteID, driverID string) error {
	const objectType = "accept-mechanic-quote"

	fail := func(err error) error {
		s.emitFault(driverID, objectType, err)
		return err
	}

	q, err := s.Store.GetQuote(ctx, quoteID)
	if err != nil {
		return fail(err)
	}
	b, err := s.Store.GetBooking(ctx, q.BookingID)
	if err != nil {
		return fail(err)
	}
	if b.DriverID != driverID {
		return fail(faults.Conflict("booking %s does not belong to driver %s", b.ID, driverID))
	}
	driver, err := s.Store.GetUser(ctx, driverID)
	if err != nil {
		return fail(err)
	}
	if !driver.IsActive {
		return fail(faults.Conflict("driver %s is inactive", driverID))
	}
	mechanic, err := s.Store.GetUser(ctx, q.MechanicID)
	if err != nil {
		return fail(err)
	}
	if !mechanic.IsActive {
		return fail(faults.Conflict("mechanic %s is inactive", mechanic.ID))
	}

	if err := s.Store.AcceptBooking(ctx, b.ID, q.MechanicID, q.TotalTime, q.TotalAmount); err != nil {
		return fail(err)
	}
	s.Timers.Cancel(b.ID)
	s.Geo.Remove(geo.KindBookings, b.ID)
	if _, err := s.Store.DeleteQuotesForBooking(ctx, b.ID); err != nil {
		s.Log.Error("quote sweep failed", "booking_id", b.ID, "error", err)
	}

	s.Rooms.EmitTo(driver.ID, EventResponse,
		event.Success(objectType, "Quote accepted", nil))
	s.Rooms.EmitTo(mechanic.ID, EventResponse,
		event.Success(objectType, "The driver has accepted your quote", nil))
	observability.QuotesAccepted.Inc()
	s.Log.Info("quote accepted", "quote_id", q.ID, "booking_id", b.ID, "mechanic_id", mechanic.ID)
	return nil
}

// RejectQuote discards only the targeted quote. The booking stays pending
// and its expiry timer keeps running, so other quotes remain live and the
// booking may still lapse unanswered.
func (s *Service) RejectQuote(ctx context.Context, quoteID, driverID string) error {
	const objectType = "reject-mechanic-quote"

	fail := func(err error) error {
		s.emitFault(driverID, objectType, err)
		return err
	}

	q, err := s.Store.GetQuote(ctx, quoteID)
	if err != nil {
		return fail(err)
	}
	b, err := s.Store.GetBooking(ctx, q.BookingID)
	if err != nil {
		return fail(err)
	}
	if b.Status != models.StatusPending {
		return fail(faults.Conflict("booking %s is %s, not pending", b.ID, b.Status))
	}
	if b.DriverID != driverID {
		return fail(faults.Conflict("booking %s does not belong to driver %s", b.ID, driverID))
	}
	if _, err := s.Store.GetUser(ctx, q.MechanicID); err != nil {
		return fail(err)
	}

	if err := s.Store.DeleteQuote(ctx, q.ID); err != nil {
		return fail(err)
	}
	s.Rooms.EmitTo(driverID, EventResponse,
		event.Success(objectType, "Quote rejected", nil))
	observability.QuotesRejected.Inc()
	s.Log.Info("quote rejected", "quote_id", q.ID, "booking_id", b.ID)
	return nil
}
