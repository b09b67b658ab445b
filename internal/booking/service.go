package booking

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/example/fleet-dispatch/internal/event"
	"github.com/example/fleet-dispatch/internal/faults"
	"github.com/example/fleet-dispatch/internal/geo"
	"github.com/example/fleet-dispatch/internal/models"
	"github.com/example/fleet-dispatch/internal/observability"
	"github.com/example/fleet-dispatch/internal/storage"
	"github.com/example/fleet-dispatch/internal/timers"
)

// Outbound socket event names.
const (
	EventResponse = "response"
	EventError    = "error"
)

// Emitter is the slice of the room directory the service needs.
type Emitter interface {
	EmitTo(userID, eventName string, payload any) int
}

// Pusher delivers a device push; best-effort, failures are logged only.
type Pusher interface {
	Send(ctx context.Context, deviceToken, title, body string, data any) error
}

// Payments is the external payment collaborator: hold funds, then capture.
type Payments interface {
	Hold(ctx context.Context, amount int64, currency, customerID string) (string, error)
	Capture(ctx context.Context, paymentIntentID string) error
}

// LocationPublisher feeds mechanic position updates into the ingest
// pipeline.
type LocationPublisher interface {
	PublishLocation(u models.LocationUpdate) error
}

// Service owns the booking lifecycle: creation, dispatch fan-out, expiry,
// quote negotiation and job progression. All cross-process races are
// settled by the store's conditional updates; the service re-validates but
// never trusts a read to still hold by write time.
type Service struct {
	Store  storage.Store
	Rooms  Emitter
	Geo    geo.Index
	Timers *timers.Registry
	Push   Pusher            // optional
	Pay    Payments          // optional
	Loc    LocationPublisher // optional
	Log    *slog.Logger

	DispatchRadius float64 // meters
	RequestTimeout time.Duration
	MaxDistance    float64 // meters, for nearby queries
	Currency       string
}

// CreateBooking persists a new pending booking for the driver. At most one
// pending booking may exist per driver; the store enforces it atomically.
func (s *Service) CreateBooking(ctx context.Context, driverID string, in *models.CreateBookingInput) (*models.Booking, error) {
	if driverID == "" {
		return nil, faults.Validation("missing driver id")
	}
	if in == nil || in.Empty() {
		return nil, faults.Validation("no valid fields provided to create")
	}
	b := &models.Booking{
		ID:               uuid.NewString(),
		DriverID:         driverID,
		VehiclePlate:     in.VehiclePlate,
		IssueImages:      in.IssueImages,
		IssueDescription: in.IssueDescription,
		ProductsRequired: in.ProductsRequired,
		Status:           models.StatusPending,
	}
	if in.Location != nil {
		b.Location = *in.Location
	}
	if err := s.Store.CreateBooking(ctx, b); err != nil {
		return nil, err
	}
	s.Geo.Upsert(geo.KindBookings, b.ID, b.Location)
	observability.BookingsCreated.Inc()
	s.Log.Info("booking created", "booking_id", b.ID, "driver_id", driverID)
	return b, nil
}

func (s *Service) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.Store.GetBooking(ctx, id)
}

// ListBookingsFor scopes the listing to what the caller may see: drivers
// see their own requests, mechanics and shop owners see jobs assigned to
// them, fleet managers and admins see everything.
func (s *Service) ListBookingsFor(ctx context.Context, user *models.User, status string, page, limit int) ([]models.Booking, error) {
	f := storage.BookingFilter{Status: status, Page: page, Limit: limit}
	switch user.Role {
	case models.RoleDriver:
		f.DriverID = user.ID
	case models.RoleMechanic, models.RoleShopOwner:
		f.MechanicID = user.ID
	}
	return s.Store.ListBookings(ctx, f)
}

// CancelBooking moves a booking to cancelled from any state and disarms
// its expiry timer so a stale countdown can never delete it afterwards.
func (s *Service) CancelBooking(ctx context.Context, id string) (*models.Booking, error) {
	if _, err := s.Store.GetBooking(ctx, id); err != nil {
		return nil, err
	}
	if err := s.Store.SetStatus(ctx, id, models.StatusCancelled); err != nil {
		return nil, err
	}
	s.Timers.Cancel(id)
	s.Geo.Remove(geo.KindBookings, id)
	s.Log.Info("booking cancelled", "booking_id", id)
	return s.Store.GetBooking(ctx, id)
}

// Job progression. Completion also settles payment with the external
// provider, best-effort.
var jobTransitions = map[string][]string{
	models.StatusArriving:  {models.StatusAccepted},
	models.StatusOngoing:   {models.StatusAccepted, models.StatusArriving},
	models.StatusCompleted: {models.StatusOngoing},
}

// UpdateJobStatus advances an accepted job along
// accepted -> arriving/ongoing -> completed.
func (s *Service) UpdateJobStatus(ctx context.Context, id, to string) (*models.Booking, error) {
	froms, ok := jobTransitions[to]
	if !ok {
		return nil, faults.Validation("unsupported job status %q", to)
	}
	var err error
	for _, from := range froms {
		if err = s.Store.TransitionStatus(ctx, id, from, to); err == nil {
			break
		}
		var nf *faults.NotFoundError
		if errors.As(err, &nf) {
			return nil, err
		}
	}
	if err != nil {
		// report the booking's actual state, not the last guard we tried
		var ce *faults.ConflictError
		if errors.As(err, &ce) {
			b, gerr := s.Store.GetBooking(ctx, id)
			if gerr != nil {
				return nil, gerr
			}
			return nil, faults.Conflict("booking %s is %s, cannot move to %s", id, b.Status, to)
		}
		return nil, err
	}
	b, err := s.Store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if to == models.StatusCompleted {
		s.settlePayment(ctx, b)
		s.notify(ctx, b.MechanicID, b.DriverID, "Your job has been completed", models.NotifyBooking, b.ID)
		s.Rooms.EmitTo(b.DriverID, EventResponse,
			event.Success("job-status", "Your job has been completed", b))
	}
	return b, nil
}

func (s *Service) settlePayment(ctx context.Context, b *models.Booking) {
	if s.Pay == nil || b.TotalAmount <= 0 {
		return
	}
	cents := int64(math.Round(b.TotalAmount * 100))
	id, err := s.Pay.Hold(ctx, cents, s.currency(), b.DriverID)
	if err != nil {
		s.Log.Error("payment hold failed", "booking_id", b.ID, "error", err)
		return
	}
	if err := s.Pay.Capture(ctx, id); err != nil {
		s.Log.Error("payment capture failed", "booking_id", b.ID, "payment_intent", id, "error", err)
	}
}

func (s *Service) currency() string {
	if s.Currency == "" {
		return "usd"
	}
	return s.Currency
}

// UpdateMechanicLocation writes the mechanic's position to the store, the
// geo index, and the ingest pipeline when one is wired.
func (s *Service) UpdateMechanicLocation(ctx context.Context, userID string, loc models.Coord) error {
	const objectType = "update-mechanic-current-location"
	u, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		s.emitFault(userID, objectType, err)
		return err
	}
	if err := s.Store.UpdateLocation(ctx, userID, loc); err != nil {
		s.emitFault(userID, objectType, err)
		return err
	}
	s.Geo.Upsert(geo.KindMechanics, userID, loc)
	if s.Loc != nil {
		update := models.LocationUpdate{UserID: userID, Loc: loc, Rate: u.HourlyRate, Online: u.IsActive}
		if err := s.Loc.PublishLocation(update); err != nil {
			s.Log.Warn("location publish failed", "user_id", userID, "error", err)
		}
	}
	s.Rooms.EmitTo(userID, EventResponse,
		event.Success(objectType, "Mechanic's location updated", loc))
	return nil
}

// NearbyMechanics answers the driver-side "who is around me" query.
func (s *Service) NearbyMechanics(ctx context.Context, userID string, at models.Coord) ([]models.User, error) {
	const objectType = "nearby-mechanics"
	mechanics, err := s.activeMechanicsNear(ctx, at, s.MaxDistance)
	if err != nil {
		s.emitFault(userID, objectType, err)
		return nil, err
	}
	msg := "Nearby mechanics"
	if len(mechanics) == 0 {
		msg = "No nearby mechanics yet"
	}
	s.Rooms.EmitTo(userID, EventResponse, event.Success(objectType, msg, mechanics))
	return mechanics, nil
}

// ServiceRequests answers the mechanic-side "open requests around me"
// query with pending bookings inside the configured max distance.
func (s *Service) ServiceRequests(ctx context.Context, userID string, at models.Coord) ([]models.Booking, error) {
	const objectType = "service-requests"
	cands := s.Geo.Nearby(geo.KindBookings, at, s.MaxDistance, 0)
	out := make([]models.Booking, 0, len(cands))
	for _, c := range cands {
		b, err := s.Store.GetBooking(ctx, c.ID)
		if err != nil {
			var nf *faults.NotFoundError
			if errors.As(err, &nf) {
				s.Geo.Remove(geo.KindBookings, c.ID)
				continue
			}
			s.emitFault(userID, objectType, err)
			return nil, err
		}
		if b.Status == models.StatusPending {
			out = append(out, *b)
		}
	}
	s.Rooms.EmitTo(userID, EventResponse, event.Success(objectType, "Service requests", out))
	return out, nil
}

// activeMechanicsNear intersects the geo index with the user store,
// keeping active mechanics ordered nearest-first.
func (s *Service) activeMechanicsNear(ctx context.Context, at models.Coord, radius float64) ([]models.User, error) {
	cands := s.Geo.Nearby(geo.KindMechanics, at, radius, 0)
	if len(cands) == 0 {
		return []models.User{}, nil
	}
	ids := make([]string, 0, len(cands))
	for _, c := range cands {
		ids = append(ids, c.ID)
	}
	users, err := s.Store.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]models.User, 0, len(cands))
	for _, c := range cands {
		u, ok := byID[c.ID]
		if !ok || u.Role != models.RoleMechanic || !u.IsActive {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *Service) notify(ctx context.Context, senderID, receiverID, message, subjectType, modelID string) {
	n := &models.Notification{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Message:    message,
		Type:       subjectType,
		ModelID:    modelID,
	}
	if err := s.Store.CreateNotification(ctx, n); err != nil {
		s.Log.Error("notification create failed", "receiver_id", receiverID, "error", err)
	}
}

func (s *Service) pushTo(ctx context.Context, u *models.User, title, body string, data any) {
	if s.Push == nil || u.DeviceToken == "" {
		return
	}
	if err := s.Push.Send(ctx, u.DeviceToken, title, body, data); err != nil {
		s.Log.Warn("push send failed", "user_id", u.ID, "error", err)
	}
}

// emitFault maps a domain error to the wire envelope and pushes it to the
// originating user's room. Guard violations and missing records go out as
// failed responses; anything else is an error event.
func (s *Service) emitFault(userID, objectType string, err error) {
	var (
		ve *faults.ValidationError
		nf *faults.NotFoundError
		ce *faults.ConflictError
		nc *faults.NoCandidatesError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &nf), errors.As(err, &ce), errors.As(err, &nc):
		s.Rooms.EmitTo(userID, EventResponse, event.Failed(objectType, err.Error(), nil))
	default:
		s.Rooms.EmitTo(userID, EventError, event.Error(objectType, err.Error(), nil))
	}
}
