package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/example/fleet-dispatch/internal/booking"
	"github.com/example/fleet-dispatch/internal/event"
	"github.com/example/fleet-dispatch/internal/models"
	"github.com/example/fleet-dispatch/internal/observability"
	"github.com/example/fleet-dispatch/internal/rooms"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundFrame mirrors the client's socket protocol: an event name plus an
// event-specific payload.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		s.logger.Warn("ws upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	sess := rooms.NewSession(conn)
	observability.WSConnections.Inc()
	s.logger.Info("socket connected", "remote_addr", r.RemoteAddr)

	defer func() {
		s.Rooms.Leave(sess)
		observability.WSConnections.Dec()
		_ = conn.Close()
	}()

	for {
		var f inboundFrame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		s.dispatchFrame(r, sess, f)
	}
}

// dispatchFrame runs one inbound event to completion. Events on a single
// connection are handled sequentially; the service's store-level guards
// cover races between connections.
func (s *Server) dispatchFrame(r *http.Request, sess *rooms.Session, f inboundFrame) {
	ctx := r.Context()
	switch f.Event {
	case "join-room":
		var p struct {
			UserID string `json:"userId"`
		}
		if err := json.Unmarshal(f.Data, &p); err != nil || p.UserID == "" {
			s.emitDirect(sess, booking.EventError, event.Error(f.Event, "missing userId", nil))
			return
		}
		s.Rooms.Join(sess, p.UserID)
		s.Rooms.EmitTo(p.UserID, booking.EventResponse,
			event.Success(f.Event, "Hello! I am in", p.UserID))

	case "send-booking-request-to-mechanics":
		var p struct {
			BookingID string `json:"bookingId"`
			DriverID  string `json:"driverId"`
		}
		if err := json.Unmarshal(f.Data, &p); err != nil {
			s.emitDirect(sess, booking.EventError, event.Error(f.Event, "malformed payload", nil))
			return
		}
		// The caller hears replies on its own room even before an explicit
		// join-room, matching the client protocol.
		s.Rooms.Join(sess, p.DriverID)
		_ = s.Booking.Dispatch(ctx, p.BookingID, p.DriverID)

	case "send-quote-to-driver":
		var p struct {
			BookingID      string  `json:"bookingId"`
			MechanicID     string  `json:"mechanicId"`
			EstimatedHours float64 `json:"estimatedTimeInHours"`
		}
		if err := json.Unmarshal(f.Data, &p); err != nil {
			s.emitDirect(sess, booking.EventError, event.Error(f.Event, "malformed payload", nil))
			return
		}
		s.Rooms.Join(sess, p.MechanicID)
		_, _ = s.Booking.SubmitQuote(ctx, p.BookingID, p.MechanicID, p.EstimatedHours)

	case "accept-mechanic-quote":
		var p struct {
			QuoteID  string `json:"quoteId"`
			DriverID string `json:"driverId"`
		}
		if err := json.Unmarshal(f.Data, &p); err != nil {
			s.emitDirect(sess, booking.EventError, event.Error(f.Event, "malformed payload", nil))
			return
		}
		s.Rooms.Join(sess, p.DriverID)
		_ = s.Booking.AcceptQuote(ctx, p.QuoteID, p.DriverID)

	case "reject-mechanic-quote":
		var p struct {
			QuoteID  string `json:"quoteId"`
			DriverID string `json:"driverId"`
		}
		if err := json.Unmarshal(f.Data, &p); err != nil {
			s.emitDirect(sess, booking.EventError, event.Error(f.Event, "malformed payload", nil))
			return
		}
		s.Rooms.Join(sess, p.DriverID)
		_ = s.Booking.RejectQuote(ctx, p.QuoteID, p.DriverID)

	case "new-chat":
		var p struct {
			SenderID   string `json:"senderId"`
			ReceiverID string `json:"receiverId"`
			Text       string `json:"text"`
		}
		if err := json.Unmarshal(f.Data, &p); err != nil {
			s.emitDirect(sess, booking.EventError, event.Error(f.Event, "malformed payload", nil))
			return
		}
		s.Rooms.Join(sess, p.SenderID)
		_, _ = s.Booking.SendChat(ctx, p.SenderID, p.ReceiverID, p.Text)

	case "get-chats":
		var p struct {
			SenderID   string `json:"senderId"`
			ReceiverID string `json:"receiverId"`
		}
		if err := json.Unmarshal(f.Data, &p); err != nil {
			s.emitDirect(sess, booking.EventError, event.Error(f.Event, "malformed payload", nil))
			return
		}
		s.Rooms.Join(sess, p.SenderID)
		_, _ = s.Booking.ListChats(ctx, p.SenderID, p.ReceiverID)

	case "track-mechanic":
		var p struct {
			DriverID  string `json:"driverId"`
			BookingID string `json:"bookingId"`
		}
		if err := json.Unmarshal(f.Data, &p); err != nil {
			s.emitDirect(sess, booking.EventError, event.Error(f.Event, "malformed payload", nil))
			return
		}
		s.Rooms.Join(sess, p.DriverID)
		_, _ = s.Booking.TrackMechanic(ctx, p.DriverID, p.BookingID)

	case "update-mechanic-current-location":
		var p struct {
			UserID   string       `json:"userId"`
			Location models.Coord `json:"mechanicCurrentLocation"`
		}
		if err := json.Unmarshal(f.Data, &p); err != nil {
			s.emitDirect(sess, booking.EventError, event.Error(f.Event, "malformed payload", nil))
			return
		}
		s.Rooms.Join(sess, p.UserID)
		_ = s.Booking.UpdateMechanicLocation(ctx, p.UserID, p.Location)

	case "nearby-mechanics":
		var p struct {
			UserID   string       `json:"userId"`
			Location models.Coord `json:"currentLocation"`
		}
		if err := json.Unmarshal(f.Data, &p); err != nil {
			s.emitDirect(sess, booking.EventError, event.Error(f.Event, "malformed payload", nil))
			return
		}
		s.Rooms.Join(sess, p.UserID)
		_, _ = s.Booking.NearbyMechanics(ctx, p.UserID, p.Location)

	case "service-requests":
		var p struct {
			UserID   string       `json:"userId"`
			Location models.Coord `json:"currentLocation"`
		}
		if err := json.Unmarshal(f.Data, &p); err != nil {
			s.emitDirect(sess, booking.EventError, event.Error(f.Event, "malformed payload", nil))
			return
		}
		s.Rooms.Join(sess, p.UserID)
		_, _ = s.Booking.ServiceRequests(ctx, p.UserID, p.Location)

	default:
		s.emitDirect(sess, booking.EventError, event.Error(f.Event, "unknown event", nil))
	}
}

// emitDirect answers on the session itself, for faults that happen before
// any room membership exists.
func (s *Server) emitDirect(sess *rooms.Session, eventName string, payload any) {
	if err := sess.Emit(eventName, payload); err != nil {
		s.logger.Warn("direct emit failed", "error", err)
	}
}
