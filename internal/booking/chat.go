package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/example/fleet-dispatch/internal/event"
	"github.com/example/fleet-dispatch/internal/faults"
	"github.com/example/fleet-dispatch/internal/models"
)

// SendChat persists a direct message, notifies the receiver, and delivers
// the message to both ends of the conversation.
func (s *Service) SendChat(ctx context.Context, senderID, receiverID, text string) (*models.Chat, error) {
	const objectType = "new-chat"

	fail := func(err error) (*models.Chat, error) {
		s.emitFault(senderID, objectType, err)
		return nil, err
	}

	if senderID == "" || receiverID == "" {
		return fail(faults.Validation("missing senderId or receiverId"))
	}
	if text == "" {
		return fail(faults.Validation("message text is empty"))
	}

	sender, err := s.Store.GetUser(ctx, senderID)
	if err != nil {
		return fail(err)
	}
	receiver, err := s.Store.GetUser(ctx, receiverID)
	if err != nil {
		return fail(err)
	}

	c := &models.Chat{
		ID:         uuid.NewString(),
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Text:       text,
	}
	if err := s.Store.CreateChat(ctx, c); err != nil {
		return fail(err)
	}

	s.notify(ctx, sender.ID, receiver.ID, sender.FullName()+" has sent you a message", models.NotifyChat, c.ID)
	s.pushTo(ctx, receiver, "New Message", sender.FullName()+" has sent you a message", c)
	msg := event.Success(objectType, "New chat created successfully", c)
	s.Rooms.EmitTo(receiver.ID, EventResponse, msg)
	s.Rooms.EmitTo(sender.ID, EventResponse, msg)
	s.Log.Info("chat sent", "chat_id", c.ID, "sender_id", sender.ID, "receiver_id", receiver.ID)
	return c, nil
}

// ListChats returns the conversation between the caller and the other user
// and replays it to the caller's room.
func (s *Service) ListChats(ctx context.Context, userID, otherID string) ([]models.Chat, error) {
	const objectType = "chats"

	fail := func(err error) ([]models.Chat, error) {
		s.emitFault(userID, objectType, err)
		return nil, err
	}

	if userID == "" || otherID == "" {
		return fail(faults.Validation("missing senderId or receiverId"))
	}
	if _, err := s.Store.GetUser(ctx, userID); err != nil {
		return fail(err)
	}
	if _, err := s.Store.GetUser(ctx, otherID); err != nil {
		return fail(err)
	}

	chats, err := s.Store.ListChatsBetween(ctx, userID, otherID)
	if err != nil {
		return fail(err)
	}
	s.Rooms.EmitTo(userID, EventResponse, event.Success(objectType, "Messages", chats))
	return chats, nil
}

// TrackMechanic tells the driver where the mechanic assigned to their
// booking currently is.
func (s *Service) TrackMechanic(ctx context.Context, driverID, bookingID string) (*models.Coord, error) {
	const objectType = "track-mechanic"

	fail := func(err error) (*models.Coord, error) {
		s.emitFault(driverID, objectType, err)
		return nil, err
	}

	if driverID == "" || bookingID == "" {
		return fail(faults.Validation("missing driverId or bookingId"))
	}
	b, err := s.Store.GetBooking(ctx, bookingID)
	if err != nil {
		return fail(err)
	}
	if b.DriverID != driverID {
		return fail(faults.Conflict("booking %s does not belong to driver %s", b.ID, driverID))
	}
	if b.MechanicID == "" {
		return fail(faults.Conflict("booking %s has no mechanic assigned yet", b.ID))
	}
	mechanic, err := s.Store.GetUser(ctx, b.MechanicID)
	if err != nil {
		return fail(err)
	}

	loc := mechanic.Location
	s.Rooms.EmitTo(driverID, EventResponse, event.Success(objectType, "Mechanic's location", loc))
	return &loc, nil
}
