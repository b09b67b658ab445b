package storage

import (
	"context"

	"github.com/example/fleet-dispatch/internal/models"
)

// BookingFilter narrows ListBookings. Zero values mean "any".
type BookingFilter struct {
	DriverID   string
	MechanicID string
	Status     string
	Page       int
	Limit      int
}

// BookingStore defines persistence for bookings. Transition methods are
// conditional single-statement updates: the status guard runs inside the
// store so concurrent callers across processes race safely.
type BookingStore interface {
	// CreateBooking inserts a new pending booking. Fails with a conflict
	// when the driver already has a pending one.
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context, f BookingFilter) ([]models.Booking, error)
	// AcceptBooking copies the quote terms onto the booking and moves it to
	// accepted, only if it is still pending. Conflict otherwise.
	AcceptBooking(ctx context.Context, id, mechanicID string, totalTime, totalAmount float64) error
	// TransitionStatus moves id from one status to another; conflict when
	// the booking is not in the expected state.
	TransitionStatus(ctx context.Context, id, from, to string) error
	// SetStatus overwrites the status unconditionally.
	SetStatus(ctx context.Context, id, status string) error
	// DeleteIfPending removes the booking only while it is still pending
	// and reports whether a row was actually deleted.
	DeleteIfPending(ctx context.Context, id string) (bool, error)
}

// QuoteStore defines persistence for quotes. At most one quote may exist
// per (mechanic, booking) pair; CreateQuote enforces it.
type QuoteStore interface {
	CreateQuote(ctx context.Context, q *models.Quote) error
	GetQuote(ctx context.Context, id string) (*models.Quote, error)
	DeleteQuote(ctx context.Context, id string) error
	// DeleteQuotesForBooking sweeps every quote against a booking and
	// returns how many were removed.
	DeleteQuotesForBooking(ctx context.Context, bookingID string) (int, error)
	ListQuotesForBooking(ctx context.Context, bookingID string) ([]models.Quote, error)
}

// NotificationStore is the durable inbox; records are append-only except
// for the read flag.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, receiverID, status string, page, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// ChatStore is the append-only direct-message log.
type ChatStore interface {
	CreateChat(ctx context.Context, c *models.Chat) error
	// ListChatsBetween returns the conversation between two users in
	// chronological order, both directions included.
	ListChatsBetween(ctx context.Context, a, b string) ([]models.Chat, error)
}

// UserStore is read-mostly from the dispatch side; only location updates
// are written here.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUsers(ctx context.Context, ids []string) ([]models.User, error)
	ListUsersByRole(ctx context.Context, role string, activeOnly bool) ([]models.User, error)
	UpdateLocation(ctx context.Context, id string, loc models.Coord) error
}

// Store bundles the collections behind one handle.
type Store interface {
	BookingStore
	QuoteStore
	NotificationStore
	ChatStore
	UserStore
}
