package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/example/fleet-dispatch/internal/faults"
	"github.com/example/fleet-dispatch/internal/models"
)

func TestMemoryOnePendingPerDriver(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	if err := m.CreateBooking(ctx, &models.Booking{ID: "b1", DriverID: "d1", Status: models.StatusPending}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := m.CreateBooking(ctx, &models.Booking{ID: "b2", DriverID: "d1", Status: models.StatusPending})
	var ce *faults.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// once the first leaves pending, a new one is allowed
	if err := m.SetStatus(ctx, "b1", models.StatusCancelled); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := m.CreateBooking(ctx, &models.Booking{ID: "b3", DriverID: "d1", Status: models.StatusPending}); err != nil {
		t.Fatalf("create after cancel: %v", err)
	}
}

func TestMemoryDeleteIfPendingGuards(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	_ = m.CreateBooking(ctx, &models.Booking{ID: "b1", DriverID: "d1", Status: models.StatusPending})

	if err := m.AcceptBooking(ctx, "b1", "m1", 2, 100); err != nil {
		t.Fatalf("accept: %v", err)
	}
	deleted, err := m.DeleteIfPending(ctx, "b1")
	if err != nil || deleted {
		t.Fatalf("accepted booking must not be deleted: deleted=%v err=%v", deleted, err)
	}
	deleted, err = m.DeleteIfPending(ctx, "missing")
	if err != nil || deleted {
		t.Fatalf("missing booking is a no-op: deleted=%v err=%v", deleted, err)
	}
}

func TestMemoryAcceptRequiresPending(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	_ = m.CreateBooking(ctx, &models.Booking{ID: "b1", DriverID: "d1", Status: models.StatusPending})
	if err := m.AcceptBooking(ctx, "b1", "m1", 2, 100); err != nil {
		t.Fatalf("accept: %v", err)
	}
	err := m.AcceptBooking(ctx, "b1", "m2", 3, 150)
	var ce *faults.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("second accept must conflict, got %v", err)
	}
	b, _ := m.GetBooking(ctx, "b1")
	if b.MechanicID != "m1" || b.TotalAmount != 100 {
		t.Fatalf("winner's terms must stick: %+v", b)
	}
}

func TestMemoryQuoteDedup(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	if err := m.CreateQuote(ctx, &models.Quote{ID: "q1", BookingID: "b1", MechanicID: "m1"}); err != nil {
		t.Fatalf("first quote: %v", err)
	}
	err := m.CreateQuote(ctx, &models.Quote{ID: "q2", BookingID: "b1", MechanicID: "m1"})
	var ce *faults.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// same mechanic, different booking is fine
	if err := m.CreateQuote(ctx, &models.Quote{ID: "q3", BookingID: "b2", MechanicID: "m1"}); err != nil {
		t.Fatalf("quote on other booking: %v", err)
	}

	n, err := m.DeleteQuotesForBooking(ctx, "b1")
	if err != nil || n != 1 {
		t.Fatalf("sweep: n=%d err=%v", n, err)
	}
	if _, err := m.GetQuote(ctx, "q3"); err != nil {
		t.Fatal("sweep must not touch other bookings' quotes")
	}
}

func TestMemoryListBookingsPagination(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"b1", "b2", "b3"} {
		_ = m.CreateBooking(ctx, &models.Booking{ID: id, DriverID: "d-" + id, Status: models.StatusPending})
	}

	page1, err := m.ListBookings(ctx, BookingFilter{Page: 1, Limit: 2})
	if err != nil || len(page1) != 2 {
		t.Fatalf("page 1: len=%d err=%v", len(page1), err)
	}
	page2, err := m.ListBookings(ctx, BookingFilter{Page: 2, Limit: 2})
	if err != nil || len(page2) != 1 {
		t.Fatalf("page 2: len=%d err=%v", len(page2), err)
	}
	page3, err := m.ListBookings(ctx, BookingFilter{Page: 3, Limit: 2})
	if err != nil || len(page3) != 0 {
		t.Fatalf("page past the end must be empty: len=%d err=%v", len(page3), err)
	}
	all, err := m.ListBookings(ctx, BookingFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("no limit means everything: len=%d err=%v", len(all), err)
	}
}

func TestMemoryNotificationsFilterAndMarkRead(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	_ = m.CreateNotification(ctx, &models.Notification{ID: "n1", ReceiverID: "d1", Message: "a"})
	_ = m.CreateNotification(ctx, &models.Notification{ID: "n2", ReceiverID: "d1", Message: "b"})
	_ = m.CreateNotification(ctx, &models.Notification{ID: "n3", ReceiverID: "other", Message: "c"})

	unread, _ := m.ListNotifications(ctx, "d1", "unread", 0, 0)
	if len(unread) != 2 {
		t.Fatalf("expected 2 unread for d1, got %d", len(unread))
	}
	if err := m.MarkRead(ctx, "n1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	unread, _ = m.ListNotifications(ctx, "d1", "unread", 0, 0)
	if len(unread) != 1 || unread[0].ID != "n2" {
		t.Fatalf("expected only n2 unread, got %+v", unread)
	}
}
