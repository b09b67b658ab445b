package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/fleet-dispatch/internal/faults"
	"github.com/example/fleet-dispatch/internal/models"
)

// MemoryStore keeps everything in maps under one mutex. It mirrors the
// postgres store's conditional-update semantics exactly, which is what the
// protocol tests lean on.
type MemoryStore struct {
	mu            sync.Mutex
	bookings      map[string]*models.Booking
	quotes        map[string]*models.Quote
	notifications map[string]*models.Notification
	chats         []models.Chat
	users         map[string]*models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings:      make(map[string]*models.Booking),
		quotes:        make(map[string]*models.Quote),
		notifications: make(map[string]*models.Notification),
		users:         make(map[string]*models.User),
	}
}

func (m *MemoryStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bookings {
		if existing.DriverID == b.DriverID && existing.Status == models.StatusPending {
			return faults.Conflict("you already have a pending booking")
		}
	}
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *MemoryStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, faults.NotFound("booking", id)
	}
	cp := *b
	return &cp, nil
}

func (m *MemoryStore) ListBookings(ctx context.Context, f BookingFilter) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Booking, 0)
	for _, b := range m.bookings {
		if f.DriverID != "" && b.DriverID != f.DriverID {
			continue
		}
		if f.MechanicID != "" && b.MechanicID != f.MechanicID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, f.Page, f.Limit), nil
}

func (m *MemoryStore) AcceptBooking(ctx context.Context, id, mechanicID string, totalTime, totalAmount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return faults.NotFound("booking", id)
	}
	if b.Status != models.StatusPending {
		return faults.Conflict("booking %s is %s, not pending", id, b.Status)
	}
	b.MechanicID = mechanicID
	b.TotalTime = totalTime
	b.TotalAmount = totalAmount
	b.Status = models.StatusAccepted
	b.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) TransitionStatus(ctx context.Context, id, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return faults.NotFound("booking", id)
	}
	if b.Status != from {
		return faults.Conflict("booking %s is %s, not %s", id, b.Status, from)
	}
	b.Status = to
	b.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) SetStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return faults.NotFound("booking", id)
	}
	b.Status = status
	b.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) DeleteIfPending(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != models.StatusPending {
		return false, nil
	}
	delete(m.bookings, id)
	return true, nil
}

func (m *MemoryStore) CreateQuote(ctx context.Context, q *models.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.quotes {
		if existing.MechanicID == q.MechanicID && existing.BookingID == q.BookingID {
			return faults.Conflict("you have already sent a quote for this booking")
		}
	}
	q.CreatedAt = time.Now()
	cp := *q
	m.quotes[q.ID] = &cp
	return nil
}

func (m *MemoryStore) GetQuote(ctx context.Context, id string) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return nil, faults.NotFound("quote", id)
	}
	cp := *q
	return &cp, nil
}

func (m *MemoryStore) DeleteQuote(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotes[id]; !ok {
		return faults.NotFound("quote", id)
	}
	delete(m.quotes, id)
	return nil
}

func (m *MemoryStore) DeleteQuotesForBooking(ctx context.Context, bookingID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, q := range m.quotes {
		if q.BookingID == bookingID {
			delete(m.quotes, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ListQuotesForBooking(ctx context.Context, bookingID string) ([]models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Quote, 0)
	for _, q := range m.quotes {
		if q.BookingID == bookingID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.Status == "" {
		n.Status = "unread"
	}
	n.CreatedAt = time.Now()
	cp := *n
	m.notifications[n.ID] = &cp
	return nil
}

func (m *MemoryStore) ListNotifications(ctx context.Context, receiverID, status string, page, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Notification, 0)
	for _, n := range m.notifications {
		if n.ReceiverID != receiverID {
			continue
		}
		if status != "" && n.Status != status {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page, limit), nil
}

func (m *MemoryStore) MarkRead(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return faults.NotFound("notification", id)
	}
	n.Status = "read"
	return nil
}

func (m *MemoryStore) CreateChat(ctx context.Context, c *models.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.CreatedAt = time.Now()
	m.chats = append(m.chats, *c)
	return nil
}

func (m *MemoryStore) ListChatsBetween(ctx context.Context, a, b string) ([]models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Chat, 0)
	for _, c := range m.chats {
		if (c.SenderID == a && c.ReceiverID == b) || (c.SenderID == b && c.ReceiverID == a) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, faults.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListUsersByRole(ctx context.Context, role string, activeOnly bool) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0)
	for _, u := range m.users {
		if u.Role != role {
			continue
		}
		if activeOnly && !u.IsActive {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateLocation(ctx context.Context, id string, loc models.Coord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return faults.NotFound("user", id)
	}
	u.Location = loc
	u.Updated = time.Now()
	return nil
}

// PutUser seeds a user record; used by wiring and tests.
func (m *MemoryStore) PutUser(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
