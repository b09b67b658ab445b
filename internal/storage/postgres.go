package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/example/fleet-dispatch/internal/faults"
	"github.com/example/fleet-dispatch/internal/models"
)

// PostgresStore implements Store over database/sql. All status guards are
// single-statement conditional updates so that two processes racing on the
// same booking cannot both win.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO bookings(id, driver_id, vehicle_plate, issue_images, issue_description,
			lat, lon, products_required, status, total_time, total_amount, created_at, updated_at)
		SELECT $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
		WHERE NOT EXISTS (
			SELECT 1 FROM bookings WHERE driver_id = $2 AND status = 'pending'
		)`,
		b.ID, b.DriverID, b.VehiclePlate, pq.Array(b.IssueImages), b.IssueDescription,
		b.Location.Lat, b.Location.Lon, pq.Array(b.ProductsRequired), b.Status,
		b.TotalTime, b.TotalAmount, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		// the partial unique index can still fire if two inserts race past
		// the NOT EXISTS check
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return faults.Conflict("you already have a pending booking")
		}
		return faults.Dependency("create booking", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return faults.Conflict("you already have a pending booking")
	}
	return nil
}

func (p *PostgresStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, driver_id, COALESCE(mechanic_id, ''), vehicle_plate, issue_images,
			issue_description, lat, lon, products_required, status, total_time,
			total_amount, created_at, updated_at
		FROM bookings WHERE id = $1`, id)
	return scanBooking(row, id)
}

func (p *PostgresStore) ListBookings(ctx context.Context, f BookingFilter) ([]models.Booking, error) {
	q := `
		SELECT id, driver_id, COALESCE(mechanic_id, ''), vehicle_plate, issue_images,
			issue_description, lat, lon, products_required, status, total_time,
			total_amount, created_at, updated_at
		FROM bookings
		WHERE ($1 = '' OR driver_id = $1)
		  AND ($2 = '' OR mechanic_id = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	rows, err := p.db.QueryContext(ctx, q, f.DriverID, f.MechanicID, f.Status, limit, (page-1)*limit)
	if err != nil {
		return nil, faults.Dependency("list bookings", err)
	}
	defer rows.Close()
	out := make([]models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (p *PostgresStore) AcceptBooking(ctx context.Context, id, mechanicID string, totalTime, totalAmount float64) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bookings
		SET mechanic_id = $2, total_time = $3, total_amount = $4,
			status = 'accepted', updated_at = now()
		WHERE id = $1 AND status = 'pending'`,
		id, mechanicID, totalTime, totalAmount)
	if err != nil {
		return faults.Dependency("accept booking", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return p.bookingGuardFailure(ctx, id, "pending")
	}
	return nil
}

func (p *PostgresStore) TransitionStatus(ctx context.Context, id, from, to string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bookings SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return faults.Dependency("transition booking", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return p.bookingGuardFailure(ctx, id, from)
	}
	return nil
}

func (p *PostgresStore) SetStatus(ctx context.Context, id, status string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bookings SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return faults.Dependency("set booking status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return faults.NotFound("booking", id)
	}
	return nil
}

func (p *PostgresStore) DeleteIfPending(ctx context.Context, id string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		DELETE FROM bookings WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, faults.Dependency("delete booking", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// bookingGuardFailure distinguishes "gone" from "moved on" after a
// conditional update touched zero rows.
func (p *PostgresStore) bookingGuardFailure(ctx context.Context, id, want string) error {
	var status string
	err := p.db.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return faults.NotFound("booking", id)
	}
	if err != nil {
		return faults.Dependency("check booking", err)
	}
	return faults.Conflict("booking %s is %s, not %s", id, status, want)
}

func (p *PostgresStore) CreateQuote(ctx context.Context, q *models.Quote) error {
	q.CreatedAt = time.Now()
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO quotes(id, booking_id, mechanic_id, total_time, total_amount, created_at)
		SELECT $1,$2,$3,$4,$5,$6
		WHERE NOT EXISTS (
			SELECT 1 FROM quotes WHERE booking_id = $2 AND mechanic_id = $3
		)`,
		q.ID, q.BookingID, q.MechanicID, q.TotalTime, q.TotalAmount, q.CreatedAt)
	if err != nil {
		return faults.Dependency("create quote", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return faults.Conflict("you have already sent a quote for this booking")
	}
	return nil
}

func (p *PostgresStore) GetQuote(ctx context.Context, id string) (*models.Quote, error) {
	var q models.Quote
	err := p.db.QueryRowContext(ctx, `
		SELECT id, booking_id, mechanic_id, total_time, total_amount, created_at
		FROM quotes WHERE id = $1`, id).
		Scan(&q.ID, &q.BookingID, &q.MechanicID, &q.TotalTime, &q.TotalAmount, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.NotFound("quote", id)
	}
	if err != nil {
		return nil, faults.Dependency("get quote", err)
	}
	return &q, nil
}

func (p *PostgresStore) DeleteQuote(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM quotes WHERE id = $1`, id)
	if err != nil {
		return faults.Dependency("delete quote", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return faults.NotFound("quote", id)
	}
	return nil
}

func (p *PostgresStore) DeleteQuotesForBooking(ctx context.Context, bookingID string) (int, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM quotes WHERE booking_id = $1`, bookingID)
	if err != nil {
		return 0, faults.Dependency("delete quotes", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (p *PostgresStore) ListQuotesForBooking(ctx context.Context, bookingID string) ([]models.Quote, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, booking_id, mechanic_id, total_time, total_amount, created_at
		FROM quotes WHERE booking_id = $1 ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, faults.Dependency("list quotes", err)
	}
	defer rows.Close()
	out := make([]models.Quote, 0)
	for rows.Next() {
		var q models.Quote
		if err := rows.Scan(&q.ID, &q.BookingID, &q.MechanicID, &q.TotalTime, &q.TotalAmount, &q.CreatedAt); err != nil {
			return nil, faults.Dependency("scan quote", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.Status == "" {
		n.Status = "unread"
	}
	n.CreatedAt = time.Now()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO notifications(id, sender_id, receiver_id, message, type, model_id, status, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		n.ID, n.SenderID, n.ReceiverID, n.Message, n.Type, n.ModelID, n.Status, n.CreatedAt)
	if err != nil {
		return faults.Dependency("create notification", err)
	}
	return nil
}

func (p *PostgresStore) ListNotifications(ctx context.Context, receiverID, status string, page, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, message, type, model_id, status, created_at
		FROM notifications
		WHERE receiver_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, receiverID, status, limit, (page-1)*limit)
	if err != nil {
		return nil, faults.Dependency("list notifications", err)
	}
	defer rows.Close()
	out := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.SenderID, &n.ReceiverID, &n.Message, &n.Type, &n.ModelID, &n.Status, &n.CreatedAt); err != nil {
			return nil, faults.Dependency("scan notification", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (p *PostgresStore) MarkRead(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE notifications SET status = 'read' WHERE id = $1`, id)
	if err != nil {
		return faults.Dependency("mark notification", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return faults.NotFound("notification", id)
	}
	return nil
}

func (p *PostgresStore) CreateChat(ctx context.Context, c *models.Chat) error {
	c.CreatedAt = time.Now()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO chats(id, sender_id, receiver_id, text, created_at)
		VALUES($1,$2,$3,$4,$5)`,
		c.ID, c.SenderID, c.ReceiverID, c.Text, c.CreatedAt)
	if err != nil {
		return faults.Dependency("create chat", err)
	}
	return nil
}

func (p *PostgresStore) ListChatsBetween(ctx context.Context, a, b string) ([]models.Chat, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, text, created_at
		FROM chats
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at`, a, b)
	if err != nil {
		return nil, faults.Dependency("list chats", err)
	}
	defer rows.Close()
	out := make([]models.Chat, 0)
	for rows.Next() {
		var c models.Chat
		if err := rows.Scan(&c.ID, &c.SenderID, &c.ReceiverID, &c.Text, &c.CreatedAt); err != nil {
			return nil, faults.Dependency("scan chat", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := p.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, role, is_active, hourly_rate, lat, lon,
			COALESCE(device_token, ''), updated_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.Role, &u.IsActive, &u.HourlyRate,
			&u.Location.Lat, &u.Location.Lon, &u.DeviceToken, &u.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.NotFound("user", id)
	}
	if err != nil {
		return nil, faults.Dependency("get user", err)
	}
	return &u, nil
}

func (p *PostgresStore) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, role, is_active, hourly_rate, lat, lon,
			COALESCE(device_token, ''), updated_at
		FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, faults.Dependency("get users", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (p *PostgresStore) ListUsersByRole(ctx context.Context, role string, activeOnly bool) ([]models.User, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, role, is_active, hourly_rate, lat, lon,
			COALESCE(device_token, ''), updated_at
		FROM users WHERE role = $1 AND ($2 = false OR is_active)`, role, activeOnly)
	if err != nil {
		return nil, faults.Dependency("list users", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (p *PostgresStore) UpdateLocation(ctx context.Context, id string, loc models.Coord) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE users SET lat = $2, lon = $3, updated_at = now() WHERE id = $1`, id, loc.Lat, loc.Lon)
	if err != nil {
		return faults.Dependency("update location", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return faults.NotFound("user", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner, id string) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.DriverID, &b.MechanicID, &b.VehiclePlate,
		pq.Array(&b.IssueImages), &b.IssueDescription, &b.Location.Lat, &b.Location.Lon,
		pq.Array(&b.ProductsRequired), &b.Status, &b.TotalTime, &b.TotalAmount,
		&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.NotFound("booking", id)
	}
	if err != nil {
		return nil, faults.Dependency("scan booking", err)
	}
	return &b, nil
}

func scanUsers(rows *sql.Rows) ([]models.User, error) {
	out := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Role, &u.IsActive,
			&u.HourlyRate, &u.Location.Lat, &u.Location.Lon, &u.DeviceToken, &u.Updated); err != nil {
			return nil, faults.Dependency("scan user", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
