package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Booking statuses.
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusArriving  = "arriving"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusRejected  = "rejected"
)

// User roles.
const (
	RoleDriver       = "driver"
	RoleMechanic     = "mechanic"
	RoleFleetManager = "fleet-manager"
	RoleShopOwner    = "shop-owner"
	RoleAdmin        = "admin"
)

type Booking struct {
	ID               string    `json:"id"`
	DriverID         string    `json:"driverId"`
	MechanicID       string    `json:"mechanicId,omitempty"`
	VehiclePlate     string    `json:"vehiclePlateNumber"`
	IssueImages      []string  `json:"issueImages"`
	IssueDescription string    `json:"issueDescription"`
	Location         Coord     `json:"location"`
	ProductsRequired []string  `json:"productsRequired"`
	Status           string    `json:"status"`
	TotalTime        float64   `json:"totalTime"`
	TotalAmount      float64   `json:"totalAmount"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type Quote struct {
	ID          string    `json:"id"`
	BookingID   string    `json:"bookingId"`
	MechanicID  string    `json:"mechanicId"`
	TotalTime   float64   `json:"totalTime"`
	TotalAmount float64   `json:"totalAmount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Notification subject types.
const (
	NotifyBooking = "Booking"
	NotifyChat    = "Chat"
	NotifyRequest = "Request"
	NotifyQuote   = "Quote"
	NotifyReview  = "Review"
	NotifyOrder   = "Order"
)

type Notification struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Message    string    `json:"message"`
	Type       string    `json:"type"`
	ModelID    string    `json:"modelId"`
	Status     string    `json:"status"` // read | unread
	CreatedAt  time.Time `json:"createdAt"`
}

// Chat is one direct message between two users.
type Chat struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

type User struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"isActive"`
	HourlyRate  float64   `json:"hourlyRate"`
	Location    Coord     `json:"location"`
	DeviceToken string    `json:"deviceToken,omitempty"`
	Updated     time.Time `json:"updated"`
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// CreateBookingInput is the payload accepted when a driver raises a request.
type CreateBookingInput struct {
	VehiclePlate     string   `json:"vehiclePlateNumber"`
	IssueImages      []string `json:"issueImages"`
	IssueDescription string   `json:"issueDescription"`
	Location         *Coord   `json:"location"`
	ProductsRequired []string `json:"productsRequired"`
}

// Empty reports whether the payload carries no actionable field.
func (in *CreateBookingInput) Empty() bool {
	return in.VehiclePlate == "" && len(in.IssueImages) == 0 &&
		in.IssueDescription == "" && in.Location == nil && len(in.ProductsRequired) == 0
}

// LocationUpdate is the kafka message shape for mechanic position pings.
type LocationUpdate struct {
	UserID string  `json:"user_id"`
	Loc    Coord   `json:"loc"`
	Rate   float64 `json:"rate"`
	Online bool    `json:"online"`
}
