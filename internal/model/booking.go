package model

import (
	"fmt"
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCancelled BookingStatus = "CANCELLED"
	StatusRejected  BookingStatus = "REJECTED"
	StatusCompleted BookingStatus = "COMPLETED"
	StatusRebooked  BookingStatus = "REBOOKED"
)

// Blocks reports whether a booking in this status occupies staff time.
func (s BookingStatus) Blocks() bool {
	return s == StatusPending || s == StatusConfirmed
}

// ParseBookingStatus accepts any letter case.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	s := BookingStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusRejected, StatusCompleted, StatusRebooked:
		return s, nil
	}
	return "", fmt.Errorf("unknown booking status %q", raw)
}

// PaymentMethod is how the client pays.
type PaymentMethod string

const (
	PaymentOnline  PaymentMethod = "online"
	PaymentInStore PaymentMethod = "in_store"
)

// ParsePaymentMethod defaults an empty value to in-store payment.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case PaymentOnline:
		return PaymentOnline, nil
	case PaymentInStore, "":
		return PaymentInStore, nil
	}
	return "", fmt.Errorf("unknown payment method %q", raw)
}

// ExistingBooking is the conflict-relevant view of a committed reservation.
type ExistingBooking struct {
	ID        string        `json:"id"`
	Date      time.Time     `json:"date"`
	TimeStart int           `json:"time_start"`
	TimeEnd   int           `json:"time_end"`
	StaffIDs  []string      `json:"staff_ids"`
	Status    BookingStatus `json:"status"`
}

// Involves reports whether staffID is assigned to the booking.
func (b ExistingBooking) Involves(staffID string) bool {
	for _, id := range b.StaffIDs {
		if id == staffID {
			return true
		}
	}
	return false
}

// ClientInfo identifies who made the booking.
type ClientInfo struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// AddOnLine is a priced add-on on a booked service.
type AddOnLine struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Duration int     `json:"duration"`
	Price    float64 `json:"price"`
}

// ServiceLine is one booked service with its resolved timeline.
type ServiceLine struct {
	ServiceID   string      `json:"service_id"`
	ServiceName string      `json:"service_name"`
	OptionID    string      `json:"option_id,omitempty"`
	OptionName  string      `json:"option_name,omitempty"`
	AddOns      []AddOnLine `json:"add_ons,omitempty"`
	Staff       *StaffRef   `json:"staff,omitempty"`
	StartTime   int         `json:"start_time"`
	EndTime     int         `json:"end_time"`
	Duration    int         `json:"duration"`
	Price       float64     `json:"price"`
	TotalPrice  float64     `json:"total_price"`
}

// GuestBreakdown groups the lines of one guest.
type GuestBreakdown struct {
	GuestID   string        `json:"guest_id"`
	GuestName string        `json:"guest_name"`
	Services  []ServiceLine `json:"services"`
}

// BookingPayload is the immutable record handed to storage.
type BookingPayload struct {
	ID              string           `json:"id"`
	ShopID          string           `json:"shop_id"`
	BookingNumber   int              `json:"booking_number"`
	Client          ClientInfo       `json:"client"`
	Date            time.Time        `json:"date"`
	TimeStart       int              `json:"time_start"`
	TimeEnd         int              `json:"time_end"`
	Guests          []GuestBreakdown `json:"guests"`
	StaffIDs        []string         `json:"staff_ids"`
	TotalDuration   int              `json:"total_duration"`
	Subtotal        float64          `json:"subtotal"`
	PromoCode       string           `json:"promo_code,omitempty"`
	PromoDiscount   float64          `json:"promo_discount"`
	Total           float64          `json:"total"`
	DepositRequired bool             `json:"deposit_required"`
	DepositAmount   float64          `json:"deposit_amount"`
	DepositDiscount float64          `json:"deposit_discount"`
	PaymentMethod   PaymentMethod    `json:"payment_method"`
	PaymentIntentID string           `json:"payment_intent_id,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	Status          BookingStatus    `json:"status"`

	RebookedFrom          string        `json:"rebooked_from,omitempty"`
	RebookedTo            string        `json:"rebooked_to,omitempty"`
	OriginalPaymentMethod PaymentMethod `json:"original_payment_method,omitempty"`

	CancelReason string     `json:"cancel_reason,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Existing returns the conflict view of the payload.
func (p BookingPayload) Existing() ExistingBooking {
	return ExistingBooking{
		ID:        p.ID,
		Date:      p.Date,
		TimeStart: p.TimeStart,
		TimeEnd:   p.TimeEnd,
		StaffIDs:  append([]string(nil), p.StaffIDs...),
		Status:    p.Status,
	}
}
