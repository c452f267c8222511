package models

import (
	"math"
	"strings"
	"time"
)

// Order represents a purchase of one or more tickets
type Order struct {
	ID              int64       `json:"id"`
	Status          OrderStatus `json:"status"`
	TotalPrice      float64     `json:"totalPrice"`
	PurchaseDate    time.Time   `json:"purchaseDate"`
	CancellationFee float64     `json:"cancellationFee"`
	GuestEmail      *string     `json:"guestEmail,omitempty"`
	MemberEmail     *string     `json:"memberEmail,omitempty"`
}

// OwnedBy reports whether the requester is the buyer of the order.
func (o *Order) OwnedBy(r Requester) bool {
	switch {
	case r.MemberEmail != "":
		return o.MemberEmail != nil && strings.EqualFold(*o.MemberEmail, r.MemberEmail)
	case r.GuestEmail != "":
		return o.GuestEmail != nil && strings.EqualFold(*o.GuestEmail, r.GuestEmail)
	}
	return false
}

// OrderDetails is an order with its tickets and cancellation eligibility
type OrderDetails struct {
	Order        *Order    `json:"order"`
	Tickets      []Ticket  `json:"tickets"`
	Flight       *Flight   `json:"flight,omitempty"`
	CanCancel    bool      `json:"canCancel"`
	CancelReason string    `json:"cancelReason,omitempty"`
	CheckedAt    time.Time `json:"checkedAt"`
}

// OrderSummary is a row in a member's order history
type OrderSummary struct {
	Order
	TicketCount int        `json:"ticketCount"`
	FlightID    string     `json:"flightId,omitempty"`
	DepartureAt *time.Time `json:"departureAt,omitempty"`
	Origin      string     `json:"origin,omitempty"`
	Destination string     `json:"destination,omitempty"`
}

// Buyer identifies who is purchasing. Exactly one of MemberEmail or
// GuestEmail is set.
type Buyer struct {
	MemberEmail string `json:"memberEmail,omitempty"`
	GuestEmail  string `json:"guestEmail,omitempty"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Phone       string `json:"phone"`
}

// IsMember reports whether the buyer is a logged-in member.
func (b Buyer) IsMember() bool { return b.MemberEmail != "" }

// Email returns whichever identity email is set.
func (b Buyer) Email() string {
	if b.MemberEmail != "" {
		return b.MemberEmail
	}
	return b.GuestEmail
}

// Normalized trims every field and lowercases the emails, which are
// matched case-insensitively everywhere.
func (b Buyer) Normalized() Buyer {
	return Buyer{
		MemberEmail: NormalizeEmail(b.MemberEmail),
		GuestEmail:  NormalizeEmail(b.GuestEmail),
		FirstName:   strings.TrimSpace(b.FirstName),
		LastName:    strings.TrimSpace(b.LastName),
		Phone:       strings.TrimSpace(b.Phone),
	}
}

// NormalizeEmail is the canonical form of an identity email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Requester is the identity presented when reading or cancelling an order
type Requester struct {
	MemberEmail string `json:"memberEmail,omitempty"`
	GuestEmail  string `json:"guestEmail,omitempty"`
}

// RoundCents rounds a monetary amount to two decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// CancellationFee is the fee charged on customer cancellation, fixed at
// order creation.
func CancellationFee(total, rate float64) float64 {
	return RoundCents(total * rate)
}
