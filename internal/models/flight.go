package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Flight represents a scheduled flight
type Flight struct {
	ID          string       `json:"id"`
	Origin      string       `json:"origin"`
	Destination string       `json:"destination"`
	DepartureAt time.Time    `json:"departureAt"`
	ArrivalAt   time.Time    `json:"arrivalAt"`
	AircraftID  int64        `json:"aircraftId"`
	Type        FlightType   `json:"type"`
	Status      FlightStatus `json:"status"`
}

// Departed reports whether the flight's departure is at or before now.
func (f *Flight) Departed(now time.Time) bool {
	return !f.DepartureAt.After(now)
}

// FlightSummary is a flight joined with its ticket counts and prices
type FlightSummary struct {
	Flight
	AircraftSize     AircraftSize `json:"aircraftSize"`
	Manufacturer     string       `json:"manufacturer"`
	TotalTickets     int          `json:"totalTickets"`
	AvailableTickets int          `json:"availableTickets"`
	PriceRegular     *float64     `json:"priceRegular,omitempty"`
	PriceFirst       *float64     `json:"priceFirst,omitempty"`
}

// FlightFilter narrows a flight search
type FlightFilter struct {
	Origin      string
	Destination string
	Date        *time.Time
	Status      FlightStatus
}

type FlightType string

const (
	FlightTypeLong  FlightType = "Long"
	FlightTypeShort FlightType = "Short"
)

// LongHaulMinutes is the default duration above which a flight is Long.
const LongHaulMinutes = 360

// ClassifyFlight returns Long when the duration strictly exceeds the threshold.
func ClassifyFlight(durationMinutes, thresholdMinutes int) FlightType {
	if durationMinutes > thresholdMinutes {
		return FlightTypeLong
	}
	return FlightTypeShort
}

// Route is an origin/destination pair with a fixed duration
type Route struct {
	Origin          string `json:"origin"`
	Destination     string `json:"destination"`
	DurationMinutes int    `json:"durationMinutes"`
}

// Duration returns the route duration.
func (r Route) Duration() time.Duration {
	return time.Duration(r.DurationMinutes) * time.Minute
}

type SeatClass string

const (
	SeatClassRegular SeatClass = "Regular"
	SeatClassFirst   SeatClass = "First"
)

func (c SeatClass) Valid() bool {
	return c == SeatClassRegular || c == SeatClassFirst
}

// SeatKey identifies a seat within an aircraft
type SeatKey struct {
	Class  SeatClass `json:"class"`
	Row    int       `json:"row"`
	Column string    `json:"column"`
}

// String renders the key in its wire form, e.g. "Regular|12|C".
func (k SeatKey) String() string {
	return fmt.Sprintf("%s|%d|%s", k.Class, k.Row, k.Column)
}

// Less orders keys by class, row and column. Locks are taken in this order.
func (k SeatKey) Less(o SeatKey) bool {
	if k.Class != o.Class {
		return k.Class < o.Class
	}
	if k.Row != o.Row {
		return k.Row < o.Row
	}
	return k.Column < o.Column
}

// Validate checks the key is structurally sound.
func (k SeatKey) Validate() error {
	if !k.Class.Valid() {
		return fmt.Errorf("%w: unknown seat class %q", ErrInvalidInput, k.Class)
	}
	if k.Row <= 0 {
		return fmt.Errorf("%w: seat row must be positive", ErrInvalidInput)
	}
	if len(k.Column) != 1 || k.Column[0] < 'A' || k.Column[0] > 'Z' {
		return fmt.Errorf("%w: seat column must be a letter A-Z", ErrInvalidInput)
	}
	return nil
}

// ParseSeatKey parses the "class|row|column" form.
func ParseSeatKey(s string) (SeatKey, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return SeatKey{}, fmt.Errorf("%w: malformed seat key %q", ErrInvalidInput, s)
	}
	row, err := strconv.Atoi(parts[1])
	if err != nil {
		return SeatKey{}, fmt.Errorf("%w: malformed seat row %q", ErrInvalidInput, parts[1])
	}
	k := SeatKey{Class: SeatClass(parts[0]), Row: row, Column: strings.ToUpper(parts[2])}
	if err := k.Validate(); err != nil {
		return SeatKey{}, err
	}
	return k, nil
}

// Ticket is one bookable seat on one flight
type Ticket struct {
	AircraftID int64   `json:"aircraftId"`
	FlightID   string  `json:"flightId"`
	Seat       SeatKey `json:"seat"`
	Price      float64 `json:"price"`
	Available  bool    `json:"available"`
}

// SeatMap is a flight with every ticket and its availability
type SeatMap struct {
	Flight    Flight   `json:"flight"`
	Tickets   []Ticket `json:"tickets"`
	Available int      `json:"available"`
}
