package models

import "time"

type AircraftSize string

const (
	AircraftSizeBig   AircraftSize = "Big"
	AircraftSizeSmall AircraftSize = "Small"
)

func (s AircraftSize) Valid() bool {
	return s == AircraftSizeBig || s == AircraftSizeSmall
}

// Manufacturers accepted when registering aircraft
var Manufacturers = []string{"Boeing", "Airbus", "Dassault"}

// Aircraft represents a plane in the fleet
type Aircraft struct {
	ID           int64        `json:"id"`
	Manufacturer string       `json:"manufacturer"`
	Size         AircraftSize `json:"size"`
	PurchaseDate time.Time    `json:"purchaseDate"`
	SeatCount    int          `json:"seatCount"`
}

// AircraftSeat is one physical seat in an aircraft's seat map
type AircraftSeat struct {
	AircraftID int64   `json:"aircraftId"`
	Seat       SeatKey `json:"seat"`
}

type CrewRole string

const (
	CrewRolePilot     CrewRole = "Pilot"
	CrewRoleAttendant CrewRole = "Flight attendant"
)

func (r CrewRole) Valid() bool {
	return r == CrewRolePilot || r == CrewRoleAttendant
}

// CrewMember is a pilot or flight attendant
type CrewMember struct {
	ID                int64    `json:"id"`
	FirstName         string   `json:"firstName"`
	LastName          string   `json:"lastName"`
	Role              CrewRole `json:"role"`
	LongHaulCertified bool     `json:"longHaulCertified"`
}

// CrewRequirement is the exact crew composition an aircraft size needs
type CrewRequirement struct {
	Pilots     int `json:"pilots"`
	Attendants int `json:"attendants"`
}

// RequiredCrew returns the crew composition for an aircraft size.
func RequiredCrew(size AircraftSize) CrewRequirement {
	if size == AircraftSizeBig {
		return CrewRequirement{Pilots: 3, Attendants: 6}
	}
	return CrewRequirement{Pilots: 2, Attendants: 3}
}
