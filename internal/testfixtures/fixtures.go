// Package testfixtures seeds an in-memory store with a small airline used
// across package tests.
package testfixtures

import (
	"fmt"
	"time"

	"github.com/flytau/flight-booking/internal/database/memdb"
	"github.com/flytau/flight-booking/internal/models"
)

const (
	ShortFlight = "F00001"
	LongFlight  = "F00002"

	SmallAircraft int64 = 1
	BigAircraft   int64 = 2

	MemberEmail = "member@flytau.test"
)

// Seat builds a seat key.
func Seat(class models.SeatClass, row int, col string) models.SeatKey {
	return models.SeatKey{Class: class, Row: row, Column: col}
}

// Regular builds a Regular-class seat key.
func Regular(row int, col string) models.SeatKey {
	return Seat(models.SeatClassRegular, row, col)
}

// SeatGrid lists rows x cols seats of a class, columns lettered from A.
func SeatGrid(class models.SeatClass, rows, cols int) []models.SeatKey {
	var seats []models.SeatKey
	for r := 1; r <= rows; r++ {
		for c := 0; c < cols; c++ {
			seats = append(seats, Seat(class, r, string(rune('A'+c))))
		}
	}
	return seats
}

// Seed loads routes, two aircraft, one member and two Active flights.
// ShortFlight is a Small aircraft with four Regular seats at 100 departing
// 48 hours after now. LongFlight is a Big aircraft with two First seats at 500
// and six Regular seats at 200 departing 100 hours after now.
func Seed(db *memdb.DB, now time.Time) {
	db.AddRoute(models.Route{Origin: "TLV", Destination: "ATH", DurationMinutes: 120})
	db.AddRoute(models.Route{Origin: "ATH", Destination: "TLV", DurationMinutes: 125})
	db.AddRoute(models.Route{Origin: "TLV", Destination: "JFK", DurationMinutes: 720})
	db.AddRoute(models.Route{Origin: "JFK", Destination: "TLV", DurationMinutes: 660})

	db.AddAircraft(models.Aircraft{
		ID: SmallAircraft, Manufacturer: "Airbus", Size: models.AircraftSizeSmall,
		PurchaseDate: now.AddDate(-3, 0, 0),
	}, SeatGrid(models.SeatClassRegular, 2, 2))

	bigSeats := append(SeatGrid(models.SeatClassFirst, 1, 2), SeatGrid(models.SeatClassRegular, 2, 3)...)
	db.AddAircraft(models.Aircraft{
		ID: BigAircraft, Manufacturer: "Boeing", Size: models.AircraftSizeBig,
		PurchaseDate: now.AddDate(-5, 0, 0),
	}, bigSeats)

	db.AddMember(MemberEmail, "Noa", "Levi")

	shortDep := now.Add(48 * time.Hour)
	db.AddFlight(models.Flight{
		ID: ShortFlight, Origin: "TLV", Destination: "ATH",
		DepartureAt: shortDep, ArrivalAt: shortDep.Add(120 * time.Minute),
		AircraftID: SmallAircraft, Type: models.FlightTypeShort, Status: models.FlightStatusActive,
	}, map[models.SeatClass]float64{models.SeatClassRegular: 100})

	longDep := now.Add(100 * time.Hour)
	db.AddFlight(models.Flight{
		ID: LongFlight, Origin: "TLV", Destination: "JFK",
		DepartureAt: longDep, ArrivalAt: longDep.Add(720 * time.Minute),
		AircraftID: BigAircraft, Type: models.FlightTypeLong, Status: models.FlightStatusActive,
	}, map[models.SeatClass]float64{models.SeatClassRegular: 200, models.SeatClassFirst: 500})
}

// AddCrew registers pilots then attendants with consecutive ids starting at
// first and returns the pilot and attendant ids.
func AddCrew(db *memdb.DB, first int64, pilots, attendants int, certified bool) ([]int64, []int64) {
	var pilotIDs, attendantIDs []int64
	id := first
	for i := 0; i < pilots; i++ {
		db.AddCrew(models.CrewMember{ID: id, FirstName: "Pilot", LastName: fmt.Sprint(id),
			Role: models.CrewRolePilot, LongHaulCertified: certified})
		pilotIDs = append(pilotIDs, id)
		id++
	}
	for i := 0; i < attendants; i++ {
		db.AddCrew(models.CrewMember{ID: id, FirstName: "Attendant", LastName: fmt.Sprint(id),
			Role: models.CrewRoleAttendant, LongHaulCertified: certified})
		attendantIDs = append(attendantIDs, id)
		id++
	}
	return pilotIDs, attendantIDs
}

// GuestBuyer returns a complete guest identity.
func GuestBuyer(email string) models.Buyer {
	return models.Buyer{GuestEmail: email, FirstName: "Dana", LastName: "Cohen", Phone: "050-1234567"}
}

// MemberBuyer returns the seeded member's identity.
func MemberBuyer() models.Buyer {
	return models.Buyer{MemberEmail: MemberEmail, FirstName: "Noa", LastName: "Levi", Phone: "052-7654321"}
}

// CheckAvailabilityInvariant returns every ticket of the flight whose flag
// disagrees with its Active links: flag clear must mean exactly one Active
// holder, flag set must mean none. Cancelled flights have every ticket
// withdrawn and do not satisfy it.
func CheckAvailabilityInvariant(db *memdb.DB, flightID string) []models.SeatKey {
	holders := db.ActiveHolders(flightID)
	var bad []models.SeatKey
	for _, tk := range db.Tickets(flightID) {
		n := len(holders[tk.Seat])
		if n > 1 || tk.Available == (n == 1) {
			bad = append(bad, tk.Seat)
		}
	}
	return bad
}
