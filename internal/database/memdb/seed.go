package memdb

import (
	"sort"

	"github.com/flytau/flight-booking/internal/models"
)

// AddRoute registers an origin/destination pair.
func (db *DB) AddRoute(r models.Route) {
	db.write(func(s *state) {
		s.routes[routeKey{r.Origin, r.Destination}] = r
	})
}

// AddMember registers a member account.
func (db *DB) AddMember(email, firstName, lastName string) {
	db.write(func(s *state) {
		s.members[emailKey(email)] = person{email: email, firstName: firstName, lastName: lastName}
	})
}

// AddAircraft registers an aircraft with its seat map.
func (db *DB) AddAircraft(a models.Aircraft, seats []models.SeatKey) {
	db.write(func(s *state) {
		s.aircraft[a.ID] = a
		s.seats[a.ID] = append([]models.SeatKey(nil), seats...)
	})
}

// AddCrew registers crew members.
func (db *DB) AddCrew(crew ...models.CrewMember) {
	db.write(func(s *state) {
		for _, c := range crew {
			s.crew[c.ID] = c
		}
	})
}

// AddFlight stores a flight with one available ticket per seat of its
// aircraft, priced by class.
func (db *DB) AddFlight(f models.Flight, prices map[models.SeatClass]float64) {
	db.write(func(s *state) {
		s.flights[f.ID] = f
		for _, seat := range s.seats[f.AircraftID] {
			s.tickets[ticketKey{f.ID, seat}] = models.Ticket{
				AircraftID: f.AircraftID,
				FlightID:   f.ID,
				Seat:       seat,
				Price:      prices[seat.Class],
				Available:  true,
			}
		}
	})
}

// SetFlightStatus overwrites a flight's status without validation.
func (db *DB) SetFlightStatus(id string, status models.FlightStatus) {
	db.write(func(s *state) {
		f := s.flights[id]
		f.Status = status
		s.flights[id] = f
	})
}

// Assign records crew assignments for a flight.
func (db *DB) Assign(flightID string, crewIDs ...int64) {
	db.write(func(s *state) {
		s.assignments[flightID] = append(append([]int64(nil), s.assignments[flightID]...), crewIDs...)
	})
}

// Flight returns a stored flight.
func (db *DB) Flight(id string) (models.Flight, bool) {
	var f models.Flight
	var ok bool
	db.read(func(s *state) { f, ok = s.flights[id] })
	return f, ok
}

// Tickets returns every ticket of a flight in seat order.
func (db *DB) Tickets(flightID string) []models.Ticket {
	var out []models.Ticket
	db.read(func(s *state) {
		for k, tk := range s.tickets {
			if k.flightID == flightID {
				out = append(out, tk)
			}
		}
	})
	sortTickets(out)
	return out
}

// Order returns a stored order.
func (db *DB) Order(id int64) (models.Order, bool) {
	var o models.Order
	var ok bool
	db.read(func(s *state) { o, ok = s.orders[id] })
	return o, ok
}

// OrderCount returns the number of stored orders.
func (db *DB) OrderCount() int {
	var n int
	db.read(func(s *state) { n = len(s.orders) })
	return n
}

// ActiveHolders maps every ticket of a flight to the Active orders linked
// to it.
func (db *DB) ActiveHolders(flightID string) map[models.SeatKey][]int64 {
	out := make(map[models.SeatKey][]int64)
	db.read(func(s *state) {
		for _, l := range s.links {
			if l.flightID == flightID && s.orders[l.orderID].Status == models.OrderStatusActive {
				out[l.seat] = append(out[l.seat], l.orderID)
			}
		}
	})
	for _, ids := range out {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return out
}

// Phones returns the recorded phone numbers of a buyer email.
func (db *DB) Phones(email string) []string {
	var out []string
	db.read(func(s *state) {
		for p := range s.phones[emailKey(email)] {
			out = append(out, p)
		}
	})
	sort.Strings(out)
	return out
}

// CrewOf returns the crew assigned to a flight.
func (db *DB) CrewOf(flightID string) []int64 {
	var out []int64
	db.read(func(s *state) { out = append(out, s.assignments[flightID]...) })
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
