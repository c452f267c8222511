package memdb

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/models"
)

// memTx implements database.Tx. Locks are implied by the store-wide mutex.
type memTx struct {
	st *state
}

var _ database.Tx = (*memTx)(nil)

// --- Flights ---

func (t *memTx) GetFlight(_ context.Context, id string, _ database.Lock) (*models.Flight, error) {
	f, ok := t.st.flights[id]
	if !ok {
		return nil, fmt.Errorf("flight %s: %w", id, models.ErrNotFound)
	}
	return &f, nil
}

func (t *memTx) UpdateFlightStatus(_ context.Context, id string, status models.FlightStatus) error {
	f, ok := t.st.flights[id]
	if !ok {
		return fmt.Errorf("flight %s: %w", id, models.ErrNotFound)
	}
	f.Status = status
	t.st.flights[id] = f
	return nil
}

func (t *memTx) InsertFlight(_ context.Context, f *models.Flight) (bool, error) {
	if _, ok := t.st.flights[f.ID]; ok {
		return false, nil
	}
	t.st.flights[f.ID] = *f
	return true, nil
}

func (t *memTx) MaxFlightNumber(_ context.Context, prefix string) (int, error) {
	highest := 0
	for id := range t.st.flights {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := strconv.Atoi(id[len(prefix):])
		if err != nil || n < 0 {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest, nil
}

func (t *memTx) SearchFlights(_ context.Context, filter models.FlightFilter, now time.Time) ([]models.FlightSummary, error) {
	var out []models.FlightSummary
	for _, f := range t.st.flights {
		if f.DepartureAt.Before(now) {
			continue
		}
		if filter.Status != "" {
			if f.Status != filter.Status {
				continue
			}
		} else if !f.Status.Bookable() {
			continue
		}
		if filter.Origin != "" && f.Origin != filter.Origin {
			continue
		}
		if filter.Destination != "" && f.Destination != filter.Destination {
			continue
		}
		if filter.Date != nil && f.DepartureAt.UTC().Format("2006-01-02") != filter.Date.UTC().Format("2006-01-02") {
			continue
		}

		a := t.st.aircraft[f.AircraftID]
		s := models.FlightSummary{Flight: f, AircraftSize: a.Size, Manufacturer: a.Manufacturer}
		for k, tk := range t.st.tickets {
			if k.flightID != f.ID {
				continue
			}
			s.TotalTickets++
			if tk.Available {
				s.AvailableTickets++
			}
			price := tk.Price
			switch tk.Seat.Class {
			case models.SeatClassRegular:
				if s.PriceRegular == nil || price < *s.PriceRegular {
					s.PriceRegular = &price
				}
			case models.SeatClassFirst:
				if s.PriceFirst == nil || price < *s.PriceFirst {
					s.PriceFirst = &price
				}
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepartureAt.Equal(out[j].DepartureAt) {
			return out[i].DepartureAt.Before(out[j].DepartureAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memTx) GetRoute(_ context.Context, origin, destination string) (*models.Route, error) {
	r, ok := t.st.routes[routeKey{origin, destination}]
	if !ok {
		return nil, fmt.Errorf("route %s-%s: %w", origin, destination, models.ErrNotFound)
	}
	return &r, nil
}

func (t *memTx) ListRoutes(_ context.Context) ([]models.Route, error) {
	out := make([]models.Route, 0, len(t.st.routes))
	for _, r := range t.st.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Origin != out[j].Origin {
			return out[i].Origin < out[j].Origin
		}
		return out[i].Destination < out[j].Destination
	})
	return out, nil
}

func (t *memTx) CompleteDepartedFlights(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, f := range t.st.flights {
		if f.Status.Bookable() && !f.DepartureAt.After(now) {
			f.Status = models.FlightStatusCompleted
			t.st.flights[id] = f
			n++
		}
	}
	return n, nil
}

// --- Tickets ---

func (t *memTx) GetTicket(_ context.Context, flightID string, seat models.SeatKey, _ database.Lock) (*models.Ticket, error) {
	tk, ok := t.st.tickets[ticketKey{flightID, seat}]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", seat, models.ErrNotFound)
	}
	return &tk, nil
}

func (t *memTx) SetTicketAvailability(_ context.Context, flightID string, seat models.SeatKey, available bool) error {
	k := ticketKey{flightID, seat}
	tk, ok := t.st.tickets[k]
	if !ok {
		return fmt.Errorf("ticket %s: %w", seat, models.ErrNotFound)
	}
	tk.Available = available
	t.st.tickets[k] = tk
	return nil
}

func (t *memTx) SetFlightTicketsUnavailable(_ context.Context, flightID string) (int64, error) {
	var n int64
	for k, tk := range t.st.tickets {
		if k.flightID == flightID && tk.Available {
			tk.Available = false
			t.st.tickets[k] = tk
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertTickets(_ context.Context, tickets []models.Ticket) error {
	for _, tk := range tickets {
		k := ticketKey{tk.FlightID, tk.Seat}
		if _, ok := t.st.tickets[k]; ok {
			return fmt.Errorf("failed to insert tickets: duplicate ticket %s on %s", tk.Seat, tk.FlightID)
		}
		t.st.tickets[k] = tk
	}
	return nil
}

func (t *memTx) CountAvailableTickets(_ context.Context, flightID string) (int, error) {
	n := 0
	for k, tk := range t.st.tickets {
		if k.flightID == flightID && tk.Available {
			n++
		}
	}
	return n, nil
}

func (t *memTx) FlightTickets(_ context.Context, flightID string) ([]models.Ticket, error) {
	var out []models.Ticket
	for k, tk := range t.st.tickets {
		if k.flightID == flightID {
			out = append(out, tk)
		}
	}
	sortTickets(out)
	return out, nil
}

func (t *memTx) HasActiveLink(_ context.Context, flightID string, seat models.SeatKey, excludeOrder int64) (bool, error) {
	k := ticketKey{flightID, seat}
	for _, l := range t.st.links {
		if l.ticketKey != k || l.orderID == excludeOrder {
			continue
		}
		if t.st.orders[l.orderID].Status == models.OrderStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) LinkTicket(_ context.Context, orderID int64, tk models.Ticket) error {
	k := ticketKey{tk.FlightID, tk.Seat}
	if _, ok := t.st.orders[orderID]; !ok {
		return fmt.Errorf("failed to link ticket: order %d does not exist", orderID)
	}
	if _, ok := t.st.tickets[k]; !ok {
		return fmt.Errorf("failed to link ticket: ticket %s does not exist", tk.Seat)
	}
	for _, l := range t.st.links {
		if l.orderID == orderID && l.ticketKey == k {
			return fmt.Errorf("failed to link ticket: %s already linked to order %d", tk.Seat, orderID)
		}
	}
	t.st.links = append(t.st.links, link{orderID: orderID, aircraftID: tk.AircraftID, ticketKey: k})
	return nil
}

// --- Orders ---

func (t *memTx) NextOrderID(_ context.Context) (int64, error) {
	t.st.lastOrderID++
	return t.st.lastOrderID, nil
}

func (t *memTx) InsertOrder(_ context.Context, o *models.Order) error {
	if _, ok := t.st.orders[o.ID]; ok {
		return fmt.Errorf("failed to create order: id %d already exists", o.ID)
	}
	if (o.GuestEmail == nil) == (o.MemberEmail == nil) {
		return fmt.Errorf("failed to create order: exactly one buyer identity required")
	}
	t.st.orders[o.ID] = *o
	return nil
}

func (t *memTx) GetOrder(_ context.Context, id int64, _ database.Lock) (*models.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, models.ErrNotFound)
	}
	return &o, nil
}

func (t *memTx) UpdateOrder(_ context.Context, o *models.Order) error {
	cur, ok := t.st.orders[o.ID]
	if !ok {
		return fmt.Errorf("order %d: %w", o.ID, models.ErrNotFound)
	}
	cur.Status = o.Status
	cur.TotalPrice = o.TotalPrice
	cur.CancellationFee = o.CancellationFee
	t.st.orders[o.ID] = cur
	return nil
}

func (t *memTx) OrderTickets(_ context.Context, orderID int64) ([]models.Ticket, error) {
	var out []models.Ticket
	for _, l := range t.st.links {
		if l.orderID == orderID {
			out = append(out, t.st.tickets[l.ticketKey])
		}
	}
	sortTickets(out)
	return out, nil
}

func (t *memTx) ActiveOrderIDsForFlight(_ context.Context, flightID string) ([]int64, error) {
	seen := make(map[int64]bool)
	var ids []int64
	for _, l := range t.st.links {
		if l.flightID != flightID || seen[l.orderID] {
			continue
		}
		if t.st.orders[l.orderID].Status == models.OrderStatusActive {
			seen[l.orderID] = true
			ids = append(ids, l.orderID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (t *memTx) ListMemberOrders(_ context.Context, email string, status models.OrderStatus) ([]models.OrderSummary, error) {
	var out []models.OrderSummary
	for _, o := range t.st.orders {
		if o.MemberEmail == nil || emailKey(*o.MemberEmail) != emailKey(email) {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		s := models.OrderSummary{Order: o}
		for _, l := range t.st.links {
			if l.orderID != o.ID {
				continue
			}
			s.TicketCount++
			if s.FlightID == "" {
				f := t.st.flights[l.flightID]
				dep := f.DepartureAt
				s.FlightID, s.Origin, s.Destination, s.DepartureAt = f.ID, f.Origin, f.Destination, &dep
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PurchaseDate.Equal(out[j].PurchaseDate) {
			return out[i].PurchaseDate.After(out[j].PurchaseDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (t *memTx) CompleteDepartedOrders(_ context.Context, now time.Time) (int64, error) {
	linked := make(map[int64]bool)
	pending := make(map[int64]bool)
	for _, l := range t.st.links {
		linked[l.orderID] = true
		if t.st.flights[l.flightID].DepartureAt.After(now) {
			pending[l.orderID] = true
		}
	}

	var n int64
	for id, o := range t.st.orders {
		if o.Status == models.OrderStatusActive && linked[id] && !pending[id] {
			o.Status = models.OrderStatusCompleted
			t.st.orders[id] = o
			n++
		}
	}
	return n, nil
}

// --- Fleet ---

func (t *memTx) GetAircraft(_ context.Context, id int64) (*models.Aircraft, error) {
	a, ok := t.st.aircraft[id]
	if !ok {
		return nil, fmt.Errorf("aircraft %d: %w", id, models.ErrNotFound)
	}
	a.SeatCount = len(t.st.seats[id])
	return &a, nil
}

func (t *memTx) InsertAircraft(_ context.Context, a *models.Aircraft, seats []models.SeatKey) (bool, error) {
	if _, ok := t.st.aircraft[a.ID]; ok {
		return false, nil
	}
	t.st.aircraft[a.ID] = *a
	t.st.seats[a.ID] = append([]models.SeatKey(nil), seats...)
	return true, nil
}

func (t *memTx) AircraftSeats(_ context.Context, id int64) ([]models.SeatKey, error) {
	seats := append([]models.SeatKey(nil), t.st.seats[id]...)
	sort.Slice(seats, func(i, j int) bool { return seats[i].Less(seats[j]) })
	return seats, nil
}

func (t *memTx) ListAircraft(_ context.Context) ([]models.Aircraft, error) {
	out := make([]models.Aircraft, 0, len(t.st.aircraft))
	for id, a := range t.st.aircraft {
		a.SeatCount = len(t.st.seats[id])
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size < out[j].Size
		}
		if out[i].Manufacturer != out[j].Manufacturer {
			return out[i].Manufacturer < out[j].Manufacturer
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memTx) AircraftScheduledAt(_ context.Context, id int64, departure time.Time) (bool, error) {
	for _, f := range t.st.flights {
		if f.AircraftID == id && f.DepartureAt.Equal(departure) && f.Status != models.FlightStatusCanceled {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertCrewMember(_ context.Context, c *models.CrewMember) (bool, error) {
	if _, ok := t.st.crew[c.ID]; ok {
		return false, nil
	}
	t.st.crew[c.ID] = *c
	return true, nil
}

func (t *memTx) ListCrew(_ context.Context) ([]models.CrewMember, error) {
	out := make([]models.CrewMember, 0, len(t.st.crew))
	for _, c := range t.st.crew {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LongHaulCertified != out[j].LongHaulCertified {
			return out[i].LongHaulCertified
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memTx) GetCrewMembers(_ context.Context, ids []int64) ([]models.CrewMember, error) {
	var out []models.CrewMember
	seen := make(map[int64]bool)
	for _, id := range ids {
		if c, ok := t.st.crew[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) InsertCrewAssignments(_ context.Context, flightID string, crewIDs []int64) error {
	if _, ok := t.st.flights[flightID]; !ok {
		return fmt.Errorf("failed to assign crew: flight %s does not exist", flightID)
	}
	assigned := append([]int64(nil), t.st.assignments[flightID]...)
	for _, id := range crewIDs {
		if _, ok := t.st.crew[id]; !ok {
			return fmt.Errorf("failed to assign crew: crew member %d does not exist", id)
		}
		assigned = append(assigned, id)
	}
	t.st.assignments[flightID] = assigned
	return nil
}

func (t *memTx) BusyCrewAt(_ context.Context, departure time.Time) (map[int64]bool, error) {
	busy := make(map[int64]bool)
	for flightID, ids := range t.st.assignments {
		f := t.st.flights[flightID]
		if !f.DepartureAt.Equal(departure) || f.Status == models.FlightStatusCanceled {
			continue
		}
		for _, id := range ids {
			busy[id] = true
		}
	}
	return busy, nil
}

func (t *memTx) CrewLocations(_ context.Context) (map[int64]string, error) {
	latest := make(map[int64]models.Flight)
	for flightID, ids := range t.st.assignments {
		f := t.st.flights[flightID]
		if f.Status != models.FlightStatusCompleted {
			continue
		}
		for _, id := range ids {
			if cur, ok := latest[id]; !ok || f.ArrivalAt.After(cur.ArrivalAt) {
				latest[id] = f
			}
		}
	}
	locations := make(map[int64]string, len(latest))
	for id, f := range latest {
		locations[id] = f.Destination
	}
	return locations, nil
}

func (t *memTx) AssignedCrew(_ context.Context) (map[int64]bool, error) {
	assigned := make(map[int64]bool)
	for _, ids := range t.st.assignments {
		for _, id := range ids {
			assigned[id] = true
		}
	}
	return assigned, nil
}

func (t *memTx) EarliestCrewArrival(_ context.Context, airport string, after time.Time) (*time.Time, error) {
	var earliest *time.Time
	for flightID, ids := range t.st.assignments {
		f := t.st.flights[flightID]
		if len(ids) == 0 || f.Destination != airport || !f.Status.Bookable() || !f.ArrivalAt.After(after) {
			continue
		}
		if earliest == nil || f.ArrivalAt.Before(*earliest) {
			at := f.ArrivalAt
			earliest = &at
		}
	}
	return earliest, nil
}

// --- Identity ---

func (t *memTx) MemberExists(_ context.Context, email string) (bool, error) {
	_, ok := t.st.members[emailKey(email)]
	return ok, nil
}

func (t *memTx) UpsertGuest(_ context.Context, b models.Buyer) error {
	key := emailKey(b.GuestEmail)
	t.st.guests[key] = person{email: b.GuestEmail, firstName: b.FirstName, lastName: b.LastName}
	t.addPhone(key, b.Phone)
	return nil
}

func (t *memTx) UpdateMember(_ context.Context, b models.Buyer) (string, error) {
	key := emailKey(b.MemberEmail)
	p, ok := t.st.members[key]
	if !ok {
		return "", fmt.Errorf("member %s: %w", b.MemberEmail, models.ErrNotFound)
	}
	if b.FirstName != "" {
		p.firstName = b.FirstName
	}
	if b.LastName != "" {
		p.lastName = b.LastName
	}
	t.st.members[key] = p
	t.addPhone(key, b.Phone)
	return p.email, nil
}

func (t *memTx) addPhone(key, phone string) {
	if phone == "" {
		return
	}
	phones := cloneMap(t.st.phones[key])
	phones[phone] = true
	t.st.phones[key] = phones
}
