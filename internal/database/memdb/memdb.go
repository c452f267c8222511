// Package memdb is an in-memory database.Store. Transactions are serialised
// by one lock and run against a private copy of the state, which replaces
// the shared state only on commit.
package memdb

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/flytau/flight-booking/internal/database"
	"github.com/flytau/flight-booking/internal/models"
)

type routeKey struct{ origin, destination string }

type ticketKey struct {
	flightID string
	seat     models.SeatKey
}

type link struct {
	orderID    int64
	aircraftID int64
	ticketKey
}

type person struct {
	email, firstName, lastName string
}

type state struct {
	routes      map[routeKey]models.Route
	aircraft    map[int64]models.Aircraft
	seats       map[int64][]models.SeatKey
	crew        map[int64]models.CrewMember
	flights     map[string]models.Flight
	assignments map[string][]int64
	tickets     map[ticketKey]models.Ticket
	orders      map[int64]models.Order
	links       []link
	members     map[string]person
	guests      map[string]person
	phones      map[string]map[string]bool
	lastOrderID int64
}

func newState() *state {
	return &state{
		routes:      make(map[routeKey]models.Route),
		aircraft:    make(map[int64]models.Aircraft),
		seats:       make(map[int64][]models.SeatKey),
		crew:        make(map[int64]models.CrewMember),
		flights:     make(map[string]models.Flight),
		assignments: make(map[string][]int64),
		tickets:     make(map[ticketKey]models.Ticket),
		orders:      make(map[int64]models.Order),
		members:     make(map[string]person),
		guests:      make(map[string]person),
		phones:      make(map[string]map[string]bool),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	c := &state{
		routes:      cloneMap(s.routes),
		aircraft:    cloneMap(s.aircraft),
		seats:       cloneMap(s.seats),
		crew:        cloneMap(s.crew),
		flights:     cloneMap(s.flights),
		assignments: cloneMap(s.assignments),
		tickets:     cloneMap(s.tickets),
		orders:      cloneMap(s.orders),
		links:       append([]link(nil), s.links...),
		members:     cloneMap(s.members),
		guests:      cloneMap(s.guests),
		phones:      make(map[string]map[string]bool, len(s.phones)),
		lastOrderID: s.lastOrderID,
	}
	for k, v := range s.phones {
		c.phones[k] = cloneMap(v)
	}
	return c
}

// DB is the in-memory store
type DB struct {
	mu sync.Mutex
	st *state
}

var _ database.Store = (*DB)(nil)

func New() *DB {
	return &DB{st: newState()}
}

// WithTx runs fn against a copy of the state and commits the copy when fn
// returns nil.
func (db *DB) WithTx(ctx context.Context, fn func(tx database.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	work := db.st.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}
	db.st = work
	return nil
}

// View runs fn against a copy of the state and discards it.
func (db *DB) View(ctx context.Context, fn func(tx database.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(&memTx{st: db.st.clone()})
}

func (db *DB) Close() {}

func (db *DB) write(fn func(s *state)) {
	db.mu.Lock()
	defer db.mu.Unlock()
	fn(db.st)
}

func (db *DB) read(fn func(s *state)) {
	db.mu.Lock()
	defer db.mu.Unlock()
	fn(db.st)
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sortTickets(tickets []models.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].Seat.Less(tickets[j].Seat)
	})
}
