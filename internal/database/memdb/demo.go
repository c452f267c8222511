package memdb

import "github.com/flytau/flight-booking/internal/models"

// DemoRoutes is the route network the in-memory demo starts with. Durations
// are in minutes.
var DemoRoutes = []models.Route{
	{Origin: "TLV", Destination: "ATH", DurationMinutes: 120},
	{Origin: "ATH", Destination: "TLV", DurationMinutes: 125},
	{Origin: "TLV", Destination: "LHR", DurationMinutes: 330},
	{Origin: "LHR", Destination: "TLV", DurationMinutes: 300},
	{Origin: "TLV", Destination: "JFK", DurationMinutes: 720},
	{Origin: "JFK", Destination: "TLV", DurationMinutes: 660},
	{Origin: "ATH", Destination: "LHR", DurationMinutes: 235},
	{Origin: "LHR", Destination: "ATH", DurationMinutes: 225},
}

// SeedDemo loads the demo routes and a member account. Aircraft, crew and
// flights are added through the manager API.
func SeedDemo(db *DB, memberEmail string) {
	for _, r := range DemoRoutes {
		db.AddRoute(r)
	}
	if memberEmail != "" {
		db.AddMember(memberEmail, "Demo", "Member")
	}
}
