package handlers

import (
	"net/http"
	"time"

	"github.com/flytau/flight-booking/internal/models"
	"github.com/gorilla/mux"
)

// routeRequest is the first step of flight creation
type routeRequest struct {
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DepartureAt time.Time `json:"departureAt"`
}

// DraftFlight handles POST /api/manager/flights/draft
func (h *Handler) DraftFlight(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	draft, err := h.svc.DraftFlight(r.Context(), req.Origin, req.Destination, req.DepartureAt)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, draft)
}

// PlanAssignment handles POST /api/manager/flights/plan
func (h *Handler) PlanAssignment(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	plan, err := h.svc.PlanAssignment(r.Context(), req.Origin, req.Destination, req.DepartureAt)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// CreateFlight handles POST /api/manager/flights
func (h *Handler) CreateFlight(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFlightRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	flight, err := h.svc.CreateFlight(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, flight)
}

type cancelFlightResponse struct {
	FlightID        string  `json:"flightId"`
	CancelledOrders []int64 `json:"cancelledOrders"`
}

// CancelFlight handles POST /api/manager/flights/{id}/cancel
func (h *Handler) CancelFlight(w http.ResponseWriter, r *http.Request) {
	flightID := mux.Vars(r)["id"]
	orders, err := h.svc.CancelFlight(r.Context(), flightID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if orders == nil {
		orders = []int64{}
	}
	respondJSON(w, http.StatusOK, cancelFlightResponse{
		FlightID:        flightID,
		CancelledOrders: orders,
	})
}

// AddAircraft handles POST /api/manager/aircraft
func (h *Handler) AddAircraft(w http.ResponseWriter, r *http.Request) {
	var req models.AddAircraftRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	aircraft, err := h.svc.AddAircraft(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, aircraft)
}

// ListAircraft handles GET /api/manager/aircraft
func (h *Handler) ListAircraft(w http.ResponseWriter, r *http.Request) {
	aircraft, err := h.svc.ListAircraft(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if aircraft == nil {
		aircraft = []models.Aircraft{}
	}
	respondJSON(w, http.StatusOK, aircraft)
}

// AddCrewMember handles POST /api/manager/crew
func (h *Handler) AddCrewMember(w http.ResponseWriter, r *http.Request) {
	var req models.CrewMember
	if err := decodeBody(r, &req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	member, err := h.svc.AddCrewMember(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, member)
}

// ListCrew handles GET /api/manager/crew
func (h *Handler) ListCrew(w http.ResponseWriter, r *http.Request) {
	crew, err := h.svc.ListCrew(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if crew == nil {
		crew = []models.CrewMember{}
	}
	respondJSON(w, http.StatusOK, crew)
}

// RefreshStatuses handles POST /api/manager/refresh
func (h *Handler) RefreshStatuses(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RefreshStatuses(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
