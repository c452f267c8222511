package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/flytau/flight-booking/internal/models"
	"github.com/flytau/flight-booking/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Identity headers. Session handling lives in front of this API; it forwards
// the logged-in member's email. Guests present the email given at checkout.
const (
	HeaderMemberEmail = "X-Member-Email"
	HeaderGuestEmail  = "X-Guest-Email"
)

const dateLayout = "2006-01-02"

// Handler contains HTTP handlers for the API
type Handler struct {
	svc    service.Service
	logger *logrus.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(svc service.Service, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorResponse is the body of a failed request. EarliestCrewArrival is only
// set when the planner found no feasible assignment.
type errorResponse struct {
	Error               string     `json:"error"`
	EarliestCrewArrival *time.Time `json:"earliestCrewArrival,omitempty"`
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, models.ErrSeatUnavailable):
		return http.StatusConflict
	case errors.Is(err, models.ErrFlightNotBookable),
		errors.Is(err, models.ErrOrderNotActive),
		errors.Is(err, models.ErrTooCloseToDeparture),
		errors.Is(err, models.ErrInfeasibleAircraft),
		errors.Is(err, models.ErrInfeasibleCrew),
		errors.Is(err, models.ErrNoFeasibleAssignment),
		errors.Is(err, models.ErrIllegalTransition),
		errors.Is(err, models.ErrMemberLoginRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrStorage):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}
	if status >= http.StatusInternalServerError {
		h.logger.WithContext(r.Context()).WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	}
	var nf *models.NoFeasibleAssignmentError
	if errors.As(err, &nf) {
		body.EarliestCrewArrival = nf.EarliestArrival
	}
	respondJSON(w, status, body)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", models.ErrInvalidInput, err)
	}
	return nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", models.ErrInvalidInput, name)
	}
	return v, nil
}

// requester reads the caller's identity. A member session wins over a guest
// email.
func requester(r *http.Request) models.Requester {
	if m := strings.TrimSpace(r.Header.Get(HeaderMemberEmail)); m != "" {
		return models.Requester{MemberEmail: m}
	}
	g := strings.TrimSpace(r.Header.Get(HeaderGuestEmail))
	if g == "" {
		g = strings.TrimSpace(r.URL.Query().Get("email"))
	}
	return models.Requester{GuestEmail: g}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// SearchFlights handles GET /api/flights
func (h *Handler) SearchFlights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.FlightFilter{
		Origin:      q.Get("origin"),
		Destination: q.Get("destination"),
		Status:      models.FlightStatus(q.Get("status")),
	}
	if d := q.Get("date"); d != "" {
		day, err := time.Parse(dateLayout, d)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		filter.Date = &day
	}

	flights, err := h.svc.SearchFlights(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if flights == nil {
		flights = []models.FlightSummary{}
	}
	respondJSON(w, http.StatusOK, flights)
}

// GetSeatMap handles GET /api/flights/{id}/seats
func (h *Handler) GetSeatMap(w http.ResponseWriter, r *http.Request) {
	seatMap, err := h.svc.GetSeatMap(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, seatMap)
}

// ListRoutes handles GET /api/routes
func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.svc.ListRoutes(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, routes)
}

// CreateOrder handles POST /api/orders. Member identity comes only from the
// session header; a body claiming a member email is treated as a guest.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.BookRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if m := strings.TrimSpace(r.Header.Get(HeaderMemberEmail)); m != "" {
		req.Buyer.MemberEmail = m
		req.Buyer.GuestEmail = ""
	} else {
		if req.Buyer.GuestEmail == "" {
			req.Buyer.GuestEmail = req.Buyer.MemberEmail
		}
		req.Buyer.MemberEmail = ""
	}

	order, err := h.svc.Book(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

// GetOrder handles GET /api/orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathInt64(r, "id")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	details, err := h.svc.GetOrder(r.Context(), orderID, requester(r))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, details)
}

// CancelOrder handles POST /api/orders/{id}/cancel
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathInt64(r, "id")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	order, err := h.svc.CancelOrder(r.Context(), orderID, requester(r))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// ListMyOrders handles GET /api/members/me/orders
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.Header.Get(HeaderMemberEmail))
	status := models.OrderStatus(r.URL.Query().Get("status"))
	orders, err := h.svc.ListMemberOrders(r.Context(), email, status)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if orders == nil {
		orders = []models.OrderSummary{}
	}
	respondJSON(w, http.StatusOK, orders)
}
