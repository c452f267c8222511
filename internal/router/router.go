package router

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/flytau/flight-booking/internal/handlers"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// HeaderRequestID carries the request correlation id
const HeaderRequestID = "X-Request-ID"

// Options configures the HTTP surface
type Options struct {
	Handler     *handlers.Handler
	ServiceName string
	Logger      *logrus.Logger

	// WebSocket serves /api/flights/{id}/ws; nil disables the route
	WebSocket http.HandlerFunc

	// Refresh runs before every API request, e.g. the throttled status refresh
	Refresh mux.MiddlewareFunc

	AllowedOrigins []string
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(opts Options) http.Handler {
	h := opts.Handler
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := mux.NewRouter()
	r.Use(
		otelmux.Middleware(opts.ServiceName),
		requestLogger(logger),
	)

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	if opts.Refresh != nil {
		api.Use(opts.Refresh)
	}

	// Flights
	api.HandleFunc("/flights", h.SearchFlights).Methods(http.MethodGet)
	api.HandleFunc("/flights/{id}/seats", h.GetSeatMap).Methods(http.MethodGet)
	api.HandleFunc("/routes", h.ListRoutes).Methods(http.MethodGet)

	// Orders
	api.HandleFunc("/orders", h.CreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", h.GetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/cancel", h.CancelOrder).Methods(http.MethodPost)
	api.HandleFunc("/members/me/orders", h.ListMyOrders).Methods(http.MethodGet)

	// Manager
	mgr := api.PathPrefix("/manager").Subrouter()
	mgr.HandleFunc("/flights/draft", h.DraftFlight).Methods(http.MethodPost)
	mgr.HandleFunc("/flights/plan", h.PlanAssignment).Methods(http.MethodPost)
	mgr.HandleFunc("/flights", h.CreateFlight).Methods(http.MethodPost)
	mgr.HandleFunc("/flights/{id}/cancel", h.CancelFlight).Methods(http.MethodPost)
	mgr.HandleFunc("/aircraft", h.AddAircraft).Methods(http.MethodPost)
	mgr.HandleFunc("/aircraft", h.ListAircraft).Methods(http.MethodGet)
	mgr.HandleFunc("/crew", h.AddCrewMember).Methods(http.MethodPost)
	mgr.HandleFunc("/crew", h.ListCrew).Methods(http.MethodGet)
	mgr.HandleFunc("/refresh", h.RefreshStatuses).Methods(http.MethodPost)

	// WebSocket for real-time seat updates
	if opts.WebSocket != nil {
		api.HandleFunc("/flights/{id}/ws", opts.WebSocket)
	}

	// Health check
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization",
			handlers.HeaderMemberEmail, handlers.HeaderGuestEmail, HeaderRequestID},
		ExposedHeaders: []string{HeaderRequestID},
		MaxAge:         300,
	}).Handler(r)
}

func requestLogger(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, id)

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			entry := logger.WithContext(r.Context()).WithFields(logrus.Fields{
				"request_id":  id,
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			if rec.status >= http.StatusInternalServerError {
				entry.Warn("request completed")
				return
			}
			entry.Debug("request completed")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades through the recorder.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}
