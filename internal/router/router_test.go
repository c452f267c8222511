package router

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/flytau/flight-booking/internal/handlers"
	"github.com/flytau/flight-booking/internal/models"
	"github.com/flytau/flight-booking/internal/service/mocks"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newRouter(t *testing.T, refreshCalls *int32, ws http.HandlerFunc) (*mocks.MockService, http.Handler) {
	t.Helper()
	mockService := new(mocks.MockService)
	logger, _ := test.NewNullLogger()
	opts := Options{
		Handler:        handlers.NewHandler(mockService, logger),
		ServiceName:    "flight-booking-test",
		Logger:         logger,
		WebSocket:      ws,
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	if refreshCalls != nil {
		opts.Refresh = func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(refreshCalls, 1)
				next.ServeHTTP(w, r)
			})
		}
	}
	return mockService, SetupRouter(opts)
}

func TestRouter_HealthSkipsRefresh(t *testing.T) {
	var calls int32
	_, r := newRouter(t, &calls, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestRouter_APIRunsRefreshAndKeepsRequestID(t *testing.T) {
	var calls int32
	mockService, r := newRouter(t, &calls, nil)
	mockService.On("ListRoutes", mock.Anything).Return([]models.Route{{Origin: "TLV", Destination: "ATH", DurationMinutes: 120}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/routes", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	mockService.AssertExpectations(t)
}

func TestRouter_ManagerRoutes(t *testing.T) {
	mockService, r := newRouter(t, nil, nil)
	mockService.On("RefreshStatuses", mock.Anything).Return(models.RefreshResult{FlightsCompleted: 2}, nil)
	mockService.On("ListCrew", mock.Anything).Return([]models.CrewMember{}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/manager/refresh", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"flightsCompleted":2`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/manager/crew", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// mux clears a method mismatch once a later route under the same
	// prefix is tried, so unknown methods below /api are plain 404s
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/manager/crew", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	mockService.AssertExpectations(t)
}

func TestRouter_MethodNotAllowedAtTopLevel(t *testing.T) {
	_, r := newRouter(t, nil, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	_, r := newRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", handlers.HeaderMemberEmail)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_WebSocketRoute(t *testing.T) {
	var got string
	_, r := newRouter(t, nil, func(w http.ResponseWriter, req *http.Request) {
		got = req.URL.Path
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/flights/F00001/ws", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "/api/flights/F00001/ws", got)

	_, r = newRouter(t, nil, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/flights/F00001/ws", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
