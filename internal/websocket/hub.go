// Package websocket pushes seat and flight changes to browsers watching a
// flight.
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/flytau/flight-booking/internal/models"
	"github.com/sirupsen/logrus"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSeatsUpdated      MessageType = "seats_updated"
	MessageTypeFlightCancelled   MessageType = "flight_cancelled"
	MessageTypeStatusesRefreshed MessageType = "statuses_refreshed"
)

// SeatUpdate represents a seat availability change
type SeatUpdate struct {
	Seat   string `json:"seat"`
	Status string `json:"status"` // available, sold
}

// Message represents a WebSocket message. Messages without a flight id go
// to every client.
type Message struct {
	Type         MessageType         `json:"type"`
	FlightID     string              `json:"flightId,omitempty"`
	FlightStatus models.FlightStatus `json:"flightStatus,omitempty"`
	Seats        []SeatUpdate        `json:"seats,omitempty"`
	OrderID      int64               `json:"orderId,omitempty"`
	Message      string              `json:"message,omitempty"`
	Timestamp    int64               `json:"timestamp"`
}

// Hub manages WebSocket connections per flight
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	mu         sync.RWMutex
	logger     *logrus.Logger
}

// NewHub creates a new Hub
func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done, closing every
// client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for _, clients := range h.clients {
				for client := range clients {
					close(client.send)
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.flightID] == nil {
				h.clients[client.flightID] = make(map[*Client]bool)
			}
			h.clients[client.flightID][client] = true
			h.logger.WithFields(logrus.Fields{
				"flight_id": client.flightID,
				"client_id": client.id,
				"total":     len(h.clients[client.flightID]),
			}).Debug("websocket client registered")
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.logger.WithError(err).Warn("failed to marshal websocket message")
				continue
			}

			h.mu.Lock()
			var targets []map[*Client]bool
			if message.FlightID == "" {
				for _, clients := range h.clients {
					targets = append(targets, clients)
				}
			} else if clients, ok := h.clients[message.FlightID]; ok {
				targets = append(targets, clients)
			}
			for _, clients := range targets {
				for client := range clients {
					select {
					case client.send <- data:
					default:
						h.remove(client)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove drops a client; h.mu must be held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.flightID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	h.logger.WithFields(logrus.Fields{
		"flight_id": client.flightID,
		"client_id": client.id,
		"remaining": len(clients),
	}).Debug("websocket client unregistered")
	if len(clients) == 0 {
		delete(h.clients, client.flightID)
	}
}

// Publish turns a domain event into a push message. It satisfies
// events.Publisher and never blocks: when the queue is full the message is
// dropped.
func (h *Hub) Publish(_ context.Context, _ string, v any) error {
	msg := toMessage(v)
	if msg == nil {
		return nil
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.WithField("flight_id", msg.FlightID).Warn("websocket queue full, message dropped")
	}
	return nil
}

func toMessage(v any) *Message {
	switch e := v.(type) {
	case models.SeatEvent:
		status := "sold"
		if e.Available {
			status = "available"
		}
		seats := make([]SeatUpdate, len(e.Seats))
		for i, s := range e.Seats {
			seats[i] = SeatUpdate{Seat: s.String(), Status: status}
		}
		return &Message{
			Type:         MessageTypeSeatsUpdated,
			FlightID:     e.FlightID,
			FlightStatus: e.FlightStatus,
			Seats:        seats,
			OrderID:      e.OrderID,
			Timestamp:    e.OccurredAt.UnixMilli(),
		}
	case models.FlightEvent:
		if e.Status != models.FlightStatusCanceled {
			return nil
		}
		return &Message{
			Type:         MessageTypeFlightCancelled,
			FlightID:     e.FlightID,
			FlightStatus: e.Status,
			Message:      "This flight has been cancelled",
			Timestamp:    e.OccurredAt.UnixMilli(),
		}
	case models.RefreshResult:
		return &Message{
			Type:      MessageTypeStatusesRefreshed,
			Timestamp: e.RanAt.UnixMilli(),
		}
	}
	return nil
}

// ClientCount returns the number of clients watching a flight
func (h *Hub) ClientCount(flightID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[flightID])
}
