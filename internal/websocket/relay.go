package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flytau/flight-booking/internal/models"
)

// RelayKeys are the routing key patterns the hub consumes from the broker
var RelayKeys = []string{"order.*", "flight.*", "statuses.*"}

// Relay decodes a broker delivery and pushes it like a local event. It
// satisfies mq.Handler. Unknown keys are ignored.
func (h *Hub) Relay(ctx context.Context, key string, body []byte) error {
	var v any
	switch key {
	case models.EventOrderCreated, models.EventOrderCancelled:
		var e models.SeatEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		v = e
	case models.EventFlightCreated, models.EventFlightCancelled, models.EventFlightStatus:
		var e models.FlightEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		v = e
	case models.EventStatusesRefreshed:
		var e models.RefreshResult
		if err := json.Unmarshal(body, &e); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		v = e
	default:
		return nil
	}
	return h.Publish(ctx, key, v)
}
