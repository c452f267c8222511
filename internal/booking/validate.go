package booking

import (
	"fmt"
	"strings"

	"github.com/flytau/flight-booking/internal/models"
)

// validateBookRequest rejects malformed checkouts before a transaction opens.
func validateBookRequest(req models.BookRequest) error {
	if strings.TrimSpace(req.FlightID) == "" {
		return fmt.Errorf("%w: flight id is required", models.ErrInvalidInput)
	}
	if req.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", models.ErrInvalidInput)
	}
	if len(req.Seats) != req.Quantity {
		return fmt.Errorf("%w: selected %d seats for a quantity of %d", models.ErrInvalidInput, len(req.Seats), req.Quantity)
	}

	seen := make(map[models.SeatKey]bool, len(req.Seats))
	for _, s := range req.Seats {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s] {
			return fmt.Errorf("%w: seat %s selected twice", models.ErrInvalidInput, s)
		}
		seen[s] = true
	}

	return validateBuyer(req.Buyer)
}

func validateBuyer(b models.Buyer) error {
	member, guest := strings.TrimSpace(b.MemberEmail), strings.TrimSpace(b.GuestEmail)
	switch {
	case member == "" && guest == "":
		return fmt.Errorf("%w: a member or guest email is required", models.ErrInvalidInput)
	case member != "" && guest != "":
		return fmt.Errorf("%w: order must have exactly one buyer", models.ErrInvalidInput)
	}
	if !validEmail(member + guest) {
		return fmt.Errorf("%w: malformed email %q", models.ErrInvalidInput, member+guest)
	}
	if guest != "" {
		if strings.TrimSpace(b.FirstName) == "" || strings.TrimSpace(b.LastName) == "" {
			return fmt.Errorf("%w: guest first and last name are required", models.ErrInvalidInput)
		}
		if strings.TrimSpace(b.Phone) == "" {
			return fmt.Errorf("%w: guest phone is required", models.ErrInvalidInput)
		}
	}
	return nil
}

func validEmail(s string) bool {
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}
