package database

import (
	"context"
	"fmt"

	"github.com/flytau/flight-booking/internal/models"
)

func (t *pgTx) MemberExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM members WHERE lower(email) = lower($1))`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check member: %w", err)
	}
	return exists, nil
}

func (t *pgTx) UpsertGuest(ctx context.Context, b models.Buyer) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO guests (email, first_name, last_name) VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name
	`, b.GuestEmail, b.FirstName, b.LastName)
	if err != nil {
		return fmt.Errorf("failed to save guest: %w", err)
	}
	return t.addPhone(ctx, b.GuestEmail, b.Phone)
}

func (t *pgTx) UpdateMember(ctx context.Context, b models.Buyer) (string, error) {
	var email string
	err := t.q.QueryRow(ctx, `
		UPDATE members
		SET first_name = COALESCE(NULLIF($2, ''), first_name),
		    last_name = COALESCE(NULLIF($3, ''), last_name)
		WHERE lower(email) = lower($1)
		RETURNING email
	`, b.MemberEmail, b.FirstName, b.LastName).Scan(&email)
	if err != nil {
		return "", notFound(err, "member "+b.MemberEmail)
	}
	return email, t.addPhone(ctx, email, b.Phone)
}

func (t *pgTx) addPhone(ctx context.Context, email, phone string) error {
	if phone == "" {
		return nil
	}
	_, err := t.q.Exec(ctx, `
		INSERT INTO phone_numbers (email, phone) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, email, phone)
	if err != nil {
		return fmt.Errorf("failed to record phone: %w", err)
	}
	return nil
}
