package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/giftnotify/push-api/internal/model"
	"github.com/giftnotify/push-api/internal/repository"
)

type subscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) repository.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Upsert inserts a subscription or, when the endpoint is already
// registered, overwrites every mutable field including the key material.
// last_status/last_error are left untouched on re-registration.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub *model.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, endpoint, p256dh, auth, user_agent, device, ip,
			city, country, nickname, email, registered_at, last_status, last_error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, '', '')
		ON CONFLICT (endpoint) DO UPDATE SET
			p256dh = EXCLUDED.p256dh,
			auth = EXCLUDED.auth,
			user_agent = EXCLUDED.user_agent,
			device = EXCLUDED.device,
			ip = EXCLUDED.ip,
			city = EXCLUDED.city,
			country = EXCLUDED.country,
			nickname = EXCLUDED.nickname,
			email = EXCLUDED.email,
			registered_at = EXCLUDED.registered_at
	`
	_, err := r.db.ExecContext(ctx, query,
		sub.ID,
		sub.Endpoint,
		sub.P256dh,
		sub.Auth,
		sub.UserAgent,
		sub.Device,
		sub.IP,
		sub.City,
		sub.Country,
		sub.Nickname,
		sub.Email,
		sub.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) List(ctx context.Context) ([]*model.Subscription, error) {
	query := `SELECT * FROM subscriptions ORDER BY registered_at DESC`
	var subs []*model.Subscription
	if err := r.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

func (r *subscriptionRepository) RecordOutcome(ctx context.Context, id uuid.UUID, status, lastError string) error {
	query := `UPDATE subscriptions SET last_status = $1, last_error = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, lastError, id)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM subscriptions WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM subscriptions`); err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return count, nil
}
