package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/creavibe/creavibe/internal/db/models"
)

// SubscriptionRepository persists subscription state received from the payment provider
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// UpsertSubscription inserts or updates a subscription keyed by the provider's
// subscription id. A nil UserID or empty CustomerID/PriceID/CurrentPeriodEnd never
// overwrites a stored value, since later events may omit them.
func (r *SubscriptionRepository) UpsertSubscription(ctx context.Context, s *models.Subscription) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO subscriptions (id, user_id, customer_id, subscription_id, status, price_id, current_period_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (subscription_id) DO UPDATE SET
			user_id = COALESCE(EXCLUDED.user_id, subscriptions.user_id),
			customer_id = COALESCE(NULLIF(EXCLUDED.customer_id, ''), subscriptions.customer_id),
			status = EXCLUDED.status,
			price_id = COALESCE(NULLIF(EXCLUDED.price_id, ''), subscriptions.price_id),
			current_period_end = COALESCE(EXCLUDED.current_period_end, subscriptions.current_period_end),
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.CustomerID, s.SubscriptionID, s.Status, s.PriceID, s.CurrentPeriodEnd, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// RecordCheckout stores a subscription created by a completed checkout. A new row
// gets s.Status; an existing row keeps its status, since a subscription event
// delivered earlier is more recent than the checkout. Only a missing user or
// customer is filled in.
func (r *SubscriptionRepository) RecordCheckout(ctx context.Context, s *models.Subscription) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO subscriptions (id, user_id, customer_id, subscription_id, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (subscription_id) DO UPDATE SET
			user_id = COALESCE(subscriptions.user_id, EXCLUDED.user_id),
			customer_id = COALESCE(NULLIF(subscriptions.customer_id, ''), EXCLUDED.customer_id),
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.CustomerID, s.SubscriptionID, s.Status, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("record checkout: %w", err)
	}
	return nil
}

// SetSubscriptionStatus updates only the status and reports whether the subscription was known
func (r *SubscriptionRepository) SetSubscriptionStatus(ctx context.Context, subscriptionID, status string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET status = $1, updated_at = $2 WHERE subscription_id = $3`,
		status, time.Now().UTC(), subscriptionID)
	if err != nil {
		return false, fmt.Errorf("set subscription status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set subscription status: %w", err)
	}
	return n > 0, nil
}

// GetLatestSubscription returns the most recently updated subscription of a user, or nil
func (r *SubscriptionRepository) GetLatestSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	query := `
		SELECT id, user_id, customer_id, subscription_id, status, price_id, current_period_end, updated_at
		FROM subscriptions WHERE user_id = $1
		ORDER BY updated_at DESC LIMIT 1`

	var s models.Subscription
	if err := r.db.GetContext(ctx, &s, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMissingTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &s, nil
}
