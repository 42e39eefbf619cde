package models

import "time"

// Subscription statuses written by the billing webhook
const (
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
)

// Subscription mirrors the payment provider's subscription state for a user
type Subscription struct {
	ID               string     `json:"id" db:"id"`
	UserID           *string    `json:"user_id" db:"user_id"`
	CustomerID       string     `json:"customer_id" db:"customer_id"`
	SubscriptionID   string     `json:"subscription_id" db:"subscription_id"`
	Status           string     `json:"status" db:"status"`
	PriceID          string     `json:"price_id" db:"price_id"`
	CurrentPeriodEnd *time.Time `json:"current_period_end" db:"current_period_end"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}
