package models

import "time"

// TrustedIP is an address a user has marked as trusted. Entries never expire.
type TrustedIP struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	IPAddress string     `json:"ip_address" db:"ip_address"`
	Label     string     `json:"label" db:"label"`
	LastUsed  *time.Time `json:"last_used" db:"last_used"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
