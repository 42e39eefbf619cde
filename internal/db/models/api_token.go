// Package models defines the database model types for the CreaVibe backend.
// Each type corresponds to a table in the BaaS database and carries both json tags for
// API responses and db tags for sqlx row scanning.
// Models are pure data types; query logic belongs in the repositories layer.
package models

import "time"

// APIToken is an opaque bearer credential a user issues for the public API.
// It is only ever mutated to set Revoked to true.
type APIToken struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Token     string    `json:"token" db:"token"`
	Revoked   bool      `json:"revoked" db:"revoked"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Masked returns a copy of the token with the secret reduced to its prefix and last
// four characters, for list views after creation.
func (t APIToken) Masked() APIToken {
	if len(t.Token) > 12 {
		t.Token = t.Token[:7] + "…" + t.Token[len(t.Token)-4:]
	}
	return t
}
