package models

import (
	"strings"
	"time"
)

// Profile is the public profile of a BaaS auth user
type Profile struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"full_name" db:"full_name"`
	AvatarURL string    `json:"avatar_url" db:"avatar_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	// Derived is true when no profile row exists and the profile was built from token claims
	Derived bool `json:"derived" db:"-"`
}

// DerivedProfile builds a minimal profile for a user whose profile row is missing.
// The display name falls back to the local part of the email address.
func DerivedProfile(userID, email string) *Profile {
	name := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		name = email[:i]
	}
	return &Profile{ID: userID, Email: email, FullName: name, Derived: true}
}
