// Package auth provides request authentication primitives: bearer header parsing and
// verification of the BaaS-issued session JWTs. Opaque API tokens are handled by
// internal/tokens; see internal/middleware/auth.go for the request-time wiring.
package auth

import (
	"errors"
	"strings"
)

var (
	ErrMissingHeader = errors.New("authorization header is empty")
	ErrNotBearer     = errors.New("authorization header must start with 'Bearer '")
	ErrEmptyToken    = errors.New("token is empty after Bearer prefix")
)

// ExtractBearer extracts the credential from an Authorization header.
// Expected format: "Bearer <token>"
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingHeader
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrNotBearer
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}
