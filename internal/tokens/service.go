// Package tokens implements the API token lifecycle: issue, list, validate, revoke,
// and recording of per-call usage. Tokens are opaque random strings with a fixed
// prefix, stored in plaintext and matched exactly. A token moves from active to
// revoked once and never back.
package tokens

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/creavibe/creavibe/internal/apperr"
	"github.com/creavibe/creavibe/internal/db/models"
	"github.com/creavibe/creavibe/internal/telemetry"
)

// DefaultPrefix marks CreaVibe API tokens
const DefaultPrefix = "cv_"

// MaxNameLength is the longest accepted token name, in characters
const MaxNameLength = 100

// ErrInvalidToken is returned by Validate for every rejected token, whatever the reason.
var ErrInvalidToken = apperr.Unauthorized("Invalid API token")

// Store persists tokens
type Store interface {
	CreateAPIToken(ctx context.Context, token *models.APIToken) error
	ListAPITokensByUser(ctx context.Context, userID string) ([]*models.APIToken, error)
	GetActiveAPIToken(ctx context.Context, value string) (*models.APIToken, error)
	RevokeAPIToken(ctx context.Context, userID, id string) (bool, error)
}

// UsageRecorder appends usage rows
type UsageRecorder interface {
	RecordUsage(ctx context.Context, usage *models.APIUsage) error
}

// Service handles API token business logic
type Service struct {
	store  Store
	usage  UsageRecorder
	prefix string
}

// NewService creates a token Service. An empty prefix selects DefaultPrefix.
func NewService(store Store, usage UsageRecorder, prefix string) *Service {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Service{store: store, usage: usage, prefix: prefix}
}

// GenerateTokenValue returns prefix followed by the 32 hex digits of a random UUID.
// Uniqueness is not checked; 122 random bits make collisions negligible.
func GenerateTokenValue(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Create issues a new active token for userID
func (s *Service) Create(ctx context.Context, userID, name string) (*models.APIToken, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("Token name is required", map[string]string{"field": "name"})
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, apperr.Validation("Token name must be at most 100 characters", map[string]string{"field": "name"})
	}

	token := &models.APIToken{
		UserID: userID,
		Name:   name,
		Token:  GenerateTokenValue(s.prefix),
	}
	if err := s.store.CreateAPIToken(ctx, token); err != nil {
		return nil, apperr.Database(err)
	}

	telemetry.TokenOperationsTotal.WithLabelValues("created").Inc()
	slog.Info("api token created", "user_id", userID, "token_id", token.ID)
	return token, nil
}

// List returns the user's tokens, newest first, with secrets masked
func (s *Service) List(ctx context.Context, userID string) ([]models.APIToken, error) {
	stored, err := s.store.ListAPITokensByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	out := make([]models.APIToken, 0, len(stored))
	for _, t := range stored {
		out = append(out, t.Masked())
	}
	return out, nil
}

// Revoke marks the user's token revoked. Revoking an already revoked token succeeds.
func (s *Service) Revoke(ctx context.Context, userID, tokenID string) error {
	if _, err := uuid.Parse(tokenID); err != nil {
		return apperr.NotFound("Token")
	}
	found, err := s.store.RevokeAPIToken(ctx, userID, tokenID)
	if err != nil {
		return apperr.Database(err)
	}
	if !found {
		return apperr.NotFound("Token")
	}

	telemetry.TokenOperationsTotal.WithLabelValues("revoked").Inc()
	slog.Info("api token revoked", "user_id", userID, "token_id", tokenID)
	return nil
}

// Validate resolves a presented token value to its active token. Empty, malformed,
// unknown and revoked tokens all yield ErrInvalidToken; so does a lookup failure,
// which is logged.
func (s *Service) Validate(ctx context.Context, value string) (*models.APIToken, error) {
	if value == "" || !strings.HasPrefix(value, s.prefix) {
		telemetry.TokenOperationsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidToken
	}

	token, err := s.store.GetActiveAPIToken(ctx, value)
	if err != nil {
		slog.Error("api token lookup failed", "error", err)
		telemetry.TokenOperationsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidToken
	}
	if token == nil {
		telemetry.TokenOperationsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidToken
	}

	telemetry.TokenOperationsTotal.WithLabelValues("validated").Inc()
	return token, nil
}

// RecordUsage appends one usage row for a public API call
func (s *Service) RecordUsage(ctx context.Context, tokenID, endpoint, method string, status int) error {
	err := s.usage.RecordUsage(ctx, &models.APIUsage{
		TokenID:  tokenID,
		Endpoint: endpoint,
		Method:   method,
		Status:   status,
	})
	if err != nil {
		telemetry.APIUsageRecordedTotal.WithLabelValues("error").Inc()
		return apperr.Database(err)
	}
	telemetry.APIUsageRecordedTotal.WithLabelValues("ok").Inc()
	return nil
}
