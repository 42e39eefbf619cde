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

// APITokenRepository handles API token database operations
type APITokenRepository struct {
	db *sqlx.DB
}

// NewAPITokenRepository creates a new APITokenRepository
func NewAPITokenRepository(db *sqlx.DB) *APITokenRepository {
	return &APITokenRepository{db: db}
}

const apiTokenColumns = `id, user_id, name, token, revoked, created_at`

// CreateAPIToken inserts a new, unrevoked token. ID and CreatedAt are assigned here.
func (r *APITokenRepository) CreateAPIToken(ctx context.Context, token *models.APIToken) error {
	token.ID = uuid.New().String()
	token.CreatedAt = time.Now().UTC()
	token.Revoked = false

	query := `
		INSERT INTO api_tokens (id, user_id, name, token, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.Name,
		token.Token,
		token.Revoked,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert api token: %w", err)
	}
	return nil
}

// ListAPITokensByUser returns a user's tokens, newest first
func (r *APITokenRepository) ListAPITokensByUser(ctx context.Context, userID string) ([]*models.APIToken, error) {
	query := `SELECT ` + apiTokenColumns + ` FROM api_tokens WHERE user_id = $1 ORDER BY created_at DESC`

	tokens := []*models.APIToken{}
	if err := r.db.SelectContext(ctx, &tokens, query, userID); err != nil {
		if isMissingTable(err) {
			return []*models.APIToken{}, nil
		}
		return nil, fmt.Errorf("list api tokens: %w", err)
	}
	return tokens, nil
}

// GetActiveAPIToken looks up an unrevoked token by exact value. Returns nil when
// no such token exists or it has been revoked.
func (r *APITokenRepository) GetActiveAPIToken(ctx context.Context, value string) (*models.APIToken, error) {
	query := `SELECT ` + apiTokenColumns + ` FROM api_tokens WHERE token = $1 AND revoked = false`

	var token models.APIToken
	if err := r.db.GetContext(ctx, &token, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup api token: %w", err)
	}
	return &token, nil
}

// RevokeAPIToken sets revoked = true on the user's token. It reports whether a row
// matched; revoking an already revoked token still matches.
func (r *APITokenRepository) RevokeAPIToken(ctx context.Context, userID, id string) (bool, error) {
	query := `UPDATE api_tokens SET revoked = true WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("revoke api token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke api token: %w", err)
	}
	return n > 0, nil
}
