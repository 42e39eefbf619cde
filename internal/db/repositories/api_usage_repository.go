package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/creavibe/creavibe/internal/db/models"
)

// APIUsageRepository handles API usage database operations
type APIUsageRepository struct {
	db *sqlx.DB
}

// NewAPIUsageRepository creates a new APIUsageRepository
func NewAPIUsageRepository(db *sqlx.DB) *APIUsageRepository {
	return &APIUsageRepository{db: db}
}

// RecordUsage appends one usage row
func (r *APIUsageRepository) RecordUsage(ctx context.Context, usage *models.APIUsage) error {
	usage.ID = uuid.New().String()
	if usage.CreatedAt.IsZero() {
		usage.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO api_usage (id, token_id, endpoint, method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		usage.ID,
		usage.TokenID,
		usage.Endpoint,
		usage.Method,
		usage.Status,
		usage.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert api usage: %w", err)
	}
	return nil
}

// ListUsage returns the usage rows of one token owned by userID with created_at in
// [from, to], oldest first. Unknown or foreign tokens yield an empty slice.
func (r *APIUsageRepository) ListUsage(ctx context.Context, userID, tokenID string, from, to time.Time) ([]models.APIUsage, error) {
	query, args, err := psql.
		Select("u.id", "u.token_id", "u.endpoint", "u.method", "u.status", "u.created_at").
		From("api_usage u").
		Join("api_tokens t ON t.id = u.token_id").
		Where("u.token_id = ?", tokenID).
		Where("t.user_id = ?", userID).
		Where("u.created_at >= ?", from).
		Where("u.created_at <= ?", to).
		OrderBy("u.created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build usage query: %w", err)
	}

	rows := []models.APIUsage{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if isMissingTable(err) || isInvalidInput(err) {
			return []models.APIUsage{}, nil
		}
		return nil, fmt.Errorf("list api usage: %w", err)
	}
	return rows, nil
}
