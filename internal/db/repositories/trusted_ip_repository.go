package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/creavibe/creavibe/internal/db/models"
)

// TrustedIPRepository handles trusted IP database operations
type TrustedIPRepository struct {
	db *sqlx.DB
}

// NewTrustedIPRepository creates a new TrustedIPRepository
func NewTrustedIPRepository(db *sqlx.DB) *TrustedIPRepository {
	return &TrustedIPRepository{db: db}
}

// ListTrustedIPs returns a user's trusted addresses, newest first
func (r *TrustedIPRepository) ListTrustedIPs(ctx context.Context, userID string) ([]*models.TrustedIP, error) {
	query := `
		SELECT id, user_id, host(ip_address) AS ip_address, label, last_used, created_at
		FROM trusted_ips WHERE user_id = $1 ORDER BY created_at DESC`

	ips := []*models.TrustedIP{}
	if err := r.db.SelectContext(ctx, &ips, query, userID); err != nil {
		if isMissingTable(err) {
			return []*models.TrustedIP{}, nil
		}
		return nil, fmt.Errorf("list trusted ips: %w", err)
	}
	return ips, nil
}

// AddTrustedIP inserts a trusted address. Adding an address twice refreshes its label.
func (r *TrustedIPRepository) AddTrustedIP(ctx context.Context, ip *models.TrustedIP) error {
	ip.ID = uuid.New().String()
	ip.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO trusted_ips (id, user_id, ip_address, label, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, ip_address) DO UPDATE SET label = EXCLUDED.label
		RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query, ip.ID, ip.UserID, ip.IPAddress, ip.Label, ip.CreatedAt).
		Scan(&ip.ID, &ip.CreatedAt); err != nil {
		return fmt.Errorf("add trusted ip: %w", err)
	}
	return nil
}

// TouchTrustedIP sets last_used to now for a matching address and reports whether one matched
func (r *TrustedIPRepository) TouchTrustedIP(ctx context.Context, userID, ipAddress string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE trusted_ips SET last_used = $1 WHERE user_id = $2 AND ip_address = $3`,
		time.Now().UTC(), userID, ipAddress)
	if err != nil {
		if isMissingTable(err) {
			return false, nil
		}
		return false, fmt.Errorf("touch trusted ip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("touch trusted ip: %w", err)
	}
	return n > 0, nil
}

// DeleteTrustedIP removes a trusted address and reports whether it existed
func (r *TrustedIPRepository) DeleteTrustedIP(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trusted_ips WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete trusted ip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete trusted ip: %w", err)
	}
	return n > 0, nil
}
