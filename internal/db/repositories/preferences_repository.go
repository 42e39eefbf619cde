package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/creavibe/creavibe/internal/db/models"
)

// PreferencesRepository handles the per-user settings rows: notification
// preferences, theme preferences and cookie consent. Each table holds at most one
// row per user and is written with an upsert.
type PreferencesRepository struct {
	db *sqlx.DB
}

// NewPreferencesRepository creates a new PreferencesRepository
func NewPreferencesRepository(db *sqlx.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// getRow scans a single settings row; a missing row or table yields found=false.
func (r *PreferencesRepository) getRow(ctx context.Context, dest interface{}, query, userID string) (bool, error) {
	if err := r.db.GetContext(ctx, dest, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMissingTable(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetNotificationPreferences returns the stored row or nil
func (r *PreferencesRepository) GetNotificationPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	query := `
		SELECT user_id, email_notifications, marketing_emails, product_updates, security_alerts, weekly_digest, updated_at
		FROM notification_preferences WHERE user_id = $1`

	var p models.NotificationPreferences
	found, err := r.getRow(ctx, &p, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get notification preferences: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

// UpsertNotificationPreferences writes the whole row
func (r *PreferencesRepository) UpsertNotificationPreferences(ctx context.Context, p *models.NotificationPreferences) error {
	p.UpdatedAt = time.Now().UTC()
	query := `
		INSERT INTO notification_preferences
			(user_id, email_notifications, marketing_emails, product_updates, security_alerts, weekly_digest, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			email_notifications = EXCLUDED.email_notifications,
			marketing_emails = EXCLUDED.marketing_emails,
			product_updates = EXCLUDED.product_updates,
			security_alerts = EXCLUDED.security_alerts,
			weekly_digest = EXCLUDED.weekly_digest,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		p.UserID, p.EmailNotifications, p.MarketingEmails, p.ProductUpdates, p.SecurityAlerts, p.WeeklyDigest, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert notification preferences: %w", err)
	}
	return nil
}

// GetThemePreferences returns the stored row or nil
func (r *PreferencesRepository) GetThemePreferences(ctx context.Context, userID string) (*models.ThemePreferences, error) {
	query := `
		SELECT user_id, theme, accent_color, font_size, reduced_motion, updated_at
		FROM theme_preferences WHERE user_id = $1`

	var p models.ThemePreferences
	found, err := r.getRow(ctx, &p, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get theme preferences: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

// UpsertThemePreferences writes the whole row
func (r *PreferencesRepository) UpsertThemePreferences(ctx context.Context, p *models.ThemePreferences) error {
	p.UpdatedAt = time.Now().UTC()
	query := `
		INSERT INTO theme_preferences (user_id, theme, accent_color, font_size, reduced_motion, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			theme = EXCLUDED.theme,
			accent_color = EXCLUDED.accent_color,
			font_size = EXCLUDED.font_size,
			reduced_motion = EXCLUDED.reduced_motion,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		p.UserID, p.Theme, p.AccentColor, p.FontSize, p.ReducedMotion, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert theme preferences: %w", err)
	}
	return nil
}

// GetConsentPreferences returns the stored row or nil
func (r *PreferencesRepository) GetConsentPreferences(ctx context.Context, userID string) (*models.ConsentPreferences, error) {
	query := `
		SELECT user_id, necessary, analytics, marketing, preferences, updated_at
		FROM cookie_consents WHERE user_id = $1`

	var p models.ConsentPreferences
	found, err := r.getRow(ctx, &p, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get consent preferences: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

// UpsertConsentPreferences writes the whole row. Necessary is always stored as true.
func (r *PreferencesRepository) UpsertConsentPreferences(ctx context.Context, p *models.ConsentPreferences) error {
	p.Necessary = true
	p.UpdatedAt = time.Now().UTC()
	query := `
		INSERT INTO cookie_consents (user_id, necessary, analytics, marketing, preferences, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			analytics = EXCLUDED.analytics,
			marketing = EXCLUDED.marketing,
			preferences = EXCLUDED.preferences,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		p.UserID, p.Necessary, p.Analytics, p.Marketing, p.Preferences, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert consent preferences: %w", err)
	}
	return nil
}
