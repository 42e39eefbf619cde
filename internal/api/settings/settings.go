// Package settings implements the dashboard handlers for per-user preferences:
// notification toggles, theme and cookie consent.
//
// GET returns the stored row, or the defaults when the user has never saved.
// PUT accepts any subset of fields, merges it over the current values and upserts
// the whole row.
package settings

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/creavibe/creavibe/internal/api/respond"
	"github.com/creavibe/creavibe/internal/apperr"
	"github.com/creavibe/creavibe/internal/db/models"
	"github.com/creavibe/creavibe/internal/middleware"
)

// Store persists the settings rows
type Store interface {
	GetNotificationPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	UpsertNotificationPreferences(ctx context.Context, p *models.NotificationPreferences) error
	GetThemePreferences(ctx context.Context, userID string) (*models.ThemePreferences, error)
	UpsertThemePreferences(ctx context.Context, p *models.ThemePreferences) error
	GetConsentPreferences(ctx context.Context, userID string) (*models.ConsentPreferences, error)
	UpsertConsentPreferences(ctx context.Context, p *models.ConsentPreferences) error
}

// SettingsHandlers handles the settings endpoints
type SettingsHandlers struct {
	store Store
}

// NewSettingsHandlers creates a new SettingsHandlers instance
func NewSettingsHandlers(store Store) *SettingsHandlers {
	return &SettingsHandlers{store: store}
}

// NotificationsRequest is a partial update of notification preferences
type NotificationsRequest struct {
	EmailNotifications *bool `json:"email_notifications"`
	MarketingEmails    *bool `json:"marketing_emails"`
	ProductUpdates     *bool `json:"product_updates"`
	SecurityAlerts     *bool `json:"security_alerts"`
	WeeklyDigest       *bool `json:"weekly_digest"`
}

// ThemeRequest is a partial update of theme preferences
type ThemeRequest struct {
	Theme         *string `json:"theme"`
	AccentColor   *string `json:"accent_color"`
	FontSize      *string `json:"font_size"`
	ReducedMotion *bool   `json:"reduced_motion"`
}

// ConsentRequest is a partial update of cookie consent. Necessary cookies cannot be declined.
type ConsentRequest struct {
	Analytics   *bool `json:"analytics"`
	Marketing   *bool `json:"marketing"`
	Preferences *bool `json:"preferences"`
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func (h *SettingsHandlers) notifications(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	p, err := h.store.GetNotificationPreferences(ctx, userID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if p == nil {
		p = models.DefaultNotificationPreferences(userID)
	}
	return p, nil
}

func (h *SettingsHandlers) theme(ctx context.Context, userID string) (*models.ThemePreferences, error) {
	p, err := h.store.GetThemePreferences(ctx, userID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if p == nil {
		p = models.DefaultThemePreferences(userID)
	}
	return p, nil
}

func (h *SettingsHandlers) consent(ctx context.Context, userID string) (*models.ConsentPreferences, error) {
	p, err := h.store.GetConsentPreferences(ctx, userID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if p == nil {
		p = models.DefaultConsentPreferences(userID)
	}
	return p, nil
}

// @Summary      Get notification preferences
// @Tags         Settings
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  respond.Envelope
// @Router       /api/v1/settings/notifications [get]
func (h *SettingsHandlers) GetNotificationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.notifications(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			respond.Error(c, err)
			return
		}
		respond.OK(c, p)
	}
}

// @Summary      Update notification preferences
// @Tags         Settings
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  NotificationsRequest  true  "Fields to change"
// @Success      200  {object}  respond.Envelope
// @Failure      400  {object}  respond.Envelope
// @Router       /api/v1/settings/notifications [put]
func (h *SettingsHandlers) UpdateNotificationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req NotificationsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, apperr.Validation("Invalid request body", err.Error()))
			return
		}

		ctx := c.Request.Context()
		p, err := h.notifications(ctx, middleware.GetUserID(c))
		if err != nil {
			respond.Error(c, err)
			return
		}
		setBool(&p.EmailNotifications, req.EmailNotifications)
		setBool(&p.MarketingEmails, req.MarketingEmails)
		setBool(&p.ProductUpdates, req.ProductUpdates)
		setBool(&p.SecurityAlerts, req.SecurityAlerts)
		setBool(&p.WeeklyDigest, req.WeeklyDigest)

		if err := h.store.UpsertNotificationPreferences(ctx, p); err != nil {
			respond.Error(c, apperr.Database(err))
			return
		}
		respond.OK(c, p)
	}
}

// @Summary      Get theme preferences
// @Tags         Settings
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  respond.Envelope
// @Router       /api/v1/settings/theme [get]
func (h *SettingsHandlers) GetThemeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.theme(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			respond.Error(c, err)
			return
		}
		respond.OK(c, p)
	}
}

// @Summary      Update theme preferences
// @Description  theme is light, dark or system; font_size is small, medium or large; accent_color is #rrggbb.
// @Tags         Settings
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  ThemeRequest  true  "Fields to change"
// @Success      200  {object}  respond.Envelope
// @Failure      400  {object}  respond.Envelope
// @Router       /api/v1/settings/theme [put]
func (h *SettingsHandlers) UpdateThemeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ThemeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, apperr.Validation("Invalid request body", err.Error()))
			return
		}
		if err := req.validate(); err != nil {
			respond.Error(c, err)
			return
		}

		ctx := c.Request.Context()
		p, err := h.theme(ctx, middleware.GetUserID(c))
		if err != nil {
			respond.Error(c, err)
			return
		}
		if req.Theme != nil {
			p.Theme = *req.Theme
		}
		if req.AccentColor != nil {
			p.AccentColor = strings.ToLower(*req.AccentColor)
		}
		if req.FontSize != nil {
			p.FontSize = *req.FontSize
		}
		setBool(&p.ReducedMotion, req.ReducedMotion)

		if err := h.store.UpsertThemePreferences(ctx, p); err != nil {
			respond.Error(c, apperr.Database(err))
			return
		}
		respond.OK(c, p)
	}
}

func (r ThemeRequest) validate() error {
	if r.Theme != nil {
		switch *r.Theme {
		case models.ThemeLight, models.ThemeDark, models.ThemeSystem:
		default:
			return apperr.Validation("Invalid theme", gin.H{"field": "theme", "allowed": []string{
				models.ThemeLight, models.ThemeDark, models.ThemeSystem,
			}})
		}
	}
	if r.FontSize != nil {
		switch *r.FontSize {
		case models.FontSizeSmall, models.FontSizeMedium, models.FontSizeLarge:
		default:
			return apperr.Validation("Invalid font size", gin.H{"field": "font_size", "allowed": []string{
				models.FontSizeSmall, models.FontSizeMedium, models.FontSizeLarge,
			}})
		}
	}
	if r.AccentColor != nil && !isHexColor(*r.AccentColor) {
		return apperr.Validation("Accent color must be a #rrggbb hex color", gin.H{"field": "accent_color"})
	}
	return nil
}

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	_, err := strconv.ParseUint(s[1:], 16, 32)
	return err == nil
}

// @Summary      Get cookie consent
// @Tags         Settings
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  respond.Envelope
// @Router       /api/v1/settings/consent [get]
func (h *SettingsHandlers) GetConsentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.consent(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			respond.Error(c, err)
			return
		}
		respond.OK(c, p)
	}
}

// @Summary      Update cookie consent
// @Tags         Settings
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  ConsentRequest  true  "Fields to change"
// @Success      200  {object}  respond.Envelope
// @Failure      400  {object}  respond.Envelope
// @Router       /api/v1/settings/consent [put]
func (h *SettingsHandlers) UpdateConsentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConsentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, apperr.Validation("Invalid request body", err.Error()))
			return
		}

		ctx := c.Request.Context()
		p, err := h.consent(ctx, middleware.GetUserID(c))
		if err != nil {
			respond.Error(c, err)
			return
		}
		setBool(&p.Analytics, req.Analytics)
		setBool(&p.Marketing, req.Marketing)
		setBool(&p.Preferences, req.Preferences)

		if err := h.store.UpsertConsentPreferences(ctx, p); err != nil {
			respond.Error(c, apperr.Database(err))
			return
		}
		respond.OK(c, p)
	}
}
