package models

import "time"

// NotificationPreferences holds a user's email notification toggles (one row per user)
type NotificationPreferences struct {
	UserID             string    `json:"user_id" db:"user_id"`
	EmailNotifications bool      `json:"email_notifications" db:"email_notifications"`
	MarketingEmails    bool      `json:"marketing_emails" db:"marketing_emails"`
	ProductUpdates     bool      `json:"product_updates" db:"product_updates"`
	SecurityAlerts     bool      `json:"security_alerts" db:"security_alerts"`
	WeeklyDigest       bool      `json:"weekly_digest" db:"weekly_digest"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultNotificationPreferences returns the preferences a user has before saving any
func DefaultNotificationPreferences(userID string) *NotificationPreferences {
	return &NotificationPreferences{
		UserID:             userID,
		EmailNotifications: true,
		MarketingEmails:    false,
		ProductUpdates:     true,
		SecurityAlerts:     true,
		WeeklyDigest:       false,
	}
}

// Theme names
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Font sizes
const (
	FontSizeSmall  = "small"
	FontSizeMedium = "medium"
	FontSizeLarge  = "large"
)

// DefaultAccentColor is the accent color of a user without saved theme preferences
const DefaultAccentColor = "#6366f1"

// ThemePreferences holds a user's appearance settings (one row per user)
type ThemePreferences struct {
	UserID        string    `json:"user_id" db:"user_id"`
	Theme         string    `json:"theme" db:"theme"`
	AccentColor   string    `json:"accent_color" db:"accent_color"`
	FontSize      string    `json:"font_size" db:"font_size"`
	ReducedMotion bool      `json:"reduced_motion" db:"reduced_motion"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultThemePreferences returns the theme a user has before saving any
func DefaultThemePreferences(userID string) *ThemePreferences {
	return &ThemePreferences{
		UserID:      userID,
		Theme:       ThemeSystem,
		AccentColor: DefaultAccentColor,
		FontSize:    FontSizeMedium,
	}
}

// ConsentPreferences records a user's cookie consent choices. Necessary cookies
// cannot be declined.
type ConsentPreferences struct {
	UserID      string    `json:"user_id" db:"user_id"`
	Necessary   bool      `json:"necessary" db:"necessary"`
	Analytics   bool      `json:"analytics" db:"analytics"`
	Marketing   bool      `json:"marketing" db:"marketing"`
	Preferences bool      `json:"preferences" db:"preferences"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultConsentPreferences returns the consent state of a user who has not chosen yet
func DefaultConsentPreferences(userID string) *ConsentPreferences {
	return &ConsentPreferences{UserID: userID, Necessary: true}
}
