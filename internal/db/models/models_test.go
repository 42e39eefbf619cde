package models

import "testing"

// ---------------------------------------------------------------------------
// ProjectStatus.Valid
// ---------------------------------------------------------------------------

func TestProjectStatus_Valid(t *testing.T) {
	for _, s := range []ProjectStatus{ProjectStatusDraft, ProjectStatusPublished, ProjectStatusArchived} {
		if !s.Valid() {
			t.Errorf("%q.Valid() = false, want true", s)
		}
	}
	for _, s := range []ProjectStatus{"", "deleted", "Draft"} {
		if s.Valid() {
			t.Errorf("%q.Valid() = true, want false", s)
		}
	}
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

func TestDefaultNotificationPreferences(t *testing.T) {
	p := DefaultNotificationPreferences("user-1")
	if p.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", p.UserID)
	}
	if !p.EmailNotifications || p.MarketingEmails || !p.ProductUpdates || !p.SecurityAlerts || p.WeeklyDigest {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

func TestDefaultThemePreferences(t *testing.T) {
	p := DefaultThemePreferences("user-1")
	if p.Theme != ThemeSystem || p.AccentColor != DefaultAccentColor || p.FontSize != FontSizeMedium || p.ReducedMotion {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

func TestDefaultConsentPreferences(t *testing.T) {
	p := DefaultConsentPreferences("user-1")
	if !p.Necessary {
		t.Error("Necessary must default to true")
	}
	if p.Analytics || p.Marketing || p.Preferences {
		t.Errorf("optional consents must default to false: %+v", p)
	}
}

// ---------------------------------------------------------------------------
// DerivedProfile / APIToken.Masked
// ---------------------------------------------------------------------------

func TestDerivedProfile(t *testing.T) {
	p := DerivedProfile("u1", "ada@example.com")
	if p.FullName != "ada" || !p.Derived || p.Email != "ada@example.com" {
		t.Errorf("DerivedProfile() = %+v", p)
	}

	p = DerivedProfile("u1", "")
	if p.FullName != "" {
		t.Errorf("FullName = %q, want empty for empty email", p.FullName)
	}
}

func TestAPIToken_Masked(t *testing.T) {
	tok := APIToken{Token: "cv_0123456789abcdef0123456789abcdef"}
	got := tok.Masked().Token
	if got != "cv_0123…cdef" {
		t.Errorf("Masked().Token = %q", got)
	}
	if tok.Token != "cv_0123456789abcdef0123456789abcdef" {
		t.Error("Masked() must not modify the receiver")
	}

	short := APIToken{Token: "cv_short"}
	if short.Masked().Token != "cv_short" {
		t.Error("short tokens are returned unchanged")
	}
}
