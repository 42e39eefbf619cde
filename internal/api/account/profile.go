package account

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/creavibe/creavibe/internal/api/respond"
	"github.com/creavibe/creavibe/internal/apperr"
	"github.com/creavibe/creavibe/internal/db/models"
	"github.com/creavibe/creavibe/internal/middleware"
)

// ProfileStore reads profile rows
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// SubscriptionReader reads the billing state written by the payment webhook
type SubscriptionReader interface {
	GetLatestSubscription(ctx context.Context, userID string) (*models.Subscription, error)
}

// ProfileHandlers handles the profile and billing summary endpoints
type ProfileHandlers struct {
	profiles      ProfileStore
	subscriptions SubscriptionReader
}

// NewProfileHandlers creates a new ProfileHandlers instance
func NewProfileHandlers(profiles ProfileStore, subscriptions SubscriptionReader) *ProfileHandlers {
	return &ProfileHandlers{profiles: profiles, subscriptions: subscriptions}
}

// @Summary      Get profile
// @Description  The caller's profile. Users without a profile row get one derived from their session.
// @Tags         Account
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  respond.Envelope
// @Router       /api/v1/profile [get]
func (h *ProfileHandlers) GetProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		profile, err := h.profiles.GetProfile(c.Request.Context(), userID)
		if err != nil {
			respond.Error(c, apperr.Database(err))
			return
		}
		if profile == nil {
			profile = models.DerivedProfile(userID, middleware.GetEmail(c))
		}
		respond.OK(c, profile)
	}
}

// @Summary      Get subscription
// @Description  The caller's most recent billing subscription, or null.
// @Tags         Billing
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  respond.Envelope
// @Router       /api/v1/billing/subscription [get]
func (h *ProfileHandlers) GetSubscriptionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := h.subscriptions.GetLatestSubscription(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			respond.Error(c, apperr.Database(err))
			return
		}
		respond.OK(c, gin.H{
			"subscription": sub,
			"active":       sub != nil && sub.Status == models.SubscriptionActive,
		})
	}
}
