// Package account implements the dashboard handlers that manage a signed-in user's own
// credentials and account state: API tokens and their usage, trusted IP addresses,
// security activity, profile and billing subscription.
// All routes sit behind SessionAuthMiddleware, so user_id is always present.
package account

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/creavibe/creavibe/internal/api/respond"
	"github.com/creavibe/creavibe/internal/apperr"
	"github.com/creavibe/creavibe/internal/db/models"
	"github.com/creavibe/creavibe/internal/middleware"
	"github.com/creavibe/creavibe/internal/usage"
)

// TokenService issues, lists and revokes API tokens
type TokenService interface {
	Create(ctx context.Context, userID, name string) (*models.APIToken, error)
	List(ctx context.Context, userID string) ([]models.APIToken, error)
	Revoke(ctx context.Context, userID, tokenID string) error
}

// UsageReporter computes per-token usage metrics
type UsageReporter interface {
	Metrics(ctx context.Context, userID, tokenID string, days int) (*usage.Metrics, error)
}

// TokenHandlers handles API token management endpoints
type TokenHandlers struct {
	tokens TokenService
	usage  UsageReporter
}

// NewTokenHandlers creates a new TokenHandlers instance
func NewTokenHandlers(tokens TokenService, usage UsageReporter) *TokenHandlers {
	return &TokenHandlers{tokens: tokens, usage: usage}
}

// CreateTokenRequest represents the request to create an API token
type CreateTokenRequest struct {
	Name string `json:"name"`
}

// @Summary      List API tokens
// @Description  List the caller's API tokens, newest first. Token values are masked.
// @Tags         API Tokens
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  respond.Envelope
// @Failure      401  {object}  respond.Envelope
// @Router       /api/v1/tokens [get]
func (h *TokenHandlers) ListTokensHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokens, err := h.tokens.List(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			respond.Error(c, err)
			return
		}
		respond.OK(c, tokens)
	}
}

// @Summary      Create API token
// @Description  Issue a new API token. The full token value is only returned here.
// @Tags         API Tokens
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  CreateTokenRequest  true  "Token name"
// @Success      201  {object}  respond.Envelope
// @Failure      400  {object}  respond.Envelope
// @Router       /api/v1/tokens [post]
func (h *TokenHandlers) CreateTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, apperr.Validation("Invalid request body", err.Error()))
			return
		}

		token, err := h.tokens.Create(c.Request.Context(), middleware.GetUserID(c), req.Name)
		if err != nil {
			respond.Error(c, err)
			return
		}
		respond.Created(c, token)
	}
}

// @Summary      Revoke API token
// @Description  Revoke one of the caller's tokens. Revoking twice succeeds.
// @Tags         API Tokens
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Token ID"
// @Success      200  {object}  respond.Envelope
// @Failure      404  {object}  respond.Envelope
// @Router       /api/v1/tokens/{id} [delete]
func (h *TokenHandlers) RevokeTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := h.tokens.Revoke(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
			respond.Error(c, err)
			return
		}
		respond.OK(c, gin.H{"id": id, "revoked": true})
	}
}

// @Summary      API token usage
// @Description  Daily, per-endpoint and per-status request counts for a token over the last N days (default 30, max 365).
// @Tags         API Tokens
// @Security     Bearer
// @Produce      json
// @Param        id    path   string  true   "Token ID"
// @Param        days  query  int     false  "Window length in days"
// @Success      200  {object}  respond.Envelope
// @Router       /api/v1/tokens/{id}/usage [get]
func (h *TokenHandlers) TokenUsageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// unparsable values fall back to the default window
		days, _ := strconv.Atoi(c.Query("days"))

		metrics, err := h.usage.Metrics(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), days)
		if err != nil {
			respond.Error(c, err)
			return
		}
		respond.OK(c, metrics)
	}
}
