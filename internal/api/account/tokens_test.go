package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creavibe/creavibe/internal/apperr"
	"github.com/creavibe/creavibe/internal/db/models"
	"github.com/creavibe/creavibe/internal/usage"
)

type fakeTokenService struct {
	created  []string
	revoked  []string
	list     []models.APIToken
	err      error
	lastUser string
}

func (f *fakeTokenService) Create(_ context.Context, userID, name string) (*models.APIToken, error) {
	f.lastUser = userID
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, name)
	return &models.APIToken{ID: "tok-1", UserID: userID, Name: name, Token: "cv_0123456789abcdef0123456789abcdef"}, nil
}

func (f *fakeTokenService) List(_ context.Context, userID string) ([]models.APIToken, error) {
	f.lastUser = userID
	return f.list, f.err
}

func (f *fakeTokenService) Revoke(_ context.Context, userID, tokenID string) error {
	f.lastUser = userID
	if f.err != nil {
		return f.err
	}
	f.revoked = append(f.revoked, tokenID)
	return nil
}

type fakeUsage struct {
	gotDays  int
	gotToken string
	err      error
}

func (f *fakeUsage) Metrics(_ context.Context, _, tokenID string, days int) (*usage.Metrics, error) {
	f.gotDays = days
	f.gotToken = tokenID
	if f.err != nil {
		return nil, f.err
	}
	return &usage.Metrics{
		TokenID:   tokenID,
		Days:      usage.NormalizeDays(days),
		Daily:     []usage.DailyCount{},
		Endpoints: []usage.EndpointCount{},
		Statuses:  []usage.StatusCount{},
	}, nil
}

func newTokenRouter(svc *fakeTokenService, u *fakeUsage) http.Handler {
	h := NewTokenHandlers(svc, u)
	r := newAuthedRouter()
	r.GET("/api/v1/tokens", h.ListTokensHandler())
	r.POST("/api/v1/tokens", h.CreateTokenHandler())
	r.DELETE("/api/v1/tokens/:id", h.RevokeTokenHandler())
	r.GET("/api/v1/tokens/:id/usage", h.TokenUsageHandler())
	return r
}

func TestCreateToken_ReturnsFullValueOnce(t *testing.T) {
	svc := &fakeTokenService{}
	w := doJSON(t, newTokenRouter(svc, &fakeUsage{}), http.MethodPost, "/api/v1/tokens", CreateTokenRequest{Name: "CI"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := decode(t, w)
	assert.True(t, env.Success)

	var token models.APIToken
	require.NoError(t, json.Unmarshal(env.Data, &token))
	assert.Equal(t, "cv_0123456789abcdef0123456789abcdef", token.Token)
	assert.Equal(t, []string{"CI"}, svc.created)
	assert.Equal(t, testUserID, svc.lastUser)
}

func TestCreateToken_InvalidBody(t *testing.T) {
	svc := &fakeTokenService{}
	r := newTokenRouter(svc, &fakeUsage{})

	w := doJSON(t, r, http.MethodPost, "/api/v1/tokens", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decode(t, w).Error.Code)
	assert.Empty(t, svc.created)
}

func TestCreateToken_ServiceValidationError(t *testing.T) {
	svc := &fakeTokenService{err: apperr.Validation("Token name is required", nil)}
	w := doJSON(t, newTokenRouter(svc, &fakeUsage{}), http.MethodPost, "/api/v1/tokens", CreateTokenRequest{Name: " "})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "Token name is required", env.Error.Message)
}

func TestListTokens(t *testing.T) {
	svc := &fakeTokenService{list: []models.APIToken{{ID: "a", Token: "cv_0123…cdef"}}}
	w := doJSON(t, newTokenRouter(svc, &fakeUsage{}), http.MethodGet, "/api/v1/tokens", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var tokens []models.APIToken
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &tokens))
	require.Len(t, tokens, 1)
	assert.Equal(t, "cv_0123…cdef", tokens[0].Token)
}

func TestListTokens_DatabaseErrorIsGeneric(t *testing.T) {
	svc := &fakeTokenService{err: apperr.Database(errors.New("connection refused"))}
	w := doJSON(t, newTokenRouter(svc, &fakeUsage{}), http.MethodGet, "/api/v1/tokens", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestRevokeToken(t *testing.T) {
	svc := &fakeTokenService{}
	r := newTokenRouter(svc, &fakeUsage{})

	for i := 0; i < 2; i++ {
		w := doJSON(t, r, http.MethodDelete, "/api/v1/tokens/tok-1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, []string{"tok-1", "tok-1"}, svc.revoked)
}

func TestRevokeToken_NotFound(t *testing.T) {
	svc := &fakeTokenService{err: apperr.NotFound("Token")}
	w := doJSON(t, newTokenRouter(svc, &fakeUsage{}), http.MethodDelete, "/api/v1/tokens/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w).Error.Code)
}

func TestTokenUsage_PassesDays(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 0},
		{"?days=7", 7},
		{"?days=abc", 0},
		{"?days=400", 400},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			u := &fakeUsage{}
			w := doJSON(t, newTokenRouter(&fakeTokenService{}, u), http.MethodGet, "/api/v1/tokens/tok-9/usage"+tt.query, nil)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, u.gotDays)
			assert.Equal(t, "tok-9", u.gotToken)

			var m usage.Metrics
			require.NoError(t, json.Unmarshal(decode(t, w).Data, &m))
			assert.Equal(t, usage.NormalizeDays(tt.want), m.Days)
		})
	}
}

func TestTokenUsage_StoreError(t *testing.T) {
	u := &fakeUsage{err: apperr.Database(errors.New("boom"))}
	w := doJSON(t, newTokenRouter(&fakeTokenService{}, u), http.MethodGet, "/api/v1/tokens/tok-9/usage", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
