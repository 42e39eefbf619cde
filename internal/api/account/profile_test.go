package account

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creavibe/creavibe/internal/db/models"
	"github.com/creavibe/creavibe/internal/db/repositories"
)

func newProfileRouter(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	h := NewProfileHandlers(repositories.NewProfileRepository(db), repositories.NewSubscriptionRepository(db))

	r := newAuthedRouter()
	r.GET("/api/v1/profile", h.GetProfileHandler())
	r.GET("/api/v1/billing/subscription", h.GetSubscriptionHandler())
	return r, mock
}

func TestGetProfile_StoredRow(t *testing.T) {
	r, mock := newProfileRouter(t)
	mock.ExpectQuery("SELECT id, email, full_name, avatar_url, created_at FROM profiles").
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "avatar_url", "created_at"}).
			AddRow(testUserID, testEmail, "Ada Lovelace", "https://cdn.example.com/a.png", time.Now()))

	w := doJSON(t, r, http.MethodGet, "/api/v1/profile", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var p models.Profile
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &p))
	assert.Equal(t, "Ada Lovelace", p.FullName)
	assert.False(t, p.Derived)
}

func TestGetProfile_DerivedWhenMissing(t *testing.T) {
	r, mock := newProfileRouter(t)
	mock.ExpectQuery("SELECT .* FROM profiles").WillReturnRows(
		sqlmock.NewRows([]string{"id", "email", "full_name", "avatar_url", "created_at"}))

	w := doJSON(t, r, http.MethodGet, "/api/v1/profile", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var p models.Profile
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &p))
	assert.Equal(t, testUserID, p.ID)
	assert.Equal(t, testEmail, p.Email)
	assert.Equal(t, "ada", p.FullName)
	assert.True(t, p.Derived)
}

func TestGetProfile_DatabaseError(t *testing.T) {
	r, mock := newProfileRouter(t)
	mock.ExpectQuery("SELECT .* FROM profiles").WillReturnError(errors.New("boom"))

	w := doJSON(t, r, http.MethodGet, "/api/v1/profile", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetSubscription(t *testing.T) {
	subCols := []string{"id", "user_id", "customer_id", "subscription_id", "status", "price_id", "current_period_end", "updated_at"}

	t.Run("active", func(t *testing.T) {
		r, mock := newProfileRouter(t)
		mock.ExpectQuery("SELECT .* FROM subscriptions WHERE user_id").
			WithArgs(testUserID).
			WillReturnRows(sqlmock.NewRows(subCols).
				AddRow("s-1", testUserID, "cus_1", "sub_1", "active", "price_pro", time.Now().Add(720*time.Hour), time.Now()))

		w := doJSON(t, r, http.MethodGet, "/api/v1/billing/subscription", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Subscription *models.Subscription `json:"subscription"`
			Active       bool                 `json:"active"`
		}
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &body))
		require.NotNil(t, body.Subscription)
		assert.Equal(t, "sub_1", body.Subscription.SubscriptionID)
		assert.True(t, body.Active)
	})

	t.Run("none", func(t *testing.T) {
		r, mock := newProfileRouter(t)
		mock.ExpectQuery("SELECT .* FROM subscriptions").WillReturnRows(sqlmock.NewRows(subCols))

		w := doJSON(t, r, http.MethodGet, "/api/v1/billing/subscription", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"subscription":null,"active":false}`, string(decode(t, w).Data))
	})
}
