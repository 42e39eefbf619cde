package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creavibe/creavibe/internal/apperr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(h gin.HandlerFunc) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/", h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestOK(t *testing.T) {
	w := serve(func(c *gin.Context) { OK(c, gin.H{"id": "1"}) })
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]interface{}{"id": "1"}, body["data"])
	assert.NotContains(t, body, "error")
}

func TestCreated(t *testing.T) {
	w := serve(func(c *gin.Context) { Created(c, []string{}) })
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		hasCause bool
	}{
		{"validation", apperr.Validation("Name is required", map[string]string{"field": "name"}), 400, "validation_error", false},
		{"not found", apperr.NotFound("Token"), 404, "not_found", false},
		{"unauthorized", apperr.Unauthorized("Not authenticated"), 401, "unauthorized", false},
		{"database", apperr.Database(errors.New("pq: secret detail")), 500, "database_error", true},
		{"unknown", errors.New("boom"), 500, "server_error", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(func(c *gin.Context) { Error(c, tt.err) })
			assert.Equal(t, tt.status, w.Code)

			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			errBody, ok := body["error"].(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.code, errBody["code"])
			assert.NotEmpty(t, errBody["message"])
			if tt.hasCause {
				assert.NotContains(t, w.Body.String(), "secret detail")
				assert.NotContains(t, w.Body.String(), "boom")
			}
		})
	}
}

func TestBare(t *testing.T) {
	w := serve(func(c *gin.Context) { Bare(c, http.StatusTooManyRequests, "rate_limited", "Too many requests") })
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, map[string]interface{}{"error": "rate_limited", "message": "Too many requests"}, decode(t, w))
}

func TestBareError(t *testing.T) {
	w := serve(func(c *gin.Context) { BareError(c, apperr.Database(errors.New("pq: secret detail"))) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]interface{}{"error": "database_error", "message": "A database error occurred"}, decode(t, w))

	w = serve(func(c *gin.Context) { BareError(c, apperr.NotFound("Project")) })
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Project not found", decode(t, w)["message"])
}
