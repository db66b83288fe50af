package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/ecommerce-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthTestRouter(t *testing.T) (*gin.Engine, *auth.JWTService) {
	t.Helper()
	jwtService, err := auth.NewJWTService("test-secret", 1)
	require.NoError(t, err)

	m := NewAuthMiddleware(jwtService)
	router := gin.New()
	router.GET("/protected", m.RequireAuth(), func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	router.GET("/admin", m.RequireAuth(), m.AdminOnly(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router, jwtService
}

func doRequest(router *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	router, _ := newAuthTestRouter(t)

	w := doRequest(router, "/protected", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_BadFormat(t *testing.T) {
	router, _ := newAuthTestRouter(t)

	w := doRequest(router, "/protected", "Token abc123")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	router, _ := newAuthTestRouter(t)

	w := doRequest(router, "/protected", "Bearer not-a-real-token")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_ValidToken(t *testing.T) {
	router, jwtService := newAuthTestRouter(t)

	token, err := jwtService.GenerateToken(42, "user@example.com", "client")
	require.NoError(t, err)

	w := doRequest(router, "/protected", "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "42")
}

func TestAdminOnly(t *testing.T) {
	router, jwtService := newAuthTestRouter(t)

	clientToken, err := jwtService.GenerateToken(42, "user@example.com", "client")
	require.NoError(t, err)
	adminToken, err := jwtService.GenerateToken(1, "admin@example.com", "admin")
	require.NoError(t, err)

	// Клиенту доступ запрещен
	w := doRequest(router, "/admin", "Bearer "+clientToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Администратору разрешен
	w = doRequest(router, "/admin", "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
}
