package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RoseWrightdev/chat-backend/internal/v1/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := auth.NewTokenIssuer("test-secret-at-least-32-bytes-long")

	w := httptest.NewRecorder()
	c, r := gin.CreateTestContext(w)
	r.Use(RequireAuth(issuer))
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })
	c.Request = httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, c.Request)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := auth.NewTokenIssuer("test-secret-at-least-32-bytes-long")
	token, _, err := issuer.GenerateAccessToken("user-1", "user", time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	var seenUserID string
	r.Use(RequireAuth(issuer))
	r.GET("/protected", func(c *gin.Context) {
		seenUserID = c.GetString("user_id")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", seenUserID)
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := auth.NewTokenIssuer("test-secret-at-least-32-bytes-long")
	token, _, err := issuer.GenerateAccessToken("user-1", "user", -time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(RequireAuth(issuer))
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
