package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RoseWrightdev/chat-backend/internal/v1/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*RateLimiter, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		RateLimitAPIGlobal:   "10-M",
		RateLimitAPIPublic:   "5-M",
		RateLimitAPIRooms:    "5-M",
		RateLimitAPIMessages: "5-M",
		RateLimitWsIP:        "5-M",
		RateLimitWsUser:      "5-M",
	}

	rl, err := NewRateLimiter(cfg, rc)
	require.NoError(t, err)

	return rl, mr
}

func TestNewRateLimiterMemory(t *testing.T) {
	cfg := &config.Config{
		RateLimitAPIGlobal:   "10-M",
		RateLimitAPIPublic:   "5-M",
		RateLimitAPIRooms:    "5-M",
		RateLimitAPIMessages: "5-M",
		RateLimitWsIP:        "5-M",
		RateLimitWsUser:      "5-M",
	}
	rl, err := NewRateLimiter(cfg, nil)
	assert.NoError(t, err)
	assert.NotNil(t, rl)
	assert.Nil(t, rl.redisClient)
}

func TestGlobalMiddlewarePublic(t *testing.T) {
	rl, mr := newTestLimiter(t)
	defer mr.Close()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rl.GlobalMiddleware())
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		req, _ := http.NewRequest("GET", "/test", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "5", resp.Header().Get("X-RateLimit-Limit"))
	}

	req, _ := http.NewRequest("GET", "/test", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestGlobalMiddlewareUser(t *testing.T) {
	rl, mr := newTestLimiter(t)
	defer mr.Close()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
		c.Next()
	})
	r.Use(rl.GlobalMiddleware())
	r.GET("/test-user", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Global user limit is 10
	for i := 0; i < 10; i++ {
		req, _ := http.NewRequest("GET", "/test-user", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "10", resp.Header().Get("X-RateLimit-Limit"))
	}

	req, _ := http.NewRequest("GET", "/test-user", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestMiddlewareForEndpoint(t *testing.T) {
	rl, mr := newTestLimiter(t)
	defer mr.Close()

	r := gin.New()
	r.POST("/rooms", rl.MiddlewareForEndpoint("rooms"), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		req, _ := http.NewRequest("POST", "/rooms", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusOK, resp.Code)
	}

	req, _ := http.NewRequest("POST", "/rooms", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestCheckWebSocketIP(t *testing.T) {
	rl, mr := newTestLimiter(t)
	defer mr.Close()

	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request, _ = http.NewRequest("GET", "/ws", nil)

	for i := 0; i < 5; i++ {
		assert.True(t, rl.CheckWebSocket(ctx))
	}
	assert.False(t, rl.CheckWebSocket(ctx))
}

func TestCheckWebSocketUser(t *testing.T) {
	rl, mr := newTestLimiter(t)
	defer mr.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		assert.NoError(t, rl.CheckWebSocketUser(ctx, "user1"))
	}
	assert.Error(t, rl.CheckWebSocketUser(ctx, "user1"))
}

func TestRateLimiterFailsOpenWhenRedisDown(t *testing.T) {
	rl, mr := newTestLimiter(t)
	mr.Close()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rl.GlobalMiddleware())
	r.GET("/fail-open", func(c *gin.Context) { c.Status(http.StatusOK) })

	req, _ := http.NewRequest("GET", "/fail-open", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}

// TestGlobalMiddlewareUsesContextUserIDNotHeader confirms the rate limiter
// keys on the user id set by an earlier auth middleware rather than trying
// to parse the Authorization header itself, so a request cannot downgrade
// itself to the generous user limit just by presenting a bearer token an
// auth middleware hasn't actually validated.
func TestGlobalMiddlewareUsesContextUserIDNotHeader(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := &config.Config{
		RateLimitAPIGlobal:   "100-M",
		RateLimitAPIPublic:   "1-M",
		RateLimitAPIRooms:    "10-M",
		RateLimitAPIMessages: "10-M",
		RateLimitWsIP:        "10-M",
		RateLimitWsUser:      "10-M",
	}
	rl, err := NewRateLimiter(cfg, rc)
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rl.GlobalMiddleware())
	r.GET("/test-bypass", func(c *gin.Context) { c.Status(http.StatusOK) })

	req1, _ := http.NewRequest("GET", "/test-bypass", nil)
	req1.Header.Set("Authorization", "Bearer unvalidated-token")
	resp1 := httptest.NewRecorder()
	r.ServeHTTP(resp1, req1)
	assert.Equal(t, http.StatusOK, resp1.Code)

	// Second request with the same unvalidated bearer token still counts
	// against the strict public/IP limit, since no "user_id" was set.
	req2, _ := http.NewRequest("GET", "/test-bypass", nil)
	req2.Header.Set("Authorization", "Bearer unvalidated-token")
	resp2 := httptest.NewRecorder()
	r.ServeHTTP(resp2, req2)
	assert.Equal(t, http.StatusTooManyRequests, resp2.Code)
}
