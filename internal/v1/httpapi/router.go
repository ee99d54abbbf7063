package httpapi

import (
	"github.com/gin-gonic/gin"
)

// RateLimiter is the subset of ratelimit.RateLimiter the router wires in.
type RateLimiter interface {
	GlobalMiddleware() gin.HandlerFunc
	MiddlewareForEndpoint(endpointType string) gin.HandlerFunc
}

// WsHandler upgrades a single request to the long-lived per-user socket.
type WsHandler interface {
	ServeWs(c *gin.Context)
}

// Register wires every HTTP route this service exposes onto r. health and
// /metrics are left for the caller to attach directly, since they carry
// their own dependency set (DB/Redis pingers, the Prometheus registry)
// rather than Deps.
func (d Deps) Register(r gin.IRouter, rl RateLimiter, ws WsHandler) {
	api := r.Group("/api")
	api.Use(rl.GlobalMiddleware())

	api.POST("/register", d.RegisterUser)
	api.POST("/login", d.Login)
	api.POST("/refresh-token", d.Refresh)
	api.DELETE("/account", RequireAuth(d.Tokens), d.DeleteAccount)

	keysGroup := api.Group("/keys", RequireAuth(d.Tokens))
	{
		keysGroup.POST("", d.UploadKeys)
		keysGroup.GET("/status/count", d.KeyStatus)
		keysGroup.GET("/:username", d.FetchBundle)
	}

	filesGroup := api.Group("/files", RequireAuth(d.Tokens))
	{
		filesGroup.POST("", rl.MiddlewareForEndpoint("messages"), d.UploadFile)
		filesGroup.POST("/download", d.DownloadFile)
	}

	// The socket handshake authenticates itself via a ?token= query
	// parameter (browsers cannot set a custom header on the upgrade
	// request), so RequireAuth does not sit in front of this route.
	r.GET("/ws_handler", ws.ServeWs)
}
