package session

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/RoseWrightdev/chat-backend/internal/v1/auth"
	"github.com/RoseWrightdev/chat-backend/internal/v1/chat"
	"github.com/RoseWrightdev/chat-backend/internal/v1/keydirectory"
	"github.com/RoseWrightdev/chat-backend/internal/v1/metrics"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// TokenVerifier authenticates the access token presented on connect. Backed
// by *auth.TokenIssuer in production; a fake in tests.
type TokenVerifier interface {
	VerifyAccessToken(tokenString string) (userID, role string, exp int64, err error)
}

// Hub upgrades incoming HTTP requests to a single per-user WebSocket
// connection and wires it to the command dispatcher. There is exactly one
// socket per authenticated user; a reconnect replaces the prior one.
type Hub struct {
	registry       *Registry
	verifier       TokenVerifier
	repo           chat.Repo
	keys           *keydirectory.Service
	allowedOrigins []string
}

func NewHub(registry *Registry, verifier TokenVerifier, repo chat.Repo, keys *keydirectory.Service, allowedOrigins []string) *Hub {
	return &Hub{
		registry:       registry,
		verifier:       verifier,
		repo:           repo,
		keys:           keys,
		allowedOrigins: allowedOrigins,
	}
}

var upgrader = websocket.Upgrader{
	WriteBufferPool: &sync.Pool{
		New: func() any { return make([]byte, 4096) },
	},
}

// ServeWs authenticates the connection via a bearer token query parameter,
// upgrades it, registers the resulting mailbox, and starts its pumps.
func (h *Hub) ServeWs(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token not provided"})
		return
	}

	userID, _, exp, err := h.verifier.VerifyAccessToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	upgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		originURL, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, allowed := range h.allowedOrigins {
			allowedURL, err := url.Parse(allowed)
			if err == nil && originURL.Scheme == allowedURL.Scheme && originURL.Host == allowedURL.Host {
				return true
			}
		}
		return false
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("failed to upgrade connection", "error", err)
		return
	}

	deps := chat.Deps{Repo: h.repo, Keys: h.keys, Bcast: h.registry}
	client := newClient(conn, userID, time.Unix(exp, 0), deps, h.registry)

	h.registry.Put(userID, client)
	metrics.IncConnection()
	slog.Info("websocket connection established", "user_id", userID)

	go client.writePump()
	go client.readPump(context.Background())
	go client.expiryWatcher()
}
