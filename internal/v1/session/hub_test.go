package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	userID string
	role   string
	exp    int64
	err    error
}

func (f *fakeVerifier) VerifyAccessToken(tokenString string) (string, string, int64, error) {
	if f.err != nil {
		return "", "", 0, f.err
	}
	return f.userID, f.role, f.exp, nil
}

func newTestHub(t *testing.T, verifier TokenVerifier) (*Hub, *Registry) {
	t.Helper()
	reg := NewRegistry()
	return NewHub(reg, verifier, nil, nil, []string{"http://localhost:3000"}), reg
}

func TestServeWsRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub, _ := newTestHub(t, &fakeVerifier{})
	router := gin.New()
	router.GET("/ws", hub.ServeWs)

	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWsRejectsInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub, _ := newTestHub(t, &fakeVerifier{err: assert.AnError})
	router := gin.New()
	router.GET("/ws", hub.ServeWs)

	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws?token=bad")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWsUpgradesAndRegistersClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	verifier := &fakeVerifier{userID: "user-1", role: "member", exp: time.Now().Add(time.Hour).Unix()}
	hub, reg := newTestHub(t, verifier)
	router := gin.New()
	router.GET("/ws", hub.ServeWs)

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=good"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	assert.Eventually(t, func() bool {
		shard := reg.shardFor("user-1")
		shard.mu.RLock()
		defer shard.mu.RUnlock()
		_, ok := shard.clients["user-1"]
		return ok
	}, time.Second, 10*time.Millisecond)
}
