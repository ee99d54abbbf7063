package httpapi

import (
	"strings"

	"github.com/RoseWrightdev/chat-backend/internal/v1/apperr"
	"github.com/gin-gonic/gin"
)

// RequireAuth validates the bearer access token on every request and sets
// "user_id"/"role" in the gin context for downstream handlers and the rate
// limiter to read. Never trust those keys without this middleware first in
// the chain.
func RequireAuth(verifier TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == "" || tokenString == header {
			writeError(c, apperr.InvalidToken())
			return
		}

		userID, role, _, err := verifier.VerifyAccessToken(tokenString)
		if err != nil {
			writeError(c, apperr.SessionExpired())
			return
		}

		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}

// writeError renders an *apperr.Error as the standard wire envelope and
// aborts the chain.
func writeError(c *gin.Context, e *apperr.Error) {
	c.AbortWithStatusJSON(e.Status, gin.H{"errors": e.Items()})
}
