package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload this system issues and verifies. It is the
// sole source of truth for a session's identity and role; the server is
// its own issuer, not a consumer of an external JWKS.
type Claims struct {
	Sub string `json:"sub"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies access tokens with an HMAC-SHA256 secret.
type TokenIssuer struct {
	secret []byte
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

// GenerateAccessToken mints a token for userID/role expiring in ttl.
func (t *TokenIssuer) GenerateAccessToken(userID, role string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		Sub:  userID,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// VerifyAccessToken parses and validates tokenString, returning the subject
// user id, role, and expiry (unix seconds).
func (t *TokenIssuer) VerifyAccessToken(tokenString string) (userID, role string, exp int64, err error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", "", 0, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", "", 0, fmt.Errorf("invalid token claims")
	}
	if claims.ExpiresAt == nil {
		return "", "", 0, fmt.Errorf("token missing expiry")
	}
	return claims.Sub, claims.Role, claims.ExpiresAt.Unix(), nil
}
