// Package httpapi implements the request/response HTTP surface: account
// registration and login, pre-key directory upload/fetch, and encrypted
// file transfer. Anything that is a standing conversation between a client
// and the rest of the room (messages, invitations, membership changes)
// goes over the WebSocket dispatcher in the session/chat packages instead —
// this package only covers operations that are naturally one-shot
// request/response.
package httpapi

import (
	"context"
	"time"

	"github.com/RoseWrightdev/chat-backend/internal/v1/keydirectory"
	"github.com/RoseWrightdev/chat-backend/internal/v1/repository"
)

// TokenIssuer mints and verifies access/refresh-bearing JWTs. Satisfied by
// *auth.TokenIssuer.
type TokenIssuer interface {
	GenerateAccessToken(userID, role string, ttl time.Duration) (token string, expiresAt time.Time, err error)
	VerifyAccessToken(tokenString string) (userID, role string, exp int64, err error)
}

// Repo is the subset of the repository layer the HTTP handlers use.
type Repo interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*repository.User, error)
	GetUserByID(ctx context.Context, id string) (*repository.User, error)
	GetUserByUsername(ctx context.Context, username string) (*repository.User, error)
	DeleteUser(ctx context.Context, id string) (*repository.User, error)

	CreateRefreshToken(ctx context.Context, userID, tokenHash string, ttl time.Duration) (*repository.RefreshToken, error)
	ConsumeRefreshToken(ctx context.Context, tokenHash string) (*repository.RefreshToken, error)

	InsertFile(ctx context.Context, data, metadata []byte, hash string) (*repository.FileRecord, error)
	GetFile(ctx context.Context, id string) (*repository.FileRecord, error)

	GetMessageByID(ctx context.Context, id string) (*repository.UserMessage, error)
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}

// Deps aggregates everything the HTTP handlers need.
type Deps struct {
	Repo               Repo
	Tokens             TokenIssuer
	Keys               *keydirectory.Service
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}
