package httpapi

import (
	"errors"
	"net/http"

	"github.com/RoseWrightdev/chat-backend/internal/v1/apperr"
	"github.com/RoseWrightdev/chat-backend/internal/v1/auth"
	"github.com/RoseWrightdev/chat-backend/internal/v1/repository"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
}

// RegisterUser handles POST /api/register: validates the username/password
// pair, hashes the password, and creates the account. It does not log the
// new account in automatically — callers hit /api/login next.
func (d Deps) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.InvalidRequestFormat())
		return
	}

	var issues []auth.ValidationIssue
	issues = append(issues, auth.ValidateUsername(req.Username)...)
	issues = append(issues, auth.ValidatePassword(req.Password)...)
	issues = append(issues, auth.ValidateConfirmPassword(req.Password, req.ConfirmPassword)...)
	if len(issues) > 0 {
		writeError(c, apperr.Validation(issues))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(c, apperr.Internal(err))
		return
	}

	u, err := d.Repo.CreateUser(c.Request.Context(), req.Username, hash)
	if errors.Is(err, repository.ErrAlreadyExists) {
		writeError(c, apperr.UsernameAlreadyExists())
		return
	}
	if err != nil {
		writeError(c, apperr.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         u.ID,
		"username":   u.Username,
		"role":       u.Role,
		"created_at": u.CreatedAt,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /auth/login: verifies credentials and issues a fresh
// access/refresh token pair.
func (d Deps) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.InvalidRequestFormat())
		return
	}

	u, err := d.Repo.GetUserByUsername(c.Request.Context(), req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(c, apperr.WrongCredentials())
		return
	}
	if err != nil {
		writeError(c, apperr.Internal(err))
		return
	}
	if !auth.VerifyPassword(req.Password, u.PasswordHash) {
		writeError(c, apperr.WrongCredentials())
		return
	}

	d.issueTokenPair(c, u)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /api/refresh-token: a refresh token is single-use, so a
// successful call both consumes the old one and mints a new pair, rotating
// the refresh token on every use.
func (d Deps) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.InvalidRequestFormat())
		return
	}

	hash := auth.HashRefreshToken(req.RefreshToken)
	rt, err := d.Repo.ConsumeRefreshToken(c.Request.Context(), hash)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(c, apperr.SessionExpired())
		return
	}
	if err != nil {
		writeError(c, apperr.Internal(err))
		return
	}

	u, err := d.Repo.GetUserByID(c.Request.Context(), rt.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(c, apperr.UserNotFound())
		return
	}
	if err != nil {
		writeError(c, apperr.Internal(err))
		return
	}

	d.issueTokenPair(c, u)
}

func (d Deps) issueTokenPair(c *gin.Context, u *repository.User) {
	access, _, err := d.Tokens.GenerateAccessToken(u.ID, string(u.Role), d.AccessTokenExpiry)
	if err != nil {
		writeError(c, apperr.Internal(err))
		return
	}

	refresh, err := auth.NewRefreshToken()
	if err != nil {
		writeError(c, apperr.Internal(err))
		return
	}
	if _, err := d.Repo.CreateRefreshToken(c.Request.Context(), u.ID, auth.HashRefreshToken(refresh), d.RefreshTokenExpiry); err != nil {
		writeError(c, apperr.Internal(err))
		return
	}

	c.JSON(http.StatusOK, tokenPairResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       u.ID,
		Username:     u.Username,
	})
}

// DeleteAccount handles DELETE /api/account: permanently removes the
// caller's own account. Room/membership cleanup mirrors the delete_account
// WebSocket command; this is the REST equivalent for clients that are not
// currently connected.
func (d Deps) DeleteAccount(c *gin.Context) {
	userID := c.GetString("user_id")
	if _, err := d.Repo.DeleteUser(c.Request.Context(), userID); err != nil {
		writeError(c, apperr.Internal(err))
		return
	}
	c.Status(http.StatusNoContent)
}
