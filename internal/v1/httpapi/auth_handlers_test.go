package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RoseWrightdev/chat-backend/internal/v1/auth"
	"github.com/RoseWrightdev/chat-backend/internal/v1/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	usersByID       map[string]*repository.User
	usersByUsername map[string]*repository.User
	refreshByHash   map[string]*repository.RefreshToken
	messages        map[string]*repository.UserMessage
	members         map[string]map[string]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		usersByID:       map[string]*repository.User{},
		usersByUsername: map[string]*repository.User{},
		refreshByHash:   map[string]*repository.RefreshToken{},
		messages:        map[string]*repository.UserMessage{},
		members:         map[string]map[string]bool{},
	}
}

func (f *fakeRepo) CreateUser(ctx context.Context, username, passwordHash string) (*repository.User, error) {
	if _, exists := f.usersByUsername[username]; exists {
		return nil, repository.ErrAlreadyExists
	}
	u := &repository.User{ID: uuid.NewString(), Username: username, PasswordHash: passwordHash, Role: repository.RoleUser}
	f.usersByID[u.ID] = u
	f.usersByUsername[username] = u
	return u, nil
}

func (f *fakeRepo) GetUserByID(ctx context.Context, id string) (*repository.User, error) {
	u, ok := f.usersByID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) GetUserByUsername(ctx context.Context, username string) (*repository.User, error) {
	u, ok := f.usersByUsername[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) DeleteUser(ctx context.Context, id string) (*repository.User, error) {
	u, ok := f.usersByID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(f.usersByID, id)
	delete(f.usersByUsername, u.Username)
	return u, nil
}

func (f *fakeRepo) CreateRefreshToken(ctx context.Context, userID, tokenHash string, ttl time.Duration) (*repository.RefreshToken, error) {
	rt := &repository.RefreshToken{ID: uuid.NewString(), UserID: userID, TokenHash: tokenHash, ExpiresAt: time.Now().Add(ttl)}
	f.refreshByHash[tokenHash] = rt
	return rt, nil
}

func (f *fakeRepo) ConsumeRefreshToken(ctx context.Context, tokenHash string) (*repository.RefreshToken, error) {
	rt, ok := f.refreshByHash[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(f.refreshByHash, tokenHash)
	return rt, nil
}

func (f *fakeRepo) InsertFile(ctx context.Context, data, metadata []byte, hash string) (*repository.FileRecord, error) {
	return &repository.FileRecord{ID: uuid.NewString(), EncryptedData: data, EncryptedMetadata: metadata, FileHash: hash, SizeInBytes: int64(len(data))}, nil
}

func (f *fakeRepo) GetFile(ctx context.Context, id string) (*repository.FileRecord, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) GetMessageByID(ctx context.Context, id string) (*repository.UserMessage, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m, nil
}

func (f *fakeRepo) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	return f.members[roomID][userID], nil
}

func newTestDeps() (Deps, *fakeRepo) {
	repo := newFakeRepo()
	return Deps{
		Repo:               repo,
		Tokens:             auth.NewTokenIssuer("test-secret-at-least-32-bytes-long"),
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 720 * time.Hour,
	}, repo
}

func doJSON(t *testing.T, handler gin.HandlerFunc, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	handler(c)
	return w
}

func TestRegisterCreatesAccount(t *testing.T) {
	deps, repo := newTestDeps()
	w := doJSON(t, deps.RegisterUser, http.MethodPost, "/api/register", registerRequest{
		Username: "alice", Password: "Str0ng!Pass", ConfirmPassword: "Str0ng!Pass",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, repo.usersByUsername, 1)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	deps, _ := newTestDeps()
	w := doJSON(t, deps.RegisterUser, http.MethodPost, "/api/register", registerRequest{
		Username: "alice", Password: "weak", ConfirmPassword: "weak",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	deps, _ := newTestDeps()
	doJSON(t, deps.RegisterUser, http.MethodPost, "/api/register", registerRequest{
		Username: "alice", Password: "Str0ng!Pass", ConfirmPassword: "Str0ng!Pass",
	})
	w := doJSON(t, deps.RegisterUser, http.MethodPost, "/api/register", registerRequest{
		Username: "alice", Password: "Str0ng!Pass", ConfirmPassword: "Str0ng!Pass",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginIssuesTokenPair(t *testing.T) {
	deps, _ := newTestDeps()
	doJSON(t, deps.RegisterUser, http.MethodPost, "/api/register", registerRequest{
		Username: "alice", Password: "Str0ng!Pass", ConfirmPassword: "Str0ng!Pass",
	})

	w := doJSON(t, deps.Login, http.MethodPost, "/api/login", loginRequest{
		Username: "alice", Password: "Str0ng!Pass",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp tokenPairResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	deps, _ := newTestDeps()
	doJSON(t, deps.RegisterUser, http.MethodPost, "/api/register", registerRequest{
		Username: "alice", Password: "Str0ng!Pass", ConfirmPassword: "Str0ng!Pass",
	})

	w := doJSON(t, deps.Login, http.MethodPost, "/api/login", loginRequest{
		Username: "alice", Password: "WrongPass1!",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	deps, _ := newTestDeps()
	doJSON(t, deps.RegisterUser, http.MethodPost, "/api/register", registerRequest{
		Username: "alice", Password: "Str0ng!Pass", ConfirmPassword: "Str0ng!Pass",
	})
	loginResp := doJSON(t, deps.Login, http.MethodPost, "/api/login", loginRequest{
		Username: "alice", Password: "Str0ng!Pass",
	})
	var tp tokenPairResponse
	require.NoError(t, json.Unmarshal(loginResp.Body.Bytes(), &tp))

	w := doJSON(t, deps.Refresh, http.MethodPost, "/api/refresh-token", refreshRequest{RefreshToken: tp.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	// The consumed token cannot be reused.
	replay := doJSON(t, deps.Refresh, http.MethodPost, "/api/refresh-token", refreshRequest{RefreshToken: tp.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
}
