package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RoseWrightdev/chat-backend/internal/v1/keydirectory"
	"github.com/RoseWrightdev/chat-backend/internal/v1/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKeyRepo struct {
	identity map[string]*repository.IdentityKey
	signed   map[string]*repository.SignedPreKey
	otks     map[string][]repository.OneTimePreKey
}

func newFakeKeyRepo() *fakeKeyRepo {
	return &fakeKeyRepo{
		identity: map[string]*repository.IdentityKey{},
		signed:   map[string]*repository.SignedPreKey{},
		otks:     map[string][]repository.OneTimePreKey{},
	}
}

func (f *fakeKeyRepo) UpsertIdentityKey(ctx context.Context, userID, identityKey string, registrationID int) error {
	f.identity[userID] = &repository.IdentityKey{UserID: userID, IdentityKey: identityKey, RegistrationID: registrationID}
	return nil
}

func (f *fakeKeyRepo) GetIdentityKey(ctx context.Context, userID string) (*repository.IdentityKey, error) {
	k, ok := f.identity[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return k, nil
}

func (f *fakeKeyRepo) UpsertSignedPreKey(ctx context.Context, userID string, keyID int, publicKey, signature string) error {
	f.signed[userID] = &repository.SignedPreKey{UserID: userID, KeyID: keyID, PublicKey: publicKey, Signature: signature}
	return nil
}

func (f *fakeKeyRepo) GetLatestSignedPreKey(ctx context.Context, userID string) (*repository.SignedPreKey, error) {
	k, ok := f.signed[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return k, nil
}

func (f *fakeKeyRepo) ReplaceOneTimePreKeys(ctx context.Context, userID string, keys []repository.OneTimePreKey) error {
	f.otks[userID] = keys
	return nil
}

func (f *fakeKeyRepo) CountOneTimePreKeys(ctx context.Context, userID string) (int, error) {
	return len(f.otks[userID]), nil
}

func (f *fakeKeyRepo) ConsumeOneTimePreKey(ctx context.Context, userID string) (*repository.OneTimePreKey, error) {
	keys := f.otks[userID]
	if len(keys) == 0 {
		return nil, repository.ErrNotFound
	}
	k := keys[0]
	f.otks[userID] = keys[1:]
	return &k, nil
}

func newTestKeyDeps() (Deps, string) {
	deps, repo := newTestDeps()
	deps.Keys = keydirectory.NewService(newFakeKeyRepo())
	u, _ := repo.CreateUser(context.Background(), "alice", "hash")
	return deps, u.ID
}

func withUser(c *gin.Context, userID string) {
	c.Set("user_id", userID)
}

func TestUploadKeysThenStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps, userID := newTestKeyDeps()

	body, _ := json.Marshal(uploadKeysRequest{
		IdentityKey:    "idkey",
		RegistrationID: 42,
		SignedPreKeyID: 1,
		SignedPublic:   "pub",
		SignedSig:      "sig",
		OneTimeKeys: []oneTimeKeyRequest{
			{KeyID: 1, PublicKey: "a"}, {KeyID: 2, PublicKey: "b"},
		},
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/keys", bytes.NewReader(body))
	withUser(c, userID)
	deps.UploadKeys(c)
	require.Equal(t, http.StatusNoContent, w.Code)

	w2 := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(w2)
	c2.Request = httptest.NewRequest(http.MethodGet, "/keys/status", nil)
	withUser(c2, userID)
	deps.KeyStatus(c2)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), `"count":2`)
}

func TestFetchBundleConsumesOneTimeKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps, userID := newTestKeyDeps()

	body, _ := json.Marshal(uploadKeysRequest{
		IdentityKey: "idkey", RegistrationID: 1, SignedPreKeyID: 1, SignedPublic: "pub", SignedSig: "sig",
		OneTimeKeys: []oneTimeKeyRequest{{KeyID: 1, PublicKey: "a"}},
	})
	uw := httptest.NewRecorder()
	uc, _ := gin.CreateTestContext(uw)
	uc.Request = httptest.NewRequest(http.MethodPost, "/keys", bytes.NewReader(body))
	withUser(uc, userID)
	deps.UploadKeys(uc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/keys/alice", nil)
	c.Params = gin.Params{{Key: "username", Value: "alice"}}
	deps.FetchBundle(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"OneTimeKeyID":1`)
}

func TestFetchBundleFailsWithNoKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps, repo := newTestDeps()
	deps.Keys = keydirectory.NewService(newFakeKeyRepo())
	_, err := repo.CreateUser(context.Background(), "bob", "hash")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/keys/bob", nil)
	c.Params = gin.Params{{Key: "username", Value: "bob"}}
	deps.FetchBundle(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "user_has_no_keys")
}

func TestFetchBundleFailsWithUnknownUsername(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps, _ := newTestKeyDeps()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/keys/nobody", nil)
	c.Params = gin.Params{{Key: "username", Value: "nobody"}}
	deps.FetchBundle(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "user_not_found")
}
