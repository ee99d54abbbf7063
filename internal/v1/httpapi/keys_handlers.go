package httpapi

import (
	"errors"
	"net/http"

	"github.com/RoseWrightdev/chat-backend/internal/v1/apperr"
	"github.com/RoseWrightdev/chat-backend/internal/v1/keydirectory"
	"github.com/RoseWrightdev/chat-backend/internal/v1/repository"
	"github.com/gin-gonic/gin"
)

type oneTimeKeyRequest struct {
	KeyID     int    `json:"key_id"`
	PublicKey string `json:"public_key"`
}

type uploadKeysRequest struct {
	IdentityKey    string              `json:"identity_key"`
	RegistrationID int                 `json:"registration_id"`
	SignedPreKeyID int                 `json:"signed_prekey_id"`
	SignedPublic   string              `json:"signed_prekey_public"`
	SignedSig      string              `json:"signed_prekey_signature"`
	OneTimeKeys    []oneTimeKeyRequest `json:"one_time_prekeys"`
}

// UploadKeys handles POST /keys: publishes or replaces the caller's
// identity key, current signed pre-key, and full one-time pre-key batch.
func (d Deps) UploadKeys(c *gin.Context) {
	var req uploadKeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.InvalidRequestFormat())
		return
	}

	otks := make([]keydirectory.OneTimeKey, len(req.OneTimeKeys))
	for i, k := range req.OneTimeKeys {
		otks[i] = keydirectory.OneTimeKey{KeyID: k.KeyID, PublicKey: k.PublicKey}
	}

	err := d.Keys.Upload(c.Request.Context(), keydirectory.UploadRequest{
		UserID:         c.GetString("user_id"),
		IdentityKey:    req.IdentityKey,
		RegistrationID: req.RegistrationID,
		SignedPreKeyID: req.SignedPreKeyID,
		SignedPublic:   req.SignedPublic,
		SignedSig:      req.SignedSig,
		OneTimeKeys:    otks,
	})
	if err != nil {
		writeAppErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// KeyStatus handles GET /api/keys/status/count: reports how many one-time
// pre-keys remain server-side, so a client knows when it should top up its
// batch.
func (d Deps) KeyStatus(c *gin.Context) {
	n, err := d.Keys.CountRemaining(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		writeAppErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// FetchBundle handles GET /api/keys/{username}: returns the pre-key bundle
// a caller needs to open an X3DH session with that user, atomically
// consuming one of their one-time pre-keys if any remain.
func (d Deps) FetchBundle(c *gin.Context) {
	target, err := d.Repo.GetUserByUsername(c.Request.Context(), c.Param("username"))
	if errors.Is(err, repository.ErrNotFound) {
		writeError(c, apperr.UserNotFound())
		return
	}
	if err != nil {
		writeError(c, apperr.Internal(err))
		return
	}

	bundle, err := d.Keys.FetchBundle(c.Request.Context(), target.ID)
	if err != nil {
		writeAppErr(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

func writeAppErr(c *gin.Context, err error) {
	var e *apperr.Error
	if errors.As(err, &e) {
		writeError(c, e)
		return
	}
	writeError(c, apperr.Internal(err))
}
