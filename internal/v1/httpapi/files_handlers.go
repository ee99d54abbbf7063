package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"github.com/RoseWrightdev/chat-backend/internal/v1/apperr"
	"github.com/RoseWrightdev/chat-backend/internal/v1/repository"
	"github.com/gin-gonic/gin"
)

// maxFileBytes caps an encrypted upload's ciphertext size. Files are
// opaque blobs to the server: the client already encrypted content and
// metadata before the request reached here, so the only thing this
// boundary enforces is size.
const maxFileBytes = 50 << 20 // 50 MiB

// UploadFile handles POST /files: stores an already-encrypted blob plus
// its (also encrypted) metadata, and returns the opaque file id a client
// embeds in a file-type room message.
func (d Deps) UploadFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFileBytes+1)

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, apperr.FileLimitExceeded())
		return
	}
	if len(data) > maxFileBytes {
		writeError(c, apperr.FileLimitExceeded())
		return
	}

	metadata, err := decodeBase64Header(c, "X-File-Metadata")
	if err != nil {
		writeError(c, apperr.InvalidRequestFormat())
		return
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	f, err := d.Repo.InsertFile(c.Request.Context(), data, metadata, hash)
	if err != nil {
		writeError(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"file_id": f.ID, "size_bytes": f.SizeInBytes, "file_hash": f.FileHash})
}

type downloadFileRequest struct {
	FileID    string `json:"file_id"`
	MessageID string `json:"message_id"`
}

// DownloadFile handles POST /api/files/download. Decryption keys travel out
// of band through the E2EE session that shared the file id, but the blob
// itself is only released to a member of the room the referencing message
// belongs to — membership is resolved by looking up message_id first, the
// same way the message's room is checked before any other per-room read.
func (d Deps) DownloadFile(c *gin.Context) {
	var req downloadFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.InvalidRequestFormat())
		return
	}

	msg, err := d.Repo.GetMessageByID(c.Request.Context(), req.MessageID)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(c, apperr.MessageNotFound())
		return
	}
	if err != nil {
		writeError(c, apperr.Internal(err))
		return
	}

	isMember, err := d.Repo.IsMember(c.Request.Context(), msg.RoomID, c.GetString("user_id"))
	if err != nil {
		writeError(c, apperr.Internal(err))
		return
	}
	if !isMember {
		writeError(c, apperr.NotRoomMember())
		return
	}

	f, err := d.Repo.GetFile(c.Request.Context(), req.FileID)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(c, apperr.FileNotFound())
		return
	}
	if err != nil {
		writeError(c, apperr.Internal(err))
		return
	}

	c.Header("X-File-Metadata", encodeBase64(f.EncryptedMetadata))
	c.Data(http.StatusOK, "application/octet-stream", f.EncryptedData)
}
