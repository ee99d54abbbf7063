package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RoseWrightdev/chat-backend/internal/v1/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doDownload(t *testing.T, deps Deps, userID string, req downloadFileRequest) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	body, err := json.Marshal(req)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/files/download", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	withUser(c, userID)
	deps.DownloadFile(c)
	return w
}

func TestUploadFileRejectsOversized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps, _ := newTestDeps()

	oversized := bytes.Repeat([]byte{0xAB}, maxFileBytes+1024)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/files", bytes.NewReader(oversized))
	deps.UploadFile(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file_limit_exceeded")
}

func TestUploadFileAcceptsWithinLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps, _ := newTestDeps()

	payload := bytes.Repeat([]byte{0x01}, 1024)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/files", bytes.NewReader(payload))
	deps.UploadFile(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "file_id")
}

func TestDownloadFileRejectsUnknownMessage(t *testing.T) {
	deps, _ := newTestDeps()

	w := doDownload(t, deps, "user-1", downloadFileRequest{FileID: "file-1", MessageID: "missing"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "message_not_found")
}

func TestDownloadFileRejectsNonMember(t *testing.T) {
	deps, repo := newTestDeps()
	repo.messages["msg-1"] = &repository.UserMessage{ID: "msg-1", RoomID: "room-1"}
	repo.members["room-1"] = map[string]bool{"owner": true}

	w := doDownload(t, deps, "intruder", downloadFileRequest{FileID: "file-1", MessageID: "msg-1"})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "not_room_member")
}

func TestDownloadFileAllowsRoomMember(t *testing.T) {
	deps, repo := newTestDeps()
	repo.messages["msg-1"] = &repository.UserMessage{ID: "msg-1", RoomID: "room-1"}
	repo.members["room-1"] = map[string]bool{"member-1": true}

	w := doDownload(t, deps, "member-1", downloadFileRequest{FileID: "file-1", MessageID: "msg-1"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "file_not_found")
}
