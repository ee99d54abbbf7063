package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/RoseWrightdev/chat-backend/internal/v1/chat"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is a minimal wsConnection double for exercising the pumps
// without a real socket.
type fakeConn struct {
	mu            sync.Mutex
	readMessages  [][]byte
	readErr       error
	writeMessages [][]byte
	closed        bool
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.readMessages) == 0 {
		if f.readErr != nil {
			return 0, nil, f.readErr
		}
		return 0, nil, websocket.ErrCloseSent
	}
	msg := f.readMessages[0]
	f.readMessages = f.readMessages[1:]
	return websocket.TextMessage, msg, nil
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeMessages = append(f.writeMessages, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(t time.Time) error { return nil }
func (f *fakeConn) SetReadLimit(limit int64)           {}

func (f *fakeConn) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writeMessages)
}

type recordingBcast struct {
	mu     sync.Mutex
	events []chat.Event
}

func (r *recordingBcast) Send(userID string, event chat.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func TestClientEnqueueDeliversThroughWritePump(t *testing.T) {
	conn := &fakeConn{}
	c := newClient(conn, "user-1", time.Time{}, chat.Deps{}, NewRegistry())

	go c.writePump()
	c.enqueue(chat.Event{Type: "room_created", Payload: map[string]any{"room_id": "r1"}})
	c.Close()

	assert.Eventually(t, func() bool { return conn.writeCount() >= 1 }, time.Second, 10*time.Millisecond)

	var got map[string]any
	require.NoError(t, json.Unmarshal(conn.writeMessages[0], &got))
	assert.Equal(t, "room_created", got["type"])
	assert.Equal(t, "r1", got["room_id"])
}

func TestClientEnqueueDropsWhenBufferFull(t *testing.T) {
	conn := &fakeConn{}
	c := newClient(conn, "user-1", time.Time{}, chat.Deps{}, NewRegistry())

	for i := 0; i < sendBuffer+5; i++ {
		c.enqueue(chat.Event{Type: "message_received", Payload: map[string]any{}})
	}
	// Must not block or panic; buffer caps at sendBuffer.
	assert.LessOrEqual(t, len(c.send), sendBuffer)
}

func TestClientReadPumpDispatchesToActor(t *testing.T) {
	bcast := &recordingBcast{}
	reg := NewRegistry()
	conn := &fakeConn{readMessages: [][]byte{[]byte(`{"type":"get_pending_invitations"}`)}}
	c := newClient(conn, "user-1", time.Time{}, chat.Deps{Bcast: bcast}, reg)
	reg.Put("user-1", c)

	done := make(chan struct{})
	go func() {
		c.readPump(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("readPump did not return after connection closed")
	}
}

func TestClientReadPumpStopsOnExpiredToken(t *testing.T) {
	conn := &fakeConn{readMessages: [][]byte{[]byte(`{"type":"get_pending_invitations"}`)}}
	c := newClient(conn, "user-1", time.Now().Add(-time.Minute), chat.Deps{Bcast: &recordingBcast{}}, NewRegistry())

	done := make(chan struct{})
	go func() {
		c.readPump(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("readPump did not stop for an already-expired token")
	}
}

func TestClientExpiryWatcherClosesIdleConnection(t *testing.T) {
	conn := &fakeConn{}
	c := newClient(conn, "user-1", time.Now().Add(30*time.Millisecond), chat.Deps{Bcast: &recordingBcast{}}, NewRegistry())

	done := make(chan struct{})
	go func() {
		c.expiryWatcher()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expiryWatcher did not close an idle connection once its token expired")
	}

	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	assert.True(t, closed, "expiryWatcher should close the underlying connection")
}

func TestClientExpiryWatcherNoopWithoutDeadline(t *testing.T) {
	conn := &fakeConn{}
	c := newClient(conn, "user-1", time.Time{}, chat.Deps{Bcast: &recordingBcast{}}, NewRegistry())

	done := make(chan struct{})
	go func() {
		c.expiryWatcher()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(50 * time.Millisecond):
	}

	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	assert.False(t, closed, "a zero expiry means no token deadline to enforce")
}

func TestMarshalEventFlattensEnvelope(t *testing.T) {
	data, err := marshalEvent(chat.Event{Type: "room_left", Payload: struct {
		RoomID string `json:"room_id"`
	}{RoomID: "r9"}})
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "room_left", got["type"])
	assert.Equal(t, "r9", got["room_id"])
}
