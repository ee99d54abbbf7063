package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/RoseWrightdev/chat-backend/internal/v1/chat"
	"github.com/RoseWrightdev/chat-backend/internal/v1/metrics"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// wsConnection is the subset of *websocket.Conn a Client needs, so tests
// can swap in a fake transport.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
}

// Client owns one authenticated WebSocket connection. Inbound frames are
// handed to chat.Dispatch; outbound events arrive via enqueue from the
// registry and are serialized out over writePump.
type Client struct {
	conn    wsConnection
	send    chan chat.Event
	userID  string
	expires time.Time
	deps    chat.Deps
	reg     *Registry
	closed  chan struct{}
}

func newClient(conn wsConnection, userID string, expires time.Time, deps chat.Deps, reg *Registry) *Client {
	return &Client{
		conn:    conn,
		send:    make(chan chat.Event, sendBuffer),
		userID:  userID,
		expires: expires,
		deps:    deps,
		reg:     reg,
		closed:  make(chan struct{}),
	}
}

// Close unblocks writePump and triggers conn.Close from readPump's defer.
func (c *Client) Close() {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	c.conn.Close()
}

// enqueue is the registry's Send path into this client's mailbox. A full
// buffer drops the event rather than blocking the registry.
func (c *Client) enqueue(event chat.Event) {
	select {
	case c.send <- event:
	default:
		slog.Warn("client send buffer full, dropping event", "user_id", c.userID, "event_type", event.Type)
		metrics.WebsocketEvents.WithLabelValues(event.Type, "dropped_buffer_full").Inc()
	}
}

// expiryWatcher force-closes the connection the instant the access token
// expires, independent of whatever readPump/writePump happen to be doing —
// an idle connection has no other occasion to notice its token went stale.
func (c *Client) expiryWatcher() {
	if c.expires.IsZero() {
		return
	}

	timer := time.NewTimer(time.Until(c.expires))
	defer timer.Stop()

	select {
	case <-timer.C:
		slog.Info("access token expired, closing idle connection", "user_id", c.userID)
		c.Close()
	case <-c.closed:
	}
}

// readPump decodes inbound frames and hands each one to chat.Dispatch. It
// runs until the connection errors, is closed, or the access token expires.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.reg.Remove(c.userID, c)
		c.conn.Close()
		metrics.DecConnection()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		if !c.expires.IsZero() && time.Now().After(c.expires) {
			slog.Info("access token expired, closing connection", "user_id", c.userID)
			return
		}

		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		metrics.WebsocketEvents.WithLabelValues("inbound", "received").Inc()
		chat.Dispatch(ctx, c.userID, json.RawMessage(data), c.deps)
	}
}

// writePump serializes queued events to the socket as JSON text frames.
func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case <-c.closed:
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case event, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := marshalEvent(event)
			if err != nil {
				slog.Error("failed to marshal outbound event", "error", err, "event_type", event.Type)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Error("error writing message", "error", err, "user_id", c.userID)
				return
			}
			metrics.WebsocketEvents.WithLabelValues(event.Type, "delivered").Inc()
		}
	}
}

// marshalEvent flattens chat.Event into the {"type": ..., <payload fields>}
// shape used on the wire, by marshalling the payload and the type tag
// separately and merging the resulting objects.
func marshalEvent(event chat.Event) ([]byte, error) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}
	typeTag, err := json.Marshal(event.Type)
	if err != nil {
		return nil, err
	}
	fields["type"] = typeTag

	return json.Marshal(fields)
}
