package chat

import (
	"time"

	"github.com/RoseWrightdev/chat-backend/internal/v1/apperr"
)

// Event is any outbound tagged-variant payload. MarshalJSON on the wrapper
// that actually ships over the wire lives in the session package, which
// re-marshals Type+Payload into the flat {"type":..., <fields>} envelope
// the spec requires; within this package an Event is just (tag, fields).
type Event struct {
	Type    string
	Payload any
}

func errorEvent(e *apperr.Error) Event {
	return Event{Type: "error", Payload: map[string]any{"errors": e.Items()}}
}

func invalidRequestFormat() *apperr.Error { return apperr.InvalidRequestFormat() }

// --- outbound payload shapes, field names match the wire tags exactly ---

type RoomCreated struct {
	RoomID    string    `json:"room_id"`
	RoomName  string    `json:"room_name"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberJoined struct {
	RoomID   string    `json:"room_id"`
	RoomName string    `json:"room_name"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

type RoomJoined struct {
	InvitationID   string    `json:"invitation_id"`
	RoomID         string    `json:"room_id"`
	RoomName       string    `json:"room_name"`
	AdminUsername  string    `json:"admin_username"`
	CreatorUsername string   `json:"creator_username"`
	CreatedAt      time.Time `json:"created_at"`
	JoinedAt       time.Time `json:"joined_at"`
}

type RoomLeft struct {
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
}

type RoomUpdated struct {
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
}

type RoomDeleted struct {
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
}

type MemberInfo struct {
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

type RoomInfoPayload struct {
	RoomID          string       `json:"room_id"`
	RoomName        string       `json:"room_name"`
	AdminUsername   string       `json:"admin_username"`
	CreatorUsername string       `json:"creator_username"`
	Members         []MemberInfo `json:"members"`
	CreatedAt       time.Time    `json:"created_at"`
}

type MessageInfo struct {
	MessageID      string    `json:"message_id"`
	AuthorUsername *string   `json:"author_username"`
	Content        string    `json:"content"`
	MessageType    string    `json:"message_type"`
	MessageStatus  string    `json:"message_status"`
	CreatedAt      time.Time `json:"created_at"`
}

type RoomSummary struct {
	RoomID          string       `json:"room_id"`
	RoomName        string       `json:"room_name"`
	AdminUsername   string       `json:"admin_username"`
	CreatorUsername string       `json:"creator_username"`
	Members         []MemberInfo `json:"members"`
	CreatedAt       time.Time    `json:"created_at"`
	LastMessage     *MessageInfo `json:"last_message"`
	UnreadCount     int          `json:"unread_count"`
}

type RoomsInfo struct {
	Rooms []RoomSummary `json:"rooms"`
}

type InvitationSent struct {
	InvitationID    string `json:"invitation_id"`
	RoomID          string `json:"room_id"`
	RoomName        string `json:"room_name"`
	InviteeUsername string `json:"invitee_username"`
}

type InvitationReceived struct {
	InvitationID    string `json:"invitation_id"`
	RoomID          string `json:"room_id"`
	RoomName        string `json:"room_name"`
	InviterUsername string `json:"inviter_username"`
}

type InvitationDeclined struct {
	InvitationID string `json:"invitation_id"`
}

type InviteeDeclined struct {
	InvitationID    string `json:"invitation_id"`
	RoomID          string `json:"room_id"`
	RoomName        string `json:"room_name"`
	InviteeUsername string `json:"invitee_username"`
}

type InvitationInfo struct {
	InvitationID    string    `json:"invitation_id"`
	RoomID          string    `json:"room_id"`
	RoomName        string    `json:"room_name"`
	Status          string    `json:"status"`
	InviterUsername string    `json:"inviter_username"`
	CreatedAt       time.Time `json:"created_at"`
}

type PendingInvitations struct {
	PendingInvitations []InvitationInfo `json:"pending_invitations"`
}

type MessageSent struct {
	MessageID   string    `json:"message_id"`
	RoomID      string    `json:"room_id"`
	RoomName    string    `json:"room_name"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	CreatedAt   time.Time `json:"created_at"`
}

type MessageReceived struct {
	MessageID      string    `json:"message_id"`
	RoomID         string    `json:"room_id"`
	RoomName       string    `json:"room_name"`
	AuthorUsername *string   `json:"author_username"`
	Content        string    `json:"content"`
	MessageType    string    `json:"message_type"`
	CreatedAt      time.Time `json:"created_at"`
}

type MessageEdited struct {
	MessageID  string `json:"message_id"`
	NewContent string `json:"new_content"`
}

type MessageDeleted struct {
	MessageID string `json:"message_id"`
}

type MessageHistory struct {
	RoomID   string        `json:"room_id"`
	RoomName string        `json:"room_name"`
	Messages []MessageInfo `json:"messages"`
}

type AccountDeleted struct {
	UserID string `json:"user_id"`
}

type MemberKicked struct {
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
	Username string `json:"username"`
}

type UserInfo struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type UsersFound struct {
	Users []UserInfo `json:"users"`
}

// SystemMessageKicked/Joined/Left are the JSON-encoded tagged variants
// stored verbatim as the content of a message_type=system message.
type SystemMessageJoined struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type SystemMessageLeft struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type SystemMessageKicked struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	By       string `json:"by"`
}
