// Package chat translates parsed client requests into repository
// transactions and multi-recipient event broadcasts. Handlers are
// stateless functions over (deps, actorID, request); every authorization
// check is re-read from the repository on each call, never cached.
//
// This package is transport-agnostic: it knows nothing about WebSocket
// connections. The session package depends on chat, never the reverse —
// it implements Broadcaster and calls Dispatch per inbound frame.
package chat

import (
	"context"
	"encoding/json"

	"github.com/RoseWrightdev/chat-backend/internal/v1/keydirectory"
	"github.com/RoseWrightdev/chat-backend/internal/v1/repository"
)

// Broadcaster enqueues an outbound event envelope into a single user's
// mailbox. Implemented by the session registry. A user with no live
// mailbox is a silent no-op — there is no offline store-and-forward.
type Broadcaster interface {
	Send(userID string, event Event)
}

// Repo is the subset of the repository layer the command handlers use.
type Repo interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*repository.User, error)
	GetUserByID(ctx context.Context, id string) (*repository.User, error)
	GetUserByUsername(ctx context.Context, username string) (*repository.User, error)
	DeleteUser(ctx context.Context, id string) (*repository.User, error)
	SearchUsers(ctx context.Context, query, excludeUserID string) ([]repository.User, error)

	CreateRoom(ctx context.Context, name, creatorID, creatorUsername string) (*repository.Room, error)
	GetRoomByID(ctx context.Context, roomID string) (*repository.Room, error)
	UpdateRoomName(ctx context.Context, roomID, name string) error
	DeleteRoom(ctx context.Context, roomID string) error
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	IsAdmin(ctx context.Context, roomID, userID string) (bool, error)
	GetMembers(ctx context.Context, roomID string) ([]repository.RoomMember, error)
	LeaveRoom(ctx context.Context, roomID, userID string) (*repository.LeaveOutcome, error)
	GetRoomInfo(ctx context.Context, roomID string) (*repository.RoomInfo, error)
	GetRoomsInfoForUser(ctx context.Context, userID string) ([]repository.RoomInfo, error)
	IncrementUnreadCount(ctx context.Context, roomID, userID string) error
	ResetLastReadAndCount(ctx context.Context, roomID, userID string) error
	RemoveMember(ctx context.Context, roomID, userID string) (*repository.RoomMember, error)

	CreateInvitation(ctx context.Context, roomID, roomName, inviteeID, inviteeUsername, inviterID, inviterUsername string) (*repository.Invitation, error)
	GetInvitationByID(ctx context.Context, id string) (*repository.Invitation, error)
	DeclineInvitation(ctx context.Context, id string) (*repository.Invitation, error)
	GetPendingInvitationsForUser(ctx context.Context, userID string) ([]repository.Invitation, error)
	ConsumeInvitationAndJoinRoom(ctx context.Context, invitationID, roomID, roomName, userID, username string) error

	InsertMessage(ctx context.Context, roomID, roomName string, authorID, authorUsername *string, content string, msgType repository.MessageType) (*repository.UserMessage, error)
	GetMessageByID(ctx context.Context, id string) (*repository.UserMessage, error)
	GetRoomMessages(ctx context.Context, roomID, userID string, limit, offset int64) ([]repository.UserMessage, error)
	UpdateMessageContent(ctx context.Context, id, newContent string) (*repository.UserMessage, error)
	DeleteMessage(ctx context.Context, id string) (*repository.UserMessage, error)
}

// Deps aggregates everything a handler needs beyond the actor id and
// parsed request body.
type Deps struct {
	Repo    Repo
	Keys    *keydirectory.Service
	Bcast   Broadcaster
}

// Dispatch parses raw as a tagged client request and invokes the matching
// command handler. Malformed JSON or an unrecognized tag sends an
// invalid_request_format error back to the actor's own mailbox rather than
// returning an error — per the delivery contract, handlers never
// unilaterally close the connection.
func Dispatch(ctx context.Context, actorID string, raw json.RawMessage, deps Deps) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		deps.Bcast.Send(actorID, errorEvent(invalidRequestFormat()))
		return
	}

	switch env.Type {
	case "create_room":
		var req struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			deps.Bcast.Send(actorID, errorEvent(invalidRequestFormat()))
			return
		}
		handleCreateRoom(ctx, actorID, req.Name, deps)

	case "join_room":
		var req struct {
			InvitationID string `json:"invitation_id"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			deps.Bcast.Send(actorID, errorEvent(invalidRequestFormat()))
			return
		}
		handleJoinRoom(ctx, actorID, req.InvitationID, deps)

	case "leave_room":
		var req struct {
			RoomID string `json:"room_id"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			deps.Bcast.Send(actorID, errorEvent(invalidRequestFormat()))
			return
		}
		handleLeaveRoom(ctx, actorID, req.RoomID, deps)

	case "update_room":
		var req struct {
			RoomID string `json:"room_id"`
			Name   string `json:"name"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			deps.Bcast.Send(actorID, errorEvent(invalidRequestFormat()))
			return
		}
		handleUpdateRoom(ctx, actorID, req.RoomID, req.Name, deps)

	case "delete_room":
		var req struct {
			RoomID string `json:"room_id"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			deps.Bcast.Send(actorID, errorEvent(invalidRequestFormat()))
			return
		}
		handleDeleteRoom(ctx, actorID, req.RoomID, deps)

	case "get_room_info":
		var req struct {
			RoomID string `json:"room_id"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			deps.Bcast.Send(actorID, errorEvent(invalidRequestFormat()))
			return
		}
		handleGetRoomInfo(ctx, actorID, req.RoomID, deps)

	case "get_rooms_info":
		handleGetRoomsInfo(ctx, actorID, deps)

	case "invite":
		var req struct {
			RoomID   string `json:"room_id"`
			Username string `json:"username"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			deps.Bcast.Send(actorID, errorEvent(invalidRequestFormat()))
			return
		}
		handleInvite(ctx, actorID, req.RoomID, req.Username, deps)

	case "decline_invitation":
		var req struct {
			InvitationID string `json:"invitation_id"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			deps.Bcast.Send(actorID, errorEvent(invalidRequestFormat()))
			return
		}
		handleDeclineInvitation(ctx, actorID, req.InvitationID, deps)

	case "get_pending_invitations":
		handleGetPendingInvitations(ctx, actorID, deps)

	case "send_message":
		var req struct {
			RoomID      string  `json:"room_id"`
			Content     string  `json:"content"`
			MessageType *string `json:"message_type"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			deps.Bcast.Send(actorID, errorEvent(invalidRequestFormat()))
			return
		}
		handleSendMessage(ctx, actorID, req.RoomID, req.Content, req.MessageType, deps)

	case "edit_message":
		var req struct {
			MessageID  string `json:"message_id"`
			NewContent string `json:"new_content"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			deps.Bcast.Send(actorID, errorEvent(invalidRequestFormat()))
			return
		}
		handleEditMessage(ctx, actorID, req.MessageID, req.NewContent, deps)

	case "delete_message":
		var req struct {
			MessageID string `json:"message_id"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			deps.Bcast.Send(actorID, errorEvent(invalidRequestFormat()))
			return
		}
		handleDeleteMessage(ctx, actorID, req.MessageID, deps)

	case "get_messages":
		var req struct {
			RoomID string `json:"room_id"`
			Limit  int64  `json:"limit"`
			Offset int64  `json:"offset"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			deps.Bcast.Send(actorID, errorEvent(invalidRequestFormat()))
			return
		}
		handleGetMessages(ctx, actorID, req.RoomID, req.Limit, req.Offset, deps)

	case "delete_account":
		handleDeleteAccount(ctx, actorID, deps)

	case "kick_member":
		var req struct {
			RoomID   string `json:"room_id"`
			Username string `json:"username"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			deps.Bcast.Send(actorID, errorEvent(invalidRequestFormat()))
			return
		}
		handleKickMember(ctx, actorID, req.RoomID, req.Username, deps)

	case "search_users":
		var req struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			deps.Bcast.Send(actorID, errorEvent(invalidRequestFormat()))
			return
		}
		handleSearchUsers(ctx, actorID, req.Query, deps)

	default:
		deps.Bcast.Send(actorID, errorEvent(invalidRequestFormat()))
	}
}
