package chat

import (
	"context"
	"errors"

	"github.com/RoseWrightdev/chat-backend/internal/v1/apperr"
	"github.com/RoseWrightdev/chat-backend/internal/v1/logging"
	"github.com/RoseWrightdev/chat-backend/internal/v1/repository"
)

func handleDeleteAccount(ctx context.Context, actorID string, deps Deps) {
	user, err := deps.Repo.DeleteUser(ctx, actorID)
	if err != nil {
		logging.Error(ctx, "delete user failed")
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}
	deps.Bcast.Send(actorID, Event{Type: "account_deleted", Payload: AccountDeleted{UserID: user.ID}})
}

func handleKickMember(ctx context.Context, actorID, roomID, username string, deps Deps) {
	room, err := deps.Repo.GetRoomByID(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		deps.Bcast.Send(actorID, errorEvent(apperr.RoomNotFound()))
		return
	}
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	isAdmin, err := deps.Repo.IsAdmin(ctx, roomID, actorID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}
	if !isAdmin {
		deps.Bcast.Send(actorID, errorEvent(apperr.NotRoomAdmin()))
		return
	}

	target, err := deps.Repo.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		deps.Bcast.Send(actorID, errorEvent(apperr.UserNotFound()))
		return
	}
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	admin, err := deps.Repo.GetUserByID(ctx, actorID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.As(err)))
		return
	}

	removed, err := deps.Repo.RemoveMember(ctx, roomID, target.ID)
	if errors.Is(err, repository.ErrNotFound) {
		deps.Bcast.Send(actorID, errorEvent(apperr.TargetNotRoomMember()))
		return
	}
	if err != nil {
		logging.Error(ctx, "remove member failed")
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	// The kicked user's own membership row is already gone, so it is not
	// in the post-removal GetMembers result; send their system message and
	// MemberKicked event directly.
	sysMsg, _ := createAndBroadcastSystemMessage(ctx, roomID, room.Name,
		SystemMessageKicked{Type: "kicked", Username: removed.Username, By: admin.Username},
		nil, deps)
	if sysMsg != nil {
		deps.Bcast.Send(removed.UserID, Event{Type: "message_received", Payload: MessageReceived{
			MessageID: sysMsg.ID, RoomID: sysMsg.RoomID, RoomName: sysMsg.RoomName,
			AuthorUsername: nil, Content: sysMsg.Content,
			MessageType: string(sysMsg.MessageType), CreatedAt: sysMsg.CreatedAt,
		}})
	}

	remaining, err := deps.Repo.GetMembers(ctx, roomID)
	kickedEvent := Event{Type: "member_kicked", Payload: MemberKicked{RoomID: roomID, RoomName: room.Name, Username: removed.Username}}
	if err == nil {
		for _, m := range remaining {
			deps.Bcast.Send(m.UserID, kickedEvent)
		}
	}
	deps.Bcast.Send(removed.UserID, kickedEvent)
}

func handleSearchUsers(ctx context.Context, actorID, query string, deps Deps) {
	users, err := deps.Repo.SearchUsers(ctx, query, actorID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	infos := make([]UserInfo, len(users))
	for i, u := range users {
		infos[i] = UserInfo{Username: u.Username, CreatedAt: u.CreatedAt}
	}
	deps.Bcast.Send(actorID, Event{Type: "users_found", Payload: UsersFound{Users: infos}})
}
