package chat

import (
	"context"
	"errors"
	"time"

	"github.com/RoseWrightdev/chat-backend/internal/v1/apperr"
	"github.com/RoseWrightdev/chat-backend/internal/v1/logging"
	"github.com/RoseWrightdev/chat-backend/internal/v1/repository"
)

func handleCreateRoom(ctx context.Context, actorID, name string, deps Deps) {
	actor, err := deps.Repo.GetUserByID(ctx, actorID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.As(err)))
		return
	}

	room, err := deps.Repo.CreateRoom(ctx, name, actor.ID, actor.Username)
	if err != nil {
		logging.Error(ctx, "create room failed")
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	deps.Bcast.Send(actorID, Event{Type: "room_created", Payload: RoomCreated{
		RoomID: room.ID, RoomName: room.Name, CreatedAt: room.CreatedAt,
	}})
}

func handleJoinRoom(ctx context.Context, actorID, invitationID string, deps Deps) {
	inv, err := deps.Repo.GetInvitationByID(ctx, invitationID)
	if errors.Is(err, repository.ErrNotFound) {
		deps.Bcast.Send(actorID, errorEvent(apperr.NoPendingInvitation()))
		return
	}
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}
	if inv.InviteeID != actorID || inv.Status != repository.InvitationPending {
		deps.Bcast.Send(actorID, errorEvent(apperr.NoPendingInvitation()))
		return
	}

	room, err := deps.Repo.GetRoomByID(ctx, inv.RoomID)
	if errors.Is(err, repository.ErrNotFound) {
		deps.Bcast.Send(actorID, errorEvent(apperr.RoomNotFound()))
		return
	}
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	isMember, err := deps.Repo.IsMember(ctx, room.ID, actorID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}
	if isMember {
		deps.Bcast.Send(actorID, errorEvent(apperr.AlreadyRoomMember()))
		return
	}

	preJoinMembers, err := deps.Repo.GetMembers(ctx, room.ID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	actor, err := deps.Repo.GetUserByID(ctx, actorID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.As(err)))
		return
	}

	if err := deps.Repo.ConsumeInvitationAndJoinRoom(ctx, inv.ID, room.ID, room.Name, actorID, actor.Username); err != nil {
		logging.Error(ctx, "consume invitation and join room failed")
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	now := time.Now()
	for _, m := range preJoinMembers {
		deps.Bcast.Send(m.UserID, Event{Type: "member_joined", Payload: MemberJoined{
			RoomID: room.ID, RoomName: room.Name, Username: actor.Username, JoinedAt: now,
		}})
	}

	deps.Bcast.Send(actorID, Event{Type: "room_joined", Payload: RoomJoined{
		InvitationID: inv.ID, RoomID: room.ID, RoomName: room.Name,
		AdminUsername: room.AdminUsername, CreatorUsername: room.CreatorUsername,
		CreatedAt: room.CreatedAt, JoinedAt: now,
	}})

	allMembers, err := deps.Repo.GetMembers(ctx, room.ID)
	if err != nil {
		return
	}
	_, _ = createAndBroadcastSystemMessage(ctx, room.ID, room.Name,
		SystemMessageJoined{Type: "joined", Username: actor.Username}, allMembers, deps)
}

func handleLeaveRoom(ctx context.Context, actorID, roomID string, deps Deps) {
	room, err := deps.Repo.GetRoomByID(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		deps.Bcast.Send(actorID, errorEvent(apperr.RoomNotFound()))
		return
	}
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	isMember, err := deps.Repo.IsMember(ctx, roomID, actorID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}
	if !isMember {
		deps.Bcast.Send(actorID, errorEvent(apperr.NotRoomMember()))
		return
	}

	actor, err := deps.Repo.GetUserByID(ctx, actorID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.As(err)))
		return
	}

	outcome, err := deps.Repo.LeaveRoom(ctx, roomID, actorID)
	if err != nil {
		logging.Error(ctx, "leave room failed")
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	deps.Bcast.Send(actorID, Event{Type: "room_left", Payload: RoomLeft{RoomID: roomID, RoomName: room.Name}})

	if outcome.RoomDeleted {
		for _, inv := range outcome.PendingInvitations {
			deps.Bcast.Send(inv.InviterID, Event{Type: "invitee_declined", Payload: InviteeDeclined{
				InvitationID: inv.ID, RoomID: inv.RoomID, RoomName: inv.RoomName, InviteeUsername: inv.InviteeUsername,
			}})
		}
		return
	}

	remaining, err := deps.Repo.GetMembers(ctx, roomID)
	if err != nil {
		return
	}
	_, _ = createAndBroadcastSystemMessage(ctx, roomID, room.Name,
		SystemMessageLeft{Type: "left", Username: actor.Username}, remaining, deps)
}

func handleUpdateRoom(ctx context.Context, actorID, roomID, name string, deps Deps) {
	if _, err := deps.Repo.GetRoomByID(ctx, roomID); err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.As(translateRoomNotFound(err))))
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

	if err := deps.Repo.UpdateRoomName(ctx, roomID, name); err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	members, err := deps.Repo.GetMembers(ctx, roomID)
	if err != nil {
		return
	}
	event := Event{Type: "room_updated", Payload: RoomUpdated{RoomID: roomID, RoomName: name}}
	for _, m := range members {
		deps.Bcast.Send(m.UserID, event)
	}
}

func handleDeleteRoom(ctx context.Context, actorID, roomID string, deps Deps) {
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

	// Fetch the member list before deleting so the broadcast captures
	// everyone who was a member at delete time, not whoever a post-delete
	// query might still find.
	members, err := deps.Repo.GetMembers(ctx, roomID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	if err := deps.Repo.DeleteRoom(ctx, roomID); err != nil {
		logging.Error(ctx, "delete room failed")
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	event := Event{Type: "room_deleted", Payload: RoomDeleted{RoomID: roomID, RoomName: room.Name}}
	for _, m := range members {
		deps.Bcast.Send(m.UserID, event)
	}
}

func handleGetRoomInfo(ctx context.Context, actorID, roomID string, deps Deps) {
	info, err := deps.Repo.GetRoomInfo(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		deps.Bcast.Send(actorID, errorEvent(apperr.RoomNotFound()))
		return
	}
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	members := make([]MemberInfo, len(info.Members))
	for i, m := range info.Members {
		members[i] = MemberInfo{Username: m.Username, JoinedAt: m.JoinedAt}
	}

	deps.Bcast.Send(actorID, Event{Type: "room_info", Payload: RoomInfoPayload{
		RoomID: info.Room.ID, RoomName: info.Room.Name,
		AdminUsername: info.Room.AdminUsername, CreatorUsername: info.Room.CreatorUsername,
		Members: members, CreatedAt: info.Room.CreatedAt,
	}})
}

func handleGetRoomsInfo(ctx context.Context, actorID string, deps Deps) {
	rooms, err := deps.Repo.GetRoomsInfoForUser(ctx, actorID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	summaries := make([]RoomSummary, len(rooms))
	for i, ri := range rooms {
		members := make([]MemberInfo, len(ri.Members))
		for j, m := range ri.Members {
			members[j] = MemberInfo{Username: m.Username, JoinedAt: m.JoinedAt}
		}
		var lastMsg *MessageInfo
		if ri.LastMessage != nil {
			lastMsg = &MessageInfo{
				MessageID:      ri.LastMessage.ID,
				AuthorUsername: ri.LastMessage.AuthorUsername,
				Content:        ri.LastMessage.Content,
				MessageType:    string(ri.LastMessage.MessageType),
				MessageStatus:  string(ri.LastMessage.Status),
				CreatedAt:      ri.LastMessage.CreatedAt,
			}
		}
		summaries[i] = RoomSummary{
			RoomID: ri.Room.ID, RoomName: ri.Room.Name,
			AdminUsername: ri.Room.AdminUsername, CreatorUsername: ri.Room.CreatorUsername,
			Members: members, CreatedAt: ri.Room.CreatedAt,
			LastMessage: lastMsg, UnreadCount: ri.UnreadCount,
		}
	}

	deps.Bcast.Send(actorID, Event{Type: "rooms_info", Payload: RoomsInfo{Rooms: summaries}})
}

func translateRoomNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.RoomNotFound()
	}
	return apperr.Internal(err)
}
