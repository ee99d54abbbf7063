package chat

import (
	"context"
	"errors"

	"github.com/RoseWrightdev/chat-backend/internal/v1/apperr"
	"github.com/RoseWrightdev/chat-backend/internal/v1/logging"
	"github.com/RoseWrightdev/chat-backend/internal/v1/repository"
)

func handleSendMessage(ctx context.Context, actorID, roomID, content string, messageType *string, deps Deps) {
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

	mt := repository.MessageTypeText
	if messageType != nil {
		mt = repository.MessageType(*messageType)
	}

	authorID, authorUsername := actor.ID, actor.Username
	msg, err := deps.Repo.InsertMessage(ctx, roomID, room.Name, &authorID, &authorUsername, content, mt)
	if err != nil {
		logging.Error(ctx, "insert message failed")
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	members, err := deps.Repo.GetMembers(ctx, roomID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	event := Event{Type: "message_received", Payload: MessageReceived{
		MessageID: msg.ID, RoomID: msg.RoomID, RoomName: msg.RoomName,
		AuthorUsername: msg.AuthorUsername, Content: msg.Content,
		MessageType: string(msg.MessageType), CreatedAt: msg.CreatedAt,
	}}
	for _, m := range members {
		if m.UserID == actorID {
			continue
		}
		if err := deps.Repo.IncrementUnreadCount(ctx, roomID, m.UserID); err != nil {
			logging.Error(ctx, "increment unread count failed")
		}
		deps.Bcast.Send(m.UserID, event)
	}

	deps.Bcast.Send(actorID, Event{Type: "message_sent", Payload: MessageSent{
		MessageID: msg.ID, RoomID: msg.RoomID, RoomName: msg.RoomName,
		Content: msg.Content, MessageType: string(msg.MessageType), CreatedAt: msg.CreatedAt,
	}})
}

func handleEditMessage(ctx context.Context, actorID, messageID, newContent string, deps Deps) {
	msg, err := deps.Repo.GetMessageByID(ctx, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		deps.Bcast.Send(actorID, errorEvent(apperr.MessageNotFound()))
		return
	}
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}
	if msg.AuthorID == nil || *msg.AuthorID != actorID {
		deps.Bcast.Send(actorID, errorEvent(apperr.NotMessageAuthor()))
		return
	}

	updated, err := deps.Repo.UpdateMessageContent(ctx, messageID, newContent)
	if errors.Is(err, repository.ErrNotFound) {
		// Already tombstoned; edit is a no-op per the deleted-status guard.
		deps.Bcast.Send(actorID, errorEvent(apperr.MessageNotFound()))
		return
	}
	if err != nil {
		logging.Error(ctx, "update message content failed")
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	members, err := deps.Repo.GetMembers(ctx, updated.RoomID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}
	event := Event{Type: "message_edited", Payload: MessageEdited{MessageID: updated.ID, NewContent: updated.Content}}
	for _, m := range members {
		deps.Bcast.Send(m.UserID, event)
	}
}

func handleDeleteMessage(ctx context.Context, actorID, messageID string, deps Deps) {
	existing, err := deps.Repo.GetMessageByID(ctx, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		deps.Bcast.Send(actorID, errorEvent(apperr.MessageNotFound()))
		return
	}
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	deleted, err := deps.Repo.DeleteMessage(ctx, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		deps.Bcast.Send(actorID, errorEvent(apperr.MessageNotFound()))
		return
	}
	if err != nil {
		logging.Error(ctx, "delete message failed")
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	members, err := deps.Repo.GetMembers(ctx, existing.RoomID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}
	event := Event{Type: "message_deleted", Payload: MessageDeleted{MessageID: deleted.ID}}
	for _, m := range members {
		deps.Bcast.Send(m.UserID, event)
	}
}

func handleGetMessages(ctx context.Context, actorID, roomID string, limit, offset int64, deps Deps) {
	room, err := deps.Repo.GetRoomByID(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		deps.Bcast.Send(actorID, errorEvent(apperr.RoomNotFound()))
		return
	}
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	msgs, err := deps.Repo.GetRoomMessages(ctx, roomID, actorID, limit, offset)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	if err := deps.Repo.ResetLastReadAndCount(ctx, roomID, actorID); err != nil {
		logging.Error(ctx, "reset last read and count failed")
	}

	infos := make([]MessageInfo, len(msgs))
	for i, m := range msgs {
		infos[i] = MessageInfo{
			MessageID: m.ID, AuthorUsername: m.AuthorUsername, Content: m.Content,
			MessageType: string(m.MessageType), MessageStatus: string(m.Status), CreatedAt: m.CreatedAt,
		}
	}

	deps.Bcast.Send(actorID, Event{Type: "message_history", Payload: MessageHistory{
		RoomID: roomID, RoomName: room.Name, Messages: infos,
	}})
}
