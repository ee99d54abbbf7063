package chat

import (
	"context"
	"encoding/json"

	"github.com/RoseWrightdev/chat-backend/internal/v1/apperr"
	"github.com/RoseWrightdev/chat-backend/internal/v1/logging"
	"github.com/RoseWrightdev/chat-backend/internal/v1/repository"
)

// createAndBroadcastSystemMessage persists a server-authored system message
// (author_id/author_username null, content a JSON-encoded tagged variant)
// and sends MessageReceived to every member currently in members.
func createAndBroadcastSystemMessage(ctx context.Context, roomID, roomName string, content any, members []repository.RoomMember, deps Deps) (*repository.UserMessage, error) {
	encoded, err := json.Marshal(content)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	msg, err := deps.Repo.InsertMessage(ctx, roomID, roomName, nil, nil, string(encoded), repository.MessageTypeSystem)
	if err != nil {
		logging.Error(ctx, "insert system message failed")
		return nil, apperr.Internal(err)
	}

	event := Event{Type: "message_received", Payload: MessageReceived{
		MessageID:      msg.ID,
		RoomID:         msg.RoomID,
		RoomName:       msg.RoomName,
		AuthorUsername: nil,
		Content:        msg.Content,
		MessageType:    string(msg.MessageType),
		CreatedAt:      msg.CreatedAt,
	}}
	for _, m := range members {
		deps.Bcast.Send(m.UserID, event)
	}

	return msg, nil
}
