package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

func (s *Store) InsertMessage(ctx context.Context, roomID, roomName string, authorID, authorUsername *string, content string, msgType MessageType) (*UserMessage, error) {
	m := &UserMessage{
		ID: uuid.NewString(), RoomID: roomID, RoomName: roomName,
		AuthorID: authorID, AuthorUsername: authorUsername,
		Content: content, MessageType: msgType, Status: MessageStatusSent,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO user_messages (id, room_id, room_name, author_id, author_username, content, message_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'sent')
		RETURNING created_at`,
		m.ID, m.RoomID, m.RoomName, m.AuthorID, m.AuthorUsername, m.Content, m.MessageType,
	).Scan(&m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) GetMessageByID(ctx context.Context, id string) (*UserMessage, error) {
	m := &UserMessage{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, room_id, room_name, author_id, author_username, content, message_type, status, created_at
		FROM user_messages WHERE id = $1`, id,
	).Scan(&m.ID, &m.RoomID, &m.RoomName, &m.AuthorID, &m.AuthorUsername, &m.Content, &m.MessageType, &m.Status, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetRoomMessages returns messages visible to userID in roomID: those whose
// created_at falls within the caller's own membership window
// [joined_at, left_at ?? now]. Fetched newest-first from the database, then
// reversed to oldest-first for the caller.
func (s *Store) GetRoomMessages(ctx context.Context, roomID, userID string, limit, offset int64) ([]UserMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT um.id, um.room_id, um.room_name, um.author_id, um.author_username, um.content,
		       um.message_type, um.status, um.created_at
		FROM user_messages um
		JOIN room_members rm ON rm.room_id = um.room_id AND rm.user_id = $2
		WHERE um.room_id = $1
		  AND um.created_at >= rm.joined_at
		  AND (rm.left_at IS NULL OR um.created_at <= rm.left_at)
		ORDER BY um.created_at DESC
		LIMIT $3 OFFSET $4`, roomID, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserMessage
	for rows.Next() {
		var m UserMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.RoomName, &m.AuthorID, &m.AuthorUsername,
			&m.Content, &m.MessageType, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// UpdateMessageContent transitions sent/edited -> edited. A no-op (returns
// ErrNotFound) on a tombstoned (status=deleted) row: a deleted message can
// never be resurrected by an edit.
func (s *Store) UpdateMessageContent(ctx context.Context, id, newContent string) (*UserMessage, error) {
	m := &UserMessage{}
	err := s.db.QueryRowContext(ctx, `
		UPDATE user_messages SET content = $1, status = 'edited'
		WHERE id = $2 AND status != 'deleted'
		RETURNING id, room_id, room_name, author_id, author_username, content, message_type, status, created_at`,
		newContent, id,
	).Scan(&m.ID, &m.RoomID, &m.RoomName, &m.AuthorID, &m.AuthorUsername, &m.Content, &m.MessageType, &m.Status, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteMessage tombstones the row: status=deleted, content cleared. The
// row (and its room_id, needed to compute the broadcast recipient set) is
// still returned; a row already deleted is also a no-op.
func (s *Store) DeleteMessage(ctx context.Context, id string) (*UserMessage, error) {
	m := &UserMessage{}
	err := s.db.QueryRowContext(ctx, `
		UPDATE user_messages SET status = 'deleted', content = ''
		WHERE id = $1 AND status != 'deleted'
		RETURNING id, room_id, room_name, author_id, author_username, content, message_type, status, created_at`,
		id,
	).Scan(&m.ID, &m.RoomID, &m.RoomName, &m.AuthorID, &m.AuthorUsername, &m.Content, &m.MessageType, &m.Status, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}
