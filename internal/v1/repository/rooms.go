package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

func (s *Store) CreateRoom(ctx context.Context, name, creatorID, creatorUsername string) (*Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	r := &Room{
		ID:              uuid.NewString(),
		Name:            name,
		CreatorID:       creatorID,
		CreatorUsername: creatorUsername,
		AdminID:         creatorID,
		AdminUsername:   creatorUsername,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO rooms (id, name, creator_id, creator_username, admin_id, admin_username)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		r.ID, r.Name, r.CreatorID, r.CreatorUsername, r.AdminID, r.AdminUsername,
	).Scan(&r.CreatedAt)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO room_members (id, room_id, user_id, room_name, username, joined_at, last_read_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		uuid.NewString(), r.ID, creatorID, r.Name, creatorUsername, now)
	if err != nil {
		return nil, err
	}

	return r, tx.Commit()
}

func (s *Store) GetRoomByID(ctx context.Context, roomID string) (*Room, error) {
	r := &Room{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, creator_id, creator_username, admin_id, admin_username, created_at
		FROM rooms WHERE id = $1`, roomID,
	).Scan(&r.ID, &r.Name, &r.CreatorID, &r.CreatorUsername, &r.AdminID, &r.AdminUsername, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) UpdateRoomName(ctx context.Context, roomID, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE rooms SET name = $1 WHERE id = $2`, name, roomID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRoom deletes the room and, via FK cascade, its memberships,
// invitations, and messages. The caller is expected to have already fetched
// the member list it needs to broadcast to before calling this.
func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, roomID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2 AND left_at IS NULL)`,
		roomID, userID).Scan(&exists)
	return exists, err
}

func (s *Store) IsAdmin(ctx context.Context, roomID, userID string) (bool, error) {
	var adminID string
	err := s.db.QueryRowContext(ctx, `SELECT admin_id FROM rooms WHERE id = $1`, roomID).Scan(&adminID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return adminID == userID, nil
}

// GetMembers returns every active (left_at IS NULL) member of the room.
func (s *Store) GetMembers(ctx context.Context, roomID string) ([]RoomMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, user_id, room_name, username, joined_at, left_at, is_visible, last_read_at, unread_count
		FROM room_members WHERE room_id = $1 AND left_at IS NULL`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMembers(rows)
}

func scanMembers(rows *sql.Rows) ([]RoomMember, error) {
	var out []RoomMember
	for rows.Next() {
		var m RoomMember
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.RoomName, &m.Username,
			&m.JoinedAt, &m.LeftAt, &m.IsVisible, &m.LastReadAt, &m.UnreadCount); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LeaveRoom implements the three-variant leave contract described in the
// membership state machine: hide-only for a stale/absent row, delete for a
// last-active-member leave (returning pending invitations so the caller can
// notify inviters), or admin succession for a normal leave.
func (s *Store) LeaveRoom(ctx context.Context, roomID, userID string) (*LeaveOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var memberRowID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM room_members WHERE room_id = $1 AND user_id = $2 AND left_at IS NULL`,
		roomID, userID).Scan(&memberRowID)
	if errors.Is(err, sql.ErrNoRows) {
		// Not a member, or already left: hide any stale row, no cascade.
		_, _ = tx.ExecContext(ctx, `
			UPDATE room_members SET is_visible = false
			WHERE room_id = $1 AND user_id = $2`, roomID, userID)
		return &LeaveOutcome{WasMember: false}, tx.Commit()
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE room_members SET left_at = $1, is_visible = false WHERE id = $2`, now, memberRowID)
	if err != nil {
		return nil, err
	}

	var remaining []RoomMember
	rows, err := tx.QueryContext(ctx, `
		SELECT id, room_id, user_id, room_name, username, joined_at, left_at, is_visible, last_read_at, unread_count
		FROM room_members WHERE room_id = $1 AND left_at IS NULL`, roomID)
	if err != nil {
		return nil, err
	}
	remaining, err = scanMembers(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	if len(remaining) == 0 {
		pending, err := fetchPendingInvitationsTx(ctx, tx, roomID)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, roomID); err != nil {
			return nil, err
		}
		return &LeaveOutcome{WasMember: true, RoomDeleted: true, PendingInvitations: pending}, tx.Commit()
	}

	var wasAdmin bool
	if err := tx.QueryRowContext(ctx, `SELECT admin_id = $2 FROM rooms WHERE id = $1`, roomID, userID).
		Scan(&wasAdmin); err != nil {
		return nil, err
	}

	outcome := &LeaveOutcome{WasMember: true}
	if wasAdmin {
		successor := remaining[0]
		if _, err := tx.ExecContext(ctx, `
			UPDATE rooms SET admin_id = $1, admin_username = $2 WHERE id = $3`,
			successor.UserID, successor.Username, roomID); err != nil {
			return nil, err
		}
		outcome.NewAdminID = successor.UserID
		outcome.NewAdminUsername = successor.Username
	}

	return outcome, tx.Commit()
}

func fetchPendingInvitationsTx(ctx context.Context, tx *sql.Tx, roomID string) ([]Invitation, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, room_id, room_name, invitee_id, invitee_username, inviter_id, inviter_username, status, created_at
		FROM invitations WHERE room_id = $1 AND status = 'pending'`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invitation
	for rows.Next() {
		var inv Invitation
		if err := rows.Scan(&inv.ID, &inv.RoomID, &inv.RoomName, &inv.InviteeID, &inv.InviteeUsername,
			&inv.InviterID, &inv.InviterUsername, &inv.Status, &inv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// RoomInfo is the read-model for a single room: current membership plus,
// when requested as part of the room list, the latest message.
type RoomInfo struct {
	Room        Room
	Members     []RoomMember
	LastMessage *UserMessage
	UnreadCount int
}

func (s *Store) GetRoomInfo(ctx context.Context, roomID string) (*RoomInfo, error) {
	r, err := s.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	members, err := s.GetMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &RoomInfo{Room: *r, Members: members}, nil
}

// GetRoomsInfoForUser returns every room the user is currently an active,
// visible member of, each paired with its most recent message (if any) and
// the caller's own unread count, ordered by recency of activity.
func (s *Store) GetRoomsInfoForUser(ctx context.Context, userID string) ([]RoomInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.creator_id, r.creator_username, r.admin_id, r.admin_username, r.created_at,
		       rm.unread_count,
		       lm.id, lm.room_id, lm.room_name, lm.author_id, lm.author_username, lm.content,
		       lm.message_type, lm.status, lm.created_at
		FROM room_members rm
		JOIN rooms r ON r.id = rm.room_id
		LEFT JOIN LATERAL (
			SELECT * FROM user_messages um
			WHERE um.room_id = rm.room_id
			ORDER BY um.created_at DESC
			LIMIT 1
		) lm ON true
		WHERE rm.user_id = $1 AND rm.left_at IS NULL AND rm.is_visible = true
		ORDER BY COALESCE(lm.created_at, rm.joined_at) DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoomInfo
	for rows.Next() {
		var ri RoomInfo
		var lastID, lastRoomID, lastRoomName, lastContent, lastType, lastStatus sql.NullString
		var lastAuthorID, lastAuthorUsername sql.NullString
		var lastCreatedAt sql.NullTime

		if err := rows.Scan(
			&ri.Room.ID, &ri.Room.Name, &ri.Room.CreatorID, &ri.Room.CreatorUsername,
			&ri.Room.AdminID, &ri.Room.AdminUsername, &ri.Room.CreatedAt,
			&ri.UnreadCount,
			&lastID, &lastRoomID, &lastRoomName, &lastAuthorID, &lastAuthorUsername, &lastContent,
			&lastType, &lastStatus, &lastCreatedAt,
		); err != nil {
			return nil, err
		}

		if lastID.Valid {
			msg := &UserMessage{
				ID:          lastID.String,
				RoomID:      lastRoomID.String,
				RoomName:    lastRoomName.String,
				Content:     lastContent.String,
				MessageType: MessageType(lastType.String),
				Status:      MessageStatus(lastStatus.String),
				CreatedAt:   lastCreatedAt.Time,
			}
			if lastAuthorID.Valid {
				v := lastAuthorID.String
				msg.AuthorID = &v
			}
			if lastAuthorUsername.Valid {
				v := lastAuthorUsername.String
				msg.AuthorUsername = &v
			}
			ri.LastMessage = msg
		}
		out = append(out, ri)
	}
	return out, rows.Err()
}

func (s *Store) IncrementUnreadCount(ctx context.Context, roomID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE room_members SET unread_count = unread_count + 1
		WHERE room_id = $1 AND user_id = $2 AND left_at IS NULL`, roomID, userID)
	return err
}

func (s *Store) ResetLastReadAndCount(ctx context.Context, roomID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE room_members SET last_read_at = now(), unread_count = 0
		WHERE room_id = $1 AND user_id = $2 AND left_at IS NULL`, roomID, userID)
	return err
}

// RemoveMember is the transactional kick path: deletes the active
// membership row outright (a kicked member has no hidden-history
// requirement the way a self-leave does) and returns the row removed, or
// ErrNotFound if the target was not an active member.
func (s *Store) RemoveMember(ctx context.Context, roomID, userID string) (*RoomMember, error) {
	m := &RoomMember{}
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM room_members
		WHERE room_id = $1 AND user_id = $2 AND left_at IS NULL
		RETURNING id, room_id, user_id, room_name, username, joined_at, left_at, is_visible, last_read_at, unread_count`,
		roomID, userID,
	).Scan(&m.ID, &m.RoomID, &m.UserID, &m.RoomName, &m.Username, &m.JoinedAt, &m.LeftAt, &m.IsVisible, &m.LastReadAt, &m.UnreadCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}
