package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CreateInvitation inserts a pending invitation. The partial unique index
// on (room_id, invitee_id, inviter_id) WHERE status='pending' enforces that
// at most one pending invitation exists for the same pair at a time;
// violating it surfaces as ErrAlreadyExists.
func (s *Store) CreateInvitation(ctx context.Context, roomID, roomName, inviteeID, inviteeUsername, inviterID, inviterUsername string) (*Invitation, error) {
	inv := &Invitation{
		ID: uuid.NewString(), RoomID: roomID, RoomName: roomName,
		InviteeID: inviteeID, InviteeUsername: inviteeUsername,
		InviterID: inviterID, InviterUsername: inviterUsername,
		Status: InvitationPending,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO invitations (id, room_id, room_name, invitee_id, invitee_username, inviter_id, inviter_username, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING created_at`,
		inv.ID, inv.RoomID, inv.RoomName, inv.InviteeID, inv.InviteeUsername, inv.InviterID, inv.InviterUsername,
	).Scan(&inv.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return inv, nil
}

func (s *Store) GetInvitationByID(ctx context.Context, id string) (*Invitation, error) {
	inv := &Invitation{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, room_id, room_name, invitee_id, invitee_username, inviter_id, inviter_username, status, created_at
		FROM invitations WHERE id = $1`, id,
	).Scan(&inv.ID, &inv.RoomID, &inv.RoomName, &inv.InviteeID, &inv.InviteeUsername,
		&inv.InviterID, &inv.InviterUsername, &inv.Status, &inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// DeclineInvitation transitions a pending invitation to declined. Returns
// ErrNotFound if the invitation is not (still) pending.
func (s *Store) DeclineInvitation(ctx context.Context, id string) (*Invitation, error) {
	inv := &Invitation{}
	err := s.db.QueryRowContext(ctx, `
		UPDATE invitations SET status = 'declined'
		WHERE id = $1 AND status = 'pending'
		RETURNING id, room_id, room_name, invitee_id, invitee_username, inviter_id, inviter_username, status, created_at`,
		id,
	).Scan(&inv.ID, &inv.RoomID, &inv.RoomName, &inv.InviteeID, &inv.InviteeUsername,
		&inv.InviterID, &inv.InviterUsername, &inv.Status, &inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Store) GetPendingInvitationsForUser(ctx context.Context, userID string) ([]Invitation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, room_name, invitee_id, invitee_username, inviter_id, inviter_username, status, created_at
		FROM invitations WHERE invitee_id = $1 AND status = 'pending'
		ORDER BY created_at DESC`, userID)
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

// ConsumeInvitationAndJoinRoom marks the invitation accepted and, unless the
// invitee is already an active member, inserts a fresh active membership
// row. Both steps run in one transaction.
func (s *Store) ConsumeInvitationAndJoinRoom(ctx context.Context, invitationID, roomID, roomName, userID, username string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE invitations SET status = 'accepted' WHERE id = $1 AND status = 'pending'`, invitationID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	var alreadyMember bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2 AND left_at IS NULL)`,
		roomID, userID).Scan(&alreadyMember); err != nil {
		return err
	}
	if alreadyMember {
		return tx.Commit()
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO room_members (id, room_id, user_id, room_name, username, joined_at, last_read_at, unread_count)
		VALUES ($1, $2, $3, $4, $5, $6, $6, 0)`,
		uuid.NewString(), roomID, userID, roomName, username, now)
	if err != nil {
		return err
	}
	return tx.Commit()
}
