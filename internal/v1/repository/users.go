package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrNotFound is returned by single-row lookups that match no row. Callers
// at the handler boundary translate it into the specific not-found code for
// the entity they were fetching.
var ErrNotFound = errors.New("repository: not found")

// ErrAlreadyExists signals a unique-constraint violation on insert.
var ErrAlreadyExists = errors.New("repository: already exists")

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	u := &User{ID: uuid.NewString(), Username: username, PasswordHash: passwordHash, Role: RoleUser}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		u.ID, u.Username, u.PasswordHash, u.Role,
	).Scan(&u.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at FROM users WHERE id = $1`, id))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`, username))
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser removes the account and, via FK cascades, its refresh tokens,
// memberships, and pre-keys. Authored messages retain their row with
// author_id nulled by ON DELETE SET NULL.
func (s *Store) DeleteUser(ctx context.Context, id string) (*User, error) {
	u, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return u, nil
}

// SearchUsers returns up to 20 usernames matching query, excluding the
// caller.
func (s *Store) SearchUsers(ctx context.Context, query, excludeUserID string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE username ILIKE '%' || $1 || '%' AND id != $2
		ORDER BY username
		LIMIT 20`, query, excludeUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) CreateRefreshToken(ctx context.Context, userID, tokenHash string, ttl time.Duration) (*RefreshToken, error) {
	rt := &RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(ttl),
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		rt.ID, rt.UserID, rt.TokenHash, rt.ExpiresAt,
	).Scan(&rt.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// ConsumeRefreshToken deletes the row matching tokenHash and returns it, so
// that refresh is single-use: a second call with the same digest finds no
// row and the caller treats it as an expired session.
func (s *Store) ConsumeRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	rt := &RefreshToken{}
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM refresh_tokens
		WHERE token_hash = $1
		RETURNING id, user_id, token_hash, expires_at, created_at`, tokenHash,
	).Scan(&rt.ID, &rt.UserID, &rt.TokenHash, &rt.ExpiresAt, &rt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if rt.ExpiresAt.Before(time.Now()) {
		return nil, ErrNotFound
	}
	return rt, nil
}
