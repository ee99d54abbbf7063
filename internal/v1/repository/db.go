package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sony/gobreaker"
)

// Store is the PostgreSQL-backed implementation of every repository
// contract used by the command handlers. One *sql.DB pool is shared by all
// callers; concurrency is bounded by the pool's MaxOpenConns.
type Store struct {
	db      *sql.DB
	breaker *gobreaker.CircuitBreaker
}

// Open connects to connStr, verifies the connection, and runs migrations.
func Open(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	st := &Store{
		db: db,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "postgres",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
	}

	if err := st.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping reports whether the pool can reach the database, routed through the
// circuit breaker so a sustained outage fails fast instead of piling up
// blocked health checks.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.db.PingContext(ctx)
	})
	return err
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	username VARCHAR(32) UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	role VARCHAR(16) NOT NULL DEFAULT 'user',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	token_hash TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id);

CREATE TABLE IF NOT EXISTS rooms (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	creator_id UUID NOT NULL REFERENCES users(id),
	creator_username TEXT NOT NULL,
	admin_id UUID NOT NULL REFERENCES users(id),
	admin_username TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS room_members (
	id UUID PRIMARY KEY,
	room_id UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	room_name TEXT NOT NULL,
	username TEXT NOT NULL,
	joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	left_at TIMESTAMPTZ,
	is_visible BOOLEAN NOT NULL DEFAULT true,
	last_read_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	unread_count INTEGER NOT NULL DEFAULT 0 CHECK (unread_count >= 0)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_room_members_active
	ON room_members(room_id, user_id) WHERE left_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_room_members_user_id ON room_members(user_id);

CREATE TABLE IF NOT EXISTS invitations (
	id UUID PRIMARY KEY,
	room_id UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	room_name TEXT NOT NULL,
	invitee_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	invitee_username TEXT NOT NULL,
	inviter_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	inviter_username TEXT NOT NULL,
	status VARCHAR(16) NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_invitations_pending_unique
	ON invitations(room_id, invitee_id, inviter_id) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS idx_invitations_invitee ON invitations(invitee_id, status);

CREATE TABLE IF NOT EXISTS user_messages (
	id UUID PRIMARY KEY,
	room_id UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	room_name TEXT NOT NULL,
	author_id UUID REFERENCES users(id) ON DELETE SET NULL,
	author_username TEXT,
	content TEXT NOT NULL,
	message_type VARCHAR(16) NOT NULL DEFAULT 'text',
	status VARCHAR(16) NOT NULL DEFAULT 'sent',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_user_messages_room_created ON user_messages(room_id, created_at);

CREATE TABLE IF NOT EXISTS file_records (
	id UUID PRIMARY KEY,
	encrypted_data BYTEA NOT NULL,
	encrypted_metadata BYTEA,
	size_in_bytes BIGINT NOT NULL,
	file_hash TEXT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS identity_keys (
	user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	identity_key TEXT NOT NULL,
	registration_id INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS signed_prekeys (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	key_id INTEGER NOT NULL,
	public_key TEXT NOT NULL,
	signature TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(user_id, key_id)
);
CREATE INDEX IF NOT EXISTS idx_signed_prekeys_user_created ON signed_prekeys(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS one_time_prekeys (
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	key_id INTEGER NOT NULL,
	public_key TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, key_id)
);
`
