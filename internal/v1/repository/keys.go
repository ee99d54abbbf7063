package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

func (s *Store) UpsertIdentityKey(ctx context.Context, userID, identityKey string, registrationID int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identity_keys (user_id, identity_key, registration_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET identity_key = $2, registration_id = $3, created_at = now()`,
		userID, identityKey, registrationID)
	return err
}

func (s *Store) GetIdentityKey(ctx context.Context, userID string) (*IdentityKey, error) {
	k := &IdentityKey{}
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, identity_key, registration_id, created_at FROM identity_keys WHERE user_id = $1`,
		userID).Scan(&k.UserID, &k.IdentityKey, &k.RegistrationID, &k.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

func (s *Store) UpsertSignedPreKey(ctx context.Context, userID string, keyID int, publicKey, signature string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signed_prekeys (id, user_id, key_id, public_key, signature)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, key_id) DO UPDATE SET public_key = $4, signature = $5, created_at = now()`,
		uuid.NewString(), userID, keyID, publicKey, signature)
	return err
}

// GetLatestSignedPreKey returns the most-recently-created signed pre-key
// for the user.
func (s *Store) GetLatestSignedPreKey(ctx context.Context, userID string) (*SignedPreKey, error) {
	k := &SignedPreKey{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, key_id, public_key, signature, created_at
		FROM signed_prekeys WHERE user_id = $1
		ORDER BY created_at DESC LIMIT 1`, userID,
	).Scan(&k.ID, &k.UserID, &k.KeyID, &k.PublicKey, &k.Signature, &k.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

// ReplaceOneTimePreKeys deletes every existing one-time key for the user
// and bulk-inserts the new set, so a client reinstall wipes the server's
// stale keys in one transaction. Duplicate key_ids within the incoming set
// are ignored rather than erroring.
func (s *Store) ReplaceOneTimePreKeys(ctx context.Context, userID string, keys []OneTimePreKey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM one_time_prekeys WHERE user_id = $1`, userID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO one_time_prekeys (user_id, key_id, public_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, key_id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, userID, k.KeyID, k.PublicKey); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) CountOneTimePreKeys(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM one_time_prekeys WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

// ConsumeOneTimePreKey atomically selects the lowest key_id for the user,
// skipping rows already locked by a racing consumer, deletes it, and
// returns it. Returns ErrNotFound if none remain (or all remaining rows are
// locked by concurrent consumers) — the caller treats that as "none
// available", not an error.
//
// The SELECT ... FOR UPDATE SKIP LOCKED followed by a keyed DELETE (rather
// than a single DELETE ... RETURNING with a subquery) guarantees distinct
// concurrent callers never observe or delete the same row twice.
func (s *Store) ConsumeOneTimePreKey(ctx context.Context, userID string) (*OneTimePreKey, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	k := &OneTimePreKey{}
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, key_id, public_key, created_at
		FROM one_time_prekeys
		WHERE user_id = $1
		ORDER BY key_id ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1`, userID,
	).Scan(&k.UserID, &k.KeyID, &k.PublicKey, &k.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM one_time_prekeys WHERE user_id = $1 AND key_id = $2`, k.UserID, k.KeyID); err != nil {
		return nil, err
	}

	return k, tx.Commit()
}
