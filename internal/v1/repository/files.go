package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// InsertFile stores an opaque encrypted blob. Size-cap enforcement happens
// at the HTTP ingest boundary, before the bytes ever reach this call.
func (s *Store) InsertFile(ctx context.Context, data, metadata []byte, hash string) (*FileRecord, error) {
	f := &FileRecord{
		ID:                uuid.NewString(),
		EncryptedData:     data,
		EncryptedMetadata: metadata,
		SizeInBytes:       int64(len(data)),
		FileHash:          hash,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO file_records (id, encrypted_data, encrypted_metadata, size_in_bytes, file_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING uploaded_at`,
		f.ID, f.EncryptedData, f.EncryptedMetadata, f.SizeInBytes, f.FileHash,
	).Scan(&f.UploadedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Store) GetFile(ctx context.Context, id string) (*FileRecord, error) {
	f := &FileRecord{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, encrypted_data, encrypted_metadata, size_in_bytes, file_hash, uploaded_at
		FROM file_records WHERE id = $1`, id,
	).Scan(&f.ID, &f.EncryptedData, &f.EncryptedMetadata, &f.SizeInBytes, &f.FileHash, &f.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}
