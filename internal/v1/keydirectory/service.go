// Package keydirectory serves Signal-style pre-key bundles: identity key,
// latest signed pre-key, and best-effort atomic consumption of a one-time
// pre-key.
package keydirectory

import (
	"context"
	"errors"

	"github.com/RoseWrightdev/chat-backend/internal/v1/apperr"
	"github.com/RoseWrightdev/chat-backend/internal/v1/metrics"
	"github.com/RoseWrightdev/chat-backend/internal/v1/repository"
)

// Repository is the subset of the repository layer this service needs,
// named here so the service can be tested against a fake.
type Repository interface {
	UpsertIdentityKey(ctx context.Context, userID, identityKey string, registrationID int) error
	GetIdentityKey(ctx context.Context, userID string) (*repository.IdentityKey, error)
	UpsertSignedPreKey(ctx context.Context, userID string, keyID int, publicKey, signature string) error
	GetLatestSignedPreKey(ctx context.Context, userID string) (*repository.SignedPreKey, error)
	ReplaceOneTimePreKeys(ctx context.Context, userID string, keys []repository.OneTimePreKey) error
	CountOneTimePreKeys(ctx context.Context, userID string) (int, error)
	ConsumeOneTimePreKey(ctx context.Context, userID string) (*repository.OneTimePreKey, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type UploadRequest struct {
	UserID         string
	IdentityKey    string
	RegistrationID int
	SignedPreKeyID int
	SignedPublic   string
	SignedSig      string
	OneTimeKeys    []OneTimeKey
}

type OneTimeKey struct {
	KeyID     int
	PublicKey string
}

// Upload upserts the identity key and signed pre-key, then replaces the
// user's entire one-time pre-key set (reinstall semantics: a client's new
// batch fully supersedes the old one).
func (s *Service) Upload(ctx context.Context, req UploadRequest) error {
	if err := s.repo.UpsertIdentityKey(ctx, req.UserID, req.IdentityKey, req.RegistrationID); err != nil {
		return apperr.Internal(err)
	}
	if err := s.repo.UpsertSignedPreKey(ctx, req.UserID, req.SignedPreKeyID, req.SignedPublic, req.SignedSig); err != nil {
		return apperr.Internal(err)
	}

	otks := make([]repository.OneTimePreKey, len(req.OneTimeKeys))
	for i, k := range req.OneTimeKeys {
		otks[i] = repository.OneTimePreKey{UserID: req.UserID, KeyID: k.KeyID, PublicKey: k.PublicKey}
	}
	if err := s.repo.ReplaceOneTimePreKeys(ctx, req.UserID, otks); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) CountRemaining(ctx context.Context, userID string) (int, error) {
	n, err := s.repo.CountOneTimePreKeys(ctx, userID)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return n, nil
}

// Bundle is the wire shape returned to a peer initiating an X3DH session.
type Bundle struct {
	IdentityKey    string
	RegistrationID int
	SignedPreKeyID int
	SignedPublic   string
	SignedSig      string
	OneTimeKeyID   *int
	OneTimePublic  *string
}

// FetchBundle requires both an identity key and a signed pre-key to exist;
// either missing is UserHasNoKeys. A one-time key is best-effort: none
// remaining does not fail the call, it simply comes back nil.
func (s *Service) FetchBundle(ctx context.Context, userID string) (*Bundle, error) {
	identity, err := s.repo.GetIdentityKey(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.KeyDirectoryBundleFetches.WithLabelValues("no_keys").Inc()
		return nil, apperr.UserHasNoKeys()
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	signed, err := s.repo.GetLatestSignedPreKey(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.KeyDirectoryBundleFetches.WithLabelValues("no_keys").Inc()
		return nil, apperr.UserHasNoKeys()
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	bundle := &Bundle{
		IdentityKey:    identity.IdentityKey,
		RegistrationID: identity.RegistrationID,
		SignedPreKeyID: signed.KeyID,
		SignedPublic:   signed.PublicKey,
		SignedSig:      signed.Signature,
	}

	otk, err := s.repo.ConsumeOneTimePreKey(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.KeyDirectoryOneTimeKeyConsumed.WithLabelValues("none_available").Inc()
	case err != nil:
		return nil, apperr.Internal(err)
	default:
		metrics.KeyDirectoryOneTimeKeyConsumed.WithLabelValues("consumed").Inc()
		bundle.OneTimeKeyID = &otk.KeyID
		bundle.OneTimePublic = &otk.PublicKey
	}

	metrics.KeyDirectoryBundleFetches.WithLabelValues("ok").Inc()
	return bundle, nil
}
