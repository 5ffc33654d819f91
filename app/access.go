package app

import (
	"context"
	"fmt"

	"github.com/artpar/modgate/domain/access"
	"github.com/artpar/modgate/ports"
	"github.com/rs/zerolog"
)

// AccessService resolves and manages locally stored access keys.
// It implements ports.AccessKeyResolver.
type AccessService struct {
	store     ports.AccessStore
	clock     ports.Clock
	keyPrefix string
	logger    zerolog.Logger
}

// NewAccessService creates an access service over store.
func NewAccessService(store ports.AccessStore, clock ports.Clock, keyPrefix string, logger zerolog.Logger) *AccessService {
	if keyPrefix == "" {
		keyPrefix = access.DefaultKeyPrefix
	}
	return &AccessService{
		store:     store,
		clock:     clock,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

var _ ports.AccessKeyResolver = (*AccessService)(nil)

// Resolve validates rawKey and returns its access record.
func (s *AccessService) Resolve(ctx context.Context, rawKey string) (access.Record, error) {
	now := s.clock.Now()

	// 1. Validate format
	prefix, ok := access.ValidateFormat(rawKey, s.keyPrefix)
	if !ok {
		return access.Record{}, access.ErrNotFound
	}

	// 2. Lookup candidates by prefix
	creds, err := s.store.GetByPrefix(ctx, prefix)
	if err != nil {
		return access.Record{}, fmt.Errorf("lookup access key: %w", err)
	}

	// 3. Match hash
	var found *access.Credential
	for i := range creds {
		if creds[i].Matches(rawKey) {
			found = &creds[i]
			break
		}
	}
	if found == nil {
		return access.Record{}, access.ErrNotFound
	}

	// 4. Check status and expiry
	if reason := access.Validate(*found, now); reason != access.ReasonValid {
		return access.Record{}, fmt.Errorf("%w: %s", access.ErrRejected, reason)
	}

	// 5. Touch last used (best effort)
	if err := s.store.UpdateLastUsed(ctx, found.ID, now); err != nil {
		s.logger.Warn().Err(err).Int64("access_record_id", found.ID).Msg("failed to update last used")
	}

	rec := found.Record
	rec.LastUsedAt = &now
	return rec, nil
}

// Issue creates a new access key and returns the raw key, shown only once.
func (s *AccessService) Issue(ctx context.Context, p access.CreateParams) (string, access.Record, error) {
	rawKey, cred, err := access.Generate(s.keyPrefix, p)
	if err != nil {
		return "", access.Record{}, err
	}
	cred.CreatedAt = s.clock.Now()

	created, err := s.store.Create(ctx, cred)
	if err != nil {
		return "", access.Record{}, fmt.Errorf("create access key: %w", err)
	}
	return rawKey, created.Record, nil
}

// List returns the access records of an application, or all when applicationID is 0.
func (s *AccessService) List(ctx context.Context, applicationID int64) ([]access.Record, error) {
	return s.store.List(ctx, applicationID)
}

// Revoke revokes the access key with the given ID.
func (s *AccessService) Revoke(ctx context.Context, id int64) error {
	return s.store.Revoke(ctx, id, s.clock.Now())
}
