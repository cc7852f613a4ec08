// Package tokenstore issues, validates, rotates and revokes refresh tokens.
//
// A raw token has the form "<user-id>.<secret>". Only a bcrypt hash of the
// secret is persisted, so a database leak does not expose usable tokens.
// Records are never deleted: revocation sets revoked_at and expiry is
// evaluated against the store clock on every lookup.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/ticketdesk/internal/common"
	"github.com/dmitrijs2005/ticketdesk/internal/dbx"
	"github.com/dmitrijs2005/ticketdesk/internal/logging"
	"github.com/dmitrijs2005/ticketdesk/internal/server/models"
	"github.com/dmitrijs2005/ticketdesk/internal/server/repositories/refreshtokens"
)

// ErrTokenNotFound is returned for every refresh token that cannot be used:
// absent, expired, revoked, mismatched or malformed.
var ErrTokenNotFound = errors.New("refresh token not found")

// Backend is the storage the store runs on. repomanager.RepositoryManager
// satisfies it.
type Backend interface {
	Conn() dbx.DBTX
	Transactor() dbx.Transactor
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}

// Options tune a Store. Zero values fall back to defaults where noted.
type Options struct {
	// TTL is the refresh token lifetime. Required.
	TTL time.Duration
	// Cost is the bcrypt cost for secrets, bcrypt.DefaultCost when zero.
	Cost int
	// MaxActive caps live sessions per user; older ones are revoked when a
	// new token is issued. Zero disables the cap.
	MaxActive int
}

type Store struct {
	backend   Backend
	ttl       time.Duration
	cost      int
	maxActive int
	now       func() time.Time
	logger    logging.Logger
}

func New(backend Backend, opts Options, logger logging.Logger) *Store {
	cost := opts.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Store{
		backend:   backend,
		ttl:       opts.TTL,
		cost:      cost,
		maxActive: opts.MaxActive,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.With("module", "tokenstore"),
	}
}

// WithClock replaces the time source used for issue and expiry checks.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Issue creates and persists a new refresh token for userID and returns the
// raw token. The raw value is not stored anywhere.
func (s *Store) Issue(ctx context.Context, userID string) (string, error) {
	return s.issue(ctx, s.backend.RefreshTokens(s.backend.Conn()), userID)
}

// Validate returns the active record matching raw for userID. Storage
// failures are wrapped in common.ErrorInternal; every other miss is
// ErrTokenNotFound.
func (s *Store) Validate(ctx context.Context, userID, raw string) (*models.RefreshToken, error) {
	return s.validate(ctx, s.backend.RefreshTokens(s.backend.Conn()), userID, raw)
}

// Revoke marks the token revoked. Revoking twice keeps the first revocation
// time. An unknown id yields (nil, nil).
func (s *Store) Revoke(ctx context.Context, tokenID string) (*models.RefreshToken, error) {
	repo := s.backend.RefreshTokens(s.backend.Conn())

	t, err := repo.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if t.Revoked() {
		return t, nil
	}

	now := s.now()
	changed, err := repo.Revoke(ctx, tokenID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if !changed {
		// revoked concurrently; report the stored state
		stored, err := repo.Get(ctx, tokenID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}
		return stored, nil
	}

	t.RevokedAt = &now
	s.logger.Debug(ctx, "refresh token revoked", "token_id", tokenID, "user_id", t.UserID)
	return t, nil
}

// Rotate atomically consumes raw and issues its replacement. Of several
// concurrent rotations of the same token exactly one succeeds; the others
// get ErrTokenNotFound.
func (s *Store) Rotate(ctx context.Context, userID, raw string) (string, error) {
	var next string

	err := s.backend.Transactor().InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.backend.RefreshTokens(tx)

		cur, err := s.validate(ctx, repo, userID, raw)
		if err != nil {
			return err
		}

		changed, err := repo.Revoke(ctx, cur.ID, s.now())
		if err != nil {
			return fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}
		if !changed {
			return ErrTokenNotFound
		}

		next, err = s.issue(ctx, repo, userID)
		if err != nil {
			return err
		}

		s.logger.Debug(ctx, "refresh token rotated", "token_id", cur.ID, "user_id", userID)
		return nil
	})
	if err != nil {
		return "", err
	}

	return next, nil
}

// RevokeAll revokes every active token of userID and returns the count.
func (s *Store) RevokeAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.backend.RefreshTokens(s.backend.Conn()).RevokeAllForUser(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	s.logger.Info(ctx, "all refresh tokens revoked", "user_id", userID, "count", n)
	return n, nil
}

func (s *Store) issue(ctx context.Context, repo refreshtokens.Repository, userID string) (string, error) {
	secret, err := common.MakeRandHexString(secretSize)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	now := s.now()
	rec := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: hash,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := repo.Create(ctx, rec); err != nil {
		return "", fmt.Errorf("%w: store refresh token: %w", common.ErrorInternal, err)
	}

	if s.maxActive > 0 {
		n, err := repo.RevokeOldestBeyond(ctx, userID, s.maxActive, now)
		if err != nil {
			s.logger.Warn(ctx, "session cap not enforced", "user_id", userID, "error", err)
		} else if n > 0 {
			s.logger.Info(ctx, "old sessions revoked", "user_id", userID, "count", n)
		}
	}

	s.logger.Debug(ctx, "refresh token issued", "token_id", rec.ID, "user_id", userID)
	return Format(userID, secret), nil
}

func (s *Store) validate(ctx context.Context, repo refreshtokens.Repository, userID, raw string) (*models.RefreshToken, error) {
	owner, secret, err := Parse(raw)
	if err != nil || owner != userID {
		return nil, ErrTokenNotFound
	}

	tokens, err := repo.ListActive(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	for _, t := range tokens {
		if bcrypt.CompareHashAndPassword(t.TokenHash, []byte(secret)) == nil {
			return t, nil
		}
	}

	return nil, ErrTokenNotFound
}
