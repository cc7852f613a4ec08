// Package services contains server-side business logic. SessionService
// handles registration, login, refresh-token rotation, logout and the
// access-token guard used by the transport layer.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/ticketdesk/internal/common"
	"github.com/dmitrijs2005/ticketdesk/internal/logging"
	"github.com/dmitrijs2005/ticketdesk/internal/server/auth"
	"github.com/dmitrijs2005/ticketdesk/internal/server/models"
	"github.com/dmitrijs2005/ticketdesk/internal/server/repositories/users"
	"github.com/dmitrijs2005/ticketdesk/internal/server/tokenstore"
)

// Password length bounds. bcrypt ignores input beyond 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Profile is the public view of a user. It never carries the password hash.
type Profile struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	Name      string      `json:"name"`
	Address   string      `json:"address"`
	CreatedAt time.Time   `json:"created_at"`
}

func NewProfile(u *models.User) *Profile {
	return &Profile{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		Name:      u.Name,
		Address:   u.Address,
		CreatedAt: u.CreatedAt,
	}
}

// Identity is the authenticated principal attached to a request.
type Identity struct {
	ID    string
	Email string
	Role  models.Role
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Address  string
}

// TokenStore is the refresh-token lifecycle used by SessionService.
// *tokenstore.Store implements it.
type TokenStore interface {
	Issue(ctx context.Context, userID string) (string, error)
	Validate(ctx context.Context, userID, raw string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, tokenID string) (*models.RefreshToken, error)
	Rotate(ctx context.Context, userID, raw string) (string, error)
	RevokeAll(ctx context.Context, userID string) (int64, error)
}

// LoginLimiter throttles login attempts per key.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

type SessionService struct {
	users     users.Repository
	tokens    TokenStore
	codec     *auth.Codec
	cost      int
	dummyHash []byte
	limiter   LoginLimiter
	logger    logging.Logger
}

// NewSessionService wires the service. cost is the bcrypt cost for new
// password hashes.
func NewSessionService(u users.Repository, tokens TokenStore, codec *auth.Codec, cost int, logger logging.Logger) (*SessionService, error) {
	// verified against when the email is unknown
	dummy, err := auth.HashPassword(uuid.NewString(), cost)
	if err != nil {
		return nil, fmt.Errorf("init session service: %w", err)
	}

	return &SessionService{
		users:     u,
		tokens:    tokens,
		codec:     codec,
		cost:      cost,
		dummyHash: dummy,
		logger:    logger.With("module", "sessions"),
	}, nil
}

// WithLimiter enables login throttling.
func (s *SessionService) WithLimiter(l LoginLimiter) *SessionService {
	s.limiter = l
	return s
}

// Register creates a USER account and opens its first session.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (*TokenPair, *models.User, error) {
	user, err := s.CreateUser(ctx, in, models.RoleUser)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return pair, user, nil
}

// CreateUser creates an account with the given role without opening a
// session. Existing emails, compared case-insensitively, yield
// common.ErrorAlreadyExists.
func (s *SessionService) CreateUser(ctx context.Context, in RegisterInput, role models.Role) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateRegistration(in, role); err != nil {
		return nil, err
	}

	_, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, common.ErrorAlreadyExists
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	hash, err := auth.HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	id := uuid.NewString()
	user, err := s.users.Create(ctx, &models.User{
		ID:       id,
		Email:    in.Email,
		PassHash: hash,
		Role:     role,
		Name:     in.Name,
		Address:  in.Address,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	// lost a race with a concurrent registration of the same email
	if user.ID != id {
		return nil, common.ErrorAlreadyExists
	}

	s.logger.Info(ctx, "user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// AuthenticateUser verifies credentials and opens a new session. Unknown
// email and wrong password return the same common.ErrorUnauthorized.
func (s *SessionService) AuthenticateUser(ctx context.Context, email, password string) (*TokenPair, error) {
	key := strings.ToLower(strings.TrimSpace(email))

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, key)
		if err != nil {
			s.logger.Warn(ctx, "login limiter unavailable", "error", err)
		} else if !ok {
			return nil, common.ErrTooManyAttempts
		}
	}

	user, err := s.users.FindByEmail(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			auth.VerifyPassword(password, s.dummyHash)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	if !auth.VerifyPassword(password, user.PassHash) {
		s.logger.Info(ctx, "login rejected", "user_id", user.ID)
		return nil, common.ErrorUnauthorized
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, key); err != nil {
			s.logger.Warn(ctx, "login limiter reset failed", "error", err)
		}
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return pair, nil
}

// RefreshUserTokens consumes raw and returns a new pair. The presented
// token becomes unusable. Every validation miss is common.ErrorUnauthorized.
// The owner is loaded and the access token signed before rotating, so a
// failure leaves raw usable and issues nothing.
func (s *SessionService) RefreshUserTokens(ctx context.Context, raw string) (*TokenPair, error) {
	userID, _, err := tokenstore.Parse(raw)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	access, err := s.signAccess(user)
	if err != nil {
		return nil, err
	}

	next, err := s.tokens.Rotate(ctx, userID, raw)
	if err != nil {
		if errors.Is(err, tokenstore.ErrTokenNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: next}, nil
}

// LogoutUser revokes the session behind raw if it is still active. It never
// fails from the caller's point of view; storage errors are only logged.
func (s *SessionService) LogoutUser(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}

	userID, _, err := tokenstore.Parse(raw)
	if err != nil {
		return nil
	}

	rec, err := s.tokens.Validate(ctx, userID, raw)
	if err != nil {
		if !errors.Is(err, tokenstore.ErrTokenNotFound) {
			s.logger.Error(ctx, "logout: token lookup failed", "user_id", userID, "error", err)
		}
		return nil
	}

	if _, err := s.tokens.Revoke(ctx, rec.ID); err != nil {
		s.logger.Error(ctx, "logout: revoke failed", "user_id", userID, "error", err)
		return nil
	}

	s.logger.Info(ctx, "user logged out", "user_id", userID)
	return nil
}

// LogoutAll revokes every active session of userID.
func (s *SessionService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return 0, common.ErrorNotFound
	}
	return s.tokens.RevokeAll(ctx, userID)
}

// GetUserProfile returns the profile of userID or common.ErrorNotFound.
func (s *SessionService) GetUserProfile(ctx context.Context, userID string) (*Profile, error) {
	// ids are uuid columns; anything else cannot exist
	if _, err := uuid.Parse(userID); err != nil {
		return nil, common.ErrorNotFound
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	return NewProfile(user), nil
}

// Authenticate resolves an access token to the identity of a user that
// still exists. Role and email come from storage, not from the token.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	claims, err := s.codec.Verify(accessToken)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "authenticate: user lookup failed", "user_id", claims.Subject, "error", err)
		}
		return nil, common.ErrorUnauthorized
	}

	return &Identity{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}

func (s *SessionService) issuePair(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := s.signAccess(user)
	if err != nil {
		return nil, err
	}

	refresh, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *SessionService) signAccess(user *models.User) (string, error) {
	access, err := s.codec.Sign(auth.AccessTokenClaims{
		Email:            user.Email,
		Role:             user.Role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID},
	})
	if err != nil {
		return "", fmt.Errorf("%w: sign access token: %w", common.ErrorInternal, err)
	}
	return access, nil
}

func validateRegistration(in RegisterInput, role models.Role) error {
	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != in.Email {
		return fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}
	if len(in.Password) < MinPasswordLength || len(in.Password) > MaxPasswordLength {
		return fmt.Errorf("%w: password must be %d to %d bytes long", common.ErrorValidation, MinPasswordLength, MaxPasswordLength)
	}
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", common.ErrorValidation, role)
	}
	return nil
}
