// Package auth holds the credential primitives of the server: bcrypt
// password hashing and the HS256 access token codec.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/ticketdesk/internal/common"
	"github.com/dmitrijs2005/ticketdesk/internal/server/models"
)

// AccessTokenClaims are the claims carried by an access token.
// The user id travels in the registered "sub" claim.
type AccessTokenClaims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Codec signs and verifies access tokens with a shared HMAC secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec returns a codec signing with secret. Tokens carry exp = iat + ttl;
// a zero ttl produces tokens without exp.
func NewCodec(secret []byte, ttl time.Duration) *Codec {
	return &Codec{secret: secret, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. Used in tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Sign issues a token for subject/email/role. Any registered claims other
// than sub are overwritten.
func (c *Codec) Sign(claims AccessTokenClaims) (string, error) {
	now := c.now()

	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:  claims.Subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if c.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks the signature and expiry of token and returns its claims.
// Every failure is reported as common.ErrInvalidToken.
func (c *Codec) Verify(token string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Join(common.ErrInvalidToken, jwt.ErrTokenExpired)
		}
		return nil, common.ErrInvalidToken
	}

	if !parsed.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
