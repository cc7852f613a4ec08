package models

import "time"

// RefreshToken is a stored refresh-token record. Only the bcrypt hash of the
// token secret is kept; the raw token exists on the client side only.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash []byte
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Active reports whether the token is neither revoked nor expired at now.
// A token whose ExpiresAt equals now is already expired.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}

// Revoked reports whether the token was revoked.
func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}
