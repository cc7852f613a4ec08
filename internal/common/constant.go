// Package common contains shared constants and sentinel errors used across
// ticketdesk components.
package common

const (
	// AuthorizationHeaderName carries the access token as "Bearer <token>".
	AuthorizationHeaderName = "Authorization"

	// BearerScheme is the only accepted authorization scheme.
	BearerScheme = "Bearer"

	// RefreshTokenCookieName is the HTTP-only cookie holding the raw refresh token.
	RefreshTokenCookieName = "refresh_token"
)
