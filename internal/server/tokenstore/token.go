package tokenstore

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// secretSize is the number of random bytes in a refresh token secret.
const secretSize = 32

// Format joins the owner id and the hex secret into the raw token handed
// to clients.
func Format(userID, secret string) string {
	return userID + "." + secret
}

// Parse splits a raw token into owner id and secret. Anything that is not
// "<uuid>.<64 hex chars>" is rejected with ErrTokenNotFound.
func Parse(raw string) (userID, secret string, err error) {
	userID, secret, ok := strings.Cut(raw, ".")
	if !ok {
		return "", "", ErrTokenNotFound
	}
	if _, err := uuid.Parse(userID); err != nil {
		return "", "", ErrTokenNotFound
	}
	if len(secret) != 2*secretSize {
		return "", "", ErrTokenNotFound
	}
	if _, err := hex.DecodeString(secret); err != nil {
		return "", "", ErrTokenNotFound
	}
	return userID, secret, nil
}
