// Package refreshtokens declares the server-side repository contract for
// refresh-token records in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ticketdesk/internal/server/models"
)

// Repository stores refresh-token records. Records are never deleted;
// revocation sets revoked_at.
type Repository interface {
	// Create stores a new record.
	Create(ctx context.Context, token *models.RefreshToken) error

	// ListActive returns the user's tokens that are not revoked and expire
	// strictly after now, newest first.
	ListActive(ctx context.Context, userID string, now time.Time) ([]*models.RefreshToken, error)

	// Get returns the record with the given id, or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.RefreshToken, error)

	// Revoke sets revoked_at on a record that is not yet revoked. It reports
	// false when no row changed (unknown id or already revoked).
	Revoke(ctx context.Context, id string, at time.Time) (bool, error)

	// RevokeAllForUser revokes every active token of the user and returns
	// how many were revoked.
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error)

	// RevokeOldestBeyond keeps the newest keep active tokens of the user and
	// revokes the rest.
	RevokeOldestBeyond(ctx context.Context, userID string, keep int, at time.Time) (int64, error)
}
