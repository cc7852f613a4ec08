package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/ticketdesk/internal/common"
	"github.com/dmitrijs2005/ticketdesk/internal/server/models"
)

type RefreshTokensRepository struct {
	mu     sync.Mutex
	tokens []*models.RefreshToken
}

func NewRefreshTokensRepository() *RefreshTokensRepository {
	return &RefreshTokensRepository{}
}

func (r *RefreshTokensRepository) Create(_ context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens = append(r.tokens, cloneToken(token))
	return nil
}

func (r *RefreshTokensRepository) ListActive(_ context.Context, userID string, now time.Time) ([]*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := r.activeLocked(userID, now)
	out := make([]*models.RefreshToken, 0, len(active))
	for _, t := range active {
		out = append(out, cloneToken(t))
	}
	return out, nil
}

func (r *RefreshTokensRepository) Get(_ context.Context, id string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.ID == id {
			return cloneToken(t), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *RefreshTokensRepository) Revoke(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.ID == id {
			if t.RevokedAt != nil {
				return false, nil
			}
			t.RevokedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (r *RefreshTokensRepository) RevokeAllForUser(_ context.Context, userID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, t := range r.activeLocked(userID, at) {
		t.RevokedAt = &at
		n++
	}
	return n, nil
}

func (r *RefreshTokensRepository) RevokeOldestBeyond(_ context.Context, userID string, keep int, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := r.activeLocked(userID, at)
	if len(active) <= keep {
		return 0, nil
	}

	var n int64
	for _, t := range active[keep:] {
		t.RevokedAt = &at
		n++
	}
	return n, nil
}

// activeLocked returns the live records of the user, newest first.
// Callers must hold r.mu.
func (r *RefreshTokensRepository) activeLocked(userID string, now time.Time) []*models.RefreshToken {
	var active []*models.RefreshToken
	for i := len(r.tokens) - 1; i >= 0; i-- {
		t := r.tokens[i]
		if t.UserID == userID && t.Active(now) {
			active = append(active, t)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	return active
}

func cloneToken(t *models.RefreshToken) *models.RefreshToken {
	c := *t
	c.TokenHash = append([]byte(nil), t.TokenHash...)
	if t.RevokedAt != nil {
		at := *t.RevokedAt
		c.RevokedAt = &at
	}
	return &c
}
