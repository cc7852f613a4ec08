// Package memory provides mutex-guarded in-memory repositories. They back
// local runs without a database and the service-level tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/ticketdesk/internal/common"
	"github.com/dmitrijs2005/ticketdesk/internal/server/models"
)

type UsersRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
}

func NewUsersRepository() *UsersRepository {
	return &UsersRepository{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func (r *UsersRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Email)
	if id, ok := r.byEmail[key]; ok {
		return cloneUser(r.byID[id]), nil
	}

	stored := cloneUser(user)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.byID[stored.ID] = stored
	r.byEmail[key] = stored.ID

	return cloneUser(stored), nil
}

func (r *UsersRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *UsersRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneUser(u), nil
}

// Delete removes a user. Only tests need it, to simulate an account that
// disappears while its tokens are still in circulation.
func (r *UsersRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byID[id]; ok {
		delete(r.byEmail, strings.ToLower(u.Email))
		delete(r.byID, id)
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.PassHash = append([]byte(nil), u.PassHash...)
	return &c
}
