// Package users declares the user repository contract and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/ticketdesk/internal/server/models"
)

type Repository interface {
	// Create persists user and returns the stored row. If a user with the
	// same email (case-insensitive) already exists, that user is returned
	// unchanged instead of an error.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// FindByEmail matches email case-insensitively. Missing users yield
	// common.ErrorNotFound.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}
