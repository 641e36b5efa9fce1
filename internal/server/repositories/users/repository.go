// Package users implements the credential store: one record per email,
// with uniqueness enforced by the store itself.
package users

import (
	"context"

	"github.com/dmitrijs2005/homesite/internal/server/models"
)

// Repository persists user credential records.
//
// Create returns common.ErrorAlreadyExists when the email is taken.
// Lookups return common.ErrorNotFound when no record matches.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
