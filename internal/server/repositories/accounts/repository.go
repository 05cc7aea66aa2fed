// Package accounts persists one record per registered user.
package accounts

import (
	"context"

	"github.com/avoron/tinychat/internal/server/models"
)

type Repository interface {
	// Create stores a new account. Returns common.ErrorAlreadyExists if the
	// username is taken (soft-deleted accounts still count).
	Create(ctx context.Context, account *models.Account) error

	// Get returns the account or common.ErrorNotFound.
	Get(ctx context.Context, username string) (*models.Account, error)

	// Update overwrites an existing account record.
	Update(ctx context.Context, account *models.Account) error
}
