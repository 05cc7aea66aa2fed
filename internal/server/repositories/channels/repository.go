// Package channels persists one record per chat channel.
package channels

import (
	"context"

	"github.com/avoron/tinychat/internal/server/models"
)

type Repository interface {
	// Create stores a new channel. Returns common.ErrorAlreadyExists on an
	// id collision so the caller can retry with a fresh id.
	Create(ctx context.Context, channel *models.Channel) error

	// Get returns the channel or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Channel, error)

	// Update overwrites an existing channel record.
	Update(ctx context.Context, channel *models.Channel) error

	// Delete reclaims the channel record. Deleting an absent channel is
	// not an error.
	Delete(ctx context.Context, id string) error
}
