// Package messages persists the per-channel message log as a sequence of
// fixed-capacity batches, each addressable by (channelID, index).
package messages

import (
	"context"

	"github.com/avoron/tinychat/internal/server/models"
)

type Repository interface {
	// ReadBatch returns the messages of one batch in append order, or
	// common.ErrorNotFound if that batch was never stored.
	ReadBatch(ctx context.Context, channelID string, index int) ([]models.Message, error)

	// WriteBatch stores the full contents of one batch, creating it if
	// needed.
	WriteBatch(ctx context.Context, channelID string, index int, msgs []models.Message) error

	// DeleteAll reclaims every batch of the channel.
	DeleteAll(ctx context.Context, channelID string) error
}
