package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avoron/tinychat/internal/common"
	"github.com/avoron/tinychat/internal/server/kv"
	"github.com/avoron/tinychat/internal/server/models"
)

const bucket = "channels"

type KVRepository struct {
	store kv.Store
}

func NewKVRepository(store kv.Store) *KVRepository {
	return &KVRepository{store: store}
}

func (r *KVRepository) Create(ctx context.Context, channel *models.Channel) error {
	_, err := r.store.Get(ctx, bucket, channel.ID)
	if err == nil {
		return common.ErrorAlreadyExists
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error checking channel existence: %w", err)
	}
	return r.put(ctx, channel)
}

func (r *KVRepository) Get(ctx context.Context, id string) (*models.Channel, error) {
	v, err := r.store.Get(ctx, bucket, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error reading channel record: %w", err)
	}

	channel := &models.Channel{}
	if err := json.Unmarshal(v, channel); err != nil {
		return nil, fmt.Errorf("error decoding channel record: %w", err)
	}
	return channel, nil
}

func (r *KVRepository) Update(ctx context.Context, channel *models.Channel) error {
	if _, err := r.store.Get(ctx, bucket, channel.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error checking channel existence: %w", err)
	}
	return r.put(ctx, channel)
}

func (r *KVRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, bucket, id); err != nil {
		return fmt.Errorf("error deleting channel record: %w", err)
	}
	return nil
}

func (r *KVRepository) put(ctx context.Context, channel *models.Channel) error {
	v, err := json.Marshal(channel)
	if err != nil {
		return fmt.Errorf("error encoding channel record: %w", err)
	}
	if err := r.store.Put(ctx, bucket, channel.ID, v); err != nil {
		return fmt.Errorf("error writing channel record: %w", err)
	}
	return nil
}
