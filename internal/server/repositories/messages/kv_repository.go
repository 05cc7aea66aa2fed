package messages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/avoron/tinychat/internal/common"
	"github.com/avoron/tinychat/internal/server/kv"
	"github.com/avoron/tinychat/internal/server/models"
)

const bucket = "batches"

type KVRepository struct {
	store kv.Store
}

func NewKVRepository(store kv.Store) *KVRepository {
	return &KVRepository{store: store}
}

func batchKey(channelID string, index int) string {
	return channelID + "/" + strconv.Itoa(index)
}

func (r *KVRepository) ReadBatch(ctx context.Context, channelID string, index int) ([]models.Message, error) {
	v, err := r.store.Get(ctx, bucket, batchKey(channelID, index))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error reading message batch: %w", err)
	}

	var msgs []models.Message
	if err := json.Unmarshal(v, &msgs); err != nil {
		return nil, fmt.Errorf("error decoding message batch: %w", err)
	}
	return msgs, nil
}

func (r *KVRepository) WriteBatch(ctx context.Context, channelID string, index int, msgs []models.Message) error {
	if msgs == nil {
		msgs = []models.Message{}
	}
	v, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("error encoding message batch: %w", err)
	}
	if err := r.store.Put(ctx, bucket, batchKey(channelID, index), v); err != nil {
		return fmt.Errorf("error writing message batch: %w", err)
	}
	return nil
}

func (r *KVRepository) DeleteAll(ctx context.Context, channelID string) error {
	if err := r.store.DeletePrefix(ctx, bucket, channelID+"/"); err != nil {
		return fmt.Errorf("error deleting message batches: %w", err)
	}
	return nil
}
