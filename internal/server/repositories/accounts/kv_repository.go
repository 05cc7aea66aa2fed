package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avoron/tinychat/internal/common"
	"github.com/avoron/tinychat/internal/server/kv"
	"github.com/avoron/tinychat/internal/server/models"
)

const bucket = "accounts"

type KVRepository struct {
	store kv.Store
}

func NewKVRepository(store kv.Store) *KVRepository {
	return &KVRepository{store: store}
}

func (r *KVRepository) Create(ctx context.Context, account *models.Account) error {
	_, err := r.store.Get(ctx, bucket, account.Username)
	if err == nil {
		return common.ErrorAlreadyExists
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error checking account existence: %w", err)
	}
	return r.put(ctx, account)
}

func (r *KVRepository) Get(ctx context.Context, username string) (*models.Account, error) {
	v, err := r.store.Get(ctx, bucket, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error reading account record: %w", err)
	}

	account := &models.Account{}
	if err := json.Unmarshal(v, account); err != nil {
		return nil, fmt.Errorf("error decoding account record: %w", err)
	}
	return account, nil
}

func (r *KVRepository) Update(ctx context.Context, account *models.Account) error {
	if _, err := r.store.Get(ctx, bucket, account.Username); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error checking account existence: %w", err)
	}
	return r.put(ctx, account)
}

func (r *KVRepository) put(ctx context.Context, account *models.Account) error {
	v, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("error encoding account record: %w", err)
	}
	if err := r.store.Put(ctx, bucket, account.Username, v); err != nil {
		return fmt.Errorf("error writing account record: %w", err)
	}
	return nil
}
