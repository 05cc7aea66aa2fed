package repomanager

import (
	"github.com/avoron/tinychat/internal/server/kv"
	"github.com/avoron/tinychat/internal/server/repositories/accounts"
	"github.com/avoron/tinychat/internal/server/repositories/channels"
	"github.com/avoron/tinychat/internal/server/repositories/messages"
)

// KVManager backs every repository with a single kv.Store.
type KVManager struct {
	store    kv.Store
	accounts *accounts.KVRepository
	channels *channels.KVRepository
	messages *messages.KVRepository
}

func newKVManager(store kv.Store) *KVManager {
	return &KVManager{
		store:    store,
		accounts: accounts.NewKVRepository(store),
		channels: channels.NewKVRepository(store),
		messages: messages.NewKVRepository(store),
	}
}

// NewBoltManager opens (or creates) the bbolt data file at path. This is
// the production storage root.
func NewBoltManager(path string) (*KVManager, error) {
	store, err := kv.NewBoltStore(path)
	if err != nil {
		return nil, err
	}
	return newKVManager(store), nil
}

// NewMemoryManager returns a manager over an in-memory store, for tests.
func NewMemoryManager() *KVManager {
	return newKVManager(kv.NewMemoryStore())
}

func (m *KVManager) Accounts() accounts.Repository { return m.accounts }
func (m *KVManager) Channels() channels.Repository { return m.channels }
func (m *KVManager) Messages() messages.Repository { return m.messages }

func (m *KVManager) Close() error { return m.store.Close() }
