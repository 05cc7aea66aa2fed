package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoron/tinychat/internal/common"
	"github.com/avoron/tinychat/internal/lockx"
	"github.com/avoron/tinychat/internal/server/config"
	"github.com/avoron/tinychat/internal/server/models"
	"github.com/avoron/tinychat/internal/server/repositories/repomanager"
)

const testPublicKey = "MCowBQYDK2VuAyEAoF2hZTBkZWZhdWx0a2V5bWF0ZXJpYWw"

var testKey = models.KeyMaterial{EncryptedKey: "d2lyZWQ", IV: "aXYxMjM"}

func newTestServices(t *testing.T, cfg *config.Config) (*AccountService, *ChannelService, *MessageService) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
		cfg.LoadDefaults()
	}
	m := repomanager.NewMemoryManager()
	t.Cleanup(func() { _ = m.Close() })

	acctLocks := lockx.New()
	chanLocks := lockx.New()

	return NewAccountService(m, cfg, acctLocks, chanLocks),
		NewChannelService(m, acctLocks, chanLocks),
		NewMessageService(m, cfg, chanLocks)
}

func register(t *testing.T, accounts *AccountService, username string) string {
	t.Helper()
	token, err := accounts.Register(context.Background(), username, "User "+username, "pw-"+username, testPublicKey)
	require.NoError(t, err)
	return token
}

func TestRegisterLoginValidate(t *testing.T) {
	accounts, _, _ := newTestServices(t, nil)
	ctx := context.Background()

	token, err := accounts.Register(ctx, "alice", "Alice", "correct horse", testPublicKey)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NoError(t, accounts.Validate(ctx, "alice", token))

	token2, err := accounts.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, token, token2)

	// both sessions are live
	assert.NoError(t, accounts.Validate(ctx, "alice", token))
	assert.NoError(t, accounts.Validate(ctx, "alice", token2))
	assert.ErrorIs(t, accounts.Validate(ctx, "alice", "bogus"), common.ErrorUnauthorized)
	assert.ErrorIs(t, accounts.Validate(ctx, "nobody", token), common.ErrorNotFound)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	accounts, _, _ := newTestServices(t, nil)
	ctx := context.Background()

	register(t, accounts, "alice")
	_, err := accounts.Register(ctx, "alice", "Other Alice", "pw", testPublicKey)
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestRegisterValidation(t *testing.T) {
	accounts, _, _ := newTestServices(t, nil)
	ctx := context.Background()

	tests := []struct {
		name        string
		username    string
		displayName string
		credential  string
		publicKey   string
	}{
		{"username too short", "ab", "Name", "pw", testPublicKey},
		{"username too long", strings.Repeat("a", 29), "Name", "pw", testPublicKey},
		{"username uppercase", "Alice", "Name", "pw", testPublicKey},
		{"username doubled dash", "a--b", "Name", "pw", testPublicKey},
		{"username doubled underscore", "a__b", "Name", "pw", testPublicKey},
		{"username bad charset", "alice!", "Name", "pw", testPublicKey},
		{"empty display name", "alice", "", "pw", testPublicKey},
		{"display name too long", "alice", strings.Repeat("n", 49), "pw", testPublicKey},
		{"empty credential", "alice", "Name", "", testPublicKey},
		{"credential too long", "alice", "Name", strings.Repeat("p", 129), testPublicKey},
		{"public key too short", "alice", "Name", "pw", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := accounts.Register(ctx, tt.username, tt.displayName, tt.credential, tt.publicKey)
			assert.ErrorIs(t, err, common.ErrorValidation)
		})
	}

	// dashes and underscores in valid positions are fine
	_, err := accounts.Register(ctx, "a-b_c9", "Name", "pw", testPublicKey)
	assert.NoError(t, err)
}

func TestLoginFailures(t *testing.T) {
	accounts, _, _ := newTestServices(t, nil)
	ctx := context.Background()

	register(t, accounts, "alice")

	_, err := accounts.Login(ctx, "alice", "wrong password")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = accounts.Login(ctx, "nobody", "pw")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRevokeOthers(t *testing.T) {
	accounts, _, _ := newTestServices(t, nil)
	ctx := context.Background()

	register(t, accounts, "alice")
	token1, err := accounts.Login(ctx, "alice", "pw-alice")
	require.NoError(t, err)
	token2, err := accounts.Login(ctx, "alice", "pw-alice")
	require.NoError(t, err)

	require.NoError(t, accounts.RevokeOthers(ctx, "alice", token2))
	assert.ErrorIs(t, accounts.Validate(ctx, "alice", token1), common.ErrorUnauthorized)
	assert.NoError(t, accounts.Validate(ctx, "alice", token2))

	// calling again changes nothing
	require.NoError(t, accounts.RevokeOthers(ctx, "alice", token2))
	assert.NoError(t, accounts.Validate(ctx, "alice", token2))
}

func TestPurge(t *testing.T) {
	accounts, channels, messages := newTestServices(t, nil)
	ctx := context.Background()

	register(t, accounts, "alice")
	bobToken := register(t, accounts, "bob")

	channelID, err := channels.Create(ctx, "general", "alice", testKey)
	require.NoError(t, err)
	require.NoError(t, channels.AddMember(ctx, channelID, "alice", "bob", testKey))

	_, err = messages.Append(ctx, channelID, "alice", "hi bob")
	require.NoError(t, err)
	_, err = messages.Append(ctx, channelID, "bob", "hi alice")
	require.NoError(t, err)

	require.NoError(t, accounts.Purge(ctx, "bob"))

	// sessions are gone and the username stays reserved
	assert.ErrorIs(t, accounts.Validate(ctx, "bob", bobToken), common.ErrorNotFound)
	_, err = accounts.Register(ctx, "bob", "Bob II", "pw", testPublicKey)
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
	_, err = accounts.Login(ctx, "bob", "pw-bob")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	// bob left the channel and his messages were scrubbed
	channel, err := channels.About(ctx, channelID, "alice")
	require.NoError(t, err)
	assert.False(t, channel.HasMember("bob"))

	batch, err := messages.ReadBatch(ctx, channelID, "alice", 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "alice", batch[0].Author)

	// the scrubbed record carries no secrets
	account, err := accounts.Get(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, account.Deleted)
	assert.Empty(t, account.CredentialHash)
	assert.Empty(t, account.ValidTokenHashes)
	assert.Empty(t, account.Channels)
	assert.Equal(t, "Deleted User", account.DisplayName)
}

func TestPurgeScrubsEveryBatch(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.MessageBatchSize = 2
	accounts, channels, messages := newTestServices(t, cfg)
	ctx := context.Background()

	register(t, accounts, "alice")
	register(t, accounts, "bob")

	channelID, err := channels.Create(ctx, "general", "alice", testKey)
	require.NoError(t, err)
	require.NoError(t, channels.AddMember(ctx, channelID, "alice", "bob", testKey))

	// fill batch 1 with bob's messages and spill into batch 2
	for i := 0; i < 3; i++ {
		_, err = messages.Append(ctx, channelID, "bob", "spam")
		require.NoError(t, err)
	}
	_, err = messages.Append(ctx, channelID, "alice", "keep")
	require.NoError(t, err)

	require.NoError(t, accounts.Purge(ctx, "bob"))

	batch1, err := messages.ReadBatch(ctx, channelID, "alice", 1)
	require.NoError(t, err)
	assert.Empty(t, batch1)

	batch2, err := messages.ReadBatch(ctx, channelID, "alice", 2)
	require.NoError(t, err)
	require.Len(t, batch2, 1)
	assert.Equal(t, "alice", batch2[0].Author)
}

func TestSelfChannels(t *testing.T) {
	accounts, channels, _ := newTestServices(t, nil)
	ctx := context.Background()

	register(t, accounts, "alice")

	id1, err := channels.Create(ctx, "general", "alice", testKey)
	require.NoError(t, err)
	id2, err := channels.Create(ctx, "random", "alice", testKey)
	require.NoError(t, err)

	names, err := accounts.Channels(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{id1: "general", id2: "random"}, names)
}
