package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoron/tinychat/internal/common"
	"github.com/avoron/tinychat/internal/server/config"
)

func TestAppendAndRead(t *testing.T) {
	accounts, channels, messages := newTestServices(t, nil)
	ctx := context.Background()

	register(t, accounts, "alice")
	channelID, err := channels.Create(ctx, "general", "alice", testKey)
	require.NoError(t, err)

	msg, err := messages.Append(ctx, channelID, "alice", "  hello world  ")
	require.NoError(t, err)
	assert.Equal(t, "alice", msg.Author)
	assert.Equal(t, "hello world", msg.Text)
	assert.NotZero(t, msg.Timestamp)

	batch, err := messages.ReadBatch(ctx, channelID, "alice", 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, *msg, batch[0])
}

func TestBatchRollover(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.MessageBatchSize = 3
	accounts, channels, messages := newTestServices(t, cfg)
	ctx := context.Background()

	register(t, accounts, "alice")
	channelID, err := channels.Create(ctx, "general", "alice", testKey)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err = messages.Append(ctx, channelID, "alice", "message")
		require.NoError(t, err)
	}

	channel, err := channels.About(ctx, channelID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, channel.LatestBatch)

	batch1, err := messages.ReadBatch(ctx, channelID, "alice", 1)
	require.NoError(t, err)
	assert.Len(t, batch1, 3)

	batch2, err := messages.ReadBatch(ctx, channelID, "alice", 2)
	require.NoError(t, err)
	assert.Len(t, batch2, 1)
}

func TestAppendNonMember(t *testing.T) {
	accounts, channels, messages := newTestServices(t, nil)
	ctx := context.Background()

	register(t, accounts, "alice")
	register(t, accounts, "eve")
	channelID, err := channels.Create(ctx, "general", "alice", testKey)
	require.NoError(t, err)

	_, err = messages.Append(ctx, channelID, "eve", "let me in")
	assert.ErrorIs(t, err, common.ErrorForbidden)

	// nothing was stored
	batch, err := messages.ReadBatch(ctx, channelID, "alice", 1)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestAppendValidation(t *testing.T) {
	accounts, channels, messages := newTestServices(t, nil)
	ctx := context.Background()

	register(t, accounts, "alice")
	channelID, err := channels.Create(ctx, "general", "alice", testKey)
	require.NoError(t, err)

	for name, text := range map[string]string{
		"empty":      "",
		"whitespace": "   \n\t ",
		"too long":   strings.Repeat("x", 4097),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := messages.Append(ctx, channelID, "alice", text)
			assert.ErrorIs(t, err, common.ErrorValidation)
		})
	}

	// exactly the limit is accepted
	_, err = messages.Append(ctx, channelID, "alice", strings.Repeat("x", 4096))
	assert.NoError(t, err)
}

func TestAppendUnknownChannel(t *testing.T) {
	accounts, _, messages := newTestServices(t, nil)
	register(t, accounts, "alice")

	_, err := messages.Append(context.Background(), "12345", "alice", "hello")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestReadBatchErrors(t *testing.T) {
	accounts, channels, messages := newTestServices(t, nil)
	ctx := context.Background()

	register(t, accounts, "alice")
	register(t, accounts, "eve")
	channelID, err := channels.Create(ctx, "general", "alice", testKey)
	require.NoError(t, err)

	_, err = messages.ReadBatch(ctx, channelID, "eve", 1)
	assert.ErrorIs(t, err, common.ErrorForbidden)

	_, err = messages.ReadBatch(ctx, channelID, "alice", 0)
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = messages.ReadBatch(ctx, channelID, "alice", 7)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAppendRecoversMissingLatestBatch(t *testing.T) {
	accounts, channels, messages := newTestServices(t, nil)
	ctx := context.Background()

	register(t, accounts, "alice")
	channelID, err := channels.Create(ctx, "general", "alice", testKey)
	require.NoError(t, err)

	_, err = messages.Append(ctx, channelID, "alice", "first")
	require.NoError(t, err)

	// simulate an interrupted rollover: the latest batch record is gone
	require.NoError(t, messages.m.Messages().DeleteAll(ctx, channelID))

	msg, err := messages.Append(ctx, channelID, "alice", "second")
	require.NoError(t, err)

	batch, err := messages.ReadBatch(ctx, channelID, "alice", 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, *msg, batch[0])
}
