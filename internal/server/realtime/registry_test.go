package realtime

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoron/tinychat/internal/common"
	"github.com/avoron/tinychat/internal/logging"
)

type fakeValidator struct {
	err error
}

func (v *fakeValidator) Validate(ctx context.Context, username, capability string) error {
	return v.err
}

type fakeConn struct {
	mu     sync.Mutex
	closed bool
}

func (c *fakeConn) Deliver(payload []byte) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newTestRegistry(v Validator) *Registry {
	return NewRegistry(v, logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))))
}

func TestSubscribeValidates(t *testing.T) {
	r := newTestRegistry(&fakeValidator{err: common.ErrorUnauthorized})

	err := r.Subscribe(context.Background(), "1", "alice", "token", &fakeConn{})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Empty(t, r.SubscribersOf("1"))
}

func TestSubscribeAndFanOutSet(t *testing.T) {
	r := newTestRegistry(&fakeValidator{})
	ctx := context.Background()

	require.NoError(t, r.Subscribe(ctx, "1", "alice", "token-a", &fakeConn{}))
	require.NoError(t, r.Subscribe(ctx, "1", "bob", "token-b", &fakeConn{}))
	require.NoError(t, r.Subscribe(ctx, "2", "alice", "token-a", &fakeConn{}))

	assert.Len(t, r.SubscribersOf("1"), 2)
	assert.Len(t, r.SubscribersOf("2"), 1)
	assert.Empty(t, r.SubscribersOf("3"))
}

func TestDuplicateIdentityEvicted(t *testing.T) {
	r := newTestRegistry(&fakeValidator{})
	ctx := context.Background()

	conn1 := &fakeConn{}
	conn2 := &fakeConn{}
	require.NoError(t, r.Subscribe(ctx, "1", "alice", "token", conn1))
	require.NoError(t, r.Subscribe(ctx, "1", "alice", "token", conn2))

	// same identity: the earlier connection is evicted and closed
	assert.True(t, conn1.isClosed())
	assert.False(t, conn2.isClosed())
	require.Len(t, r.SubscribersOf("1"), 1)

	// a different capability is a different identity, both stay
	require.NoError(t, r.Subscribe(ctx, "1", "alice", "other-token", &fakeConn{}))
	assert.Len(t, r.SubscribersOf("1"), 2)
}

func TestRehandshakeSameConn(t *testing.T) {
	r := newTestRegistry(&fakeValidator{})
	ctx := context.Background()

	conn := &fakeConn{}
	require.NoError(t, r.Subscribe(ctx, "1", "alice", "token", conn))
	require.NoError(t, r.Subscribe(ctx, "1", "alice", "token", conn))

	// re-handshaking on the same socket must not close it
	assert.False(t, conn.isClosed())
	assert.Len(t, r.SubscribersOf("1"), 1)
}

func TestUnsubscribeRemovesAllSubscriptions(t *testing.T) {
	r := newTestRegistry(&fakeValidator{})
	ctx := context.Background()

	conn := &fakeConn{}
	require.NoError(t, r.Subscribe(ctx, "1", "alice", "token", conn))
	require.NoError(t, r.Subscribe(ctx, "2", "alice", "token", conn))

	r.Unsubscribe(conn)

	assert.Empty(t, r.SubscribersOf("1"))
	assert.Empty(t, r.SubscribersOf("2"))

	// unknown connections are a no-op
	r.Unsubscribe(&fakeConn{})
}

func TestDrop(t *testing.T) {
	r := newTestRegistry(&fakeValidator{})
	ctx := context.Background()

	conn := &fakeConn{}
	require.NoError(t, r.Subscribe(ctx, "1", "alice", "token", conn))

	subs := r.SubscribersOf("1")
	require.Len(t, subs, 1)
	r.Drop(subs[0])

	assert.True(t, conn.isClosed())
	assert.Empty(t, r.SubscribersOf("1"))
}
