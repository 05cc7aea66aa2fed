// Package realtime tracks live websocket subscriptions so the dispatch
// layer can fan messages out without knowing anything about sockets.
package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/avoron/tinychat/internal/common"
	"github.com/avoron/tinychat/internal/logging"
)

// Conn is the transport seam: a handle the registry can push payloads to
// and close. The websocket layer provides the real implementation; tests
// supply fakes.
type Conn interface {
	Deliver(payload []byte) error
	Close() error
}

// Identity names one logical subscription. It is a value type so it can
// key a map: a second subscription with the same identity replaces the
// first.
type Identity struct {
	Username         string
	CapabilityDigest string
	ChannelID        string
}

// Subscriber is one live subscription: an identity bound to a connection.
type Subscriber struct {
	id       string
	identity Identity
	conn     Conn
}

func (s *Subscriber) ID() string         { return s.id }
func (s *Subscriber) Identity() Identity { return s.identity }

// Deliver pushes a payload to the underlying connection.
func (s *Subscriber) Deliver(payload []byte) error { return s.conn.Deliver(payload) }

// Validator authenticates a (username, capability) pair. Satisfied by
// services.AccountService.
type Validator interface {
	Validate(ctx context.Context, username, capability string) error
}

// Registry is the in-memory session registry. It holds no persistent
// state; on restart clients simply reconnect.
type Registry struct {
	mu        sync.RWMutex
	validator Validator
	logger    logging.Logger

	byChannel map[string]map[Identity]*Subscriber
	byConn    map[Conn]map[Identity]*Subscriber
}

func NewRegistry(v Validator, logger logging.Logger) *Registry {
	return &Registry{
		validator: v,
		logger:    logger.With("module", "realtime"),
		byChannel: make(map[string]map[Identity]*Subscriber),
		byConn:    make(map[Conn]map[Identity]*Subscriber),
	}
}

// Subscribe authenticates the credentials and registers conn for the
// channel. A previous subscriber with the same identity is evicted and its
// connection closed, unless it is the same connection re-handshaking. One
// connection may hold subscriptions to several channels.
func (r *Registry) Subscribe(ctx context.Context, channelID, username, capability string, conn Conn) error {
	if err := r.validator.Validate(ctx, username, capability); err != nil {
		return err
	}

	identity := Identity{
		Username:         username,
		CapabilityDigest: common.SHA256Hex(capability),
		ChannelID:        channelID,
	}
	sub := &Subscriber{id: uuid.NewString(), identity: identity, conn: conn}

	var evicted *Subscriber

	r.mu.Lock()
	subs := r.byChannel[channelID]
	if subs == nil {
		subs = make(map[Identity]*Subscriber)
		r.byChannel[channelID] = subs
	}
	if prev, ok := subs[identity]; ok {
		evicted = prev
		r.forgetConnLocked(prev)
	}
	subs[identity] = sub
	if r.byConn[conn] == nil {
		r.byConn[conn] = make(map[Identity]*Subscriber)
	}
	r.byConn[conn][identity] = sub
	r.mu.Unlock()

	if evicted != nil && evicted.conn != conn {
		r.logger.Info(ctx, "evicted duplicate subscriber", "username", username, "channel", channelID, "subscriber", evicted.id)
		_ = evicted.conn.Close()
	}

	r.logger.Info(ctx, "subscriber registered", "username", username, "channel", channelID, "subscriber", sub.id)
	return nil
}

// Unsubscribe removes every subscription held by conn. Safe to call for a
// connection that was never registered.
func (r *Registry) Unsubscribe(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for identity, sub := range r.byConn[conn] {
		r.removeFromChannelLocked(identity, sub)
	}
	delete(r.byConn, conn)
}

// SubscribersOf returns a snapshot of the channel's current subscribers.
func (r *Registry) SubscribersOf(channelID string) []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]*Subscriber, 0, len(r.byChannel[channelID]))
	for _, sub := range r.byChannel[channelID] {
		subs = append(subs, sub)
	}
	return subs
}

// Drop removes one subscriber and closes its connection. Used when a
// delivery fails so a dead peer cannot keep wedging fan-out.
func (r *Registry) Drop(sub *Subscriber) {
	r.mu.Lock()
	r.removeFromChannelLocked(sub.identity, sub)
	if subs, ok := r.byConn[sub.conn]; ok {
		if subs[sub.identity] == sub {
			delete(subs, sub.identity)
		}
		if len(subs) == 0 {
			delete(r.byConn, sub.conn)
		}
	}
	r.mu.Unlock()

	_ = sub.conn.Close()
}

// removeFromChannelLocked unlinks sub from the channel index if it is
// still the registered subscriber for its identity.
func (r *Registry) removeFromChannelLocked(identity Identity, sub *Subscriber) {
	subs := r.byChannel[identity.ChannelID]
	if subs == nil || subs[identity] != sub {
		return
	}
	delete(subs, identity)
	if len(subs) == 0 {
		delete(r.byChannel, identity.ChannelID)
	}
}

// forgetConnLocked drops prev from the byConn index.
func (r *Registry) forgetConnLocked(prev *Subscriber) {
	subs := r.byConn[prev.conn]
	if subs == nil || subs[prev.identity] != prev {
		return
	}
	delete(subs, prev.identity)
	if len(subs) == 0 {
		delete(r.byConn, prev.conn)
	}
}
