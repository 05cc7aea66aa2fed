package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/avoron/tinychat/internal/common"
	"github.com/avoron/tinychat/internal/lockx"
	"github.com/avoron/tinychat/internal/server/models"
	"github.com/avoron/tinychat/internal/server/repositories/repomanager"
)

// ChannelService manages channel lifecycle and membership. Membership is
// kept on both sides (channel member list and account channel map), so
// every mutation here runs under the channel lock, taking the affected
// account lock second.
type ChannelService struct {
	m         repomanager.Manager
	acctLocks *lockx.KeyedMutex
	chanLocks *lockx.KeyedMutex
}

func NewChannelService(m repomanager.Manager, acctLocks, chanLocks *lockx.KeyedMutex) *ChannelService {
	return &ChannelService{m: m, acctLocks: acctLocks, chanLocks: chanLocks}
}

// Create creates a channel with the creator as its only member and returns
// the new channel id. The per-member key material is opaque to the server.
func (s *ChannelService) Create(ctx context.Context, name, creator string, key models.KeyMaterial) (string, error) {
	name = strings.TrimSpace(name)
	if err := checkChannelName(name); err != nil {
		return "", err
	}

	channel := &models.Channel{
		Name:        name,
		Members:     []string{creator},
		LatestBatch: 1,
		CreatedAt:   time.Now().Unix(),
	}

	// Ids are timestamp-derived, so a collision means two creates landed
	// in the same nanosecond with the same suffix; just roll again.
	for {
		channel.ID = newChannelID()
		err := s.m.Channels().Create(ctx, channel)
		if err == nil {
			break
		}
		if errors.Is(err, common.ErrorAlreadyExists) {
			continue
		}
		return "", fmt.Errorf("error creating channel: %w", err)
	}

	if err := s.m.Messages().WriteBatch(ctx, channel.ID, 1, nil); err != nil {
		return "", fmt.Errorf("error creating message log: %w", err)
	}

	s.acctLocks.Lock(creator)
	defer s.acctLocks.Unlock(creator)

	account, err := s.m.Accounts().Get(ctx, creator)
	if err != nil {
		return "", err
	}
	if account.Channels == nil {
		account.Channels = make(map[string]models.KeyMaterial)
	}
	account.Channels[channel.ID] = key
	if err := s.m.Accounts().Update(ctx, account); err != nil {
		return "", fmt.Errorf("error saving membership: %w", err)
	}

	return channel.ID, nil
}

// Delete removes the channel, all its message batches, and the membership
// entry of every member. Any member may delete the channel.
func (s *ChannelService) Delete(ctx context.Context, channelID, requester string) error {
	s.chanLocks.Lock(channelID)

	channel, err := s.m.Channels().Get(ctx, channelID)
	if err != nil {
		s.chanLocks.Unlock(channelID)
		return err
	}
	if !channel.HasMember(requester) {
		s.chanLocks.Unlock(channelID)
		return common.ErrorForbidden
	}

	if err := s.m.Messages().DeleteAll(ctx, channelID); err != nil {
		s.chanLocks.Unlock(channelID)
		return fmt.Errorf("error deleting message log: %w", err)
	}
	if err := s.m.Channels().Delete(ctx, channelID); err != nil {
		s.chanLocks.Unlock(channelID)
		return fmt.Errorf("error deleting channel: %w", err)
	}
	s.chanLocks.Unlock(channelID)

	// The channel record is gone, so new membership operations cannot see
	// it; the remaining cleanup only needs the account locks.
	for _, member := range channel.Members {
		if err := s.dropMembership(ctx, member, channelID); err != nil {
			return err
		}
	}
	return nil
}

// AddMember adds newMember to the channel along with the channel key
// material the requester wrapped for them.
func (s *ChannelService) AddMember(ctx context.Context, channelID, requester, newMember string, key models.KeyMaterial) error {
	if err := checkUsername(newMember); err != nil {
		return err
	}

	s.chanLocks.Lock(channelID)
	defer s.chanLocks.Unlock(channelID)

	channel, err := s.m.Channels().Get(ctx, channelID)
	if err != nil {
		return err
	}
	if !channel.HasMember(requester) {
		return common.ErrorForbidden
	}

	s.acctLocks.Lock(newMember)
	defer s.acctLocks.Unlock(newMember)

	account, err := s.m.Accounts().Get(ctx, newMember)
	if err != nil {
		return err
	}
	if account.Deleted {
		return common.ErrorNotFound
	}
	if _, ok := account.Channels[channelID]; ok || channel.HasMember(newMember) {
		return common.ErrorAlreadyMember
	}

	if account.Channels == nil {
		account.Channels = make(map[string]models.KeyMaterial)
	}
	account.Channels[channelID] = key
	channel.Members = append(channel.Members, newMember)

	if err := s.m.Accounts().Update(ctx, account); err != nil {
		return fmt.Errorf("error saving membership: %w", err)
	}
	if err := s.m.Channels().Update(ctx, channel); err != nil {
		return fmt.Errorf("error saving channel: %w", err)
	}
	return nil
}

// RemoveMember removes target from the channel. Members may remove anyone,
// including themselves; the message history stays intact.
func (s *ChannelService) RemoveMember(ctx context.Context, channelID, requester, target string) error {
	if err := checkUsername(target); err != nil {
		return err
	}

	s.chanLocks.Lock(channelID)
	defer s.chanLocks.Unlock(channelID)

	channel, err := s.m.Channels().Get(ctx, channelID)
	if err != nil {
		return err
	}
	if !channel.HasMember(requester) {
		return common.ErrorForbidden
	}

	s.acctLocks.Lock(target)
	defer s.acctLocks.Unlock(target)

	account, err := s.m.Accounts().Get(ctx, target)
	if err != nil {
		return err
	}
	if _, ok := account.Channels[channelID]; !ok && !channel.HasMember(target) {
		return common.ErrorNotMember
	}

	delete(account.Channels, channelID)
	channel.RemoveMember(target)

	if err := s.m.Accounts().Update(ctx, account); err != nil {
		return fmt.Errorf("error saving membership: %w", err)
	}
	if err := s.m.Channels().Update(ctx, channel); err != nil {
		return fmt.Errorf("error saving channel: %w", err)
	}
	return nil
}

// About returns the channel record. Only members may read it.
func (s *ChannelService) About(ctx context.Context, channelID, requester string) (*models.Channel, error) {
	channel, err := s.m.Channels().Get(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !channel.HasMember(requester) {
		return nil, common.ErrorForbidden
	}
	return channel, nil
}

func (s *ChannelService) dropMembership(ctx context.Context, username, channelID string) error {
	s.acctLocks.Lock(username)
	defer s.acctLocks.Unlock(username)

	account, err := s.m.Accounts().Get(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}
	if _, ok := account.Channels[channelID]; !ok {
		return nil
	}
	delete(account.Channels, channelID)
	return s.m.Accounts().Update(ctx, account)
}

// newChannelID builds a digit-only id from the current nanosecond timestamp
// plus a two-digit random suffix.
func newChannelID() string {
	return fmt.Sprintf("%d%02d", time.Now().UnixNano(), rand.Intn(100))
}
