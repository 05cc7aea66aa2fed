package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avoron/tinychat/internal/common"
	"github.com/avoron/tinychat/internal/lockx"
	"github.com/avoron/tinychat/internal/server/config"
	"github.com/avoron/tinychat/internal/server/models"
	"github.com/avoron/tinychat/internal/server/repositories/repomanager"
)

// MessageService appends to and reads from per-channel message logs. The
// log is stored as fixed-size batches; the channel record tracks the index
// of the batch currently being filled.
type MessageService struct {
	m         repomanager.Manager
	batchSize int
	chanLocks *lockx.KeyedMutex
}

func NewMessageService(m repomanager.Manager, cfg *config.Config, chanLocks *lockx.KeyedMutex) *MessageService {
	return &MessageService{m: m, batchSize: cfg.MessageBatchSize, chanLocks: chanLocks}
}

// Append stores a message authored by author in the channel's latest batch,
// rolling over to a fresh batch when the current one is full. Returns the
// stored record. The whole read-modify-write runs under the channel lock,
// so concurrent appends serialize and the batch never overfills.
func (s *MessageService) Append(ctx context.Context, channelID, author, text string) (*models.Message, error) {
	s.chanLocks.Lock(channelID)
	defer s.chanLocks.Unlock(channelID)

	channel, err := s.m.Channels().Get(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !channel.HasMember(author) {
		return nil, common.ErrorForbidden
	}

	text = strings.TrimSpace(text)
	if len(text) < 1 || len(text) > messageTextMaxLen {
		return nil, fmt.Errorf("message should have a length between 1 and %d characters: %w", messageTextMaxLen, common.ErrorValidation)
	}

	batch, err := s.m.Messages().ReadBatch(ctx, channelID, channel.LatestBatch)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("error reading message log: %w", err)
		}
		// The latest batch record is missing (interrupted rollover);
		// recover by treating it as empty and recreating it below.
		batch = []models.Message{}
	}

	if len(batch) >= s.batchSize {
		channel.LatestBatch++
		// The pointer advances before the new batch exists; Append
		// tolerates the gap, readers see it as absent.
		if err := s.m.Channels().Update(ctx, channel); err != nil {
			return nil, fmt.Errorf("error advancing message log: %w", err)
		}
		batch = []models.Message{}
	}

	msg := models.Message{
		Author:    author,
		Text:      text,
		Timestamp: time.Now().Unix(),
	}
	batch = append(batch, msg)

	if err := s.m.Messages().WriteBatch(ctx, channelID, channel.LatestBatch, batch); err != nil {
		return nil, fmt.Errorf("error writing message log: %w", err)
	}

	return &msg, nil
}

// ReadBatch returns one batch of the channel's message log. Only members
// may read; indexes start at 1.
func (s *MessageService) ReadBatch(ctx context.Context, channelID, requester string, index int) ([]models.Message, error) {
	channel, err := s.m.Channels().Get(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !channel.HasMember(requester) {
		return nil, common.ErrorForbidden
	}
	if index < 1 {
		return nil, fmt.Errorf("batch index should be a positive integer: %w", common.ErrorValidation)
	}
	return s.m.Messages().ReadBatch(ctx, channelID, index)
}
