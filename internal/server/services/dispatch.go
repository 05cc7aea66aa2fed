package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/avoron/tinychat/internal/common"
	"github.com/avoron/tinychat/internal/logging"
	"github.com/avoron/tinychat/internal/server/models"
	"github.com/avoron/tinychat/internal/server/realtime"
)

// DispatchService drives the send-message pipeline: authenticate the
// sender, persist the message, then fan it out to the channel's live
// subscribers. Fan-out happens only after the append succeeded, so a
// delivered frame always corresponds to a stored message.
type DispatchService struct {
	accounts *AccountService
	messages *MessageService
	registry *realtime.Registry
	logger   logging.Logger
}

func NewDispatchService(accounts *AccountService, messages *MessageService, registry *realtime.Registry, logger logging.Logger) *DispatchService {
	return &DispatchService{
		accounts: accounts,
		messages: messages,
		registry: registry,
		logger:   logger.With("module", "dispatch"),
	}
}

// SendMessage authenticates, appends, and fans out. correlationID is the
// sender-chosen temp id echoed back only on deliveries to the author's own
// subscriptions. Returns the stored record.
func (s *DispatchService) SendMessage(ctx context.Context, username, capability, channelID, text, correlationID string) (*models.Message, error) {
	if err := s.accounts.Validate(ctx, username, capability); err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorUnauthorized) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	msg, err := s.messages.Append(ctx, channelID, username, text)
	if err != nil {
		return nil, err
	}

	s.fanOut(ctx, channelID, username, msg, correlationID)
	return msg, nil
}

// fanOut delivers msg to every subscriber of the channel. A failed
// delivery drops that subscriber and moves on; delivery problems never
// affect the send result.
func (s *DispatchService) fanOut(ctx context.Context, channelID, author string, msg *models.Message, correlationID string) {
	for _, sub := range s.registry.SubscribersOf(channelID) {
		delivery := models.Delivery{Message: *msg}
		if sub.Identity().Username == author {
			delivery.TempID = correlationID
		}

		payload, err := json.Marshal(delivery)
		if err != nil {
			s.logger.Error(ctx, "error encoding delivery", "error", err.Error())
			return
		}

		if err := sub.Deliver(payload); err != nil {
			s.logger.Warn(ctx, "dropping subscriber after failed delivery",
				"subscriber", sub.ID(), "channel", channelID, "error", err.Error())
			s.registry.Drop(sub)
		}
	}
}
