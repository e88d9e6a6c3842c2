package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"anon-relay/internal/domain"
	"anon-relay/internal/transport"
)

type recipientResolver interface {
	Resolve(ctx context.Context, anonymousID int64) (domain.User, error)
}

// RelayService entrega notificaciones a un handle anónimo con el botón de respuesta.
type RelayService struct {
	logger   *zap.Logger
	identity recipientResolver
	sender   transport.Sender
}

func NewRelayService(logger *zap.Logger, identity recipientResolver, sender transport.Sender) *RelayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelayService{logger: logger, identity: identity, sender: sender}
}

// Notify devuelve ErrRecipientNotFound si el destino no existe y
// ErrDeliveryFailed si el transporte rechaza el envío. No reintenta.
func (s *RelayService) Notify(ctx context.Context, targetID int64, text string, reply domain.ReplyTarget) error {
	if s == nil || s.identity == nil || s.sender == nil {
		return ErrServiceNotConfigured
	}

	target, err := s.identity.Resolve(ctx, targetID)
	if errors.Is(err, ErrUserNotFound) {
		return ErrRecipientNotFound
	}
	if err != nil {
		return err
	}

	msg := transport.OutboundMessage{
		ChatID: target.ExternalID,
		Text:   text,
		Buttons: []transport.Button{
			{Label: ReplyButtonLabel, Payload: EncodeReplyPayload(reply)},
		},
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Warn("relay delivery failed",
			zap.Int64("anonymous_id", targetID),
			zap.Int64("message_id", reply.MessageID),
			zap.Error(err),
		)
		return errors.Join(ErrDeliveryFailed, err)
	}

	s.logger.Info("relay delivered",
		zap.Int64("anonymous_id", targetID),
		zap.Int64("message_id", reply.MessageID),
		zap.Int64("channel_id", reply.ChannelID),
	)
	return nil
}
