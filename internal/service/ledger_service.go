package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"anon-relay/internal/domain"
	"anon-relay/internal/repository"
)

// LedgerService encapsula el historial append-only de mensajes por canal.
type LedgerService struct {
	repo repository.MessageRepository
}

func NewLedgerService(repo repository.MessageRepository) *LedgerService {
	return &LedgerService{repo: repo}
}

func (s *LedgerService) Append(ctx context.Context, channelID, senderID int64, body string) (domain.Message, error) {
	if s == nil || s.repo == nil {
		return domain.Message{}, ErrServiceNotConfigured
	}
	if channelID <= 0 || senderID <= 0 {
		return domain.Message{}, ErrInvalidID
	}
	if strings.TrimSpace(body) == "" {
		return domain.Message{}, ErrMessageInvalidInput
	}
	return s.repo.Create(ctx, channelID, senderID, body)
}

// History entrega los mensajes del canal en orden (created_at, message_id).
// Cada llamada relee el estado actual.
func (s *LedgerService) History(ctx context.Context, channelID int64, fn func(domain.Message) error) error {
	if s == nil || s.repo == nil {
		return ErrServiceNotConfigured
	}
	if channelID <= 0 {
		return ErrInvalidID
	}
	return s.repo.ForEachByChannel(ctx, channelID, fn)
}

func (s *LedgerService) Get(ctx context.Context, messageID int64) (domain.Message, error) {
	if s == nil || s.repo == nil {
		return domain.Message{}, ErrServiceNotConfigured
	}
	if messageID <= 0 {
		return domain.Message{}, ErrMessageNotFound
	}
	msg, err := s.repo.GetByID(ctx, messageID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Message{}, ErrMessageNotFound
	}
	return msg, err
}

func (s *LedgerService) SenderOf(ctx context.Context, messageID int64) (int64, error) {
	msg, err := s.Get(ctx, messageID)
	if err != nil {
		return 0, err
	}
	return msg.SenderID, nil
}
