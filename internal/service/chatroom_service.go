package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"anon-relay/internal/domain"
	"anon-relay/internal/repository"
)

// ChatroomService garantiza un único canal por par no ordenado de handles.
type ChatroomService struct {
	channels repository.ChannelRepository
}

func NewChatroomService(channels repository.ChannelRepository) *ChatroomService {
	return &ChatroomService{channels: channels}
}

func (s *ChatroomService) GetOrCreate(ctx context.Context, a, b int64) (domain.Channel, error) {
	if s == nil || s.channels == nil {
		return domain.Channel{}, ErrServiceNotConfigured
	}
	low, high, err := canonicalize(a, b)
	if err != nil {
		return domain.Channel{}, err
	}

	ch, created, err := s.channels.InsertIfAbsent(ctx, low, high)
	if err != nil && !errors.Is(err, repository.ErrConflict) {
		return domain.Channel{}, err
	}
	if created {
		return ch, nil
	}

	ch, err = s.channels.FindByPair(ctx, low, high)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Channel{}, ErrChannelNotFound
	}
	return ch, err
}

// Find es de solo lectura: nunca crea canales.
func (s *ChatroomService) Find(ctx context.Context, a, b int64) (domain.Channel, error) {
	if s == nil || s.channels == nil {
		return domain.Channel{}, ErrServiceNotConfigured
	}
	low, high, err := canonicalize(a, b)
	if err != nil {
		return domain.Channel{}, err
	}
	ch, err := s.channels.FindByPair(ctx, low, high)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Channel{}, ErrChannelNotFound
	}
	return ch, err
}

func (s *ChatroomService) Get(ctx context.Context, channelID int64) (domain.Channel, error) {
	if s == nil || s.channels == nil {
		return domain.Channel{}, ErrServiceNotConfigured
	}
	if channelID <= 0 {
		return domain.Channel{}, ErrChannelNotFound
	}
	ch, err := s.channels.GetByID(ctx, channelID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Channel{}, ErrChannelNotFound
	}
	return ch, err
}

func canonicalize(a, b int64) (int64, int64, error) {
	if a <= 0 || b <= 0 {
		return 0, 0, ErrInvalidID
	}
	if a == b {
		return 0, 0, ErrSelfChannel
	}
	low, high := domain.CanonicalPair(a, b)
	return low, high, nil
}
