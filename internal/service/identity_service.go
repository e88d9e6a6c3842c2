package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"anon-relay/internal/domain"
	"anon-relay/internal/repository"
)

// IdentityService asigna y resuelve handles anónimos.
type IdentityService struct {
	logger *zap.Logger
	users  repository.UserRepository
}

func NewIdentityService(logger *zap.Logger, users repository.UserRepository) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{logger: logger, users: users}
}

// Register es idempotente: una identidad externa ya registrada devuelve su
// handle sin escribir. created indica si el handle se emitió en esta llamada.
func (s *IdentityService) Register(ctx context.Context, externalID, displayLabel string) (domain.User, bool, error) {
	if s == nil || s.users == nil {
		return domain.User{}, false, ErrServiceNotConfigured
	}
	externalID = strings.TrimSpace(externalID)
	displayLabel = strings.TrimSpace(displayLabel)
	if externalID == "" {
		return domain.User{}, false, ErrInvalidInput
	}

	user, err := s.users.GetByExternalID(ctx, externalID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, false, err
	}

	user, created, err := s.users.InsertIfAbsent(ctx, externalID, displayLabel)
	if err != nil && !errors.Is(err, repository.ErrConflict) {
		return domain.User{}, false, err
	}
	if created {
		s.logger.Info("user registered", zap.Int64("anonymous_id", user.AnonymousID))
		return user, true, nil
	}

	// Otra registración concurrente ganó la carrera.
	user, err = s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		return domain.User{}, false, err
	}
	return user, false, nil
}

// Resolve traduce un handle anónimo a la identidad del transporte.
func (s *IdentityService) Resolve(ctx context.Context, anonymousID int64) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, ErrServiceNotConfigured
	}
	if anonymousID <= 0 {
		return domain.User{}, ErrUserNotFound
	}
	user, err := s.users.GetByAnonymousID(ctx, anonymousID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}

// Lookup obtiene el usuario registrado de un caller.
func (s *IdentityService) Lookup(ctx context.Context, externalID string) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, ErrServiceNotConfigured
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return domain.User{}, ErrUserNotFound
	}
	user, err := s.users.GetByExternalID(ctx, externalID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}
