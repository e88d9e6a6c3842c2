package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"anon-relay/internal/domain"
)

// UserRepository define el contrato de persistencia para identidades.
type UserRepository interface {
	GetByExternalID(ctx context.Context, externalID string) (domain.User, error)
	GetByAnonymousID(ctx context.Context, anonymousID int64) (domain.User, error)
	// InsertIfAbsent devuelve created=false sin error cuando external_id ya existe.
	InsertIfAbsent(ctx context.Context, externalID, displayLabel string) (domain.User, bool, error)
}

// PgUserRepository implementa UserRepository sobre pgx.
type PgUserRepository struct {
	db DBTX
}

func NewPgUserRepository(db DBTX) *PgUserRepository {
	return &PgUserRepository{db: db}
}

func (r *PgUserRepository) GetByExternalID(ctx context.Context, externalID string) (domain.User, error) {
	const query = `
		SELECT anonymous_id, external_id, display_label, created_at
		FROM users
		WHERE external_id = $1
	`
	return scanUser(r.db.QueryRow(ctx, query, externalID))
}

func (r *PgUserRepository) GetByAnonymousID(ctx context.Context, anonymousID int64) (domain.User, error) {
	const query = `
		SELECT anonymous_id, external_id, display_label, created_at
		FROM users
		WHERE anonymous_id = $1
	`
	return scanUser(r.db.QueryRow(ctx, query, anonymousID))
}

func (r *PgUserRepository) InsertIfAbsent(ctx context.Context, externalID, displayLabel string) (domain.User, bool, error) {
	const query = `
		INSERT INTO users (external_id, display_label)
		VALUES ($1, $2)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING anonymous_id, external_id, display_label, created_at
	`
	var label interface{}
	if strings.TrimSpace(displayLabel) != "" {
		label = displayLabel
	}

	u, err := scanUser(r.db.QueryRow(ctx, query, externalID, label))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, mapError(err)
	}
	return u, true, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	var label *string
	err := row.Scan(
		&u.AnonymousID,
		&u.ExternalID,
		&label,
		&u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	if label != nil {
		u.DisplayLabel = *label
	}
	return u, nil
}
