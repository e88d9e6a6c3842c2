package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"anon-relay/internal/domain"
)

// ChannelRepository persiste canales; low y high ya vienen canonicalizados.
type ChannelRepository interface {
	FindByPair(ctx context.Context, low, high int64) (domain.Channel, error)
	GetByID(ctx context.Context, channelID int64) (domain.Channel, error)
	InsertIfAbsent(ctx context.Context, low, high int64) (domain.Channel, bool, error)
}

type PgChannelRepository struct {
	db DBTX
}

func NewPgChannelRepository(db DBTX) *PgChannelRepository {
	return &PgChannelRepository{db: db}
}

func (r *PgChannelRepository) FindByPair(ctx context.Context, low, high int64) (domain.Channel, error) {
	const query = `
		SELECT channel_id, participant_low, participant_high, created_at
		FROM channels
		WHERE participant_low = $1 AND participant_high = $2
	`
	return scanChannel(r.db.QueryRow(ctx, query, low, high))
}

func (r *PgChannelRepository) GetByID(ctx context.Context, channelID int64) (domain.Channel, error) {
	const query = `
		SELECT channel_id, participant_low, participant_high, created_at
		FROM channels
		WHERE channel_id = $1
	`
	return scanChannel(r.db.QueryRow(ctx, query, channelID))
}

func (r *PgChannelRepository) InsertIfAbsent(ctx context.Context, low, high int64) (domain.Channel, bool, error) {
	const query = `
		INSERT INTO channels (participant_low, participant_high)
		VALUES ($1, $2)
		ON CONFLICT (participant_low, participant_high) DO NOTHING
		RETURNING channel_id, participant_low, participant_high, created_at
	`
	ch, err := scanChannel(r.db.QueryRow(ctx, query, low, high))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Channel{}, false, nil
	}
	if err != nil {
		return domain.Channel{}, false, mapError(err)
	}
	return ch, true, nil
}

func scanChannel(row pgx.Row) (domain.Channel, error) {
	var ch domain.Channel
	err := row.Scan(
		&ch.ID,
		&ch.ParticipantLow,
		&ch.ParticipantHigh,
		&ch.CreatedAt,
	)
	if err != nil {
		return domain.Channel{}, err
	}
	return ch, nil
}
