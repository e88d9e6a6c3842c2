package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"anon-relay/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, channelID, senderID int64, body string) (domain.Message, error)
	GetByID(ctx context.Context, messageID int64) (domain.Message, error)
	// ForEachByChannel recorre los mensajes en orden (created_at, message_id).
	ForEachByChannel(ctx context.Context, channelID int64, fn func(domain.Message) error) error
}

type PgMessageRepository struct {
	db DBTX
}

func NewPgMessageRepository(db DBTX) *PgMessageRepository {
	return &PgMessageRepository{db: db}
}

func (r *PgMessageRepository) Create(ctx context.Context, channelID, senderID int64, body string) (domain.Message, error) {
	const query = `
		INSERT INTO messages (channel_id, sender_id, body)
		VALUES ($1, $2, $3)
		RETURNING message_id, channel_id, sender_id, body, created_at
	`
	msg, err := scanMessage(r.db.QueryRow(ctx, query, channelID, senderID, body))
	if err != nil {
		return domain.Message{}, mapError(err)
	}
	return msg, nil
}

func (r *PgMessageRepository) GetByID(ctx context.Context, messageID int64) (domain.Message, error) {
	const query = `
		SELECT message_id, channel_id, sender_id, body, created_at
		FROM messages
		WHERE message_id = $1
	`
	return scanMessage(r.db.QueryRow(ctx, query, messageID))
}

func (r *PgMessageRepository) ForEachByChannel(ctx context.Context, channelID int64, fn func(domain.Message) error) error {
	const query = `
		SELECT message_id, channel_id, sender_id, body, created_at
		FROM messages
		WHERE channel_id = $1
		ORDER BY created_at ASC, message_id ASC
	`

	rows, err := r.db.Query(ctx, query, channelID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return err
		}
		if err := fn(msg); err != nil {
			return err
		}
	}

	return rows.Err()
}

func scanMessage(row pgx.Row) (domain.Message, error) {
	var msg domain.Message
	err := row.Scan(
		&msg.ID,
		&msg.ChannelID,
		&msg.SenderID,
		&msg.Body,
		&msg.CreatedAt,
	)
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}
