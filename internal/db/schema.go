package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer es el subconjunto de pgxpool.Pool que necesita Migrate.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// schemaStatements crea las tres entidades del relay. Todas son idempotentes.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		anonymous_id  BIGSERIAL PRIMARY KEY,
		external_id   TEXT NOT NULL,
		display_label TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT users_external_id_key UNIQUE (external_id)
	)`,
	`CREATE TABLE IF NOT EXISTS channels (
		channel_id       BIGSERIAL PRIMARY KEY,
		participant_low  BIGINT NOT NULL REFERENCES users (anonymous_id),
		participant_high BIGINT NOT NULL REFERENCES users (anonymous_id),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT channels_pair_key UNIQUE (participant_low, participant_high),
		CONSTRAINT channels_pair_order CHECK (participant_low < participant_high)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		message_id BIGSERIAL PRIMARY KEY,
		channel_id BIGINT NOT NULL REFERENCES channels (channel_id),
		sender_id  BIGINT NOT NULL REFERENCES users (anonymous_id),
		body       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
	)`,
	`CREATE INDEX IF NOT EXISTS messages_channel_order_idx
		ON messages (channel_id, created_at, message_id)`,
}

// Migrate aplica el esquema lógico del relay.
func Migrate(ctx context.Context, db Execer) error {
	for i, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("db: migrate statement %d: %w", i, err)
		}
	}
	return nil
}
