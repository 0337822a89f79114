// Package db provides the Postgres connection and schema migration for the
// optional chat message archive.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

// Connect opens a Postgres connection for the given DSN and verifies it with
// a ping.
func Connect(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty dsn")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	database.SetMaxOpenConns(8)
	database.SetConnMaxIdleTime(5 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return database, nil
}

// schema is the embedded archive schema; a single idempotent statement set,
// re-run on every start.
const schema = `
CREATE TABLE IF NOT EXISTS chat_messages (
    id            BIGSERIAL PRIMARY KEY,
    channel       TEXT NOT NULL,
    message_id    TEXT NOT NULL,
    login         TEXT NOT NULL,
    display_name  TEXT NOT NULL DEFAULT '',
    message       TEXT NOT NULL,
    color         TEXT NOT NULL DEFAULT '',
    badges        TEXT NOT NULL DEFAULT '',
    emotes        TEXT NOT NULL DEFAULT '',
    system_msg    TEXT NOT NULL DEFAULT '',
    cleared       BOOLEAN NOT NULL DEFAULT FALSE,
    clear_note    TEXT NOT NULL DEFAULT '',
    sent_at       TIMESTAMPTZ NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS chat_messages_channel_message_id
    ON chat_messages (channel, message_id);
CREATE INDEX IF NOT EXISTS chat_messages_channel_sent_at
    ON chat_messages (channel, sent_at);
CREATE INDEX IF NOT EXISTS chat_messages_channel_login
    ON chat_messages (channel, login);
`

// Migrate applies the embedded schema. Safe to run multiple times.
func Migrate(ctx context.Context, database *sql.DB) error {
	if _, err := database.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	slog.Info("archive schema ready", slog.String("component", "db_migrate"))
	return nil
}
