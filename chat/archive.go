package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/onnwee/chatcore/store"
)

// Archiver persists processed messages to Postgres. Failures are logged and
// skipped; the live buffer is the source of truth and archival is best
// effort.
type Archiver struct {
	db      *sql.DB
	channel string
}

// NewArchiver returns an archiver writing rows for the given channel.
func NewArchiver(database *sql.DB, channel string) *Archiver {
	return &Archiver{db: database, channel: channel}
}

// Record inserts one message. Duplicate message ids (relay redelivery) are
// ignored.
func (a *Archiver) Record(ctx context.Context, m store.Message) {
	badges, _ := json.Marshal(m.Badges)
	emotes, _ := json.Marshal(m.Emotes)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := a.db.ExecContext(ctx, `
		INSERT INTO chat_messages (channel, message_id, login, display_name, message, color, badges, emotes, system_msg, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (channel, message_id) DO NOTHING`,
		a.channel, m.ID, m.Login, m.DisplayName, m.Text, m.Color, string(badges), string(emotes), m.System, m.Time,
	); err != nil {
		slog.Error("failed to archive chat message", slog.Any("err", err))
	}
}

// ClearUser flags archived rows for a banned or timed-out user. An empty
// login flags the whole channel (untargeted CLEARCHAT).
func (a *Archiver) ClearUser(ctx context.Context, login, note string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var err error
	if login == "" {
		_, err = a.db.ExecContext(ctx,
			`UPDATE chat_messages SET cleared=TRUE, clear_note=$1 WHERE channel=$2`, note, a.channel)
	} else {
		_, err = a.db.ExecContext(ctx,
			`UPDATE chat_messages SET cleared=TRUE, clear_note=$1 WHERE channel=$2 AND LOWER(login)=LOWER($3)`, note, a.channel, login)
	}
	if err != nil {
		slog.Error("failed to flag cleared user in archive", slog.Any("err", err))
	}
}

// ClearMessage flags a single archived row by message id.
func (a *Archiver) ClearMessage(ctx context.Context, messageID, note string) {
	if messageID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := a.db.ExecContext(ctx,
		`UPDATE chat_messages SET cleared=TRUE, clear_note=$1 WHERE channel=$2 AND message_id=$3`, note, a.channel, messageID,
	); err != nil {
		slog.Error("failed to flag cleared message in archive", slog.Any("err", err))
	}
}
