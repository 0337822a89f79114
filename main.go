// Command chatcore joins one Twitch channel's live chat and maintains its
// derived state for a UI collaborator. It:
//   - Loads configuration and initializes structured logging.
//   - Resolves badge/emote tables from Twitch, BTTV, FFZ, and 7TV once at
//     startup (failed providers are skipped, not fatal).
//   - Dials the chat relay, joins the channel, and feeds decoded frames into
//     the room state tracker and the bounded message buffer.
//   - Optionally archives every processed message to Postgres (DB_DSN).
//   - Exposes an HTTP surface with /healthz, /state, /messages, a live SSE
//     feed, /send, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM. The session never reconnects on
// its own; when the relay drops the connection the process exits and the
// operator's supervisor decides whether to restart it.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/chatcore/assets"
	"github.com/onnwee/chatcore/chat"
	"github.com/onnwee/chatcore/config"
	"github.com/onnwee/chatcore/db"
	"github.com/onnwee/chatcore/room"
	"github.com/onnwee/chatcore/server"
	"github.com/onnwee/chatcore/store"
	"github.com/onnwee/chatcore/telemetry"
	"github.com/onnwee/chatcore/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if cfg.TwitchChannel == "" {
		slog.Error("TWITCH_CHANNEL is required")
		os.Exit(1)
	}
	if cfg.Anonymous() {
		slog.Info("no chat credentials; joining read-only as anonymous")
	} else if err := cfg.ValidateChatReady(); err != nil {
		slog.Error("incomplete chat credentials", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("chatcore", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One-time asset resolution. Provider failures (including missing Helix
	// credentials) degrade to fewer assets, never to a failed start. The
	// session is not usable for sending until this merge completes.
	helix := &twitchapi.HelixClient{
		AppTokenSource: &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret},
		ClientID:       cfg.TwitchClientID,
	}
	fetchCtx, cancelFetch := context.WithTimeout(ctx, 30*time.Second)
	channelID, err := helix.GetUserID(fetchCtx, cfg.TwitchChannel)
	if err != nil {
		slog.Warn("channel id lookup failed; channel-scoped assets unavailable", slog.Any("err", err))
	}
	table := assets.Fetch(fetchCtx, assets.Sources(helix, &assets.ProviderClient{}, channelID))
	cancelFetch()

	buffer := store.NewBuffer(cfg.BufferSoftCap, cfg.BufferTrimTo)
	rooms := &room.Tracker{}

	// Optional Postgres archiver
	var archiver *chat.Archiver
	if cfg.DBDsn != "" {
		database, err := db.Connect(cfg.DBDsn)
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		if err := db.Migrate(ctx, database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
		archiver = chat.NewArchiver(database, cfg.TwitchChannel)
		slog.Info("message archiver enabled")
	}

	session, err := chat.Dial(ctx, chat.Options{
		Channel:   cfg.TwitchChannel,
		Login:     cfg.TwitchLogin,
		Token:     cfg.TwitchOAuthToken,
		RelayAddr: cfg.RelayAddr,
		Buffer:    buffer,
		Rooms:     rooms,
		Assets:    table,
		Archiver:  archiver,
	})
	if err != nil {
		slog.Error("failed to join chat", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Error("failed to close session", slog.Any("err", err))
		}
	}()

	// HTTP surface for the UI collaborator
	go func() {
		deps := server.Deps{Buffer: buffer, Rooms: rooms, Sender: session}
		if err := server.Start(ctx, deps, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal or session termination.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case <-session.Done():
		if err := session.Err(); err != nil {
			slog.Error("chat session terminated", slog.Any("err", err))
			os.Exit(1)
		}
		slog.Info("chat session closed")
	}
}
