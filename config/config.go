// Package config loads environment variables and provides a typed Config used
// across the service. It applies sensible defaults so the binary can run
// locally with minimal setup (anonymous read-only chat needs only a channel).
package config

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultRelayAddr is the TLS endpoint of the Twitch chat relay.
const DefaultRelayAddr = "irc.chat.twitch.tv:6697"

type Config struct {
	// Twitch chat
	TwitchChannel    string
	TwitchLogin      string
	TwitchOAuthToken string

	// Helix (asset resolution)
	TwitchClientID     string
	TwitchClientSecret string

	// Transport
	RelayAddr string

	// Message buffer bounds
	BufferSoftCap int
	BufferTrimTo  int

	// Optional Postgres archiver; empty disables archiving
	DBDsn string

	// HTTP surface
	HTTPAddr string
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// Load reads environment variables and applies defaults. It doesn't fail if
// chat credentials are missing; use ValidateChatReady when sending is
// required. A missing DB_DSN disables the archiver rather than erroring.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TwitchChannel = os.Getenv("TWITCH_CHANNEL")
	cfg.TwitchLogin = os.Getenv("TWITCH_LOGIN")
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")

	cfg.RelayAddr = os.Getenv("RELAY_ADDR")
	if cfg.RelayAddr == "" {
		cfg.RelayAddr = DefaultRelayAddr
	}

	cfg.BufferSoftCap = envInt("BUFFER_SOFT_CAP", 200)
	cfg.BufferTrimTo = envInt("BUFFER_TRIM_TO", 180)
	if cfg.BufferTrimTo > cfg.BufferSoftCap {
		return nil, fmt.Errorf("BUFFER_TRIM_TO (%d) exceeds BUFFER_SOFT_CAP (%d)", cfg.BufferTrimTo, cfg.BufferSoftCap)
	}

	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	return cfg, nil
}

// Anonymous reports whether the session should join read-only with the
// anonymous sentinel login (no token or no login configured).
func (c *Config) Anonymous() bool {
	return c.TwitchLogin == "" || c.TwitchOAuthToken == ""
}

// ValidateChatReady checks the fields required for an authenticated session
// that can send messages.
func (c *Config) ValidateChatReady() error {
	if c.TwitchChannel == "" || c.TwitchLogin == "" || c.TwitchOAuthToken == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CHANNEL, TWITCH_LOGIN, TWITCH_OAUTH_TOKEN")
	}
	return nil
}
