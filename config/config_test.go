package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"TWITCH_CHANNEL", "TWITCH_LOGIN", "TWITCH_OAUTH_TOKEN", "RELAY_ADDR", "BUFFER_SOFT_CAP", "BUFFER_TRIM_TO", "HTTP_ADDR", "DB_DSN"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.RelayAddr != DefaultRelayAddr {
		t.Errorf("RelayAddr = %q, want %q", cfg.RelayAddr, DefaultRelayAddr)
	}
	if cfg.BufferSoftCap != 200 || cfg.BufferTrimTo != 180 {
		t.Errorf("buffer bounds = %d/%d, want 200/180", cfg.BufferSoftCap, cfg.BufferTrimTo)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if !cfg.Anonymous() {
		t.Errorf("expected anonymous with no login/token")
	}
}

func TestLoadRejectsInvertedBounds(t *testing.T) {
	t.Setenv("BUFFER_SOFT_CAP", "100")
	t.Setenv("BUFFER_TRIM_TO", "150")
	if _, err := Load(); err == nil {
		t.Errorf("expected error when trim target exceeds soft cap")
	}
}

func TestValidateChatReady(t *testing.T) {
	t.Setenv("TWITCH_CHANNEL", "somechannel")
	t.Setenv("TWITCH_LOGIN", "somebot")
	t.Setenv("TWITCH_OAUTH_TOKEN", "oauth:token")
	cfg, _ := Load()
	if err := cfg.ValidateChatReady(); err != nil {
		t.Errorf("expected valid chat config, got %v", err)
	}
	if cfg.Anonymous() {
		t.Errorf("Anonymous() = true with full creds")
	}
	if err := os.Unsetenv("TWITCH_LOGIN"); err != nil {
		t.Fatalf("failed to unset TWITCH_LOGIN: %v", err)
	}
	cfg, _ = Load()
	if err := cfg.ValidateChatReady(); err == nil {
		t.Errorf("expected error when missing login")
	}
	if !cfg.Anonymous() {
		t.Errorf("expected anonymous without login")
	}
}
