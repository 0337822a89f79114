package twitchapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestTokenSourceFetchAndCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
	}))
	defer srv.Close()

	old := tokenURL
	tokenURL = srv.URL
	t.Cleanup(func() { tokenURL = old })

	ts := &TokenSource{ClientID: "id", ClientSecret: "secret"}
	for i := 0; i < 3; i++ {
		tok, err := ts.Get(context.Background())
		if err != nil {
			t.Fatalf("Get error: %v", err)
		}
		if tok != "tok-1" {
			t.Errorf("token = %q", tok)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("token endpoint hit %d times, want 1 (cached)", got)
	}
}

func TestTokenSourceRefreshesNearExpiry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-2", "expires_in": 3600})
	}))
	defer srv.Close()

	old := tokenURL
	tokenURL = srv.URL
	t.Cleanup(func() { tokenURL = old })

	ts := &TokenSource{ClientID: "id", ClientSecret: "secret"}
	ts.token = "stale"
	ts.expiresAt = time.Now().Add(10 * time.Second) // under the 1 min buffer
	tok, err := ts.Get(context.Background())
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if tok != "tok-2" {
		t.Errorf("token = %q, want refreshed tok-2", tok)
	}
}

func TestTokenSourceMissingCreds(t *testing.T) {
	ts := &TokenSource{}
	if _, err := ts.Get(context.Background()); err == nil {
		t.Errorf("expected error with no client id/secret")
	}
}
