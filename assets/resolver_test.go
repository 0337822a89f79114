package assets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onnwee/chatcore/twitchapi"
)

func TestFetchMergeLastWins(t *testing.T) {
	sources := []Source{
		{Name: "a", Fetch: func(context.Context) (map[string]string, error) {
			return map[string]string{":)": "urlA", "only-a": "urlOnlyA"}, nil
		}},
		{Name: "b", Fetch: func(context.Context) (map[string]string, error) {
			return map[string]string{":)": "urlB"}, nil
		}},
	}
	table := Fetch(context.Background(), sources)
	if url, _ := table.Resolve(":)"); url != "urlB" {
		t.Errorf("Resolve(\":)\") = %q, want urlB (last merged wins)", url)
	}
	if url, _ := table.Resolve("only-a"); url != "urlOnlyA" {
		t.Errorf("non-colliding key lost: %q", url)
	}
}

func TestFetchIsolatesProviderFailure(t *testing.T) {
	sources := []Source{
		{Name: "broken", Fetch: func(context.Context) (map[string]string, error) {
			return nil, errors.New("boom")
		}},
		{Name: "ok", Fetch: func(context.Context) (map[string]string, error) {
			return map[string]string{"Kappa": "urlK"}, nil
		}},
	}
	table := Fetch(context.Background(), sources)
	if url, ok := table.Resolve("Kappa"); !ok || url != "urlK" {
		t.Errorf("surviving provider assets missing: %q %v", url, ok)
	}
	if table.Len() != 1 {
		t.Errorf("table len = %d, want 1", table.Len())
	}
}

func TestFetchRunsProvidersConcurrently(t *testing.T) {
	block := make(chan struct{})
	sources := []Source{
		{Name: "slow1", Fetch: func(ctx context.Context) (map[string]string, error) {
			<-block
			return map[string]string{"a": "1"}, nil
		}},
		{Name: "slow2", Fetch: func(ctx context.Context) (map[string]string, error) {
			// Unblocks the first fetch; only possible if both run at once.
			close(block)
			return map[string]string{"b": "2"}, nil
		}},
	}
	done := make(chan *Table, 1)
	go func() { done <- Fetch(context.Background(), sources) }()
	select {
	case table := <-done:
		if table.Len() != 2 {
			t.Errorf("table len = %d, want 2", table.Len())
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Fetch deadlocked; providers not concurrent")
	}
}

func TestLearnIsAdditiveOnly(t *testing.T) {
	table := NewTable()
	table.Learn("Kappa", "url1")
	table.Learn("Kappa", "url2")
	if url, _ := table.Resolve("Kappa"); url != "url1" {
		t.Errorf("Learn overwrote existing key: %q", url)
	}
	table.Learn("", "url")
	table.Learn("x", "")
	if table.Len() != 1 {
		t.Errorf("empty key/url learned; len = %d", table.Len())
	}
}

func TestThirdPartyProviders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/cached/emotes/global":
			_ = json.NewEncoder(w).Encode([]map[string]string{{"id": "b1", "code": "catJAM"}})
		case "/cached/users/twitch/123":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"channelEmotes": []map[string]string{{"id": "b2", "code": "chanEmote"}},
				"sharedEmotes":  []map[string]string{{"id": "b3", "code": "sharedEmote"}},
			})
		case "/set/global":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"sets": map[string]any{
					"3": map[string]any{
						"emoticons": []map[string]any{
							{"name": "ZreknarF", "urls": map[string]string{"1": "u1", "4": "u4"}},
						},
					},
				},
			})
		case "/room/id/123":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"sets": map[string]any{
					"9": map[string]any{
						"emoticons": []map[string]any{
							{"name": "roomEmote", "urls": map[string]string{"2": "u2"}},
						},
					},
				},
			})
		case "/emote-sets/global":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"emotes": []map[string]string{{"id": "s1", "name": "EZ"}},
			})
		case "/users/twitch/123":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"emote_set": map[string]any{
					"emotes": []map[string]string{{"id": "s2", "name": "modCheck"}},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	pc := &ProviderClient{BTTVBase: srv.URL, FFZBase: srv.URL, SevenTVBase: srv.URL}
	ctx := context.Background()

	if m, err := pc.BTTVGlobal(ctx); err != nil || m["catJAM"] != bttvURL("b1") {
		t.Errorf("BTTVGlobal = %v, %v", m, err)
	}
	if m, err := pc.BTTVChannel(ctx, "123"); err != nil || len(m) != 2 {
		t.Errorf("BTTVChannel = %v, %v", m, err)
	}
	if m, err := pc.FFZGlobal(ctx); err != nil || m["ZreknarF"] != "u4" {
		t.Errorf("FFZGlobal = %v, %v (want largest scale)", m, err)
	}
	if m, err := pc.FFZChannel(ctx, "123"); err != nil || m["roomEmote"] != "u2" {
		t.Errorf("FFZChannel = %v, %v", m, err)
	}
	if m, err := pc.SevenTVGlobal(ctx); err != nil || m["EZ"] == "" {
		t.Errorf("SevenTVGlobal = %v, %v", m, err)
	}
	if m, err := pc.SevenTVChannel(ctx, "123"); err != nil || m["modCheck"] == "" {
		t.Errorf("SevenTVChannel = %v, %v", m, err)
	}
}

func TestSourcesOrder(t *testing.T) {
	helix := &twitchapi.HelixClient{}
	pc := &ProviderClient{}
	sources := Sources(helix, pc, "123")
	if len(sources) != 10 {
		t.Fatalf("got %d sources, want 10", len(sources))
	}
	// Platform assets first, third-party after, global before channel.
	wantOrder := []string{
		"twitch-global-emotes", "twitch-channel-emotes",
		"twitch-global-badges", "twitch-channel-badges",
		"bttv-global", "bttv-channel",
		"ffz-global", "ffz-channel",
		"seventv-global", "seventv-channel",
	}
	for i, want := range wantOrder {
		if sources[i].Name != want {
			t.Errorf("sources[%d] = %s, want %s", i, sources[i].Name, want)
		}
	}
}
