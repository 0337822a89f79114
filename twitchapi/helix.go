// Package twitchapi contains minimal helpers to interact with Twitch Helix
// APIs: login→user-id resolution and the platform's own chat assets (emotes
// and badges), using an app access token.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// DefaultBaseURL is the production Helix endpoint.
const DefaultBaseURL = "https://api.twitch.tv/helix"

// HelixClient provides the Helix calls the chat core needs.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	HTTPClient     *http.Client
	BaseURL        string // defaults to DefaultBaseURL
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) base() string {
	if hc.BaseURL != "" {
		return hc.BaseURL
	}
	return DefaultBaseURL
}

// get performs an authenticated Helix GET and decodes the JSON body into out.
func (hc *HelixClient) get(ctx context.Context, path string, query map[string]string, out any) error {
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.base()+path, nil)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("helix %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetUserID resolves a login name to its user ID.
func (hc *HelixClient) GetUserID(ctx context.Context, login string) (string, error) {
	if login == "" {
		return "", fmt.Errorf("login empty")
	}
	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := hc.get(ctx, "/users", map[string]string{"login": login}, &body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", fmt.Errorf("user not found")
	}
	return body.Data[0].ID, nil
}

// Emote is one Twitch emote: the word that triggers it and its image URL.
type Emote struct{ Name, URL string }

// Badge is one Twitch badge version, keyed as "setID/versionID".
type Badge struct{ Key, URL string }

type emoteData struct {
	Data []struct {
		Name   string `json:"name"`
		Images struct {
			URL1x string `json:"url_1x"`
			URL2x string `json:"url_2x"`
			URL4x string `json:"url_4x"`
		} `json:"images"`
	} `json:"data"`
}

func (d emoteData) emotes() []Emote {
	out := make([]Emote, 0, len(d.Data))
	for _, e := range d.Data {
		url := e.Images.URL4x
		if url == "" {
			url = e.Images.URL1x
		}
		out = append(out, Emote{Name: e.Name, URL: url})
	}
	return out
}

// GlobalEmotes lists the platform-wide emote set.
func (hc *HelixClient) GlobalEmotes(ctx context.Context) ([]Emote, error) {
	var body emoteData
	if err := hc.get(ctx, "/chat/emotes/global", nil, &body); err != nil {
		return nil, err
	}
	return body.emotes(), nil
}

// ChannelEmotes lists emotes specific to one broadcaster (sub and follower
// emotes).
func (hc *HelixClient) ChannelEmotes(ctx context.Context, broadcasterID string) ([]Emote, error) {
	if broadcasterID == "" {
		return nil, fmt.Errorf("broadcasterID empty")
	}
	var body emoteData
	if err := hc.get(ctx, "/chat/emotes", map[string]string{"broadcaster_id": broadcasterID}, &body); err != nil {
		return nil, err
	}
	return body.emotes(), nil
}

type badgeData struct {
	Data []struct {
		SetID    string `json:"set_id"`
		Versions []struct {
			ID    string `json:"id"`
			URL1x string `json:"image_url_1x"`
			URL4x string `json:"image_url_4x"`
		} `json:"versions"`
	} `json:"data"`
}

func (d badgeData) badges() []Badge {
	var out []Badge
	for _, set := range d.Data {
		for _, v := range set.Versions {
			url := v.URL4x
			if url == "" {
				url = v.URL1x
			}
			out = append(out, Badge{Key: set.SetID + "/" + v.ID, URL: url})
		}
	}
	return out
}

// GlobalBadges lists the platform-wide badge sets.
func (hc *HelixClient) GlobalBadges(ctx context.Context) ([]Badge, error) {
	var body badgeData
	if err := hc.get(ctx, "/chat/badges/global", nil, &body); err != nil {
		return nil, err
	}
	return body.badges(), nil
}

// ChannelBadges lists badge sets specific to one broadcaster.
func (hc *HelixClient) ChannelBadges(ctx context.Context, broadcasterID string) ([]Badge, error) {
	if broadcasterID == "" {
		return nil, fmt.Errorf("broadcasterID empty")
	}
	var body badgeData
	if err := hc.get(ctx, "/chat/badges", map[string]string{"broadcaster_id": broadcasterID}, &body); err != nil {
		return nil, err
	}
	return body.badges(), nil
}
