package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/onnwee/chatcore/twitchapi"
)

// Default third-party provider endpoints.
const (
	DefaultBTTVBaseURL    = "https://api.betterttv.net/3"
	DefaultFFZBaseURL     = "https://api.frankerfacez.com/v1"
	DefaultSevenTVBaseURL = "https://7tv.io/v3"

	bttvCDN    = "https://cdn.betterttv.net/emote/%s/3x"
	sevenTVCDN = "https://cdn.7tv.app/emote/%s/4x.webp"
)

// Source is one independent provider fetch, normalized to {key: url}.
type Source struct {
	Name  string
	Fetch func(ctx context.Context) (map[string]string, error)
}

// ProviderClient fetches from the third-party emote providers (BTTV, FFZ,
// 7TV). Base URLs default to production endpoints; tests point them at a
// mock server.
type ProviderClient struct {
	HTTPClient  *http.Client
	BTTVBase    string
	FFZBase     string
	SevenTVBase string
}

func (pc *ProviderClient) http() *http.Client {
	if pc.HTTPClient != nil {
		return pc.HTTPClient
	}
	return http.DefaultClient
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// getJSON fetches url and decodes the JSON body into out.
func (pc *ProviderClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := pc.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type bttvEmote struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

func bttvURL(id string) string { return fmt.Sprintf(bttvCDN, id) }

// BTTVGlobal fetches the BetterTTV global emote list.
func (pc *ProviderClient) BTTVGlobal(ctx context.Context) (map[string]string, error) {
	var emotes []bttvEmote
	url := orDefault(pc.BTTVBase, DefaultBTTVBaseURL) + "/cached/emotes/global"
	if err := pc.getJSON(ctx, url, &emotes); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(emotes))
	for _, e := range emotes {
		out[e.Code] = bttvURL(e.ID)
	}
	return out, nil
}

// BTTVChannel fetches BetterTTV channel and shared emotes for a Twitch user.
func (pc *ProviderClient) BTTVChannel(ctx context.Context, channelID string) (map[string]string, error) {
	var body struct {
		ChannelEmotes []bttvEmote `json:"channelEmotes"`
		SharedEmotes  []bttvEmote `json:"sharedEmotes"`
	}
	url := orDefault(pc.BTTVBase, DefaultBTTVBaseURL) + "/cached/users/twitch/" + channelID
	if err := pc.getJSON(ctx, url, &body); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(body.ChannelEmotes)+len(body.SharedEmotes))
	for _, e := range body.ChannelEmotes {
		out[e.Code] = bttvURL(e.ID)
	}
	for _, e := range body.SharedEmotes {
		out[e.Code] = bttvURL(e.ID)
	}
	return out, nil
}

type ffzResponse struct {
	Sets map[string]struct {
		Emoticons []struct {
			Name string            `json:"name"`
			URLs map[string]string `json:"urls"`
		} `json:"emoticons"`
	} `json:"sets"`
}

func (r ffzResponse) assets() map[string]string {
	out := make(map[string]string)
	for _, set := range r.Sets {
		for _, e := range set.Emoticons {
			// Largest scale available wins; FFZ keys are "1", "2", "4".
			for _, scale := range []string{"4", "2", "1"} {
				if url, ok := e.URLs[scale]; ok && url != "" {
					out[e.Name] = url
					break
				}
			}
		}
	}
	return out
}

// FFZGlobal fetches the FrankerFaceZ global emote sets.
func (pc *ProviderClient) FFZGlobal(ctx context.Context) (map[string]string, error) {
	var body ffzResponse
	url := orDefault(pc.FFZBase, DefaultFFZBaseURL) + "/set/global"
	if err := pc.getJSON(ctx, url, &body); err != nil {
		return nil, err
	}
	return body.assets(), nil
}

// FFZChannel fetches the FrankerFaceZ room sets for a Twitch user.
func (pc *ProviderClient) FFZChannel(ctx context.Context, channelID string) (map[string]string, error) {
	var body ffzResponse
	url := orDefault(pc.FFZBase, DefaultFFZBaseURL) + "/room/id/" + channelID
	if err := pc.getJSON(ctx, url, &body); err != nil {
		return nil, err
	}
	return body.assets(), nil
}

type sevenTVEmote struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func sevenTVAssets(emotes []sevenTVEmote) map[string]string {
	out := make(map[string]string, len(emotes))
	for _, e := range emotes {
		out[e.Name] = fmt.Sprintf(sevenTVCDN, e.ID)
	}
	return out
}

// SevenTVGlobal fetches the 7TV global emote set.
func (pc *ProviderClient) SevenTVGlobal(ctx context.Context) (map[string]string, error) {
	var body struct {
		Emotes []sevenTVEmote `json:"emotes"`
	}
	url := orDefault(pc.SevenTVBase, DefaultSevenTVBaseURL) + "/emote-sets/global"
	if err := pc.getJSON(ctx, url, &body); err != nil {
		return nil, err
	}
	return sevenTVAssets(body.Emotes), nil
}

// SevenTVChannel fetches the active 7TV emote set for a Twitch user.
func (pc *ProviderClient) SevenTVChannel(ctx context.Context, channelID string) (map[string]string, error) {
	var body struct {
		EmoteSet struct {
			Emotes []sevenTVEmote `json:"emotes"`
		} `json:"emote_set"`
	}
	url := orDefault(pc.SevenTVBase, DefaultSevenTVBaseURL) + "/users/twitch/" + channelID
	if err := pc.getJSON(ctx, url, &body); err != nil {
		return nil, err
	}
	return sevenTVAssets(body.EmoteSet.Emotes), nil
}

// Sources assembles the full provider list for one channel, in merge order:
// the platform's own assets first, then BTTV, FFZ, and 7TV, global before
// channel within each. Later entries win on key collisions.
func Sources(helix *twitchapi.HelixClient, pc *ProviderClient, channelID string) []Source {
	toAssets := func(fn func(context.Context) ([]twitchapi.Emote, error)) func(context.Context) (map[string]string, error) {
		return func(ctx context.Context) (map[string]string, error) {
			emotes, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			out := make(map[string]string, len(emotes))
			for _, e := range emotes {
				out[e.Name] = e.URL
			}
			return out, nil
		}
	}
	badgeAssets := func(fn func(context.Context) ([]twitchapi.Badge, error)) func(context.Context) (map[string]string, error) {
		return func(ctx context.Context) (map[string]string, error) {
			badges, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			out := make(map[string]string, len(badges))
			for _, b := range badges {
				out[b.Key] = b.URL
			}
			return out, nil
		}
	}
	chEmotes := func(ctx context.Context) ([]twitchapi.Emote, error) { return helix.ChannelEmotes(ctx, channelID) }
	chBadges := func(ctx context.Context) ([]twitchapi.Badge, error) { return helix.ChannelBadges(ctx, channelID) }
	chBTTV := func(ctx context.Context) (map[string]string, error) { return pc.BTTVChannel(ctx, channelID) }
	chFFZ := func(ctx context.Context) (map[string]string, error) { return pc.FFZChannel(ctx, channelID) }
	chSevenTV := func(ctx context.Context) (map[string]string, error) { return pc.SevenTVChannel(ctx, channelID) }

	return []Source{
		{Name: "twitch-global-emotes", Fetch: toAssets(helix.GlobalEmotes)},
		{Name: "twitch-channel-emotes", Fetch: toAssets(chEmotes)},
		{Name: "twitch-global-badges", Fetch: badgeAssets(helix.GlobalBadges)},
		{Name: "twitch-channel-badges", Fetch: badgeAssets(chBadges)},
		{Name: "bttv-global", Fetch: pc.BTTVGlobal},
		{Name: "bttv-channel", Fetch: chBTTV},
		{Name: "ffz-global", Fetch: pc.FFZGlobal},
		{Name: "ffz-channel", Fetch: chFFZ},
		{Name: "seventv-global", Fetch: pc.SevenTVGlobal},
		{Name: "seventv-channel", Fetch: chSevenTV},
	}
}
