package chat

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/chatcore/assets"
	"github.com/onnwee/chatcore/irc"
	"github.com/onnwee/chatcore/store"
)

// fromRelay builds a processed message from an inbound PRIVMSG or USERNOTICE
// frame, resolving badge and emote references through the asset table.
func fromRelay(msg irc.Message, table *assets.Table) store.Message {
	login := msg.Sender
	if v, ok := msg.Tags["login"]; ok { // USERNOTICE carries the login in tags
		login = v
	}
	m := store.Message{
		ID:          msg.Tags["id"],
		Login:       login,
		DisplayName: msg.Tags["display-name"],
		Color:       msg.Tags["color"],
		Text:        msg.Body,
		System:      msg.Tags["system-msg"],
		Time:        sentAt(msg.Tags),
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.DisplayName == "" {
		m.DisplayName = login
	}
	learnEmotes(msg.Tags["emotes"], msg.Body, table)
	m.Badges = resolveBadges(msg.Tags["badges"], table)
	m.Emotes = resolveEmotes(msg.Body, table)
	return m
}

// fromLocal synthesizes the processed message for a locally-sent line. The
// relay does not echo our PRIVMSG back with tags, so display attributes come
// from the cached USERSTATE identity.
func fromLocal(text, login string, identity map[string]string, table *assets.Table) store.Message {
	m := store.Message{
		ID:          uuid.New().String(),
		Login:       login,
		DisplayName: identity["display-name"],
		Color:       identity["color"],
		Text:        text,
		Time:        time.Now().UTC(),
	}
	if m.DisplayName == "" {
		m.DisplayName = login
	}
	m.Badges = resolveBadges(identity["badges"], table)
	m.Emotes = resolveEmotes(text, table)
	return m
}

func sentAt(tags map[string]string) time.Time {
	if v, ok := tags["tmi-sent-ts"]; ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC()
		}
	}
	return time.Now().UTC()
}

// resolveBadges maps a "set/version,set/version" badge tag onto asset URLs.
// Unresolvable badges keep their key so the consumer can still show a
// placeholder.
func resolveBadges(tag string, table *assets.Table) []store.Badge {
	if tag == "" {
		return nil
	}
	var out []store.Badge
	for _, key := range strings.Split(tag, ",") {
		if key == "" {
			continue
		}
		b := store.Badge{Key: key}
		if url, ok := table.Resolve(key); ok {
			b.URL = url
		}
		out = append(out, b)
	}
	return out
}

// resolveEmotes scans the body word by word against the asset table.
func resolveEmotes(body string, table *assets.Table) []store.EmoteSpan {
	var out []store.EmoteSpan
	seen := map[string]bool{}
	for _, word := range strings.Fields(body) {
		if seen[word] {
			continue
		}
		if url, ok := table.Resolve(word); ok {
			out = append(out, store.EmoteSpan{Word: word, URL: url})
			seen[word] = true
		}
	}
	return out
}

// learnEmotes feeds the per-message emotes= tag (id:start-end/...) into the
// asset table. The ranges are rune offsets into the body; the learned word →
// CDN URL association is additive and lives for the session.
func learnEmotes(tag, body string, table *assets.Table) {
	if tag == "" || body == "" {
		return
	}
	runes := []rune(body)
	for _, entry := range strings.Split(tag, "/") {
		id, ranges, ok := strings.Cut(entry, ":")
		if !ok || id == "" {
			continue
		}
		first, _, _ := strings.Cut(ranges, ",")
		lo, hi, ok := strings.Cut(first, "-")
		if !ok {
			continue
		}
		start, err1 := strconv.Atoi(lo)
		end, err2 := strconv.Atoi(hi)
		if err1 != nil || err2 != nil || start < 0 || end >= len(runes) || start > end {
			continue
		}
		word := string(runes[start : end+1])
		table.Learn(word, assets.TwitchEmoteURL(id))
	}
}
