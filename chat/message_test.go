package chat

import (
	"testing"
	"time"

	"github.com/onnwee/chatcore/assets"
	"github.com/onnwee/chatcore/irc"
)

func TestFromRelayResolvesAssets(t *testing.T) {
	table := assets.NewTable()
	table.Learn("subscriber/3", "http://img/sub3")
	table.Learn("Kappa", "http://img/kappa")

	msg, err := irc.ParseLine("@badges=subscriber/3,bits/100;color=#1E90FF;display-name=Viewer;id=m9;tmi-sent-ts=1700000000000 :viewer!v@v.tmi.twitch.tv PRIVMSG #c :Kappa nice Kappa")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	m := fromRelay(msg, table)
	if m.ID != "m9" || m.Login != "viewer" || m.DisplayName != "Viewer" {
		t.Errorf("message = %+v", m)
	}
	if !m.Time.Equal(time.UnixMilli(1700000000000).UTC()) {
		t.Errorf("time = %v", m.Time)
	}
	if len(m.Badges) != 2 {
		t.Fatalf("badges = %+v", m.Badges)
	}
	if m.Badges[0].Key != "subscriber/3" || m.Badges[0].URL != "http://img/sub3" {
		t.Errorf("badge[0] = %+v", m.Badges[0])
	}
	if m.Badges[1].Key != "bits/100" || m.Badges[1].URL != "" {
		t.Errorf("unresolved badge should keep key with empty url: %+v", m.Badges[1])
	}
	if len(m.Emotes) != 1 || m.Emotes[0].Word != "Kappa" {
		t.Errorf("emotes = %+v (duplicate words collapse)", m.Emotes)
	}
}

func TestFromRelayUserNoticeLogin(t *testing.T) {
	msg, err := irc.ParseLine("@login=gifter;system-msg=gifter\\sgifted\\sa\\ssub!;id=n1 :tmi.twitch.tv USERNOTICE #c :thanks")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	m := fromRelay(msg, assets.NewTable())
	if m.Login != "gifter" {
		t.Errorf("login = %q, want from login tag", m.Login)
	}
	if m.System != "gifter gifted a sub!" {
		t.Errorf("system = %q", m.System)
	}
	if m.Text != "thanks" {
		t.Errorf("text = %q", m.Text)
	}
}

func TestFromRelayGeneratesIDWhenMissing(t *testing.T) {
	msg, _ := irc.ParseLine(":a!a@a PRIVMSG #c :hi")
	m := fromRelay(msg, assets.NewTable())
	if m.ID == "" {
		t.Errorf("expected generated id")
	}
}

func TestLearnEmotesFromTag(t *testing.T) {
	table := assets.NewTable()
	// "Kappa hi Kappa" with Kappa at 0-4 and 9-13.
	learnEmotes("25:0-4,9-13", "Kappa hi Kappa", table)
	url, ok := table.Resolve("Kappa")
	if !ok || url != assets.TwitchEmoteURL("25") {
		t.Errorf("learned url = %q, %v", url, ok)
	}
	// Learned associations never overwrite.
	learnEmotes("99:0-4", "Kappa", table)
	if got, _ := table.Resolve("Kappa"); got != assets.TwitchEmoteURL("25") {
		t.Errorf("learn overwrote existing association: %q", got)
	}
}

func TestLearnEmotesIgnoresBadRanges(t *testing.T) {
	table := assets.NewTable()
	learnEmotes("25:40-50", "short", table)
	learnEmotes("25:bad", "short", table)
	learnEmotes("25:5-2", "short", table)
	if table.Len() != 0 {
		t.Errorf("bad ranges learned something: %d", table.Len())
	}
}

func TestLearnEmotesRuneOffsets(t *testing.T) {
	table := assets.NewTable()
	// Multi-byte runes before the emote word; offsets are in runes.
	learnEmotes("42:4-8", "héé Kappa", table)
	if _, ok := table.Resolve("Kappa"); !ok {
		t.Errorf("rune-offset emote not learned")
	}
}

func TestFromLocalUsesIdentity(t *testing.T) {
	table := assets.NewTable()
	table.Learn("moderator/1", "http://img/mod")
	identity := map[string]string{"display-name": "SomeBot", "color": "#00FF00", "badges": "moderator/1"}
	m := fromLocal("hello", "somebot", identity, table)
	if m.DisplayName != "SomeBot" || m.Color != "#00FF00" || m.Login != "somebot" {
		t.Errorf("local message = %+v", m)
	}
	if len(m.Badges) != 1 || m.Badges[0].URL != "http://img/mod" {
		t.Errorf("badges = %+v", m.Badges)
	}
	if m.ID == "" {
		t.Errorf("local message missing id")
	}
}

func TestClearNote(t *testing.T) {
	if got := clearNote("bob", map[string]string{"ban-duration": "600"}); got != "timed out (600s)" {
		t.Errorf("clearNote = %q", got)
	}
	if got := clearNote("bob", map[string]string{}); got != "banned" {
		t.Errorf("clearNote = %q", got)
	}
	// An untargeted clear must not stamp rows as banned.
	if got := clearNote("", map[string]string{}); got != "chat cleared" {
		t.Errorf("clearNote = %q", got)
	}
	if got := clearNote("", map[string]string{"ban-duration": "600"}); got != "chat cleared" {
		t.Errorf("clearNote = %q", got)
	}
}
