package irc

import (
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/onnwee/chatcore/telemetry"
)

func TestDecodeMultipleFrames(t *testing.T) {
	var d Decoder
	msgs := d.Decode("PING :tmi.twitch.tv\r\n:a!a@a PRIVMSG #c :hi\r\n")
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Type != Ping || msgs[1].Type != PrivMsg {
		t.Errorf("types = %v, %v", msgs[0].Type, msgs[1].Type)
	}
	if d.Pending() {
		t.Errorf("unexpected pending tail")
	}
}

func TestDecodeCarriesPartialTail(t *testing.T) {
	var d Decoder
	if msgs := d.Decode(":a!a@a PRIVMSG #c :hel"); len(msgs) != 0 {
		t.Fatalf("got %d messages from partial chunk, want 0", len(msgs))
	}
	if !d.Pending() {
		t.Fatalf("expected pending tail")
	}
	msgs := d.Decode("lo\r\n:b!b@b PRIVMSG #c :again\r\n")
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Body != "hello" {
		t.Errorf("reassembled body = %q, want hello", msgs[0].Body)
	}
	if msgs[1].Sender != "b" {
		t.Errorf("second sender = %q, want b", msgs[1].Sender)
	}
}

func TestDecodeSplitMidTerminator(t *testing.T) {
	var d Decoder
	if msgs := d.Decode("PING :tmi.twitch.tv\r"); len(msgs) != 0 {
		t.Fatalf("got %d messages, want 0", len(msgs))
	}
	msgs := d.Decode("\n")
	if len(msgs) != 1 || msgs[0].Type != Ping {
		t.Fatalf("terminator split across chunks not reassembled: %v", msgs)
	}
}

func TestDecodeSkipsMalformed(t *testing.T) {
	telemetry.Init()
	before := promtest.ToFloat64(telemetry.FramesMalformed)

	var d Decoder
	msgs := d.Decode("@broken\r\n:prefix-only\r\n:a!a@a PRIVMSG #c :ok\r\n")
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Body != "ok" {
		t.Errorf("surviving body = %q", msgs[0].Body)
	}
	if got := promtest.ToFloat64(telemetry.FramesMalformed) - before; got != 2 {
		t.Errorf("malformed counter moved by %v, want 2", got)
	}
}

func TestOutboundFrames(t *testing.T) {
	cases := []struct{ got, want string }{
		{Pass("oauth:abc"), "PASS oauth:abc"},
		{Nick("somebot"), "NICK somebot"},
		{CapReq("twitch.tv/tags", "twitch.tv/commands"), "CAP REQ :twitch.tv/tags twitch.tv/commands"},
		{Join("somechannel"), "JOIN #somechannel"},
		{Join("#somechannel"), "JOIN #somechannel"},
		{Privmsg("somechannel", "hello"), "PRIVMSG #somechannel :hello"},
		{Pong("tmi.twitch.tv"), "PONG :tmi.twitch.tv"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("frame = %q, want %q", c.got, c.want)
		}
	}
}
