package irc

import (
	"log/slog"
	"strings"

	"github.com/onnwee/chatcore/telemetry"
)

// Decoder splits raw transport chunks into frames. The relay terminates
// frames with CRLF but TCP delivery is not frame-aligned, so an unterminated
// tail is carried over and prepended to the next chunk.
type Decoder struct {
	tail string
}

// Decode parses every complete frame in chunk (plus any carried tail) and
// returns them in arrival order. Malformed frames are logged and skipped;
// they never abort the rest of the chunk.
func (d *Decoder) Decode(chunk string) []Message {
	data := d.tail + chunk
	var out []Message
	for {
		i := strings.Index(data, "\r\n")
		if i < 0 {
			break
		}
		line := data[:i]
		data = data[i+2:]
		if line == "" {
			continue
		}
		msg, err := ParseLine(line)
		if err != nil {
			telemetry.IncFramesMalformed()
			slog.Debug("skipping malformed frame", slog.Any("err", err))
			continue
		}
		out = append(out, msg)
	}
	d.tail = data
	return out
}

// Pending reports whether a partial frame is buffered.
func (d *Decoder) Pending() bool { return d.tail != "" }

// Outbound frame constructors. Frames are returned without the CRLF
// terminator; the transport writer appends it.

func Pass(token string) string { return "PASS " + token }

func Nick(login string) string { return "NICK " + login }

func CapReq(caps ...string) string { return "CAP REQ :" + strings.Join(caps, " ") }

func Join(channel string) string { return "JOIN #" + strings.TrimPrefix(channel, "#") }

func Privmsg(channel, text string) string {
	return "PRIVMSG #" + strings.TrimPrefix(channel, "#") + " :" + text
}

func Pong(payload string) string { return "PONG :" + payload }
