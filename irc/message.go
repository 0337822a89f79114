// Package irc implements the subset of the IRCv3 message protocol spoken by
// the Twitch chat relay (TMI): tagged-frame parsing, streaming chunk decoding
// with partial-frame carry, and outbound frame encoding.
package irc

import (
	"fmt"
	"strings"
)

// MessageType classifies a decoded frame by its command token.
type MessageType int

const (
	Unknown MessageType = iota
	PrivMsg
	ClearChat
	ClearMsg
	RoomState
	UserState
	UserNotice
	GlobalUserState
	Notice
	Reconnect
	Ping
)

var commandTypes = map[string]MessageType{
	"PRIVMSG":         PrivMsg,
	"CLEARCHAT":       ClearChat,
	"CLEARMSG":        ClearMsg,
	"ROOMSTATE":       RoomState,
	"USERSTATE":       UserState,
	"USERNOTICE":      UserNotice,
	"GLOBALUSERSTATE": GlobalUserState,
	"NOTICE":          Notice,
	"RECONNECT":       Reconnect,
	"PING":            Ping,
}

func (t MessageType) String() string {
	for cmd, mt := range commandTypes {
		if mt == t {
			return cmd
		}
	}
	return "UNKNOWN"
}

// Message is one parsed frame. Immutable once returned by the decoder;
// ownership passes to whichever component consumes it next.
type Message struct {
	Raw     string
	Type    MessageType
	Command string
	Tags    map[string]string
	Sender  string
	Params  []string
	Body    string
}

// Channel returns the #-stripped channel parameter, if the frame carries one.
func (m Message) Channel() string {
	for _, p := range m.Params {
		if strings.HasPrefix(p, "#") {
			return strings.TrimPrefix(p, "#")
		}
	}
	return ""
}

// ParseLine parses a single frame (no trailing CRLF). Unrecognized commands
// yield Type == Unknown rather than an error; an error means the frame is
// structurally malformed and should be skipped.
func ParseLine(line string) (Message, error) {
	msg := Message{Raw: line, Tags: map[string]string{}}
	rest := line

	if strings.HasPrefix(rest, "@") {
		sp := strings.Index(rest, " ")
		if sp < 0 {
			return msg, fmt.Errorf("irc: tag section with no command: %q", line)
		}
		parseTags(rest[1:sp], msg.Tags)
		rest = rest[sp+1:]
	}

	if strings.HasPrefix(rest, ":") {
		sp := strings.Index(rest, " ")
		if sp < 0 {
			return msg, fmt.Errorf("irc: source prefix with no command: %q", line)
		}
		msg.Sender = senderOf(rest[1:sp])
		rest = rest[sp+1:]
	}

	// The trailing parameter (after " :") is the message body; internal
	// colons and spaces are verbatim.
	if i := strings.Index(rest, " :"); i >= 0 {
		msg.Body = rest[i+2:]
		rest = rest[:i]
	} else if strings.HasPrefix(rest, ":") {
		// Degenerate frame like "PING" handled below; a leading ":" here
		// would mean an empty command.
		return msg, fmt.Errorf("irc: missing command token: %q", line)
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return msg, fmt.Errorf("irc: empty command: %q", line)
	}
	msg.Command = fields[0]
	msg.Params = fields[1:]
	if t, ok := commandTypes[msg.Command]; ok {
		msg.Type = t
	}
	return msg, nil
}

// senderOf extracts the login from a "nick!user@host" source prefix.
func senderOf(prefix string) string {
	if i := strings.IndexAny(prefix, "!@"); i >= 0 {
		return prefix[:i]
	}
	return prefix
}

// parseTags fills dst from a ";"-separated tag section. Pairs with an empty
// value are dropped entirely, not stored as "" (TMI sends e.g. "emotes=" for
// absent data and downstream merge semantics rely on absence, not emptiness).
func parseTags(section string, dst map[string]string) {
	for _, pair := range strings.Split(section, ";") {
		eq := strings.Index(pair, "=")
		if eq <= 0 {
			continue
		}
		val := pair[eq+1:]
		if val == "" {
			continue
		}
		dst[pair[:eq]] = UnescapeTag(val)
	}
}

var tagUnescaper = strings.NewReplacer(
	`\s`, " ",
	`\:`, ";",
	`\\`, `\`,
	`\r`, "\r",
	`\n`, "\n",
)

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	" ", `\s`,
	";", `\:`,
	"\r", `\r`,
	"\n", `\n`,
)

// UnescapeTag reverses the IRCv3 tag-value escaping.
func UnescapeTag(v string) string { return tagUnescaper.Replace(v) }

// EscapeTag applies IRCv3 tag-value escaping.
func EscapeTag(v string) string { return tagEscaper.Replace(v) }

// EncodeTags renders a tag map back into a tag section (without the leading
// "@"). Key order is not significant on the wire; output is deterministic
// only per Go map iteration, so callers comparing round-trips should compare
// parsed maps, not strings.
func EncodeTags(tags map[string]string) string {
	parts := make([]string, 0, len(tags))
	for k, v := range tags {
		parts = append(parts, k+"="+EscapeTag(v))
	}
	return strings.Join(parts, ";")
}
