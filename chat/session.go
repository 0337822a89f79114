package chat

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/onnwee/chatcore/assets"
	"github.com/onnwee/chatcore/irc"
	"github.com/onnwee/chatcore/room"
	"github.com/onnwee/chatcore/store"
	"github.com/onnwee/chatcore/telemetry"
)

// ErrClosed is returned by Send after the session has closed.
var ErrClosed = errors.New("chat: session closed")

// ErrAnonymous is returned by Send when the session joined with the
// anonymous sentinel login.
var ErrAnonymous = errors.New("chat: anonymous session cannot send")

// errRelayReconnect is the terminal error when the relay orders a reconnect;
// honoring it is the caller's decision, the session just closes.
var errRelayReconnect = errors.New("chat: relay requested reconnect")

// Dialer opens the transport connection. Overridable in tests; the default
// dials the relay with TLS.
type Dialer func(ctx context.Context, addr string) (net.Conn, error)

func tlsDialer(ctx context.Context, addr string) (net.Conn, error) {
	d := &tls.Dialer{NetDialer: &net.Dialer{Timeout: 10 * time.Second}}
	return d.DialContext(ctx, "tcp", addr)
}

// Options configures a session. Channel is required; empty Login or Token
// joins read-only with the anonymous sentinel.
type Options struct {
	Channel   string
	Login     string
	Token     string
	RelayAddr string
	Dialer    Dialer

	Buffer   *store.Buffer
	Rooms    *room.Tracker
	Assets   *assets.Table
	Archiver *Archiver // optional
}

// Session is the aggregate root for one joined channel: it owns the socket,
// the room tracker, the message buffer, and the asset table. Created by
// Dial, torn down by Close.
type Session struct {
	channel  string
	login    string
	anon     bool
	buf      *store.Buffer
	rooms    *room.Tracker
	table    *assets.Table
	archiver *Archiver

	conn net.Conn
	dec  irc.Decoder

	mu     sync.Mutex // guards conn writes and closed
	closed bool

	done    chan struct{}
	doneErr error
}

// Dial connects to the relay, performs the join handshake, and starts the
// receive loop. The handshake frames go out in strict order: capability
// request, authentication, nickname, channel join.
func Dial(ctx context.Context, opts Options) (*Session, error) {
	if opts.Channel == "" {
		return nil, errors.New("chat: channel required")
	}
	if opts.Buffer == nil || opts.Rooms == nil || opts.Assets == nil {
		return nil, errors.New("chat: buffer, rooms, and assets are required")
	}
	dial := opts.Dialer
	if dial == nil {
		dial = tlsDialer
	}

	s := &Session{
		channel:  strings.TrimPrefix(opts.Channel, "#"),
		login:    opts.Login,
		buf:      opts.Buffer,
		rooms:    opts.Rooms,
		table:    opts.Assets,
		archiver: opts.Archiver,
		done:     make(chan struct{}),
	}
	if opts.Login == "" || opts.Token == "" {
		s.anon = true
		s.login = fmt.Sprintf("justinfan%d", 10000+rand.IntN(90000))
	}

	conn, err := dial(ctx, opts.RelayAddr)
	if err != nil {
		return nil, fmt.Errorf("chat: dial relay: %w", err)
	}
	s.conn = conn

	frames := []string{irc.CapReq("twitch.tv/tags", "twitch.tv/commands")}
	if !s.anon {
		frames = append(frames, irc.Pass(opts.Token))
	}
	frames = append(frames, irc.Nick(s.login), irc.Join(s.channel))
	for _, f := range frames {
		if err := s.write(f); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("chat: handshake: %w", err)
		}
	}

	telemetry.SetSessionUp(true)
	slog.Info("joined channel",
		slog.String("channel", s.channel),
		slog.String("login", s.login),
		slog.Bool("anonymous", s.anon))

	go s.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

// Channel returns the joined channel name (no # prefix).
func (s *Session) Channel() string { return s.channel }

// Anonymous reports whether the session joined with the sentinel login.
func (s *Session) Anonymous() bool { return s.anon }

// Done closes when the session has terminated.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the terminal error after Done is closed; nil on explicit
// Close.
func (s *Session) Err() error {
	select {
	case <-s.done:
		if errors.Is(s.doneErr, net.ErrClosed) {
			return nil
		}
		return s.doneErr
	default:
		return nil
	}
}

func (s *Session) write(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	_, err := s.conn.Write([]byte(frame + "\r\n"))
	return err
}

// Send transmits text as a PRIVMSG and appends the locally synthesized
// message, stamped from the cached USERSTATE identity. Empty or
// whitespace-only text is silently dropped.
func (s *Session) Send(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if s.anon {
		return ErrAnonymous
	}
	if err := s.write(irc.Privmsg(s.channel, text)); err != nil {
		return err
	}
	telemetry.IncMessagesSent()
	m := fromLocal(text, s.login, s.rooms.Identity(), s.table)
	s.append(m)
	return nil
}

// Close tears the session down: the socket is released, the pending read
// unblocks, and undelivered inbound data is discarded. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}

// readLoop is the single writer for room state and the buffer: chunks are
// processed strictly in arrival order.
func (s *Session) readLoop() {
	buf := make([]byte, 4096)
	var terminal error
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			for _, msg := range s.dec.Decode(string(buf[:n])) {
				telemetry.IncFramesDecoded()
				if stop := s.dispatch(msg); stop != nil {
					terminal = stop
					break
				}
			}
		}
		if terminal != nil {
			break
		}
		if err != nil {
			terminal = err
			break
		}
	}

	s.mu.Lock()
	wasClosed := s.closed
	s.closed = true
	s.mu.Unlock()
	_ = s.conn.Close()

	if wasClosed {
		s.doneErr = nil
	} else {
		s.doneErr = terminal
		slog.Warn("session terminated", slog.String("channel", s.channel), slog.Any("err", terminal))
	}
	telemetry.SetSessionUp(false)
	close(s.done)
}

// dispatch routes one decoded frame. A non-nil return terminates the
// session.
func (s *Session) dispatch(msg irc.Message) error {
	switch msg.Type {
	case irc.Ping:
		// Keepalive answers bypass normal dispatch entirely.
		telemetry.IncPingsAnswered()
		return s.write(irc.Pong(msg.Body))
	case irc.PrivMsg, irc.UserNotice:
		s.append(fromRelay(msg, s.table))
	case irc.ClearChat:
		target := msg.Body // empty body means a full chat clear
		note := clearNote(target, msg.Tags)
		s.buf.ClearByUser(target, note)
		telemetry.IncMessagesCleared()
		telemetry.SetBufferLength(s.buf.Len())
		if s.archiver != nil {
			s.archiver.ClearUser(context.Background(), target, note)
		}
	case irc.ClearMsg:
		id := msg.Tags["target-msg-id"]
		if s.buf.ClearByID(id, "message deleted") {
			telemetry.IncMessagesCleared()
		}
		if s.archiver != nil {
			s.archiver.ClearMessage(context.Background(), id, "message deleted")
		}
	case irc.RoomState:
		state := s.rooms.ApplyRoomState(msg.Tags)
		slog.Debug("room state updated", slog.String("channel", s.channel), slog.Any("state", state))
	case irc.UserState:
		s.rooms.SetIdentity(msg.Tags)
	case irc.Notice:
		slog.Warn("relay notice", slog.String("channel", s.channel), slog.String("notice", msg.Body))
	case irc.Reconnect:
		return errRelayReconnect
	case irc.GlobalUserState, irc.Unknown:
		// inert
	}
	return nil
}

func (s *Session) append(m store.Message) {
	s.buf.Append(m)
	telemetry.IncMessagesAppended()
	telemetry.SetBufferLength(s.buf.Len())
	if s.archiver != nil {
		s.archiver.Record(context.Background(), m)
	}
}

// clearNote renders the CLEARCHAT marker. A targeted clear is a timeout when
// ban-duration is present and a permanent ban otherwise; an untargeted clear
// wipes the whole room and carries neither.
func clearNote(target string, tags map[string]string) string {
	if target == "" {
		return "chat cleared"
	}
	if d, ok := tags["ban-duration"]; ok {
		return fmt.Sprintf("timed out (%ss)", d)
	}
	return "banned"
}
