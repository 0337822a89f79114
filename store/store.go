// Package store holds the bounded, ordered buffer of processed chat messages
// with moderation-aware mutation and auto-scroll gating for the consumer UI.
package store

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Soft cap and trim target are distinct so the buffer is not trimmed on
// every append once it hovers near the cap.
const (
	DefaultSoftCap = 200
	DefaultTrimTo  = 180
)

// Badge is one resolved badge reference on a message.
type Badge struct {
	Key string `json:"key"`
	URL string `json:"url,omitempty"`
}

// EmoteSpan is one word of the message body resolved to an emote image.
type EmoteSpan struct {
	Word string `json:"word"`
	URL  string `json:"url"`
}

// Message is a processed, render-ready chat message.
type Message struct {
	ID          string      `json:"id"`
	Login       string      `json:"login"`
	DisplayName string      `json:"display_name"`
	Color       string      `json:"color,omitempty"`
	Text        string      `json:"text"`
	Badges      []Badge     `json:"badges,omitempty"`
	Emotes      []EmoteSpan `json:"emotes,omitempty"`
	System      string      `json:"system,omitempty"` // USERNOTICE system text
	Time        time.Time   `json:"time"`
	Cleared     bool        `json:"cleared"`
	ClearNote   string      `json:"clear_note,omitempty"` // e.g. "banned", "timed out (600s)"
}

// EventKind classifies buffer notifications.
type EventKind int

const (
	EventAppend EventKind = iota
	EventClear
)

// Event is one buffer notification delivered to the collaborator. ScrollToEnd
// is set when auto-scroll was enabled at mutation time; it fires after the
// mutation is applied, never before.
type Event struct {
	Kind        EventKind
	Message     Message // populated for EventAppend
	ScrollToEnd bool
}

// Buffer is the ordered, size-bounded message buffer for one session.
// The session read loop is the single writer; readers (HTTP surface,
// notification consumers) are concurrent.
type Buffer struct {
	mu         sync.RWMutex
	msgs       []Message
	softCap    int
	trimTo     int
	autoScroll bool

	events chan Event
}

// NewBuffer returns a buffer with the given bounds; non-positive values fall
// back to the defaults. Auto-scroll starts enabled.
func NewBuffer(softCap, trimTo int) *Buffer {
	if softCap <= 0 {
		softCap = DefaultSoftCap
	}
	if trimTo <= 0 || trimTo > softCap {
		trimTo = min(DefaultTrimTo, softCap)
	}
	return &Buffer{
		softCap:    softCap,
		trimTo:     trimTo,
		autoScroll: true,
		events:     make(chan Event, 64),
	}
}

// Events is the notification channel the collaborator subscribes to. Sends
// never block the writer; if the consumer lags, notifications are dropped
// (the buffer itself is always consistent and re-readable via Messages).
func (b *Buffer) Events() <-chan Event { return b.events }

func (b *Buffer) notify(ev Event) {
	select {
	case b.events <- ev:
	default:
	}
}

// Append adds m at the tail, trimming from the head to the trim target when
// the soft cap is exceeded.
func (b *Buffer) Append(m Message) {
	b.mu.Lock()
	b.msgs = append(b.msgs, m)
	if len(b.msgs) > b.softCap {
		b.msgs = slices.Delete(b.msgs, 0, len(b.msgs)-b.trimTo)
	}
	scroll := b.autoScroll
	b.mu.Unlock()
	b.notify(Event{Kind: EventAppend, Message: m, ScrollToEnd: scroll})
}

// ClearByUser handles a CLEARCHAT. With a target login, every buffered
// message from that sender is redacted in place (layout continuity); with an
// empty login the whole buffer is emptied.
func (b *Buffer) ClearByUser(login, note string) {
	b.mu.Lock()
	if login == "" {
		b.msgs = nil
	} else {
		for i := range b.msgs {
			if strings.EqualFold(b.msgs[i].Login, login) {
				redact(&b.msgs[i], note)
			}
		}
	}
	scroll := b.autoScroll
	b.mu.Unlock()
	b.notify(Event{Kind: EventClear, ScrollToEnd: scroll})
}

// ClearByID handles a CLEARMSG: redacts exactly the message whose id
// matches. A missing id is a no-op, not an error.
func (b *Buffer) ClearByID(id, note string) bool {
	b.mu.Lock()
	found := false
	for i := range b.msgs {
		if b.msgs[i].ID == id {
			redact(&b.msgs[i], note)
			found = true
			break
		}
	}
	scroll := b.autoScroll
	b.mu.Unlock()
	if found {
		b.notify(Event{Kind: EventClear, ScrollToEnd: scroll})
	}
	return found
}

func redact(m *Message, note string) {
	m.Text = ""
	m.Emotes = nil
	m.Cleared = true
	if note == "" {
		note = "message deleted"
	}
	m.ClearNote = note
}

// SetAutoScroll records whether the viewport is following the bottom edge.
// It gates scroll-to-end notifications only; storage is unaffected.
func (b *Buffer) SetAutoScroll(on bool) {
	b.mu.Lock()
	b.autoScroll = on
	b.mu.Unlock()
}

// AutoScroll reports the current auto-scroll flag.
func (b *Buffer) AutoScroll() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.autoScroll
}

// Messages returns a snapshot copy in arrival order.
func (b *Buffer) Messages() []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.msgs)
}

// Len reports the current buffer length.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.msgs)
}
