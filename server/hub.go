package server

import (
	"context"
	"sync"

	"github.com/onnwee/chatcore/store"
)

// streamEvent is the SSE wire form of a buffer notification.
type streamEvent struct {
	Kind        string         `json:"kind"` // "append" or "clear"
	Message     *store.Message `json:"message,omitempty"`
	ScrollToEnd bool           `json:"scroll_to_end"`
}

// hub fans buffer events out to any number of SSE subscribers. Slow
// subscribers drop events rather than stalling the source; the buffer itself
// stays re-readable via /messages.
type hub struct {
	mu   sync.Mutex
	subs map[chan streamEvent]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan streamEvent]struct{})}
}

func (h *hub) subscribe() chan streamEvent {
	ch := make(chan streamEvent, 32)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan streamEvent) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *hub) run(ctx context.Context, events <-chan store.Event) {
	defer func() {
		h.mu.Lock()
		for ch := range h.subs {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			out := streamEvent{ScrollToEnd: ev.ScrollToEnd}
			switch ev.Kind {
			case store.EventAppend:
				out.Kind = "append"
				m := ev.Message
				out.Message = &m
			case store.EventClear:
				out.Kind = "clear"
			}
			h.mu.Lock()
			for ch := range h.subs {
				select {
				case ch <- out:
				default:
				}
			}
			h.mu.Unlock()
		}
	}
}
