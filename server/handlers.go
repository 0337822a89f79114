package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/onnwee/chatcore/chat"
	"github.com/onnwee/chatcore/telemetry"
)

// Handlers serves the collaborator-facing endpoints.
type Handlers struct {
	deps Deps
	hub  *hub
}

// HandleHealthz responds to liveness probes.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleState returns the current room state plus session/UI flags.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	out := map[string]any{
		"channel":     h.deps.Sender.Channel(),
		"anonymous":   h.deps.Sender.Anonymous(),
		"auto_scroll": h.deps.Buffer.AutoScroll(),
		"room":        h.deps.Rooms.State(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// HandleMessages returns the current buffer contents, newest last. An
// optional limit query keeps only the newest N.
func (h *Handlers) HandleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	msgs := h.deps.Buffer.Messages()
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < len(msgs) {
			msgs = msgs[len(msgs)-n:]
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(msgs)
}

// HandleSend transmits the request body as a chat message.
func (h *Handlers) HandleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	_, span := telemetry.StartSpan(r.Context(), "server", "chat.send")
	defer span.End()
	switch err := h.deps.Sender.Send(string(body)); {
	case err == nil:
		telemetry.SetSpanSuccess(span)
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, chat.ErrAnonymous):
		http.Error(w, "anonymous session cannot send", http.StatusForbidden)
	case errors.Is(err, chat.ErrClosed):
		http.Error(w, "session closed", http.StatusConflict)
	default:
		telemetry.RecordError(span, err)
		telemetry.LoggerWithCorr(r.Context()).Error("send failed", "err", err)
		http.Error(w, "send failed", http.StatusInternalServerError)
	}
}

// HandleAutoScroll records whether the collaborator viewport is following
// the bottom edge.
func (h *Handlers) HandleAutoScroll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	h.deps.Buffer.SetAutoScroll(body.Enabled)
	w.WriteHeader(http.StatusNoContent)
}

// HandleStream pushes buffer events to the collaborator as Server-Sent
// Events until the client disconnects.
func (h *Handlers) HandleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	sub := h.hub.subscribe()
	defer h.hub.unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(payload); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
