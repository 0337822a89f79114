// Package server exposes the HTTP surface consumed by the UI collaborator:
// health, metrics, current room state, the message buffer, a live SSE feed,
// and the send endpoint. It includes permissive CORS for development and
// injects correlation IDs into request contexts for consistent logging.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/chatcore/room"
	"github.com/onnwee/chatcore/store"
	"github.com/onnwee/chatcore/telemetry"
)

// Sender is the slice of the chat session the HTTP surface needs.
type Sender interface {
	Send(text string) error
	Anonymous() bool
	Channel() string
}

// Deps carries the live session state the handlers read.
type Deps struct {
	Buffer *store.Buffer
	Rooms  *room.Tracker
	Sender Sender
}

// NewMux returns the HTTP handler with all routes. The provided context
// bounds the SSE fan-out goroutine.
func NewMux(ctx context.Context, deps Deps) http.Handler {
	h := &Handlers{deps: deps, hub: newHub()}
	go h.hub.run(ctx, deps.Buffer.Events())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", h.HandleHealthz)
	mux.HandleFunc("/state", h.HandleState)
	mux.HandleFunc("/messages", h.HandleMessages)
	mux.HandleFunc("/messages/stream", h.HandleStream)
	mux.HandleFunc("/send", h.HandleSend)
	mux.HandleFunc("/autoscroll", h.HandleAutoScroll)

	// Correlation ID injection plus permissive CORS for local development.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Correlation-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		mux.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Start runs the HTTP server until ctx is canceled, then shuts down
// gracefully.
func Start(ctx context.Context, deps Deps, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(ctx, deps),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("http server listening", slog.String("addr", addr))
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
