// Package telemetry provides Prometheus metrics, OpenTelemetry tracing setup,
// and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	FramesDecoded    prometheus.Counter
	FramesMalformed  prometheus.Counter
	MessagesAppended prometheus.Counter
	MessagesCleared  prometheus.Counter
	PingsAnswered    prometheus.Counter
	MessagesSent     prometheus.Counter
	ProviderFailures prometheus.Counter

	// Gauges
	BufferLengthGauge prometheus.Gauge
	SessionUpGauge    prometheus.Gauge // 1=connected, 0=closed
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		FramesDecoded = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_frames_decoded_total", Help: "Number of protocol frames decoded"})
		FramesMalformed = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_frames_malformed_total", Help: "Number of malformed frames skipped"})
		MessagesAppended = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_appended_total", Help: "Number of messages appended to the buffer"})
		MessagesCleared = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_cleared_total", Help: "Number of clear operations applied (CLEARCHAT/CLEARMSG)"})
		PingsAnswered = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_pings_answered_total", Help: "Number of relay PINGs answered with PONG"})
		MessagesSent = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_sent_total", Help: "Number of locally sent PRIVMSGs"})
		ProviderFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_asset_provider_failures_total", Help: "Number of asset provider fetches that failed"})
		BufferLengthGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_buffer_length", Help: "Current message buffer length"})
		SessionUpGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_session_up", Help: "Chat session connected=1 closed=0"})
	})
}

// Nil-guarded increment helpers so library code can record metrics without
// caring whether Init ran (tests often skip it).

func IncFramesDecoded() {
	if FramesDecoded != nil {
		FramesDecoded.Inc()
	}
}

func IncFramesMalformed() {
	if FramesMalformed != nil {
		FramesMalformed.Inc()
	}
}

func IncMessagesAppended() {
	if MessagesAppended != nil {
		MessagesAppended.Inc()
	}
}

func IncMessagesCleared() {
	if MessagesCleared != nil {
		MessagesCleared.Inc()
	}
}

func IncPingsAnswered() {
	if PingsAnswered != nil {
		PingsAnswered.Inc()
	}
}

func IncMessagesSent() {
	if MessagesSent != nil {
		MessagesSent.Inc()
	}
}

func IncProviderFailure() {
	if ProviderFailures != nil {
		ProviderFailures.Inc()
	}
}

// SetBufferLength records the current buffer length.
func SetBufferLength(n int) {
	if BufferLengthGauge != nil {
		BufferLengthGauge.Set(float64(n))
	}
}

// SetSessionUp sets the session gauge to 1 if connected else 0.
func SetSessionUp(up bool) {
	if SessionUpGauge != nil {
		if up {
			SessionUpGauge.Set(1)
		} else {
			SessionUpGauge.Set(0)
		}
	}
}

// Correlation ID helpers ----------------------------------------------------

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
