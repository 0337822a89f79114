package assets

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/chatcore/telemetry"
)

// twitchEmoteCDN serves any Twitch emote by id; used for lazily-learned
// per-message emote associations.
const twitchEmoteCDN = "https://static-cdn.jtvnw.net/emoticons/v2/%s/default/dark/3.0"

// TwitchEmoteURL returns the CDN URL for a Twitch emote id.
func TwitchEmoteURL(id string) string { return fmt.Sprintf(twitchEmoteCDN, id) }

// Fetch runs every source concurrently and merges the results into one Table
// in source order (later sources win on collisions). A failing source is
// logged and skipped; it never prevents assets from the others. This runs
// once at session start, not per message.
func Fetch(ctx context.Context, sources []Source) *Table {
	results := make([]map[string]string, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			spanCtx, span := telemetry.StartSpan(gctx, "assets", "provider.fetch",
				attribute.String("provider", src.Name))
			defer span.End()
			assets, err := src.Fetch(spanCtx)
			if err != nil {
				telemetry.RecordError(span, err)
				telemetry.IncProviderFailure()
				slog.Warn("asset provider fetch failed", slog.String("provider", src.Name), slog.Any("err", err))
				return nil
			}
			telemetry.SetSpanSuccess(span)
			results[i] = assets
			slog.Debug("asset provider fetched", slog.String("provider", src.Name), slog.Int("assets", len(assets)))
			return nil
		})
	}
	_ = g.Wait() // goroutines swallow their own errors

	table := NewTable()
	for _, assets := range results {
		if assets != nil {
			table.merge(assets)
		}
	}
	slog.Info("asset table ready", slog.Int("assets", table.Len()), slog.Int("providers", len(sources)))
	return table
}
