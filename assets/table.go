// Package assets fetches badge and emote tables from the chat platform and
// third-party emote providers and merges them into one lookup keyed by emote
// word or badge id.
package assets

import "sync"

// Table is the merged asset lookup: emote word or "setID/versionID" badge
// key → image URL. Populated once per session by Fetch; read-only afterwards
// except for additive Learn entries.
type Table struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{m: make(map[string]string)}
}

// Resolve looks up an asset key.
func (t *Table) Resolve(key string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	url, ok := t.m[key]
	return url, ok
}

// Len reports the number of known assets.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.m)
}

// merge applies a provider result. Later merges win on colliding keys; no
// cross-provider precedence beyond application order is attempted.
func (t *Table) merge(assets map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range assets {
		t.m[k] = v
	}
}

// Learn records a lazily-discovered association (per-message emote-id→word
// data). Additive only: an existing key is never overwritten.
func (t *Table) Learn(key, url string) {
	if key == "" || url == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.m[key]; !ok {
		t.m[key] = url
	}
}
