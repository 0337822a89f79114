// Package room tracks channel-wide chat rules derived from ROOMSTATE frames
// and caches the local user's USERSTATE identity for stamping outgoing
// messages.
package room

import (
	"maps"
	"strconv"
	"sync"
)

// State is the composite room-rule record. Values reflect the most recent
// tag seen per field; a ROOMSTATE update replaces the whole record via
// merge-with-previous, it never mutates in place.
type State struct {
	SlowSeconds         int  `json:"slow_seconds"`
	SubscriberOnly      bool `json:"subscriber_only"`
	EmoteOnly           bool `json:"emote_only"`
	FollowerOnlyMinutes *int `json:"follower_only_minutes"` // nil when disabled
	UniqueChat          bool `json:"unique_chat"`
}

// Apply copies prev and overwrites exactly the fields present in tags,
// leaving absent fields untouched. Applying the same tags twice yields the
// same state as applying them once.
func Apply(prev State, tags map[string]string) State {
	next := prev
	if v, ok := tags["slow"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			next.SlowSeconds = n
		}
	}
	if v, ok := tags["subs-only"]; ok {
		next.SubscriberOnly = v == "1"
	}
	if v, ok := tags["emote-only"]; ok {
		next.EmoteOnly = v == "1"
	}
	if v, ok := tags["followers-only"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			if n < 0 {
				next.FollowerOnlyMinutes = nil
			} else {
				next.FollowerOnlyMinutes = &n
			}
		}
	}
	if v, ok := tags["r9k"]; ok {
		next.UniqueChat = v == "1"
	}
	return next
}

// Tracker holds the live State and cached identity for one session. The
// session's read loop is the only writer; the HTTP surface reads
// concurrently, hence the lock.
type Tracker struct {
	mu       sync.RWMutex
	state    State
	identity map[string]string
}

// ApplyRoomState merges tags into the current state and returns the result.
func (t *Tracker) ApplyRoomState(tags map[string]string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = Apply(t.state, tags)
	return t.state
}

// State returns the current room state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// SetIdentity stores the most recent USERSTATE tag map verbatim. The relay
// does not echo our own PRIVMSGs back with full tags, so outgoing messages
// are synthesized locally from this snapshot.
func (t *Tracker) SetIdentity(tags map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.identity = maps.Clone(tags)
}

// Identity returns a copy of the cached USERSTATE tags, or nil if none has
// been seen yet.
func (t *Tracker) Identity() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.identity)
}
