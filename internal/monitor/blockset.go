package monitor

import (
	"maps"
	"sync"
)

// BlockSet is a concurrency safe set of Spotify artist ids.
type BlockSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewBlockSet creates a set holding ids.
func NewBlockSet(ids ...string) *BlockSet {
	b := &BlockSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id != "" {
			b.ids[id] = struct{}{}
		}
	}
	return b
}

// Replace swaps the contents for ids and reports whether membership changed.
func (b *BlockSet) Replace(ids []string) bool {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			next[id] = struct{}{}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	changed := !maps.Equal(b.ids, next)
	b.ids = next
	return changed
}

// Contains reports whether id is blocked.
func (b *BlockSet) Contains(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.ids[id]
	return ok
}

// AnyBlocked reports whether at least one of ids is blocked.
func (b *BlockSet) AnyBlocked(ids []string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, id := range ids {
		if _, ok := b.ids[id]; ok {
			return true
		}
	}
	return false
}

// Len returns the number of blocked artists.
func (b *BlockSet) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ids)
}
