package app

import (
	"sync"

	"github.com/raklev/havik/internal/domain"
)

// DetailState represents a selectable mode.
type DetailState int

// DetailNotFetched and related constants define package defaults.
const (
	DetailNotFetched DetailState = iota
	DetailLoading
	DetailLoaded
	DetailFailed
)

// Detail is the memoized load state of one entity's on-demand data
// (discussion comments), keyed by entity id.
type Detail struct {
	State    DetailState
	Comments []domain.Comment
	Err      string
}

// DetailCache populates details through explicit EnsureLoaded calls.
// Each fetch captures a generation at start; a response carrying a
// stale generation is discarded rather than applied, so a reply
// landing after the user navigated away (and the entry was
// invalidated) never resurfaces.
type DetailCache struct {
	mu      sync.Mutex
	entries map[string]Detail
	gens    map[string]int
}

// NewDetailCache constructs a new value for this package.
func NewDetailCache() *DetailCache {
	return &DetailCache{entries: map[string]Detail{}, gens: map[string]int{}}
}

// Get returns the current detail state for an id; unknown ids report
// NotFetched.
func (c *DetailCache) Get(id string) Detail {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[id]
}

// EnsureLoaded transitions a NotFetched id to Loading and returns the
// fetch generation plus whether the caller should start a fetch. Ids
// already loading, loaded, or failed start nothing.
func (c *DetailCache) EnsureLoaded(id string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry := c.entries[id]; entry.State != DetailNotFetched {
		return c.gens[id], false
	}
	c.gens[id]++
	c.entries[id] = Detail{State: DetailLoading}
	return c.gens[id], true
}

// Resolve applies a fetch response unless its generation is stale.
func (c *DetailCache) Resolve(id string, gen int, comments []domain.Comment, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[id] != gen {
		return
	}
	if entry := c.entries[id]; entry.State != DetailLoading {
		return
	}
	if err != nil {
		c.entries[id] = Detail{State: DetailFailed, Err: err.Error()}
		return
	}
	c.entries[id] = Detail{State: DetailLoaded, Comments: comments}
}

// Invalidate forgets an id so the next EnsureLoaded refetches; the
// bumped generation cancels any response still in flight.
func (c *DetailCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.gens[id]++
}
