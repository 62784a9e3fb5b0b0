package app

import (
	"sync"
	"time"

	"github.com/raklev/havik/internal/board"
	"github.com/raklev/havik/internal/domain"
)

// Session owns the locally held raw payloads and the board tree built
// from them. It is the single writer for that state; every other
// component reads snapshots through its accessors. Optimistic patches
// rewrite the raw payload and rebuild, which is what moves an item
// between groups with zero latency while its id stays stable.
type Session struct {
	mu sync.RWMutex

	cfg       board.Config
	sections  []domain.RawSection
	streams   []domain.RawStream
	fetchedAt time.Time

	tree  domain.BoardTree
	items []domain.NavItem
}

// NewSession constructs a new value for this package.
func NewSession(cfg board.Config) *Session {
	return &Session{cfg: cfg}
}

// ApplyFetch replaces the raw payloads with a fresh provider fetch and
// rebuilds the tree.
func (s *Session) ApplyFetch(res domain.FetchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections = res.Sections
	s.streams = res.Streams
	s.fetchedAt = res.FetchedAt
	s.rebuild()
}

// Tree returns the current board tree snapshot.
func (s *Session) Tree() domain.BoardTree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree
}

// Items returns the current flattened nav-item list.
func (s *Session) Items() []domain.NavItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

// FetchedAt returns the timestamp of the last applied fetch.
func (s *Session) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// Resolve maps an entity id to its item and provider reference.
func (s *Session) Resolve(id string) (domain.Item, ItemRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for si := range s.sections {
		for ii := range s.sections[si].Items {
			if s.sections[si].Items[ii].ID == id {
				return s.sections[si].Items[ii], ItemRef{SourceID: s.sections[si].SourceID, ID: id}, true
			}
		}
	}
	for si := range s.streams {
		for ii := range s.streams[si].Items {
			if s.streams[si].Items[ii].ID == id {
				return s.streams[si].Items[ii], ItemRef{SourceID: s.streams[si].ID, ID: id}, true
			}
		}
	}
	return domain.Item{}, ItemRef{}, false
}

// PatchStatus optimistically rewrites an item's status and rebuilds.
// The previous status is returned for reconciliation bookkeeping.
func (s *Session) PatchStatus(id, status string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.locate(id)
	if item == nil {
		return "", false
	}
	prev := item.Status
	item.Status = status
	s.rebuild()
	return prev, true
}

// PatchAssignee optimistically rewrites an item's assignee.
func (s *Session) PatchAssignee(id, login string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.locate(id)
	if item == nil {
		return false
	}
	item.Assignee = login
	s.rebuild()
	return true
}

// PatchLabel optimistically adds or removes one label.
func (s *Session) PatchLabel(id, label string, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.locate(id)
	if item == nil {
		return false
	}
	labels := make([]string, 0, len(item.Labels)+1)
	for _, l := range item.Labels {
		if l != label {
			labels = append(labels, l)
		}
	}
	if add {
		labels = append(labels, label)
	}
	item.Labels = labels
	s.rebuild()
	return true
}

// RemoveItem optimistically drops an item (close) and rebuilds.
func (s *Session) RemoveItem(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := false
	for si := range s.sections {
		items := s.sections[si].Items[:0]
		for _, item := range s.sections[si].Items {
			if item.ID == id {
				removed = true
				continue
			}
			items = append(items, item)
		}
		s.sections[si].Items = items
	}
	for si := range s.streams {
		items := s.streams[si].Items[:0]
		for _, item := range s.streams[si].Items {
			if item.ID == id {
				removed = true
				continue
			}
			items = append(items, item)
		}
		s.streams[si].Items = items
	}
	if removed {
		s.rebuild()
	}
	return removed
}

// InsertItem optimistically appends a just-created item to its source.
func (s *Session) InsertItem(item domain.Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for si := range s.sections {
		if s.sections[si].SourceID == item.SourceID {
			s.sections[si].Items = append(s.sections[si].Items, item)
			s.rebuild()
			return true
		}
	}
	for si := range s.streams {
		if s.streams[si].ID == item.SourceID {
			s.streams[si].Items = append(s.streams[si].Items, item)
			s.rebuild()
			return true
		}
	}
	return false
}

// locate finds the mutable raw item for an id. Callers hold the lock.
func (s *Session) locate(id string) *domain.Item {
	for si := range s.sections {
		for ii := range s.sections[si].Items {
			if s.sections[si].Items[ii].ID == id {
				return &s.sections[si].Items[ii]
			}
		}
	}
	for si := range s.streams {
		for ii := range s.streams[si].Items {
			if s.streams[si].Items[ii].ID == id {
				return &s.streams[si].Items[ii]
			}
		}
	}
	return nil
}

// rebuild recomputes the tree and flattening. Callers hold the lock.
func (s *Session) rebuild() {
	s.tree = board.Build(s.cfg, s.sections, s.streams)
	s.items = board.Flatten(s.tree)
}
