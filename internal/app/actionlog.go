package app

import (
	"context"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/raklev/havik/internal/domain"
)

// Action log retention: the ring keeps the last logKeep entries while
// the shell only ever displays the last logShow.
const (
	logKeep = 10
	logShow = 5
)

// ActionLog is the bounded, undoable action history. Entries are
// created pending at action time and resolved to a terminal status
// once the provider responds; resolved entries are mirrored to the
// store best-effort.
type ActionLog struct {
	mu      sync.Mutex
	entries []domain.ActionEntry
	store   ActionStore
	logger  *charmLog.Logger
	clock   func() time.Time
}

// NewActionLog constructs a new value for this package. A nil store
// keeps the log purely in-memory.
func NewActionLog(store ActionStore, logger *charmLog.Logger) *ActionLog {
	if logger == nil {
		logger = charmLog.Default()
	}
	return &ActionLog{store: store, logger: logger.With("component", "actionlog"), clock: time.Now}
}

// Begin records a pending entry and returns its id.
func (l *ActionLog) Begin(description string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := domain.ActionEntry{
		ID:          uuid.NewString(),
		Description: description,
		Status:      domain.ActionPending,
		At:          l.clock().UTC(),
	}
	l.entries = append(l.entries, entry)
	if len(l.entries) > logKeep {
		l.entries = append([]domain.ActionEntry(nil), l.entries[len(l.entries)-logKeep:]...)
	}
	return entry.ID
}

// Resolve settles a pending entry with its terminal status and the
// undo/retry callables it carries forward. The settled entry is
// persisted best-effort; a store failure never surfaces.
func (l *ActionLog) Resolve(ctx context.Context, id string, status domain.ActionStatus, undo domain.UndoFunc, retry func()) {
	l.mu.Lock()
	var settled *domain.ActionEntry
	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries[i].Status = status
			l.entries[i].Undo = undo
			l.entries[i].Retry = retry
			settled = &l.entries[i]
			break
		}
	}
	var persist domain.ActionEntry
	if settled != nil {
		persist = *settled
	}
	l.mu.Unlock()

	if settled == nil || l.store == nil {
		return
	}
	if err := l.store.Append(ctx, persist); err != nil {
		l.logger.Debug("persist action entry failed", "id", id, "err", err)
	}
}

// TakeUndoable returns the most recent entry still carrying an undo
// thunk and strips the thunk in place, so the undo cannot be repeated
// before it completes.
func (l *ActionLog) TakeUndoable() (domain.ActionEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Undo != nil {
			entry := l.entries[i]
			l.entries[i].Undo = nil
			return entry, true
		}
	}
	return domain.ActionEntry{}, false
}

// Recent returns the most recent entries, newest first, capped at the
// display window.
func (l *ActionLog) Recent() []domain.ActionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.entries)
	show := logShow
	if show > n {
		show = n
	}
	out := make([]domain.ActionEntry, 0, show)
	for i := n - 1; i >= n-show; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// All returns the full retained ring, newest first.
func (l *ActionLog) All() []domain.ActionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.ActionEntry, 0, len(l.entries))
	for i := len(l.entries) - 1; i >= 0; i-- {
		out = append(out, l.entries[i])
	}
	return out
}
