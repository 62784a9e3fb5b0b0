package domain

import (
	"context"
	"time"
)

// ActionStatus represents a selectable mode.
type ActionStatus string

// ActionPending and related constants define package defaults.
const (
	ActionPending ActionStatus = "pending"
	ActionSuccess ActionStatus = "success"
	ActionError   ActionStatus = "error"
)

// UndoFunc reverses one settled mutation.
type UndoFunc func(context.Context) error

// ActionEntry is one record of the undoable action history. Undo is
// stripped the moment an undo begins so the entry cannot be undone
// twice; Retry re-dispatches a failed action.
type ActionEntry struct {
	ID          string
	Description string
	Status      ActionStatus
	At          time.Time
	Undo        UndoFunc
	Retry       func()
}
