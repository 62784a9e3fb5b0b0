package app

import (
	"context"

	"github.com/raklev/havik/internal/domain"
)

// ItemRef addresses one entity within its originating source; mutation
// side effects are keyed off it rather than "the currently selected
// entity" so a call settling after the user moved on stays correct.
type ItemRef struct {
	SourceID string
	ID       string
}

// MutationResult carries the optional warning and undo callable a
// provider returns for a settled mutation.
type MutationResult struct {
	Warning string
	Undo    domain.UndoFunc
}

// DataProvider is the abstract fetch side of the remote clients. The
// pending-mutation hooks bracket optimistic windows so a refresh
// landing mid-mutation does not clobber the local patch.
type DataProvider interface {
	Fetch(context.Context) (domain.FetchResult, error)
	Comments(context.Context, ItemRef) ([]domain.Comment, error)
	RegisterPendingMutation(key string)
	ClearPendingMutation(key string)
}

// MutationProvider is the abstract write side: one call per action
// kind. Each call either resolves, possibly with a warning, or fails
// with an error whose message is surfaced verbatim.
type MutationProvider interface {
	SetStatus(ctx context.Context, ref ItemRef, status string) (MutationResult, error)
	Assign(ctx context.Context, ref ItemRef, login string) (MutationResult, error)
	Unassign(ctx context.Context, ref ItemRef, login string) (MutationResult, error)
	AddLabel(ctx context.Context, ref ItemRef, label string) (MutationResult, error)
	RemoveLabel(ctx context.Context, ref ItemRef, label string) (MutationResult, error)
	AddComment(ctx context.Context, ref ItemRef, body string) (MutationResult, error)
	CloseItem(ctx context.Context, ref ItemRef) (MutationResult, error)
	CreateItem(ctx context.Context, sourceID string, in domain.ItemInput) (domain.Item, MutationResult, error)
}

// ActionStore mirrors the action log to durable storage, append-only.
// Store failures are swallowed by the log; the in-memory ring stays
// authoritative for the session.
type ActionStore interface {
	Append(context.Context, domain.ActionEntry) error
	ListRecent(context.Context, int) ([]domain.ActionEntry, error)
}
