package app

import (
	"context"
	"fmt"
	"strings"

	charmLog "github.com/charmbracelet/log"
	"github.com/raklev/havik/internal/domain"
)

// NoticeLevel represents a selectable mode.
type NoticeLevel string

// NoticeInfo and related constants define package defaults.
const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notice is one user-facing notification emitted by the orchestrator.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// CompletionAction represents a selectable mode.
type CompletionAction string

// CompletionClose and related constants define package defaults.
const (
	CompletionClose  CompletionAction = "close"
	CompletionLabel  CompletionAction = "label"
	CompletionStatus CompletionAction = "status"
)

// CompletionRule maps a terminal-like status to the extra action the
// orchestrator performs alongside the primary status mutation, both
// covered by the same action-log entry.
type CompletionRule struct {
	Status string
	Action CompletionAction
	Arg    string
}

// Orchestrator translates user actions plus the current selection into
// provider calls: optimistic patch first, provider call second,
// reconciliation strictly after that call settles. A successful
// mutation never triggers a refetch (the remote side may be only
// eventually consistent); a failed one triggers exactly one.
type Orchestrator struct {
	session    *Session
	data       DataProvider
	mut        MutationProvider
	log        *ActionLog
	notify     func(Notice)
	completion []CompletionRule
	logger     *charmLog.Logger
}

// NewOrchestrator constructs a new value for this package.
func NewOrchestrator(session *Session, data DataProvider, mut MutationProvider, log *ActionLog, notify func(Notice), completion []CompletionRule, logger *charmLog.Logger) *Orchestrator {
	if notify == nil {
		notify = func(Notice) {}
	}
	if logger == nil {
		logger = charmLog.Default()
	}
	return &Orchestrator{
		session:    session,
		data:       data,
		mut:        mut,
		log:        log,
		notify:     notify,
		completion: completion,
		logger:     logger.With("component", "orchestrator"),
	}
}

// Refetch runs a full provider fetch and applies it, discarding any
// optimistic patches.
func (o *Orchestrator) Refetch(ctx context.Context) error {
	res, err := o.data.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	o.session.ApplyFetch(res)
	return nil
}

// ChangeStatus applies the single-entity mutation protocol for one
// status change, including any configured completion side effect. An
// id that resolves to no live entity is a no-op.
func (o *Orchestrator) ChangeStatus(ctx context.Context, id, status string) error {
	if _, _, ok := o.session.Resolve(id); !ok {
		return nil
	}
	entryID := o.log.Begin(fmt.Sprintf("set status %q on %s", status, id))
	undo, err := o.applyStatus(ctx, id, status)
	if err != nil {
		retry := func() { _ = o.ChangeStatus(context.Background(), id, status) }
		o.log.Resolve(ctx, entryID, domain.ActionError, nil, retry)
		o.failAndRevert(ctx, err)
		return err
	}
	o.log.Resolve(ctx, entryID, domain.ActionSuccess, undo, nil)
	o.notify(Notice{Level: NoticeInfo, Message: fmt.Sprintf("status set to %q", status)})
	return nil
}

// ChangeStatusBulk applies the status change to every id
// independently and returns the ids that failed, so the caller can
// keep them selected for a retry pass. When any id fails, exactly one
// refetch reverts all failed patches at once; a fully successful batch
// triggers none.
func (o *Orchestrator) ChangeStatusBulk(ctx context.Context, ids []string, status string) []string {
	if len(ids) == 0 {
		return nil
	}
	entryID := o.log.Begin(fmt.Sprintf("set status %q on %d items", status, len(ids)))
	var failed []string
	var undos []domain.UndoFunc
	var firstErr error
	for _, id := range ids {
		if _, _, ok := o.session.Resolve(id); !ok {
			continue
		}
		undo, err := o.applyStatus(ctx, id, status)
		if err != nil {
			failed = append(failed, id)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		undos = append(undos, undo)
	}

	if len(failed) > 0 {
		o.log.Resolve(ctx, entryID, domain.ActionError, combineUndo(undos), nil)
		o.failAndRevert(ctx, fmt.Errorf("%d of %d failed: %w", len(failed), len(ids), firstErr))
		return failed
	}
	o.log.Resolve(ctx, entryID, domain.ActionSuccess, combineUndo(undos), nil)
	o.notify(Notice{Level: NoticeInfo, Message: fmt.Sprintf("status set to %q on %d items", status, len(ids))})
	return nil
}

// applyStatus runs steps 2-3 for one id: optimistic patch, provider
// call, plus the configured completion action under the same logical
// operation. It never refetches; settlement policy is the caller's.
func (o *Orchestrator) applyStatus(ctx context.Context, id, status string) (domain.UndoFunc, error) {
	_, ref, ok := o.session.Resolve(id)
	if !ok {
		return nil, nil
	}
	o.data.RegisterPendingMutation(id)
	defer o.data.ClearPendingMutation(id)

	o.session.PatchStatus(id, status)
	res, err := o.mut.SetStatus(ctx, ref, status)
	if err != nil {
		return nil, err
	}
	o.warn(res.Warning)
	undos := []domain.UndoFunc{res.Undo}

	if rule, ok := o.completionFor(status); ok {
		extraUndo, err := o.applyCompletion(ctx, id, ref, rule)
		if err != nil {
			return nil, err
		}
		undos = append(undos, extraUndo)
	}
	return combineUndo(undos), nil
}

// applyCompletion performs the configured terminal side effect.
func (o *Orchestrator) applyCompletion(ctx context.Context, id string, ref ItemRef, rule CompletionRule) (domain.UndoFunc, error) {
	switch rule.Action {
	case CompletionClose:
		o.session.RemoveItem(id)
		res, err := o.mut.CloseItem(ctx, ref)
		if err != nil {
			return nil, err
		}
		o.warn(res.Warning)
		return res.Undo, nil
	case CompletionLabel:
		o.session.PatchLabel(id, rule.Arg, true)
		res, err := o.mut.AddLabel(ctx, ref, rule.Arg)
		if err != nil {
			return nil, err
		}
		o.warn(res.Warning)
		return res.Undo, nil
	case CompletionStatus:
		o.session.PatchStatus(id, rule.Arg)
		res, err := o.mut.SetStatus(ctx, ref, rule.Arg)
		if err != nil {
			return nil, err
		}
		o.warn(res.Warning)
		return res.Undo, nil
	}
	return nil, nil
}

// Assign applies the single-entity protocol for an assignment.
func (o *Orchestrator) Assign(ctx context.Context, id, login string) error {
	return o.simple(ctx, id, fmt.Sprintf("assign %s to %s", id, login),
		func() { o.session.PatchAssignee(id, login) },
		func(ref ItemRef) (MutationResult, error) { return o.mut.Assign(ctx, ref, login) },
	)
}

// Unassign applies the single-entity protocol for an unassignment.
func (o *Orchestrator) Unassign(ctx context.Context, id, login string) error {
	return o.simple(ctx, id, fmt.Sprintf("unassign %s from %s", login, id),
		func() { o.session.PatchAssignee(id, "") },
		func(ref ItemRef) (MutationResult, error) { return o.mut.Unassign(ctx, ref, login) },
	)
}

// AddLabel applies the single-entity protocol for adding a label.
func (o *Orchestrator) AddLabel(ctx context.Context, id, label string) error {
	return o.simple(ctx, id, fmt.Sprintf("label %s with %q", id, label),
		func() { o.session.PatchLabel(id, label, true) },
		func(ref ItemRef) (MutationResult, error) { return o.mut.AddLabel(ctx, ref, label) },
	)
}

// RemoveLabel applies the single-entity protocol for removing a label.
func (o *Orchestrator) RemoveLabel(ctx context.Context, id, label string) error {
	return o.simple(ctx, id, fmt.Sprintf("unlabel %q from %s", label, id),
		func() { o.session.PatchLabel(id, label, false) },
		func(ref ItemRef) (MutationResult, error) { return o.mut.RemoveLabel(ctx, ref, label) },
	)
}

// Comment posts one comment. There is no local comment state to patch
// optimistically; the detail cache is invalidated by the caller.
func (o *Orchestrator) Comment(ctx context.Context, id, body string) error {
	return o.simple(ctx, id, fmt.Sprintf("comment on %s", id),
		func() {},
		func(ref ItemRef) (MutationResult, error) { return o.mut.AddComment(ctx, ref, body) },
	)
}

// Close applies the single-entity protocol for closing an item.
func (o *Orchestrator) Close(ctx context.Context, id string) error {
	return o.simple(ctx, id, fmt.Sprintf("close %s", id),
		func() { o.session.RemoveItem(id) },
		func(ref ItemRef) (MutationResult, error) { return o.mut.CloseItem(ctx, ref) },
	)
}

// Create asks the provider for a new entity and inserts it locally.
// Creation has no optimistic phase: the provider mints the stable id.
func (o *Orchestrator) Create(ctx context.Context, sourceID string, in domain.ItemInput) error {
	entryID := o.log.Begin(fmt.Sprintf("create %q in %s", in.Title, sourceID))
	item, res, err := o.mut.CreateItem(ctx, sourceID, in)
	if err != nil {
		retry := func() { _ = o.Create(context.Background(), sourceID, in) }
		o.log.Resolve(ctx, entryID, domain.ActionError, nil, retry)
		o.notify(Notice{Level: NoticeError, Message: err.Error()})
		return err
	}
	o.warn(res.Warning)
	o.session.InsertItem(item)
	o.log.Resolve(ctx, entryID, domain.ActionSuccess, res.Undo, nil)
	o.notify(Notice{Level: NoticeInfo, Message: fmt.Sprintf("created %s", item.ID)})
	return nil
}

// UndoLast executes the most recent undoable entry's thunk. The thunk
// is stripped before execution so undo itself cannot be repeated; a
// failing undo reconciles through a refetch.
func (o *Orchestrator) UndoLast(ctx context.Context) {
	entry, ok := o.log.TakeUndoable()
	if !ok {
		o.notify(Notice{Level: NoticeInfo, Message: "nothing to undo"})
		return
	}
	if err := entry.Undo(ctx); err != nil {
		o.failAndRevert(ctx, fmt.Errorf("undo %s: %w", entry.Description, err))
		return
	}
	if err := o.Refetch(ctx); err != nil {
		o.logger.Warn("refetch after undo failed", "err", err)
	}
	o.notify(Notice{Level: NoticeInfo, Message: "undid: " + entry.Description})
}

// simple runs the single-entity protocol with one patch and one call.
func (o *Orchestrator) simple(ctx context.Context, id, description string, patch func(), call func(ItemRef) (MutationResult, error)) error {
	_, ref, ok := o.session.Resolve(id)
	if !ok {
		return nil
	}
	entryID := o.log.Begin(description)
	o.data.RegisterPendingMutation(id)
	defer o.data.ClearPendingMutation(id)

	patch()
	res, err := call(ref)
	if err != nil {
		o.log.Resolve(ctx, entryID, domain.ActionError, nil, nil)
		o.failAndRevert(ctx, err)
		return err
	}
	o.warn(res.Warning)
	o.log.Resolve(ctx, entryID, domain.ActionSuccess, res.Undo, nil)
	o.notify(Notice{Level: NoticeInfo, Message: description})
	return nil
}

// failAndRevert reverts incorrect optimistic state through one full
// refetch and surfaces the provider error verbatim.
func (o *Orchestrator) failAndRevert(ctx context.Context, cause error) {
	if err := o.Refetch(ctx); err != nil {
		o.logger.Warn("revert refetch failed", "err", err)
	}
	o.notify(Notice{Level: NoticeError, Message: cause.Error()})
}

// warn surfaces a provider warning when present.
func (o *Orchestrator) warn(message string) {
	if strings.TrimSpace(message) != "" {
		o.notify(Notice{Level: NoticeWarn, Message: message})
	}
}

// completionFor finds the completion rule for a status, if any.
func (o *Orchestrator) completionFor(status string) (CompletionRule, bool) {
	for _, rule := range o.completion {
		if domain.NormalizeStatus(rule.Status) == domain.NormalizeStatus(status) {
			return rule, true
		}
	}
	return CompletionRule{}, false
}

// combineUndo folds per-call undo callables into one thunk, skipping
// calls that support no undo. Nil when nothing is undoable.
func combineUndo(undos []domain.UndoFunc) domain.UndoFunc {
	live := make([]domain.UndoFunc, 0, len(undos))
	for _, u := range undos {
		if u != nil {
			live = append(live, u)
		}
	}
	if len(live) == 0 {
		return nil
	}
	return func(ctx context.Context) error {
		// Reverse order: the last side effect is unwound first.
		for i := len(live) - 1; i >= 0; i-- {
			if err := live[i](ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
