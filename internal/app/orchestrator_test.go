package app

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/raklev/havik/internal/board"
	"github.com/raklev/havik/internal/domain"
)

// fakeData serves a canned fetch payload and counts fetches.
type fakeData struct {
	mu         sync.Mutex
	result     domain.FetchResult
	fetchErr   error
	fetchCalls int
	pending    map[string]int
	comments   map[string][]domain.Comment
}

func newFakeData(result domain.FetchResult) *fakeData {
	return &fakeData{result: result, pending: map[string]int{}, comments: map[string][]domain.Comment{}}
}

func (f *fakeData) Fetch(context.Context) (domain.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return domain.FetchResult{}, f.fetchErr
	}
	return f.result, nil
}

func (f *fakeData) Comments(_ context.Context, ref ItemRef) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comments[ref.ID], nil
}

func (f *fakeData) RegisterPendingMutation(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[key]++
}

func (f *fakeData) ClearPendingMutation(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[key]--
}

func (f *fakeData) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

// fakeMut records mutation calls and fails the ids it is told to.
type fakeMut struct {
	mu        sync.Mutex
	failIDs   map[string]error
	warning   string
	calls     []string
	undone    []string
	undoErr   error
	created   domain.Item
	createErr error
}

func newFakeMut() *fakeMut {
	return &fakeMut{failIDs: map[string]error{}}
}

func (f *fakeMut) record(kind string, ref ItemRef) (MutationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, kind+":"+ref.ID)
	if err, ok := f.failIDs[ref.ID]; ok {
		return MutationResult{}, err
	}
	id := ref.ID
	return MutationResult{
		Warning: f.warning,
		Undo: func(context.Context) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.undone = append(f.undone, kind+":"+id)
			return f.undoErr
		},
	}, nil
}

func (f *fakeMut) SetStatus(_ context.Context, ref ItemRef, status string) (MutationResult, error) {
	return f.record("status", ref)
}

func (f *fakeMut) Assign(_ context.Context, ref ItemRef, login string) (MutationResult, error) {
	return f.record("assign", ref)
}

func (f *fakeMut) Unassign(_ context.Context, ref ItemRef, login string) (MutationResult, error) {
	return f.record("unassign", ref)
}

func (f *fakeMut) AddLabel(_ context.Context, ref ItemRef, label string) (MutationResult, error) {
	return f.record("label", ref)
}

func (f *fakeMut) RemoveLabel(_ context.Context, ref ItemRef, label string) (MutationResult, error) {
	return f.record("unlabel", ref)
}

func (f *fakeMut) AddComment(_ context.Context, ref ItemRef, body string) (MutationResult, error) {
	return f.record("comment", ref)
}

func (f *fakeMut) CloseItem(_ context.Context, ref ItemRef) (MutationResult, error) {
	return f.record("close", ref)
}

func (f *fakeMut) CreateItem(_ context.Context, sourceID string, in domain.ItemInput) (domain.Item, MutationResult, error) {
	if f.createErr != nil {
		return domain.Item{}, MutationResult{}, f.createErr
	}
	return f.created, MutationResult{}, nil
}

func (f *fakeMut) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func fixtureResult() domain.FetchResult {
	items := []domain.Item{
		{ID: "issue:acme/api#1", SourceID: "acme/api", Title: "one", Status: "Todo"},
		{ID: "issue:acme/api#2", SourceID: "acme/api", Title: "two", Status: "Todo"},
		{ID: "issue:acme/api#3", SourceID: "acme/api", Title: "three", Status: "Todo"},
	}
	return domain.FetchResult{
		Sections:  []domain.RawSection{{SourceID: "acme/api", Name: "acme/api", Items: items}},
		FetchedAt: time.Unix(1700000000, 0),
	}
}

type harness struct {
	session *Session
	data    *fakeData
	mut     *fakeMut
	log     *ActionLog
	orch    *Orchestrator
	notices []Notice
}

func newHarness(t *testing.T, completion []CompletionRule) *harness {
	t.Helper()
	h := &harness{
		session: NewSession(board.Config{TerminalStatuses: []string{"Done"}}),
		data:    newFakeData(fixtureResult()),
		mut:     newFakeMut(),
		log:     NewActionLog(nil, nil),
	}
	h.orch = NewOrchestrator(h.session, h.data, h.mut, h.log,
		func(n Notice) { h.notices = append(h.notices, n) }, completion, nil)
	h.session.ApplyFetch(fixtureResult())
	return h
}

func TestChangeStatusSuccessNoRefetch(t *testing.T) {
	h := newHarness(t, nil)
	before := h.data.fetchCount()

	if err := h.orch.ChangeStatus(context.Background(), "issue:acme/api#1", "In Progress"); err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}
	if got := h.data.fetchCount(); got != before {
		t.Fatalf("fetch count changed %d -> %d; success must not refetch", before, got)
	}
	item, _, ok := h.session.Resolve("issue:acme/api#1")
	if !ok || item.Status != "In Progress" {
		t.Fatalf("optimistic patch lost: %+v", item)
	}
	entries := h.log.Recent()
	if len(entries) == 0 || entries[0].Status != domain.ActionSuccess {
		t.Fatalf("expected success entry, got %+v", entries)
	}
}

func TestChangeStatusFailureRefetchesOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.mut.failIDs["issue:acme/api#1"] = errors.New("api: permission denied")
	before := h.data.fetchCount()

	err := h.orch.ChangeStatus(context.Background(), "issue:acme/api#1", "In Progress")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := h.data.fetchCount(); got != before+1 {
		t.Fatalf("fetch count = %d, want exactly one revert refetch", got-before)
	}
	item, _, _ := h.session.Resolve("issue:acme/api#1")
	if item.Status != "Todo" {
		t.Fatalf("optimistic patch not reverted: %+v", item)
	}
	var sawError bool
	for _, n := range h.notices {
		if n.Level == NoticeError && n.Message == "api: permission denied" {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("provider error not surfaced verbatim: %+v", h.notices)
	}
	entries := h.log.Recent()
	if entries[0].Status != domain.ActionError || entries[0].Retry == nil {
		t.Fatalf("expected error entry with retry, got %+v", entries[0])
	}
}

func TestChangeStatusUnresolvedIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.orch.ChangeStatus(context.Background(), "issue:gone#9", "Done"); err != nil {
		t.Fatalf("unresolved id must be a no-op, got %v", err)
	}
	if h.mut.callCount() != 0 {
		t.Fatal("no provider call expected")
	}
}

func TestBulkPartialFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.mut.failIDs["issue:acme/api#2"] = errors.New("boom")
	before := h.data.fetchCount()

	ids := []string{"issue:acme/api#1", "issue:acme/api#2", "issue:acme/api#3"}
	failed := h.orch.ChangeStatusBulk(context.Background(), ids, "In Progress")

	if !reflect.DeepEqual(failed, []string{"issue:acme/api#2"}) {
		t.Fatalf("failed = %v, want just the second id", failed)
	}
	if got := h.data.fetchCount(); got != before+1 {
		t.Fatalf("fetch count = %d, want exactly one aggregate refetch", got-before)
	}
	// The refetch reverted everything to the canned payload; the two
	// successful mutations were still dispatched.
	if h.mut.callCount() != 3 {
		t.Fatalf("mutation calls = %d, want 3", h.mut.callCount())
	}
	errorNotices := 0
	for _, n := range h.notices {
		if n.Level == NoticeError {
			errorNotices++
		}
	}
	if errorNotices != 1 {
		t.Fatalf("error notices = %d, want one aggregate", errorNotices)
	}
}

func TestBulkFullSuccessNoRefetch(t *testing.T) {
	h := newHarness(t, nil)
	before := h.data.fetchCount()
	failed := h.orch.ChangeStatusBulk(context.Background(), []string{"issue:acme/api#1", "issue:acme/api#3"}, "In Progress")
	if failed != nil {
		t.Fatalf("failed = %v, want none", failed)
	}
	if got := h.data.fetchCount(); got != before {
		t.Fatal("fully successful batch must not refetch")
	}
	for _, id := range []string{"issue:acme/api#1", "issue:acme/api#3"} {
		item, _, _ := h.session.Resolve(id)
		if item.Status != "In Progress" {
			t.Fatalf("%s status = %q, want patched", id, item.Status)
		}
	}
}

func TestCompletionRuleRunsUnderSameEntry(t *testing.T) {
	h := newHarness(t, []CompletionRule{{Status: "Done", Action: CompletionClose}})

	if err := h.orch.ChangeStatus(context.Background(), "issue:acme/api#1", "Done"); err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}
	h.mut.mu.Lock()
	calls := append([]string(nil), h.mut.calls...)
	h.mut.mu.Unlock()
	want := []string{"status:issue:acme/api#1", "close:issue:acme/api#1"}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	if _, _, ok := h.session.Resolve("issue:acme/api#1"); ok {
		t.Fatal("close completion must remove the item locally")
	}
	// One gesture, one log entry.
	if entries := h.log.All(); len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
}

func TestUndoLastStripsThunkAndRunsOnce(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.orch.ChangeStatus(context.Background(), "issue:acme/api#1", "In Progress"); err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}

	h.orch.UndoLast(context.Background())
	h.mut.mu.Lock()
	undone := append([]string(nil), h.mut.undone...)
	h.mut.mu.Unlock()
	if !reflect.DeepEqual(undone, []string{"status:issue:acme/api#1"}) {
		t.Fatalf("undone = %v", undone)
	}

	// Second undo finds nothing: the thunk was stripped.
	notices := len(h.notices)
	h.orch.UndoLast(context.Background())
	if h.notices[notices].Message != "nothing to undo" {
		t.Fatalf("expected no-op notice, got %+v", h.notices[notices])
	}
}

func TestUndoFailureRefetches(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.orch.ChangeStatus(context.Background(), "issue:acme/api#1", "In Progress"); err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}
	h.mut.undoErr = errors.New("undo rejected")
	before := h.data.fetchCount()
	h.orch.UndoLast(context.Background())
	if got := h.data.fetchCount(); got != before+1 {
		t.Fatalf("fetch count = %d, want one reconcile refetch", got-before)
	}
}

func TestPendingMutationHooksBracketPatch(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.orch.ChangeStatus(context.Background(), "issue:acme/api#1", "In Progress"); err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}
	h.data.mu.Lock()
	defer h.data.mu.Unlock()
	if h.data.pending["issue:acme/api#1"] != 0 {
		t.Fatal("pending mutation key not cleared after settlement")
	}
}

func TestCreateInsertsProviderMintedItem(t *testing.T) {
	h := newHarness(t, nil)
	h.mut.created = domain.Item{ID: "issue:acme/api#4", SourceID: "acme/api", Title: "four", Status: "Todo"}
	if err := h.orch.Create(context.Background(), "acme/api", domain.ItemInput{Title: "four"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, _, ok := h.session.Resolve("issue:acme/api#4"); !ok {
		t.Fatal("created item missing from session")
	}
}

func TestWarningSurfacedAsNotice(t *testing.T) {
	h := newHarness(t, nil)
	h.mut.warning = "rate limit almost exhausted"
	if err := h.orch.Assign(context.Background(), "issue:acme/api#1", "lin"); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	found := false
	for _, n := range h.notices {
		if n.Level == NoticeWarn && n.Message == "rate limit almost exhausted" {
			found = true
		}
	}
	if !found {
		t.Fatalf("warning not surfaced: %+v", h.notices)
	}
}

func TestCursorNavDataAfterOptimisticPatch(t *testing.T) {
	// An optimistic status change moves the item to a new group while
	// its id stays present in the rebuilt flattening.
	h := newHarness(t, nil)
	if err := h.orch.ChangeStatus(context.Background(), "issue:acme/api#2", "In Progress"); err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}
	ids := make([]string, 0)
	for _, item := range h.session.Items() {
		if item.Kind == domain.NavKindItem {
			ids = append(ids, item.ID)
		}
	}
	sort.Strings(ids)
	want := []string{"issue:acme/api#1", "issue:acme/api#2", "issue:acme/api#3"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("items after patch = %v", ids)
	}
	found := false
	for _, item := range h.session.Items() {
		if item.ID == "issue:acme/api#2" && item.ParentGroupID == "sub:acme/api:In Progress" {
			found = true
		}
	}
	if !found {
		t.Fatal("patched item did not move to its new group")
	}
}
