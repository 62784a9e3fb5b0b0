package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"

	"github.com/raklev/havik/internal/app"
	"github.com/raklev/havik/internal/board"
	"github.com/raklev/havik/internal/domain"
)

// pickerKind selects what the fuzzy-picker overlay is picking.
type pickerKind int

// pickerAssign and related constants define package defaults.
const (
	pickerAssign pickerKind = iota
	pickerCreateSource
)

// Deps bundles the session engine the shell drives.
type Deps struct {
	Session   *app.Session
	Orch      *app.Orchestrator
	Actions   *app.ActionLog
	Data      app.DataProvider
	Refresher *app.Refresher
	Details   *app.DetailCache
	Notices   <-chan app.Notice
}

// Option defines a functional option for model configuration.
type Option func(*Model)

// WithKeyOverrides remaps the user-configurable bindings.
func WithKeyOverrides(multiSelect, undo, yank string) Option {
	return func(m *Model) {
		m.keys = newKeyMap(keyOverrides{MultiSelect: multiSelect, Undo: undo, Yank: yank})
	}
}

// WithVersion sets the version shown in the title line.
func WithVersion(version string) Option {
	return func(m *Model) {
		m.version = version
	}
}

// loadedMsg signals the initial fetch settled.
type loadedMsg struct {
	err error
}

// actionMsg signals one orchestrator action settled; the session
// snapshot may have changed underneath the cursor. retry carries the
// ids a bulk action failed on, so they stay selected for another pass.
type actionMsg struct {
	retry []string
}

// refreshTickMsg fires the periodic background refresh.
type refreshTickMsg struct{}

// refreshDoneMsg signals one background refresh settled.
type refreshDoneMsg struct {
	err error
}

// detailMsg carries one comment-thread response with the generation
// captured when the load started.
type detailMsg struct {
	id       string
	gen      int
	comments []domain.Comment
	err      error
}

// noticeMsg carries one drained orchestrator notice.
type noticeMsg struct {
	notice app.Notice
	ok     bool
}

// Model is the Bubble Tea shell over the session engine: it owns the
// navigator, mode machine, and multi-select set, and translates key
// presses into orchestrator commands.
type Model struct {
	deps Deps

	ready  bool
	width  int
	height int
	err    error

	status      string
	statusLevel app.NoticeLevel

	help help.Model
	keys keyMap

	nav       *navigator
	modes     modeState
	selection *multiSelect

	tree domain.BoardTree

	input        textinput.Model
	searchQuery  string
	statusChoice []string
	statusIndex  int
	bulkIndex    int
	picker       pickerKind
	pickerItems  []string
	pickerIndex  int
	createSource string
	detailID     string
	confirmText  string
	confirmDo    func() tea.Cmd

	histVisible bool
	markdown    markdownRenderer
	version     string
}

// New constructs the shell model.
func New(deps Deps, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	in := textinput.New()
	in.Prompt = "> "
	in.CharLimit = 240

	m := Model{
		deps:      deps,
		status:    "loading...",
		help:      h,
		keys:      newKeyMap(keyOverrides{}),
		nav:       newNavigator(),
		selection: newMultiSelect(func(string) string { return "" }),
		input:     in,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadData, m.refreshTick())
}

// Update handles update.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.syncSnapshot()
		if m.status == "loading..." {
			m.setStatus("ready", app.NoticeInfo)
		}
		return m, m.drainNotice

	case actionMsg:
		m.syncSnapshot()
		if len(msg.retry) > 0 {
			m.reselectFailed(msg.retry)
		}
		return m, m.drainNotice

	case refreshTickMsg:
		return m, tea.Batch(m.backgroundRefresh, m.refreshTick())

	case refreshDoneMsg:
		if msg.err == nil {
			m.syncSnapshot()
		}
		return m, m.drainNotice

	case detailMsg:
		m.deps.Details.Resolve(msg.id, msg.gen, msg.comments, msg.err)
		return m, nil

	case noticeMsg:
		if !msg.ok {
			return m, nil
		}
		m.setStatus(msg.notice.Message, msg.notice.Level)
		// Keep draining until the channel is empty.
		return m, m.drainNotice

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// handleKey dispatches one key press according to the active mode.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	// Quit and help work everywhere except while typing into an input.
	if !m.inputActive() {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.toggleHelp):
			m.modes = transition(m.modes, modeEvent{kind: eventToggleHelp})
			return m, nil
		}
	}

	if m.modes.isOverlay() {
		return m.handleOverlayKey(msg)
	}
	return m.handleBoardKey(msg)
}

// handleBoardKey covers normal, multi-select, and focus modes.
func (m Model) handleBoardKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.modes.canNavigate() {
		switch {
		case key.Matches(msg, m.keys.moveUp):
			m.nav.moveUp()
			return m, nil
		case key.Matches(msg, m.keys.moveDown):
			m.nav.moveDown()
			return m, nil
		case key.Matches(msg, m.keys.nextSection):
			m.nav.nextSection()
			return m, nil
		case key.Matches(msg, m.keys.prevSection):
			m.nav.prevSection()
			return m, nil
		case key.Matches(msg, m.keys.toggleFold):
			m.nav.toggleSection()
			return m, nil
		case key.Matches(msg, m.keys.collapseAll):
			m.nav.collapseAll()
			return m, nil
		case key.Matches(msg, m.keys.expandAll):
			m.nav.expandAll()
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.cancel):
		switch m.modes.mode {
		case modeMultiSelect:
			m.modes = transition(m.modes, modeEvent{kind: eventClearMultiSelect})
			m.selection.clear()
		case modeFocus:
			m.modes = transition(m.modes, modeEvent{kind: eventExitToNormal})
		}
		return m, nil

	case key.Matches(msg, m.keys.multiSelect):
		item, ok := m.nav.selected()
		if !ok || item.Kind != domain.NavKindItem {
			return m, nil
		}
		m.modes = transition(m.modes, enterMode(modeMultiSelect))
		if m.modes.mode == modeMultiSelect {
			m.selection.toggle(item.ID)
			if m.selection.count() == 0 {
				m.modes = transition(m.modes, modeEvent{kind: eventClearMultiSelect})
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.bulkAction):
		prev := m.modes
		m.modes = transition(m.modes, enterMode(modeOverlayBulkAction))
		if m.modes != prev {
			m.bulkIndex = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.reload):
		if m.deps.Refresher != nil {
			m.deps.Refresher.Resume()
		}
		return m, m.loadData

	case key.Matches(msg, m.keys.undo):
		if !m.modes.canAct() {
			return m, nil
		}
		return m, m.action(func(ctx context.Context) {
			m.deps.Orch.UndoLast(ctx)
		})

	case key.Matches(msg, m.keys.actionHistory):
		m.histVisible = !m.histVisible
		return m, nil
	}

	if !m.modes.canAct() && m.modes.mode != modeFocus {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.focus):
		m.modes = transition(m.modes, enterMode(modeFocus))
		return m, nil
	}

	if !m.modes.canAct() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.search):
		prev := m.modes
		m.modes = transition(m.modes, enterMode(modeSearch))
		if m.modes != prev {
			m.searchQuery = ""
			return m, m.openInput("", "filter items")
		}
		return m, nil

	case key.Matches(msg, m.keys.setStatus):
		return m.openStatusOverlay()

	case key.Matches(msg, m.keys.assign):
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		prev := m.modes
		m.modes = transition(m.modes, enterMode(modeOverlayPicker))
		if m.modes != prev {
			m.picker = pickerAssign
			return m, m.openInput(item.Assignee, "login (empty unassigns)")
		}
		return m, nil

	case key.Matches(msg, m.keys.labels):
		if _, ok := m.selectedItem(); !ok {
			return m, nil
		}
		prev := m.modes
		m.modes = transition(m.modes, enterMode(modeOverlayLabels))
		if m.modes != prev {
			return m, m.openInput("", "label (-label removes)")
		}
		return m, nil

	case key.Matches(msg, m.keys.editItem):
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		prev := m.modes
		m.modes = transition(m.modes, enterMode(modeOverlayEdit))
		if m.modes != prev {
			return m, m.openInput(strings.Join(item.Labels, ", "), "comma-separated labels")
		}
		return m, nil

	case key.Matches(msg, m.keys.comment):
		if _, ok := m.selectedItem(); !ok {
			return m, nil
		}
		prev := m.modes
		m.modes = transition(m.modes, enterMode(modeOverlayComment))
		if m.modes != prev {
			return m, m.openInput("", "comment text")
		}
		return m, nil

	case key.Matches(msg, m.keys.closeItem):
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		id := item.ID
		m.confirmText = fmt.Sprintf("close %s?", id)
		m.confirmDo = func() tea.Cmd {
			return m.action(func(ctx context.Context) {
				_ = m.deps.Orch.Close(ctx, id)
			})
		}
		m.modes = transition(m.modes, enterMode(modeOverlayConfirmPick))
		return m, nil

	case key.Matches(msg, m.keys.newItem):
		sources := m.sectionSources()
		if len(sources) == 0 {
			m.setStatus("no sources to create in", app.NoticeWarn)
			return m, nil
		}
		if len(sources) == 1 {
			m.createSource = sources[0]
			prev := m.modes
			m.modes = transition(m.modes, enterMode(modeOverlayCreate))
			if m.modes != prev {
				return m, m.openInput("", "new item title")
			}
			return m, nil
		}
		prev := m.modes
		m.modes = transition(m.modes, enterMode(modeOverlayPicker))
		if m.modes != prev {
			m.picker = pickerCreateSource
			m.pickerItems = sources
			m.pickerIndex = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.newItemNL):
		sources := m.sectionSources()
		if len(sources) == 0 {
			m.setStatus("no sources to create in", app.NoticeWarn)
			return m, nil
		}
		m.createSource = sources[0]
		prev := m.modes
		m.modes = transition(m.modes, enterMode(modeOverlayCreateNL))
		if m.modes != prev {
			return m, m.openInput("", "title #label !status")
		}
		return m, nil

	case key.Matches(msg, m.keys.itemDetail):
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		prev := m.modes
		m.modes = transition(m.modes, enterMode(modeOverlayDetail))
		if m.modes != prev {
			m.detailID = item.ID
			if gen, start := m.deps.Details.EnsureLoaded(item.ID); start {
				return m, m.loadDetail(item.ID, gen)
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.yank):
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		ref := item.URL
		if ref == "" {
			ref = item.ID
		}
		if err := clipboard.WriteAll(ref); err != nil {
			m.setStatus("clipboard: "+err.Error(), app.NoticeWarn)
		} else {
			m.setStatus("yanked "+ref, app.NoticeInfo)
		}
		return m, nil
	}

	return m, nil
}

// handleOverlayKey covers every overlay plus search.
func (m Model) handleOverlayKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.cancel) {
		m.dismissOverlay()
		return m, nil
	}

	switch m.modes.mode {
	case modeSearch:
		if key.Matches(msg, m.keys.confirm) {
			m.searchQuery = strings.TrimSpace(m.input.Value())
			m.jumpToFirstMatch()
			m.dismissOverlay()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.searchQuery = strings.TrimSpace(m.input.Value())
		return m, cmd

	case modeOverlayStatus:
		switch {
		case key.Matches(msg, m.keys.moveUp):
			if m.statusIndex > 0 {
				m.statusIndex--
			}
			return m, nil
		case key.Matches(msg, m.keys.moveDown):
			if m.statusIndex < len(m.statusChoice)-1 {
				m.statusIndex++
			}
			return m, nil
		case key.Matches(msg, m.keys.confirm):
			return m.applyStatusChoice()
		}
		return m, nil

	case modeOverlayBulkAction:
		switch {
		case key.Matches(msg, m.keys.moveUp):
			if m.bulkIndex > 0 {
				m.bulkIndex--
			}
			return m, nil
		case key.Matches(msg, m.keys.moveDown):
			if m.bulkIndex < 1 {
				m.bulkIndex++
			}
			return m, nil
		case key.Matches(msg, m.keys.confirm):
			if m.bulkIndex == 0 {
				return m.openStatusOverlay()
			}
			m.modes = transition(m.modes, modeEvent{kind: eventExitOverlay})
			m.modes = transition(m.modes, modeEvent{kind: eventClearMultiSelect})
			m.selection.clear()
			return m, nil
		}
		return m, nil

	case modeOverlayConfirmPick:
		if key.Matches(msg, m.keys.confirm) {
			do := m.confirmDo
			m.confirmDo = nil
			m.dismissOverlay()
			if do != nil {
				return m, do()
			}
			return m, nil
		}
		return m, nil

	case modeOverlayPicker:
		return m.handlePickerKey(msg)

	case modeOverlayDetail:
		if key.Matches(msg, m.keys.reload) {
			m.deps.Details.Invalidate(m.detailID)
			if gen, start := m.deps.Details.EnsureLoaded(m.detailID); start {
				return m, m.loadDetail(m.detailID, gen)
			}
		}
		return m, nil

	case modeOverlayCreate, modeOverlayCreateNL, modeOverlayLabels,
		modeOverlayEdit, modeOverlayComment:
		if key.Matches(msg, m.keys.confirm) {
			return m.submitInputOverlay()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handlePickerKey drives the fuzzy-picker overlay.
func (m Model) handlePickerKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.picker == pickerAssign {
		if key.Matches(msg, m.keys.confirm) {
			item, ok := m.selectedItem()
			if !ok {
				m.dismissOverlay()
				return m, nil
			}
			login := strings.TrimSpace(m.input.Value())
			id := item.ID
			prevAssignee := item.Assignee
			m.dismissOverlay()
			if login == "" && prevAssignee == "" {
				return m, nil
			}
			return m, m.action(func(ctx context.Context) {
				if login == "" {
					_ = m.deps.Orch.Unassign(ctx, id, prevAssignee)
					return
				}
				_ = m.deps.Orch.Assign(ctx, id, login)
			})
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	// Source picker for the create flow.
	switch {
	case key.Matches(msg, m.keys.moveUp):
		if m.pickerIndex > 0 {
			m.pickerIndex--
		}
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		if m.pickerIndex < len(m.pickerItems)-1 {
			m.pickerIndex++
		}
		return m, nil
	case key.Matches(msg, m.keys.confirm):
		if m.pickerIndex >= 0 && m.pickerIndex < len(m.pickerItems) {
			m.createSource = m.pickerItems[m.pickerIndex]
		}
		m.dismissOverlay()
		m.modes = transition(m.modes, enterMode(modeOverlayCreate))
		return m, m.openInput("", "new item title")
	}
	return m, nil
}

// submitInputOverlay applies the text-input overlays that dispatch one
// orchestrator action on confirm.
func (m Model) submitInputOverlay() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	mode := m.modes.mode
	m.dismissOverlay()
	if value == "" {
		return m, nil
	}

	switch mode {
	case modeOverlayCreate:
		source := m.createSource
		return m, m.action(func(ctx context.Context) {
			_ = m.deps.Orch.Create(ctx, source, domain.ItemInput{Title: value})
		})

	case modeOverlayCreateNL:
		source := m.createSource
		in := parseQuickCreate(value)
		return m, m.action(func(ctx context.Context) {
			_ = m.deps.Orch.Create(ctx, source, in)
		})

	case modeOverlayLabels:
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		id := item.ID
		remove := strings.HasPrefix(value, "-")
		label := strings.TrimSpace(strings.TrimPrefix(value, "-"))
		if label == "" {
			return m, nil
		}
		return m, m.action(func(ctx context.Context) {
			if remove {
				_ = m.deps.Orch.RemoveLabel(ctx, id, label)
				return
			}
			_ = m.deps.Orch.AddLabel(ctx, id, label)
		})

	case modeOverlayEdit:
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		id := item.ID
		added, removed := diffLabels(item.Labels, value)
		if len(added) == 0 && len(removed) == 0 {
			return m, nil
		}
		return m, m.action(func(ctx context.Context) {
			for _, label := range removed {
				_ = m.deps.Orch.RemoveLabel(ctx, id, label)
			}
			for _, label := range added {
				_ = m.deps.Orch.AddLabel(ctx, id, label)
			}
		})

	case modeOverlayComment:
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		id := item.ID
		return m, m.action(func(ctx context.Context) {
			_ = m.deps.Orch.Comment(ctx, id, value)
		})
	}
	return m, nil
}

// openStatusOverlay enters the status picker for the cursor item or,
// from the bulk menu, for the whole selection.
func (m Model) openStatusOverlay() (tea.Model, tea.Cmd) {
	var sectionID string
	if m.modes.mode == modeOverlayBulkAction {
		ids := m.selection.ids()
		if len(ids) == 0 {
			return m, nil
		}
		_, owner, ok := m.tree.Item(ids[0])
		if !ok {
			return m, nil
		}
		sectionID = owner
	} else {
		item, ok := m.nav.selected()
		if !ok || item.Kind != domain.NavKindItem {
			return m, nil
		}
		sectionID = item.SectionID
	}

	choices := m.sectionStatuses(sectionID)
	if len(choices) == 0 {
		m.setStatus("no statuses available", app.NoticeWarn)
		return m, nil
	}
	prev := m.modes
	m.modes = transition(m.modes, enterMode(modeOverlayStatus))
	if m.modes == prev {
		return m, nil
	}
	m.statusChoice = choices
	m.statusIndex = 0
	return m, nil
}

// applyStatusChoice dispatches the picked status as a single or bulk
// mutation depending on where the picker was opened from.
func (m Model) applyStatusChoice() (tea.Model, tea.Cmd) {
	if m.statusIndex < 0 || m.statusIndex >= len(m.statusChoice) {
		m.dismissOverlay()
		return m, nil
	}
	status := m.statusChoice[m.statusIndex]
	bulk := m.modes.previous == modeMultiSelect
	m.dismissOverlay()

	if bulk {
		ids := m.selection.ids()
		if len(ids) == 0 {
			return m, nil
		}
		m.modes = transition(m.modes, modeEvent{kind: eventClearMultiSelect})
		m.selection.clear()
		return m, m.bulkAction(func(ctx context.Context) []string {
			return m.deps.Orch.ChangeStatusBulk(ctx, ids, status)
		})
	}

	item, ok := m.nav.selected()
	if !ok || item.Kind != domain.NavKindItem {
		return m, nil
	}
	id := item.ID
	return m, m.action(func(ctx context.Context) {
		_ = m.deps.Orch.ChangeStatus(ctx, id, status)
	})
}

// dismissOverlay pops the active overlay, restoring the mode beneath.
func (m *Model) dismissOverlay() {
	m.modes = transition(m.modes, modeEvent{kind: eventExitOverlay})
	m.input.Blur()
	m.input.SetValue("")
}

// openInput focuses the shared text input for an overlay.
func (m *Model) openInput(value, placeholder string) tea.Cmd {
	m.input.SetValue(value)
	m.input.Placeholder = placeholder
	return m.input.Focus()
}

// inputActive reports whether key presses go to the text input.
func (m Model) inputActive() bool {
	switch m.modes.mode {
	case modeSearch, modeOverlayCreate, modeOverlayCreateNL, modeOverlayLabels,
		modeOverlayEdit, modeOverlayComment:
		return true
	case modeOverlayPicker:
		return m.picker == pickerAssign
	}
	return false
}

// syncSnapshot pulls the latest tree out of the session and reconciles
// the navigator and selection against it.
func (m *Model) syncSnapshot() {
	m.tree = m.deps.Session.Tree()
	items := m.deps.Session.Items()
	m.nav.setItems(items)
	m.selection.setLookup(board.SectionFor(items))

	valid := make(map[string]struct{})
	for _, item := range items {
		if item.Kind == domain.NavKindItem {
			valid[item.ID] = struct{}{}
		}
	}
	m.selection.prune(valid)
	if m.modes.mode == modeMultiSelect && m.selection.count() == 0 {
		m.modes = transition(m.modes, modeEvent{kind: eventClearMultiSelect})
	}
}

// selectedItem resolves the cursor to a full item when it sits on one.
func (m Model) selectedItem() (domain.Item, bool) {
	nav, ok := m.nav.selected()
	if !ok || nav.Kind != domain.NavKindItem {
		return domain.Item{}, false
	}
	item, _, ok := m.tree.Item(nav.ID)
	return item, ok
}

// sectionSources lists the grouped sources items can be created in.
func (m Model) sectionSources() []string {
	out := make([]string, 0, len(m.tree.Sections))
	for _, section := range m.tree.Sections {
		if section.Err == "" {
			out = append(out, section.SourceID)
		}
	}
	return out
}

// sectionStatuses lists the distinct status names a section's groups
// cover, in group order.
func (m Model) sectionStatuses(sectionID string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, section := range m.tree.Sections {
		if section.ID != sectionID {
			continue
		}
		for _, group := range section.Groups {
			for _, status := range group.Statuses {
				folded := domain.NormalizeStatus(status)
				if _, ok := seen[folded]; ok {
					continue
				}
				seen[folded] = struct{}{}
				out = append(out, status)
			}
		}
	}
	return out
}

// jumpToFirstMatch moves the cursor to the first visible item whose
// title contains the search query.
func (m *Model) jumpToFirstMatch() {
	query := strings.ToLower(m.searchQuery)
	if query == "" {
		return
	}
	for _, nav := range m.nav.visibleItems() {
		if nav.Kind != domain.NavKindItem {
			continue
		}
		item, _, ok := m.tree.Item(nav.ID)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(item.Title), query) {
			m.nav.selectID(nav.ID)
			return
		}
	}
	m.setStatus(fmt.Sprintf("no match for %q", m.searchQuery), app.NoticeWarn)
}

// setStatus updates the status line.
func (m *Model) setStatus(text string, level app.NoticeLevel) {
	m.status = text
	m.statusLevel = level
}

// loadData performs a blocking foreground fetch.
func (m Model) loadData() tea.Msg {
	return loadedMsg{err: m.deps.Orch.Refetch(context.Background())}
}

// refreshTick schedules the next background refresh.
func (m Model) refreshTick() tea.Cmd {
	interval := 30 * time.Second
	if m.deps.Refresher != nil {
		interval = m.deps.Refresher.Interval()
	}
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

// backgroundRefresh runs one guarded refresh cycle.
func (m Model) backgroundRefresh() tea.Msg {
	if m.deps.Refresher == nil || !m.deps.Refresher.Begin() {
		return refreshDoneMsg{}
	}
	err := m.deps.Orch.Refetch(context.Background())
	m.deps.Refresher.Finish(err)
	return refreshDoneMsg{err: err}
}

// action wraps one orchestrator call into a command.
func (m Model) action(fn func(context.Context)) tea.Cmd {
	return func() tea.Msg {
		fn(context.Background())
		return actionMsg{}
	}
}

// bulkAction wraps one bulk orchestrator call; the failed subset rides
// the settlement message back to the shell.
func (m Model) bulkAction(fn func(context.Context) []string) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{retry: fn(context.Background())}
	}
}

// reselectFailed re-enters multi-select with the ids a bulk action
// failed on, so the next attempt targets exactly those items. Skipped
// when another mode took over while the action settled.
func (m *Model) reselectFailed(ids []string) {
	next := transition(m.modes, enterMode(modeMultiSelect))
	if next.mode != modeMultiSelect {
		return
	}
	m.modes = next
	for _, id := range ids {
		if !m.selection.has(id) {
			m.selection.toggle(id)
		}
	}
	if m.selection.count() == 0 {
		m.modes = transition(m.modes, modeEvent{kind: eventClearMultiSelect})
	}
}

// loadDetail fetches the comment thread for one item.
func (m Model) loadDetail(id string, gen int) tea.Cmd {
	return func() tea.Msg {
		_, ref, ok := m.deps.Session.Resolve(id)
		if !ok {
			return detailMsg{id: id, gen: gen, err: fmt.Errorf("item %s no longer visible", id)}
		}
		comments, err := m.deps.Data.Comments(context.Background(), ref)
		return detailMsg{id: id, gen: gen, comments: comments, err: err}
	}
}

// drainNotice pulls one queued orchestrator notice, if any.
func (m Model) drainNotice() tea.Msg {
	if m.deps.Notices == nil {
		return noticeMsg{}
	}
	select {
	case n := <-m.deps.Notices:
		return noticeMsg{notice: n, ok: true}
	default:
		return noticeMsg{}
	}
}

// parseQuickCreate splits "title #label !status" quick-create text.
func parseQuickCreate(text string) domain.ItemInput {
	var in domain.ItemInput
	var titleParts []string
	for _, tok := range strings.Fields(text) {
		switch {
		case strings.HasPrefix(tok, "#") && len(tok) > 1:
			in.Labels = append(in.Labels, tok[1:])
		case strings.HasPrefix(tok, "!") && len(tok) > 1:
			in.Status = tok[1:]
		default:
			titleParts = append(titleParts, tok)
		}
	}
	in.Title = strings.Join(titleParts, " ")
	return in
}

// diffLabels compares the current labels with a comma-separated edit.
func diffLabels(current []string, edited string) (added, removed []string) {
	want := make(map[string]string)
	for _, label := range strings.Split(edited, ",") {
		label = strings.TrimSpace(label)
		if label != "" {
			want[strings.ToLower(label)] = label
		}
	}
	have := make(map[string]string)
	for _, label := range current {
		have[strings.ToLower(label)] = label
	}
	for folded, label := range want {
		if _, ok := have[folded]; !ok {
			added = append(added, label)
		}
	}
	for folded, label := range have {
		if _, ok := want[folded]; !ok {
			removed = append(removed, label)
		}
	}
	sortStable(added)
	sortStable(removed)
	return added, removed
}

// sortStable orders a string slice for deterministic rendering.
func sortStable(values []string) {
	sort.Strings(values)
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
