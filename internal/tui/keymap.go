package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit          key.Binding
	reload        key.Binding
	toggleHelp    key.Binding
	moveUp        key.Binding
	moveDown      key.Binding
	nextSection   key.Binding
	prevSection   key.Binding
	toggleFold    key.Binding
	collapseAll   key.Binding
	expandAll     key.Binding
	search        key.Binding
	focus         key.Binding
	multiSelect   key.Binding
	bulkAction    key.Binding
	setStatus     key.Binding
	assign        key.Binding
	labels        key.Binding
	comment       key.Binding
	closeItem     key.Binding
	newItem       key.Binding
	newItemNL     key.Binding
	editItem      key.Binding
	itemDetail    key.Binding
	undo          key.Binding
	yank          key.Binding
	actionHistory key.Binding
	cancel        key.Binding
	confirm       key.Binding
}

// keyOverrides carries the user-remappable bindings.
type keyOverrides struct {
	MultiSelect string
	Undo        string
	Yank        string
}

// newKeyMap constructs key map.
func newKeyMap(overrides keyOverrides) keyMap {
	multiKey := overrides.MultiSelect
	if multiKey == "" {
		multiKey = "x"
	}
	undoKey := overrides.Undo
	if undoKey == "" {
		undoKey = "u"
	}
	yankKey := overrides.Yank
	if yankKey == "" {
		yankKey = "y"
	}
	return keyMap{
		quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveUp:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		moveDown:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		nextSection:   key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "next section")),
		prevSection:   key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "prev section")),
		toggleFold:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "fold section")),
		collapseAll:   key.NewBinding(key.WithKeys("Z"), key.WithHelp("Z", "collapse all")),
		expandAll:     key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "expand all")),
		search:        key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		focus:         key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "focus")),
		multiSelect:   key.NewBinding(key.WithKeys(multiKey), key.WithHelp(multiKey, "multi-select")),
		bulkAction:    key.NewBinding(key.WithKeys("."), key.WithHelp(".", "bulk action")),
		setStatus:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "set status")),
		assign:        key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "assign")),
		labels:        key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "labels")),
		comment:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "comment")),
		closeItem:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "close item")),
		newItem:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new item")),
		newItemNL:     key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "new from text")),
		editItem:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit title")),
		itemDetail:    key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "detail")),
		undo:          key.NewBinding(key.WithKeys(undoKey), key.WithHelp(undoKey, "undo")),
		yank:          key.NewBinding(key.WithKeys(yankKey), key.WithHelp(yankKey, "yank url")),
		actionHistory: key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "action history")),
		cancel:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		confirm:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.itemDetail, k.setStatus, k.multiSelect, k.search, k.undo, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.moveUp, k.moveDown, k.nextSection, k.prevSection, k.toggleFold, k.collapseAll, k.expandAll},
		{k.setStatus, k.assign, k.labels, k.comment, k.closeItem, k.newItem, k.newItemNL, k.editItem},
		{k.multiSelect, k.bulkAction, k.search, k.focus, k.itemDetail},
		{k.undo, k.yank, k.actionHistory, k.reload, k.toggleHelp, k.quit},
	}
}
