package tui

// sessionMode represents a selectable mode.
type sessionMode int

// modeNormal and related constants define package defaults.
const (
	modeNormal sessionMode = iota
	modeMultiSelect
	modeSearch
	modeFocus
	modeOverlayStatus
	modeOverlayCreate
	modeOverlayCreateNL
	modeOverlayLabels
	modeOverlayBulkAction
	modeOverlayConfirmPick
	modeOverlayEdit
	modeOverlayPicker
	modeOverlayComment
	modeOverlayDetail
)

// modeLabels names each mode for the status line.
var modeLabels = map[sessionMode]string{
	modeNormal:             "normal",
	modeMultiSelect:        "multi-select",
	modeSearch:             "search",
	modeFocus:              "focus",
	modeOverlayStatus:      "status",
	modeOverlayCreate:      "create",
	modeOverlayCreateNL:    "create-nl",
	modeOverlayLabels:      "labels",
	modeOverlayBulkAction:  "bulk-action",
	modeOverlayConfirmPick: "confirm",
	modeOverlayEdit:        "edit",
	modeOverlayPicker:      "picker",
	modeOverlayComment:     "comment",
	modeOverlayDetail:      "detail",
}

// modeState is the tagged-union interaction state: the current mode,
// the help flag layered orthogonally on top of it, and the mode to
// restore when the active overlay is dismissed.
type modeState struct {
	mode        sessionMode
	helpVisible bool
	previous    sessionMode
}

// modeEventKind represents a selectable mode.
type modeEventKind int

// eventEnter and related constants define package defaults.
const (
	eventEnter modeEventKind = iota
	eventExitOverlay
	eventExitToNormal
	eventClearMultiSelect
	eventToggleHelp
)

// modeEvent is one requested transition.
type modeEvent struct {
	kind   modeEventKind
	target sessionMode
}

// enterMode builds an entry event for the target mode.
func enterMode(target sessionMode) modeEvent {
	return modeEvent{kind: eventEnter, target: target}
}

// transition applies one event to the mode state. Disallowed
// transitions return the state unchanged: input races during rapid key
// entry must never corrupt state, so rejection is a silent no-op.
func transition(s modeState, ev modeEvent) modeState {
	switch ev.kind {
	case eventEnter:
		return enterTransition(s, ev.target)

	case eventExitOverlay:
		if s.helpVisible {
			s.helpVisible = false
			return s
		}
		if !isOverlayMode(s.mode) {
			return s
		}
		s.mode = s.previous
		s.previous = modeNormal
		return s

	case eventExitToNormal:
		return modeState{mode: modeNormal}

	case eventClearMultiSelect:
		if s.mode != modeMultiSelect {
			return s
		}
		s.mode = modeNormal
		return s

	case eventToggleHelp:
		s.helpVisible = !s.helpVisible
		return s
	}
	return s
}

// enterTransition guards entry into a target mode.
func enterTransition(s modeState, target sessionMode) modeState {
	switch target {
	case modeNormal:
		return s

	case modeMultiSelect:
		// Reachable from normal, re-enterable from itself.
		if s.mode != modeNormal && s.mode != modeMultiSelect {
			return s
		}
		s.mode = modeMultiSelect
		return s

	case modeOverlayConfirmPick:
		// The unconditional post-action prompt: reachable from any
		// mode, restoring whatever was active underneath.
		s.previous = s.mode
		s.mode = modeOverlayConfirmPick
		return s

	case modeOverlayBulkAction:
		if s.mode != modeMultiSelect {
			return s
		}
		s.previous = modeMultiSelect
		s.mode = modeOverlayBulkAction
		return s

	case modeOverlayStatus:
		// Additionally reachable from the bulk-action menu, so the
		// subsequent exit returns to multi-select, not normal.
		if s.mode == modeOverlayBulkAction {
			s.previous = modeMultiSelect
			s.mode = modeOverlayStatus
			return s
		}
		if s.mode != modeNormal {
			return s
		}
		s.previous = modeNormal
		s.mode = modeOverlayStatus
		return s

	default:
		// Remaining overlays, search, and focus: from normal only.
		if s.mode != modeNormal {
			return s
		}
		s.previous = modeNormal
		s.mode = target
		return s
	}
}

// canNavigate reports whether cursor movement keys apply.
func (s modeState) canNavigate() bool {
	return s.mode == modeNormal || s.mode == modeMultiSelect || s.mode == modeFocus
}

// canAct reports whether the full action-key set applies.
func (s modeState) canAct() bool {
	return s.mode == modeNormal
}

// isOverlay reports whether a modal surface is covering the board.
func (s modeState) isOverlay() bool {
	return isOverlayMode(s.mode)
}

// isOverlayMode treats search like the overlay family: both capture
// text input and suppress board keys.
func isOverlayMode(mode sessionMode) bool {
	switch mode {
	case modeSearch, modeOverlayStatus, modeOverlayCreate, modeOverlayCreateNL,
		modeOverlayLabels, modeOverlayBulkAction, modeOverlayConfirmPick,
		modeOverlayEdit, modeOverlayPicker, modeOverlayComment, modeOverlayDetail:
		return true
	}
	return false
}

// label names the mode for the status line.
func (s modeState) label() string {
	if name, ok := modeLabels[s.mode]; ok {
		return name
	}
	return "normal"
}
