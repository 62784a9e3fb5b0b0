package tui

import "testing"

func TestOverlayEntryGuards(t *testing.T) {
	cases := []struct {
		name    string
		from    sessionMode
		target  sessionMode
		allowed bool
	}{
		{"status from normal", modeNormal, modeOverlayStatus, true},
		{"status from search", modeSearch, modeOverlayStatus, false},
		{"status from focus", modeFocus, modeOverlayStatus, false},
		{"status from bulk action", modeOverlayBulkAction, modeOverlayStatus, true},
		{"create from normal", modeNormal, modeOverlayCreate, true},
		{"create from multi-select", modeMultiSelect, modeOverlayCreate, false},
		{"search from normal", modeNormal, modeSearch, true},
		{"search from detail", modeOverlayDetail, modeSearch, false},
		{"focus from normal", modeNormal, modeFocus, true},
		{"focus from multi-select", modeMultiSelect, modeFocus, false},
		{"bulk action from multi-select", modeMultiSelect, modeOverlayBulkAction, true},
		{"bulk action from normal", modeNormal, modeOverlayBulkAction, false},
		{"multi-select from normal", modeNormal, modeMultiSelect, true},
		{"multi-select reentry", modeMultiSelect, modeMultiSelect, true},
		{"multi-select from search", modeSearch, modeMultiSelect, false},
		{"confirm pick from normal", modeNormal, modeOverlayConfirmPick, true},
		{"confirm pick from search", modeSearch, modeOverlayConfirmPick, true},
		{"confirm pick from detail", modeOverlayDetail, modeOverlayConfirmPick, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := modeState{mode: tc.from}
			after := transition(before, enterMode(tc.target))
			if tc.allowed && after.mode != tc.target {
				t.Fatalf("transition rejected: %v -> %v stayed %v", tc.from, tc.target, after.mode)
			}
			if !tc.allowed && after != before {
				t.Fatalf("disallowed transition must return the same state, got %+v", after)
			}
		})
	}
}

func TestStatusFromBulkActionReturnsToMultiSelect(t *testing.T) {
	s := modeState{mode: modeNormal}
	s = transition(s, enterMode(modeMultiSelect))
	s = transition(s, enterMode(modeOverlayBulkAction))
	s = transition(s, enterMode(modeOverlayStatus))
	if s.mode != modeOverlayStatus {
		t.Fatalf("mode = %v, want status overlay", s.mode)
	}
	s = transition(s, modeEvent{kind: eventExitOverlay})
	if s.mode != modeMultiSelect {
		t.Fatalf("exit returned to %v, want multi-select", s.mode)
	}
}

func TestConfirmPickRestoresPreviousMode(t *testing.T) {
	s := modeState{mode: modeFocus}
	s = transition(s, enterMode(modeOverlayConfirmPick))
	s = transition(s, modeEvent{kind: eventExitOverlay})
	if s.mode != modeFocus {
		t.Fatalf("mode = %v, want focus restored", s.mode)
	}
}

func TestExitOverlayClosesHelpFirst(t *testing.T) {
	s := modeState{mode: modeOverlayDetail, helpVisible: true, previous: modeNormal}
	s = transition(s, modeEvent{kind: eventExitOverlay})
	if s.helpVisible {
		t.Fatal("help must close first")
	}
	if s.mode != modeOverlayDetail {
		t.Fatal("mode must stay while help closes")
	}
	s = transition(s, modeEvent{kind: eventExitOverlay})
	if s.mode != modeNormal {
		t.Fatalf("mode = %v, want normal", s.mode)
	}
}

func TestExitOverlayOutsideOverlayIsNoop(t *testing.T) {
	s := modeState{mode: modeMultiSelect}
	if got := transition(s, modeEvent{kind: eventExitOverlay}); got != s {
		t.Fatalf("exitOverlay in %v changed state to %+v", s.mode, got)
	}
}

func TestExitToNormalResetsEverything(t *testing.T) {
	s := modeState{mode: modeOverlayStatus, helpVisible: true, previous: modeMultiSelect}
	s = transition(s, modeEvent{kind: eventExitToNormal})
	if s.mode != modeNormal || s.helpVisible || s.previous != modeNormal {
		t.Fatalf("exitToNormal left %+v", s)
	}
}

func TestClearMultiSelectOnlyFromMultiSelect(t *testing.T) {
	s := transition(modeState{mode: modeMultiSelect}, modeEvent{kind: eventClearMultiSelect})
	if s.mode != modeNormal {
		t.Fatalf("mode = %v, want normal", s.mode)
	}
	s = transition(modeState{mode: modeSearch}, modeEvent{kind: eventClearMultiSelect})
	if s.mode != modeSearch {
		t.Fatal("clearMultiSelect outside multi-select must be a no-op")
	}
}

func TestToggleHelpNeverChangesMode(t *testing.T) {
	for _, mode := range []sessionMode{modeNormal, modeSearch, modeOverlayDetail, modeFocus} {
		s := transition(modeState{mode: mode}, modeEvent{kind: eventToggleHelp})
		if s.mode != mode || !s.helpVisible {
			t.Fatalf("toggleHelp in %v produced %+v", mode, s)
		}
	}
}

func TestDerivedPredicates(t *testing.T) {
	if !(modeState{mode: modeNormal}).canNavigate() ||
		!(modeState{mode: modeMultiSelect}).canNavigate() ||
		!(modeState{mode: modeFocus}).canNavigate() {
		t.Fatal("normal, multi-select, and focus must allow navigation")
	}
	if (modeState{mode: modeSearch}).canNavigate() {
		t.Fatal("search must not allow navigation")
	}
	if !(modeState{mode: modeNormal}).canAct() || (modeState{mode: modeMultiSelect}).canAct() {
		t.Fatal("only normal allows the full action-key set")
	}
	if !(modeState{mode: modeSearch}).isOverlay() || !(modeState{mode: modeOverlayComment}).isOverlay() {
		t.Fatal("search and overlays are overlay surfaces")
	}
	if (modeState{mode: modeFocus}).isOverlay() {
		t.Fatal("focus is not an overlay")
	}
}
