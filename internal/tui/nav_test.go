package tui

import (
	"reflect"
	"testing"

	"github.com/raklev/havik/internal/domain"
)

func header(id string) domain.NavItem {
	return domain.NavItem{ID: id, SectionID: id, Kind: domain.NavKindHeader}
}

func subHeader(id, sectionID string) domain.NavItem {
	return domain.NavItem{ID: id, SectionID: sectionID, Kind: domain.NavKindSubHeader}
}

func navItem(id, sectionID, groupID string) domain.NavItem {
	return domain.NavItem{ID: id, SectionID: sectionID, Kind: domain.NavKindItem, ParentGroupID: groupID}
}

func boardItems() []domain.NavItem {
	return []domain.NavItem{
		header("sec:a"),
		subHeader("sub:a:Backlog", "sec:a"),
		navItem("issue:a#1", "sec:a", "sub:a:Backlog"),
		navItem("issue:a#2", "sec:a", "sub:a:Backlog"),
		subHeader("sub:a:In Progress", "sec:a"),
		navItem("issue:a#3", "sec:a", "sub:a:In Progress"),
		header("sec:b"),
		subHeader("sub:b:Todo", "sec:b"),
		navItem("issue:b#1", "sec:b", "sub:b:Todo"),
	}
}

func TestCursorSurvivesGroupMove(t *testing.T) {
	nav := newNavigator()
	nav.setItems(boardItems())
	nav.selectID("issue:a#2")

	// The item moves from Backlog to In Progress on an optimistic
	// status change; the cursor must stay on it.
	reshuffled := []domain.NavItem{
		header("sec:a"),
		subHeader("sub:a:Backlog", "sec:a"),
		navItem("issue:a#1", "sec:a", "sub:a:Backlog"),
		subHeader("sub:a:In Progress", "sec:a"),
		navItem("issue:a#3", "sec:a", "sub:a:In Progress"),
		navItem("issue:a#2", "sec:a", "sub:a:In Progress"),
		header("sec:b"),
	}
	nav.setItems(reshuffled)
	if nav.selectedID != "issue:a#2" {
		t.Fatalf("cursor = %q, want issue:a#2", nav.selectedID)
	}
}

func TestCursorSurvivesSectionMove(t *testing.T) {
	nav := newNavigator()
	nav.setItems(boardItems())
	nav.selectID("issue:a#1")

	nav.setItems([]domain.NavItem{
		header("sec:b"),
		subHeader("sub:b:Todo", "sec:b"),
		navItem("issue:a#1", "sec:b", "sub:b:Todo"),
	})
	if nav.selectedID != "issue:a#1" {
		t.Fatalf("cursor = %q, want issue:a#1", nav.selectedID)
	}
}

func TestFallbackOrder(t *testing.T) {
	full := []domain.NavItem{
		header("h_a"),
		navItem("a1", "h_a", ""),
		navItem("a2", "h_a", ""),
		header("h_b"),
	}
	nav := newNavigator()
	nav.setItems(full)
	nav.selectID("a1")

	// a1 removed, a2 remains: first remaining item in the section.
	nav.setItems([]domain.NavItem{header("h_a"), navItem("a2", "h_a", ""), header("h_b")})
	if nav.selectedID != "a2" {
		t.Fatalf("fallback = %q, want a2", nav.selectedID)
	}

	// Both items removed: the section's own header.
	nav.setItems([]domain.NavItem{header("h_a"), header("h_b")})
	if nav.selectedID != "h_a" {
		t.Fatalf("fallback = %q, want h_a", nav.selectedID)
	}

	// Whole section gone: first remaining header.
	nav.setItems([]domain.NavItem{header("h_b")})
	if nav.selectedID != "h_b" {
		t.Fatalf("fallback = %q, want h_b", nav.selectedID)
	}

	// Empty list resolves to nothing.
	nav.setItems(nil)
	if nav.selectedID != "" {
		t.Fatalf("fallback = %q, want empty", nav.selectedID)
	}
}

func TestFallbackPrefersItemOverHeader(t *testing.T) {
	nav := newNavigator()
	nav.setItems([]domain.NavItem{header("h_a"), navItem("a1", "h_a", "")})
	nav.selectID("a1")
	nav.setItems([]domain.NavItem{navItem("b1", "h_b", "")})
	if nav.selectedID != "b1" {
		t.Fatalf("fallback = %q, want first item when no headers survive", nav.selectedID)
	}
}

func TestMoveClampsAtBoundaries(t *testing.T) {
	nav := newNavigator()
	nav.setItems(boardItems())
	nav.selectID("sec:a")
	nav.moveUp()
	if nav.selectedID != "sec:a" {
		t.Fatal("moveUp at top must be a no-op")
	}
	nav.selectID("issue:b#1")
	nav.moveDown()
	if nav.selectedID != "issue:b#1" {
		t.Fatal("moveDown at bottom must be a no-op")
	}
	nav.selectID("issue:a#2")
	nav.moveDown()
	if nav.selectedID != "sub:a:In Progress" {
		t.Fatalf("moveDown = %q, want next visible entry", nav.selectedID)
	}
}

func TestSectionJumps(t *testing.T) {
	nav := newNavigator()
	nav.setItems(boardItems())
	nav.selectID("issue:a#1")
	nav.nextSection()
	if nav.selectedID != "sec:b" {
		t.Fatalf("nextSection = %q, want sec:b", nav.selectedID)
	}
	nav.nextSection()
	if nav.selectedID != "sec:b" {
		t.Fatal("nextSection past the end must be a no-op")
	}
	nav.selectID("issue:b#1")
	nav.prevSection()
	if nav.selectedID != "sec:b" {
		t.Fatalf("prevSection = %q, want own section header first", nav.selectedID)
	}
	nav.prevSection()
	if nav.selectedID != "sec:a" {
		t.Fatalf("prevSection = %q, want sec:a", nav.selectedID)
	}
}

func TestToggleSectionHidesAndRestoresExactly(t *testing.T) {
	nav := newNavigator()
	nav.setItems(boardItems())
	before := append([]domain.NavItem(nil), nav.visibleItems()...)

	nav.selectID("sec:a")
	nav.toggleSection()
	for _, item := range nav.visibleItems() {
		if item.SectionID == "sec:a" && item.Kind != domain.NavKindHeader {
			t.Fatalf("collapsed section still shows %q", item.ID)
		}
	}
	nav.toggleSection()
	if !reflect.DeepEqual(nav.visibleItems(), before) {
		t.Fatal("second toggle must restore exactly the prior visible set")
	}
}

func TestToggleSubHeaderHidesOnlyItsItems(t *testing.T) {
	nav := newNavigator()
	nav.setItems(boardItems())
	nav.selectID("sub:a:Backlog")
	nav.toggleSection()

	visible := nav.visibleItems()
	if indexOf(visible, "issue:a#1") >= 0 || indexOf(visible, "issue:a#2") >= 0 {
		t.Fatal("collapsed sub-header still shows its items")
	}
	if indexOf(visible, "issue:a#3") < 0 {
		t.Fatal("sibling group items must stay visible")
	}
}

func TestCollapseAllRelocatesCursorToAncestor(t *testing.T) {
	nav := newNavigator()
	nav.setItems(boardItems())
	nav.selectID("issue:b#1")
	nav.collapseAll()
	if nav.selectedID != "sec:b" {
		t.Fatalf("cursor = %q, want nearest visible ancestor sec:b", nav.selectedID)
	}
}

func TestVisibleItemsMemoized(t *testing.T) {
	nav := newNavigator()
	nav.setItems(boardItems())
	first := nav.visibleItems()
	second := nav.visibleItems()
	if &first[0] != &second[0] {
		t.Fatal("visibleItems must be memoized between mutations")
	}
	nav.toggleCollapse("sec:a")
	third := nav.visibleItems()
	if len(third) == len(first) {
		t.Fatal("collapse must invalidate the memo")
	}
}
