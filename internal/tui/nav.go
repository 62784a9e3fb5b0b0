package tui

import "github.com/raklev/havik/internal/domain"

// navigator owns the collapse-aware traversal order over the board's
// nav items and the single selected-entity cursor. None of its
// operations can fail; out-of-range requests are clamped.
type navigator struct {
	items      []domain.NavItem
	collapsed  map[string]struct{}
	selectedID string

	memoDirty   bool
	memoVisible []domain.NavItem
}

// newNavigator constructs a new value for this package.
func newNavigator() *navigator {
	return &navigator{collapsed: map[string]struct{}{}, memoDirty: true}
}

// setItems swaps the underlying nav-item list and reconciles the
// cursor: a surviving id is kept unconditionally, even when the entity
// moved to a different group or section; otherwise the fallback chain
// runs against the previously selected section.
func (n *navigator) setItems(items []domain.NavItem) {
	oldSectionID := ""
	if cur, ok := n.find(n.selectedID); ok {
		oldSectionID = cur.SectionID
	}
	n.items = items
	n.memoDirty = true
	if _, ok := n.find(n.selectedID); ok {
		return
	}
	n.selectedID = findFallback(items, oldSectionID)
}

// visibleItems returns the item list filtered to exclude entries whose
// owning header or sub-header is collapsed. Memoized until the items
// or the collapsed set change.
func (n *navigator) visibleItems() []domain.NavItem {
	if !n.memoDirty {
		return n.memoVisible
	}
	visible := make([]domain.NavItem, 0, len(n.items))
	for _, item := range n.items {
		switch item.Kind {
		case domain.NavKindHeader:
			visible = append(visible, item)
		case domain.NavKindSubHeader:
			if !n.isCollapsed(item.SectionID) {
				visible = append(visible, item)
			}
		case domain.NavKindItem:
			if !n.isCollapsed(item.SectionID) && !n.isCollapsed(item.ParentGroupID) {
				visible = append(visible, item)
			}
		}
	}
	n.memoVisible = visible
	n.memoDirty = false
	return visible
}

// moveUp moves the cursor to the previous visible entry; no-op at the
// top boundary.
func (n *navigator) moveUp() {
	n.moveBy(-1)
}

// moveDown moves the cursor to the next visible entry; no-op at the
// bottom boundary.
func (n *navigator) moveDown() {
	n.moveBy(1)
}

// moveBy shifts the cursor within the visible flattening.
func (n *navigator) moveBy(delta int) {
	visible := n.visibleItems()
	if len(visible) == 0 {
		return
	}
	idx := indexOf(visible, n.selectedID)
	if idx < 0 {
		n.selectedID = visible[0].ID
		return
	}
	next := idx + delta
	if next < 0 || next >= len(visible) {
		return
	}
	n.selectedID = visible[next].ID
}

// nextSection jumps the cursor to the next section header in visible
// order; no-op past the end.
func (n *navigator) nextSection() {
	visible := n.visibleItems()
	idx := indexOf(visible, n.selectedID)
	for i := idx + 1; i < len(visible); i++ {
		if visible[i].Kind == domain.NavKindHeader {
			n.selectedID = visible[i].ID
			return
		}
	}
}

// prevSection jumps the cursor to the previous section header in
// visible order; no-op past the start.
func (n *navigator) prevSection() {
	visible := n.visibleItems()
	idx := indexOf(visible, n.selectedID)
	if idx < 0 {
		idx = len(visible)
	}
	for i := idx - 1; i >= 0; i-- {
		if visible[i].Kind == domain.NavKindHeader {
			n.selectedID = visible[i].ID
			return
		}
	}
}

// toggleSection toggles collapse for the whole section when the cursor
// sits on its header, or for just that sub-header's items when it sits
// on a sub-header. A cursor hidden by the toggle relocates to its
// nearest visible ancestor header.
func (n *navigator) toggleSection() {
	cur, ok := n.find(n.selectedID)
	if !ok {
		return
	}
	switch cur.Kind {
	case domain.NavKindHeader, domain.NavKindSubHeader:
		n.toggleCollapse(cur.ID)
	}
	n.relocateHidden()
}

// collapseAll collapses every section. A cursor inside a now-hidden
// subtree relocates to that subtree's nearest visible ancestor header,
// never silently back to index 0.
func (n *navigator) collapseAll() {
	for _, item := range n.items {
		if item.Kind == domain.NavKindHeader {
			n.collapsed[item.ID] = struct{}{}
		}
	}
	n.memoDirty = true
	n.relocateHidden()
}

// expandAll clears every collapse, header and sub-header alike.
func (n *navigator) expandAll() {
	if len(n.collapsed) == 0 {
		return
	}
	n.collapsed = map[string]struct{}{}
	n.memoDirty = true
}

// selectID sets the cursor directly (cross-cutting jump).
func (n *navigator) selectID(id string) {
	if _, ok := n.find(id); ok {
		n.selectedID = id
	}
}

// selectedIndex returns the cursor's position in the visible
// flattening, or -1 when nothing resolves.
func (n *navigator) selectedIndex() int {
	return indexOf(n.visibleItems(), n.selectedID)
}

// selected returns the nav item under the cursor.
func (n *navigator) selected() (domain.NavItem, bool) {
	return n.find(n.selectedID)
}

// collapsedSet exposes a read-only snapshot of collapsed ids.
func (n *navigator) collapsedSet() map[string]struct{} {
	out := make(map[string]struct{}, len(n.collapsed))
	for id := range n.collapsed {
		out[id] = struct{}{}
	}
	return out
}

// toggleCollapse flips one collapse entry.
func (n *navigator) toggleCollapse(id string) {
	if _, ok := n.collapsed[id]; ok {
		delete(n.collapsed, id)
	} else {
		n.collapsed[id] = struct{}{}
	}
	n.memoDirty = true
}

// isCollapsed reports whether an id is in the collapsed set.
func (n *navigator) isCollapsed(id string) bool {
	if id == "" {
		return false
	}
	_, ok := n.collapsed[id]
	return ok
}

// relocateHidden moves a cursor hidden by a collapse to its nearest
// visible ancestor header.
func (n *navigator) relocateHidden() {
	cur, ok := n.find(n.selectedID)
	if !ok {
		return
	}
	if indexOf(n.visibleItems(), cur.ID) >= 0 {
		return
	}
	if cur.Kind == domain.NavKindItem && cur.ParentGroupID != "" && !n.isCollapsed(cur.SectionID) {
		n.selectedID = cur.ParentGroupID
		return
	}
	n.selectedID = cur.SectionID
}

// find locates a nav item by id in the full (uncollapsed) list.
func (n *navigator) find(id string) (domain.NavItem, bool) {
	if id == "" {
		return domain.NavItem{}, false
	}
	for _, item := range n.items {
		if item.ID == id {
			return item, true
		}
	}
	return domain.NavItem{}, false
}

// findFallback resolves the cursor after its entity disappeared, by
// strict priority: first remaining item in the old section, that
// section's header, the first header anywhere, the first item
// anywhere, then empty when the list has nothing left.
func findFallback(items []domain.NavItem, oldSectionID string) string {
	if oldSectionID != "" {
		for _, item := range items {
			if item.Kind == domain.NavKindItem && item.SectionID == oldSectionID {
				return item.ID
			}
		}
		for _, item := range items {
			if item.Kind == domain.NavKindHeader && item.ID == oldSectionID {
				return item.ID
			}
		}
	}
	for _, item := range items {
		if item.Kind == domain.NavKindHeader {
			return item.ID
		}
	}
	for _, item := range items {
		if item.Kind == domain.NavKindItem {
			return item.ID
		}
	}
	return ""
}

// indexOf finds an id in a nav slice, -1 when absent.
func indexOf(items []domain.NavItem, id string) int {
	if id == "" {
		return -1
	}
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
