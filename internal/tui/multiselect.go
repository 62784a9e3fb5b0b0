package tui

// multiSelect owns the set of selected entity ids, constrained to a
// single originating section: a bulk mutation must target entities
// sharing one provider context, so selecting across sections resets
// the set to the new section instead of mixing them.
type multiSelect struct {
	selected    map[string]struct{}
	constrained string
	idToSection func(string) string
}

// newMultiSelect constructs a new value for this package.
func newMultiSelect(idToSection func(string) string) *multiSelect {
	if idToSection == nil {
		idToSection = func(string) string { return "" }
	}
	return &multiSelect{selected: map[string]struct{}{}, idToSection: idToSection}
}

// setLookup swaps the entity-to-section lookup after a tree rebuild.
func (m *multiSelect) setLookup(idToSection func(string) string) {
	if idToSection != nil {
		m.idToSection = idToSection
	}
}

// toggle adds or removes one id. Headers and other non-selectable rows
// (ids that resolve to no section) are ignored. Toggling an id from a
// different section than the current constraint clears the whole set
// first.
func (m *multiSelect) toggle(id string) {
	section := m.idToSection(id)
	if section == "" {
		return
	}
	if _, ok := m.selected[id]; ok {
		delete(m.selected, id)
		if len(m.selected) == 0 {
			m.constrained = ""
		}
		return
	}
	if m.constrained != "" && m.constrained != section {
		m.selected = map[string]struct{}{}
	}
	m.selected[id] = struct{}{}
	m.constrained = section
}

// prune drops selected ids no longer present after a tree rebuild.
func (m *multiSelect) prune(validIDs map[string]struct{}) {
	for id := range m.selected {
		if _, ok := validIDs[id]; !ok {
			delete(m.selected, id)
		}
	}
	if len(m.selected) == 0 {
		m.constrained = ""
	}
}

// clear empties the set and the section constraint.
func (m *multiSelect) clear() {
	m.selected = map[string]struct{}{}
	m.constrained = ""
}

// has reports whether an id is currently selected.
func (m *multiSelect) has(id string) bool {
	_, ok := m.selected[id]
	return ok
}

// ids returns a snapshot of the selected ids in no particular order.
func (m *multiSelect) ids() []string {
	out := make([]string, 0, len(m.selected))
	for id := range m.selected {
		out = append(out, id)
	}
	return out
}

// count returns the selection size.
func (m *multiSelect) count() int {
	return len(m.selected)
}
