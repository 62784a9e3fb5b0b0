package domain

// NavKind represents a selectable mode.
type NavKind string

// NavKindHeader and related constants define package defaults.
const (
	NavKindHeader    NavKind = "header"
	NavKindSubHeader NavKind = "subHeader"
	NavKindItem      NavKind = "item"
)

// NavItem is one entry of the flattened navigable tree. Item entries
// keep the provider's stable entity id, which is what lets the cursor
// survive rebuilds; headers and sub-headers carry deterministic
// content-derived ids ("sec:...", "sub:...").
type NavItem struct {
	ID            string
	SectionID     string
	Kind          NavKind
	ParentGroupID string
}

// BoardGroup is one named status bucket within a section.
type BoardGroup struct {
	ID       string
	Label    string
	Statuses []string
	Items    []Item
}

// BoardSection is one data source's grouped view. Err is set when the
// fetch for the source failed; Empty marks a source with no groups and
// no items so the view can render a placeholder row.
type BoardSection struct {
	ID       string
	SourceID string
	Name     string
	Groups   []BoardGroup
	Err      string
	Empty    bool
}

// BoardStream is one flat stream rendered after the grouped sections.
type BoardStream struct {
	ID    string
	Name  string
	Items []Item
}

// BoardTree is the full navigable dashboard state for one fetch.
type BoardTree struct {
	Sections []BoardSection
	Streams  []BoardStream
}

// Item returns the item with the given id wherever it lives in the
// tree, along with its owning section/stream id.
func (t BoardTree) Item(id string) (Item, string, bool) {
	for _, section := range t.Sections {
		for _, group := range section.Groups {
			for _, item := range group.Items {
				if item.ID == id {
					return item, section.ID, true
				}
			}
		}
	}
	for _, stream := range t.Streams {
		for _, item := range stream.Items {
			if item.ID == id {
				return item, stream.ID, true
			}
		}
	}
	return Item{}, "", false
}
