package board

import "github.com/raklev/havik/internal/domain"

// Flatten lists the tree's nav entries in render order: every section
// header, its group sub-headers, their items, then one header per flat
// stream followed by its items. Collapse filtering is the navigator's
// job; Flatten always emits the complete list.
func Flatten(tree domain.BoardTree) []domain.NavItem {
	var out []domain.NavItem
	for _, section := range tree.Sections {
		out = append(out, domain.NavItem{ID: section.ID, SectionID: section.ID, Kind: domain.NavKindHeader})
		for _, group := range section.Groups {
			out = append(out, domain.NavItem{ID: group.ID, SectionID: section.ID, Kind: domain.NavKindSubHeader})
			for _, item := range group.Items {
				out = append(out, domain.NavItem{
					ID:            item.ID,
					SectionID:     section.ID,
					Kind:          domain.NavKindItem,
					ParentGroupID: group.ID,
				})
			}
		}
	}
	for _, stream := range tree.Streams {
		out = append(out, domain.NavItem{ID: stream.ID, SectionID: stream.ID, Kind: domain.NavKindHeader})
		for _, item := range stream.Items {
			out = append(out, domain.NavItem{ID: item.ID, SectionID: stream.ID, Kind: domain.NavKindItem})
		}
	}
	return out
}

// SectionFor maps item ids to their owning section id; headers and
// sub-headers map to the empty string so selection can skip them.
func SectionFor(items []domain.NavItem) func(string) string {
	byID := make(map[string]string, len(items))
	for _, item := range items {
		if item.Kind == domain.NavKindItem {
			byID[item.ID] = item.SectionID
		}
	}
	return func(id string) string { return byID[id] }
}
