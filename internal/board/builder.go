// Package board turns raw per-source payloads into the hierarchical
// navigable tree. Build is pure and deterministic: identical input
// produces byte-identical ids, which is what keeps the cursor stable
// across refreshes and optimistic patches.
package board

import (
	"sort"
	"strings"

	"github.com/raklev/havik/internal/domain"
)

// BacklogLabel buckets items that carry no status value.
const BacklogLabel = "Backlog"

// Config holds configuration for build.
type Config struct {
	// TerminalStatuses are closed/done-like values never rendered as
	// groups unless a group definition names them explicitly.
	TerminalStatuses []string
}

// SectionID derives the deterministic section header id for a source.
func SectionID(sourceID string) string {
	return "sec:" + sourceID
}

// GroupID derives the deterministic sub-header id for a group label.
func GroupID(sourceID, label string) string {
	return "sub:" + sourceID + ":" + label
}

// Build assembles the board tree from raw section and stream payloads.
func Build(cfg Config, sections []domain.RawSection, streams []domain.RawStream) domain.BoardTree {
	terminal := statusSet(cfg.TerminalStatuses)
	tree := domain.BoardTree{}
	for _, raw := range sections {
		tree.Sections = append(tree.Sections, buildSection(raw, terminal))
	}
	for _, raw := range streams {
		tree.Streams = append(tree.Streams, domain.BoardStream{
			ID:    SectionID(raw.ID),
			Name:  raw.Name,
			Items: append([]domain.Item(nil), raw.Items...),
		})
	}
	return tree
}

// buildSection groups one source's items per its definitions. Sections
// carrying a fetch error short-circuit to an error placeholder.
func buildSection(raw domain.RawSection, terminal map[string]struct{}) domain.BoardSection {
	section := domain.BoardSection{
		ID:       SectionID(raw.SourceID),
		SourceID: raw.SourceID,
		Name:     raw.Name,
	}
	if raw.FetchErr != "" {
		section.Err = raw.FetchErr
		return section
	}

	buckets, order := partitionByStatus(raw.Items)
	defs := resolveDefinitions(raw.Groups, buckets, order, terminal)

	covered := map[string]struct{}{}
	for _, def := range defs {
		group := domain.BoardGroup{
			ID:       GroupID(raw.SourceID, def.label),
			Label:    def.label,
			Statuses: def.statuses,
		}
		for _, status := range def.statuses {
			key := domain.NormalizeStatus(status)
			covered[key] = struct{}{}
			group.Items = append(group.Items, buckets[key]...)
		}
		sortByPriority(group.Items)
		section.Groups = append(section.Groups, group)
	}

	// Raw statuses not covered by any definition and not terminal
	// become their own overflow groups, in discovery order.
	for _, key := range order {
		if _, ok := covered[key]; ok {
			continue
		}
		if _, ok := terminal[key]; ok {
			continue
		}
		label := overflowLabel(buckets[key])
		items := append([]domain.Item(nil), buckets[key]...)
		sortByPriority(items)
		section.Groups = append(section.Groups, domain.BoardGroup{
			ID:       GroupID(raw.SourceID, label),
			Label:    label,
			Statuses: []string{label},
			Items:    items,
		})
	}

	if len(section.Groups) == 0 && len(raw.Items) == 0 {
		section.Empty = true
	}
	return section
}

// groupDef is one resolved group definition: ordered status names with
// the first name as label.
type groupDef struct {
	label    string
	statuses []string
}

// resolveDefinitions returns explicit definitions when supplied
// (each comma-separated list merges under its first status name), or
// auto-detects one group per discovered non-terminal status, with the
// backlog bucket appended last rather than at its discovery position.
func resolveDefinitions(explicit []string, buckets map[string][]domain.Item, order []string, terminal map[string]struct{}) []groupDef {
	if len(explicit) > 0 {
		defs := make([]groupDef, 0, len(explicit))
		for _, raw := range explicit {
			var statuses []string
			for _, name := range strings.Split(raw, ",") {
				if name = strings.TrimSpace(name); name != "" {
					statuses = append(statuses, name)
				}
			}
			if len(statuses) == 0 {
				continue
			}
			defs = append(defs, groupDef{label: statuses[0], statuses: statuses})
		}
		return defs
	}

	backlogKey := domain.NormalizeStatus(BacklogLabel)
	var defs []groupDef
	for _, key := range order {
		if key == backlogKey {
			continue
		}
		if _, ok := terminal[key]; ok {
			continue
		}
		defs = append(defs, groupDef{label: overflowLabel(buckets[key]), statuses: []string{buckets[key][0].Status}})
	}
	if len(buckets[backlogKey]) > 0 {
		defs = append(defs, groupDef{label: BacklogLabel, statuses: []string{BacklogLabel}})
	}
	return defs
}

// partitionByStatus buckets items by normalized status, recording
// discovery order. Items without a status land in the backlog bucket.
func partitionByStatus(items []domain.Item) (map[string][]domain.Item, []string) {
	buckets := map[string][]domain.Item{}
	var order []string
	backlogKey := domain.NormalizeStatus(BacklogLabel)
	for _, item := range items {
		key := domain.NormalizeStatus(item.Status)
		if key == "" {
			key = backlogKey
		}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], item)
	}
	return buckets, order
}

// overflowLabel picks the raw status of the bucket's first item as the
// group label, falling back to the backlog label for unstatused items.
func overflowLabel(items []domain.Item) string {
	if len(items) > 0 && strings.TrimSpace(items[0].Status) != "" {
		return items[0].Status
	}
	return BacklogLabel
}

// sortByPriority orders items by label-derived rank, ties keeping
// original order.
func sortByPriority(items []domain.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return domain.PriorityRank(items[i].Labels) < domain.PriorityRank(items[j].Labels)
	})
}

// statusSet folds a status list for case/whitespace-insensitive lookup.
func statusSet(statuses []string) map[string]struct{} {
	set := make(map[string]struct{}, len(statuses))
	for _, status := range statuses {
		set[domain.NormalizeStatus(status)] = struct{}{}
	}
	return set
}
