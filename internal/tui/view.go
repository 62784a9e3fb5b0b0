package tui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/raklev/havik/internal/app"
	"github.com/raklev/havik/internal/domain"
)

// View renders the board, the status line, and whichever overlay is
// active, as a full-screen alt-screen view.
func (m Model) View() tea.View {
	if m.err != nil {
		return altScreenView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
	}
	if !m.ready {
		return altScreenView("loading...")
	}

	var body string
	switch {
	case m.modes.isOverlay():
		body = m.renderOverlay()
	default:
		body = m.renderBoard()
	}

	statusLine := m.renderStatusLine()
	helpLine := m.renderHelpLine()

	contentHeight := m.height - lipgloss.Height(statusLine) - lipgloss.Height(helpLine)
	if contentHeight > 0 {
		body = fitLines(body, contentHeight)
	}
	return altScreenView(body + "\n" + statusLine + "\n" + helpLine)
}

// altScreenView wraps content in the standard alt-screen settings.
func altScreenView(content string) tea.View {
	v := tea.NewView(content)
	v.AltScreen = true
	v.MouseMode = tea.MouseModeCellMotion
	return v
}

// renderBoard draws the collapse-aware flattened tree with cursor and
// selection markers.
func (m Model) renderBoard() string {
	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	subStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	mutedStyle := lipgloss.NewStyle().Foreground(muted)
	dimStyle := lipgloss.NewStyle().Foreground(dim)
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	cursorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))

	selectedID := ""
	if nav, ok := m.nav.selected(); ok {
		selectedID = nav.ID
	}
	focusSection := ""
	if m.modes.mode == modeFocus {
		if nav, ok := m.nav.selected(); ok {
			focusSection = nav.SectionID
		}
	}
	query := strings.ToLower(m.searchQuery)
	collapsed := m.nav.collapsedSet()

	var lines []string
	for _, nav := range m.nav.visibleItems() {
		if focusSection != "" && nav.SectionID != focusSection {
			continue
		}
		switch nav.Kind {
		case domain.NavKindHeader:
			line := m.renderHeader(nav, headerStyle, mutedStyle, errStyle, collapsed)
			if nav.ID == selectedID {
				line = cursorStyle.Render("▸ ") + line
			} else {
				line = "  " + line
			}
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, line)

		case domain.NavKindSubHeader:
			label := m.groupLabel(nav)
			line := "    " + subStyle.Render(label)
			if _, folded := collapsed[nav.ID]; folded {
				line += dimStyle.Render(" [+]")
			}
			if nav.ID == selectedID {
				line = cursorStyle.Render("▸") + line[1:]
			}
			lines = append(lines, line)

		case domain.NavKindItem:
			item, _, ok := m.tree.Item(nav.ID)
			if !ok {
				continue
			}
			if query != "" && !strings.Contains(strings.ToLower(item.Title), query) {
				continue
			}
			marker := "  "
			if nav.ID == selectedID {
				marker = cursorStyle.Render("▸ ")
			}
			check := "  "
			if m.selection.has(nav.ID) {
				check = headerStyle.Render("✓ ")
			}
			line := "      " + marker + check + itemLine(item, mutedStyle, dimStyle)
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		lines = append(lines, dimStyle.Render("nothing to show — press r to reload"))
	}

	if m.histVisible {
		lines = append(lines, "", headerStyle.Render("recent actions"))
		entries := m.deps.Actions.Recent()
		if len(entries) == 0 {
			lines = append(lines, dimStyle.Render("  (none)"))
		}
		for _, entry := range entries {
			mark := "·"
			switch entry.Status {
			case domain.ActionSuccess:
				mark = "✓"
			case domain.ActionError:
				mark = "✗"
			}
			lines = append(lines, fmt.Sprintf("  %s %s", mark, entry.Description))
		}
	}
	return strings.Join(lines, "\n")
}

// renderHeader draws one section or stream header row.
func (m Model) renderHeader(nav domain.NavItem, headerStyle, mutedStyle, errStyle lipgloss.Style, collapsed map[string]struct{}) string {
	for _, section := range m.tree.Sections {
		if section.ID != nav.ID {
			continue
		}
		line := headerStyle.Render(section.Name)
		if _, folded := collapsed[nav.ID]; folded {
			line += mutedStyle.Render(" [+]")
		}
		if section.Err != "" {
			line += " " + errStyle.Render("fetch failed: "+section.Err)
		}
		if section.Empty {
			line += " " + mutedStyle.Render("(empty)")
		}
		return line
	}
	for _, stream := range m.tree.Streams {
		if stream.ID != nav.ID {
			continue
		}
		line := headerStyle.Render(stream.Name)
		if _, folded := collapsed[nav.ID]; folded {
			line += mutedStyle.Render(" [+]")
		}
		line += mutedStyle.Render(fmt.Sprintf(" (%d)", len(stream.Items)))
		return line
	}
	return headerStyle.Render(nav.ID)
}

// groupLabel resolves a sub-header row to its group label and count.
func (m Model) groupLabel(nav domain.NavItem) string {
	for _, section := range m.tree.Sections {
		if section.ID != nav.SectionID {
			continue
		}
		for _, group := range section.Groups {
			if group.ID == nav.ID {
				return fmt.Sprintf("%s (%d)", group.Label, len(group.Items))
			}
		}
	}
	return nav.ID
}

// itemLine draws one item row.
func itemLine(item domain.Item, mutedStyle, dimStyle lipgloss.Style) string {
	var b strings.Builder
	if item.Number > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("#%d ", item.Number)))
	}
	b.WriteString(item.Title)
	if item.Assignee != "" {
		b.WriteString(mutedStyle.Render(" @" + item.Assignee))
	}
	if len(item.Labels) > 0 {
		b.WriteString(dimStyle.Render(" [" + strings.Join(item.Labels, ",") + "]"))
	}
	return b.String()
}

// renderOverlay draws the active modal surface full-screen.
func (m Model) renderOverlay() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(clamp(m.width-8, 24, 100))

	var body string
	switch m.modes.mode {
	case modeSearch:
		body = titleStyle.Render("search") + "\n\n" + m.input.View() + "\n\n" + dimStyle.Render("enter jumps to first match • esc cancels")

	case modeOverlayStatus:
		var rows []string
		for i, status := range m.statusChoice {
			cursor := "  "
			if i == m.statusIndex {
				cursor = "▸ "
			}
			rows = append(rows, cursor+status)
		}
		body = titleStyle.Render("set status") + "\n\n" + strings.Join(rows, "\n")

	case modeOverlayBulkAction:
		options := []string{"set status on selection", "clear selection"}
		var rows []string
		for i, opt := range options {
			cursor := "  "
			if i == m.bulkIndex {
				cursor = "▸ "
			}
			rows = append(rows, cursor+opt)
		}
		body = titleStyle.Render(fmt.Sprintf("bulk action (%d selected)", m.selection.count())) + "\n\n" + strings.Join(rows, "\n")

	case modeOverlayConfirmPick:
		body = titleStyle.Render("confirm") + "\n\n" + m.confirmText + "\n\n" + dimStyle.Render("enter confirms • esc cancels")

	case modeOverlayPicker:
		if m.picker == pickerAssign {
			body = titleStyle.Render("assign") + "\n\n" + m.input.View() + "\n\n" + dimStyle.Render("empty input unassigns")
		} else {
			var rows []string
			for i, source := range m.pickerItems {
				cursor := "  "
				if i == m.pickerIndex {
					cursor = "▸ "
				}
				rows = append(rows, cursor+source)
			}
			body = titleStyle.Render("create in") + "\n\n" + strings.Join(rows, "\n")
		}

	case modeOverlayCreate:
		body = titleStyle.Render("new item in "+m.createSource) + "\n\n" + m.input.View()

	case modeOverlayCreateNL:
		body = titleStyle.Render("quick create in "+m.createSource) + "\n\n" + m.input.View() + "\n\n" + dimStyle.Render("#label adds a label, !status sets the status")

	case modeOverlayLabels:
		body = titleStyle.Render("labels") + "\n\n" + m.input.View() + "\n\n" + dimStyle.Render("-label removes")

	case modeOverlayEdit:
		body = titleStyle.Render("edit labels") + "\n\n" + m.input.View() + "\n\n" + dimStyle.Render("comma-separated; removals applied as a diff")

	case modeOverlayComment:
		body = titleStyle.Render("comment") + "\n\n" + m.input.View()

	case modeOverlayDetail:
		body = m.renderDetail(titleStyle, dimStyle)

	default:
		body = dimStyle.Render("…")
	}
	return box.Render(body)
}

// renderDetail draws the item detail overlay with the comment thread.
func (m Model) renderDetail(titleStyle, dimStyle lipgloss.Style) string {
	item, _, ok := m.tree.Item(m.detailID)
	if !ok {
		return dimStyle.Render("item no longer visible")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(item.Title))
	b.WriteString("\n")
	meta := []string{}
	if item.Status != "" {
		meta = append(meta, "status: "+item.Status)
	}
	if item.Assignee != "" {
		meta = append(meta, "@"+item.Assignee)
	}
	if len(item.Labels) > 0 {
		meta = append(meta, "["+strings.Join(item.Labels, ",")+"]")
	}
	if len(meta) > 0 {
		b.WriteString(dimStyle.Render(strings.Join(meta, "  ")))
		b.WriteString("\n")
	}
	if item.Body != "" {
		b.WriteString("\n")
		b.WriteString(m.markdown.render(item.Body, clamp(m.width-14, 24, 90)))
		b.WriteString("\n")
	}

	detail := m.deps.Details.Get(m.detailID)
	b.WriteString("\n")
	switch detail.State {
	case app.DetailLoading, app.DetailNotFetched:
		b.WriteString(dimStyle.Render("loading comments…"))
	case app.DetailFailed:
		b.WriteString(dimStyle.Render("comments failed: " + detail.Err + " (r retries)"))
	case app.DetailLoaded:
		if len(detail.Comments) == 0 {
			b.WriteString(dimStyle.Render("no comments"))
		}
		for i, comment := range detail.Comments {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(titleStyle.Render("@" + comment.Author))
			b.WriteString("\n")
			b.WriteString(m.markdown.render(comment.Body, clamp(m.width-14, 24, 90)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderStatusLine draws the one-line mode/status footer.
func (m Model) renderStatusLine() string {
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warn := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	fail := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	parts := []string{"[" + m.modes.label() + "]"}
	if n := m.selection.count(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}
	if m.deps.Refresher != nil && m.deps.Refresher.Paused() {
		parts = append(parts, "auto-refresh paused (r resumes)")
	}
	if m.status != "" {
		text := m.status
		switch m.statusLevel {
		case app.NoticeWarn:
			text = warn.Render(text)
		case app.NoticeError:
			text = fail.Render(text)
		}
		parts = append(parts, text)
	}
	return muted.Render(strings.Join(parts, " • "))
}

// renderHelpLine draws the bottom help bubble.
func (m Model) renderHelpLine() string {
	helpBubble := m.help
	helpBubble.ShowAll = m.modes.helpVisible
	helpBubble.SetWidth(max(0, m.width-2))
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Padding(0, 1).
		Render(helpBubble.View(m.keys))
}

// fitLines pads or truncates content to exactly n lines.
func fitLines(content string, n int) string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
