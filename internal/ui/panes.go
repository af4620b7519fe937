package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shelf/internal/library"
)

// rowFunc renders row i of a list into width columns on bgColor.
type rowFunc func(i, width int, bgColor string, selected bool) string

// contentHeight is the space left under the header and command bar.
func (m Model) contentHeight() int {
	return max(m.height-2, 3)
}

// splitWidths divides the screen between a list and a detail pane.
func (m Model) splitWidths() (list, detail int) {
	if m.width >= LayoutExtraWideWidth {
		list = m.width * 45 / 100
	} else {
		list = m.width * 55 / 100
	}
	return list, m.width - list
}

// renderList renders count rows, scrolled so selected stays visible.
func (m Model) renderList(count, selected, width, height int, bgColor string, row rowFunc) string {
	if count == 0 || height <= 0 {
		return ""
	}
	start := 0
	if selected >= height {
		start = selected - height + 1
	}
	end := min(count, start+height)

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		if i == selected {
			// Selected row: use selection background and text color
			content := row(i, width, m.theme.SelectionBg, true)
			lines = append(lines, lipgloss.NewStyle().
				Background(lipgloss.Color(m.theme.SelectionBg)).
				Width(width).
				Render(content))
			continue
		}
		content := row(i, width, bgColor, false)
		lines = append(lines, lipgloss.NewStyle().
			Background(lipgloss.Color(bgColor)).
			Width(width).
			Render(content))
	}
	return strings.Join(lines, "\n")
}

// rowStyles returns id, text, separator and muted styles for a row. Selected
// rows use SelectionText throughout to keep contrast.
func (m Model) rowStyles(selected bool) (id, text, sep, muted lipgloss.Style) {
	if selected {
		selText := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		return selText, selText, selText, selText
	}
	styles := m.theme.Styles()
	return styles.MutedText, styles.Text, styles.FaintText, styles.MutedText
}

// listState describes why a list has no rows, or "" when it has some.
type listState struct {
	loading   bool
	loaded    bool
	err       string
	empty     bool
	noMatches bool
}

func (m Model) listMessage(st listState, noun string) string {
	styles := m.theme.Styles()
	switch {
	case st.loading && !st.loaded:
		return m.spinner.View() + " " + styles.MutedText.Render("Loading "+noun+"...")
	case st.err != "" && st.empty:
		return styles.DangerText.Render(st.err)
	case st.empty && st.loaded:
		return styles.MutedText.Render("No " + noun + " yet")
	case st.noMatches:
		return styles.MutedText.Render("No " + noun + " match the current filters") + "\n" +
			styles.FaintText.Render("press c to clear them")
	}
	return ""
}

// renderListPane renders a titled list box. A non-empty summary describes
// the active filter on the first line.
func (m Model) renderListPane(title, summary string, st listState, noun string, count, width, height int, focused bool, row rowFunc) string {
	bgColor := ternary(focused, m.theme.FocusBg, m.theme.SurfaceAlt)
	inner := width - 2
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles().WithBackground(bgColor)

	var body []string
	if summary != "" {
		line := bg.Render("filter", styles.FaintText) + bg.Space() + bg.Render(truncate(summary, inner-8), styles.AccentText)
		body = append(body, bg.FillLine(line, inner))
	}
	if st.err != "" && !st.empty {
		body = append(body, bg.FillLine(bg.Render(truncate(st.err, inner), styles.DangerText), inner))
	}
	if msg := m.listMessage(st, noun); msg != "" {
		body = append(body, "", msg)
	} else {
		rowsHeight := height - 2 - len(body)
		body = append(body, m.renderList(count, m.selected[m.view], inner, rowsHeight, bgColor, row))
	}
	return m.renderTitledBox(title, strings.Join(body, "\n"), width, height, focused)
}

// renderTitledBox renders content in a box with the title embedded in the top border.
// When focused is true, uses BorderFocus color and FocusBg background.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	var borderColorStr, bgColorStr string
	if focused {
		borderColorStr = m.theme.BorderFocus
		bgColorStr = m.theme.FocusBg
	} else {
		borderColorStr = m.theme.Border
		bgColorStr = m.theme.SurfaceAlt
	}
	bg := NewBgStyle(bgColorStr)
	borderColor := lipgloss.Color(borderColorStr)
	bgColor := lipgloss.Color(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	// Build the top border with embedded title
	innerWidth := width - 2
	title = truncate(title, max(innerWidth-4, 1))
	titleLen := lipgloss.Width(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", max(innerWidth, 0)), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(bgColor)

	contentLines := strings.Split(content, "\n")
	boxHeight := height - 2

	paddedLines := make([]string, 0, boxHeight)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		paddedLines = append(paddedLines,
			bg.Render("│", borderStyle)+
				contentStyle.Render(line)+
				bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(paddedLines, "\n") + "\n" + bottomBorder
}

// detailLines renders label/value pairs for a detail pane.
func (m Model) detailLines(bgColor string, width int, pairs [][2]string) string {
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles().WithBackground(bgColor)
	labelWidth := 0
	for _, p := range pairs {
		labelWidth = max(labelWidth, len(p[0]))
	}
	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p[0] == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, bg.Render(padRight(p[0], labelWidth+2), styles.MutedText)+
			bg.Render(truncate(p[1], max(width-labelWidth-2, 8)), styles.Text))
	}
	return strings.Join(lines, "\n")
}

// visibleCount returns the number of rows the list on v shows.
func (m Model) visibleCount(v View) int {
	switch v {
	case ViewCatalog:
		return len(m.catalog.Snapshot().Visible)
	case ViewMyLoans:
		return len(m.myLoans.Snapshot().Visible)
	case ViewBooks:
		return len(m.books.Snapshot().Visible)
	case ViewUsers:
		return len(m.users.Snapshot().Visible)
	case ViewLending:
		return len(m.lending.Registry().Filtered())
	}
	return 0
}

// clampSelection keeps the cursor on v inside the visible rows.
func (m *Model) clampSelection(v View) {
	if v == ViewActivity || m.selected == nil {
		return
	}
	n := m.visibleCount(v)
	idx := m.selected[v]
	if idx >= n {
		idx = n - 1
	}
	m.selected[v] = max(idx, 0)
}

// moveSelection applies list navigation keys and reports whether msg was one.
func (m *Model) moveSelection(msg tea.KeyMsg) bool {
	n := m.visibleCount(m.view)
	idx := m.selected[m.view]
	page := max(m.contentHeight()-3, 1)
	switch {
	case pressed(msg, m.keys.Down):
		idx++
	case pressed(msg, m.keys.Up):
		idx--
	case pressed(msg, m.keys.Top):
		idx = 0
	case pressed(msg, m.keys.Bottom):
		idx = n - 1
	case pressed(msg, m.keys.PageDown):
		idx += page
	case pressed(msg, m.keys.PageUp):
		idx -= page
	case pressed(msg, m.keys.HalfPageDown):
		idx += page / 2
	case pressed(msg, m.keys.HalfPageUp):
		idx -= page / 2
	default:
		return false
	}
	m.selected[m.view] = max(min(idx, n-1), 0)
	return true
}

// roleBadge renders the colored role pill used in user and loan rows.
func (m Model) roleBadge(bg BgStyle, role library.Role) string {
	return bg.Badge(role.Label(), m.theme.StatusColor(string(role)), m.theme.Background)
}
