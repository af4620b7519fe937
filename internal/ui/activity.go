package ui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shelf/internal/activity"
)

// logState holds the activity tab state.
type logState struct {
	lines   []string
	entries []activity.Entry
	err     string
	follow  bool

	// Search
	searchActive   bool
	searchQuery    string
	searchRegex    *regexp.Regexp
	searchInput    textinput.Model
	searchMatches  []int // Line indices that match
	searchMatchIdx int   // Current match index

	// Theme the viewport content was rendered with
	renderedTheme string
}

func newLogState() logState {
	ti := textinput.New()
	ti.Placeholder = "Search activity..."
	ti.CharLimit = 100
	return logState{follow: true, searchInput: ti}
}

// logLinesMsg carries the tail of the log file.
type logLinesMsg struct {
	lines []string
	err   error
}

// readLogCmd reads the log file off the UI goroutine.
func (m Model) readLogCmd() tea.Cmd {
	path := m.logFile
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := activity.Read(path, LogBufferLimit)
		return logLinesMsg{lines: lines, err: err}
	}
}

func (m *Model) initLogViewport() {
	m.logViewport = viewport.New(m.logViewportSize())
	m.logViewport.Style = lipgloss.NewStyle()
}

// logViewportSize leaves room for the header, command bar, box borders and
// the status line below the box.
func (m Model) logViewportSize() (width, height int) {
	return max(m.width-2, 1), max(m.height-5, 1)
}

func (m *Model) resizeLogViewport() {
	m.logViewport.Width, m.logViewport.Height = m.logViewportSize()
	m.syncLogViewport()
}

// syncLogViewport re-renders the log lines into the viewport.
func (m *Model) syncLogViewport() {
	if m.logViewport.Width == 0 {
		return
	}
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))
	m.logViewport.SetContent(m.renderLogContent())
	m.logState.renderedTheme = m.theme.Name
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	if msg.err != nil {
		m.logState.err = msg.err.Error()
		return
	}
	m.logState.err = ""
	if sameLines(m.logState.lines, msg.lines) {
		return
	}
	m.logState.lines = msg.lines
	m.logState.entries = activity.ParseAll(msg.lines)
	m.findSearchMatches()
	m.syncLogViewport()
}

func sameLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	// The tail only grows at the end; comparing the last line is enough
	// once the lengths agree.
	return len(a) == 0 || (a[0] == b[0] && a[len(a)-1] == b[len(b)-1])
}

// handleActivityKey processes keyboard input for the activity tab.
func (m Model) handleActivityKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case pressed(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
			return m, m.readLogCmd()
		}
		return m, nil

	case pressed(msg, m.keys.Search):
		m.logState.searchActive = true
		m.logState.searchInput.SetValue("")
		return m, m.logState.searchInput.Focus()

	case pressed(msg, m.keys.NextMatch):
		m.moveSearchMatch(1)
		return m, nil

	case pressed(msg, m.keys.PrevMatch):
		m.moveSearchMatch(-1)
		return m, nil

	case pressed(msg, m.keys.Escape):
		if m.logState.searchRegex != nil {
			m.clearLogSearch()
			m.syncLogViewport()
		}
		return m, nil

	case pressed(msg, m.keys.Refresh):
		return m, m.readLogCmd()

	case pressed(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.logState.follow = false

	case pressed(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		m.logState.follow = true

	case pressed(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
		m.logState.follow = false

	case pressed(msg, m.keys.Up):
		m.logViewport.ScrollUp(1)
		m.logState.follow = false

	case pressed(msg, m.keys.HalfPageDown):
		m.logViewport.HalfPageDown()
		m.logState.follow = false

	case pressed(msg, m.keys.HalfPageUp):
		m.logViewport.HalfPageUp()
		m.logState.follow = false

	case pressed(msg, m.keys.PageDown):
		m.logViewport.PageDown()
		m.logState.follow = false

	case pressed(msg, m.keys.PageUp):
		m.logViewport.PageUp()
		m.logState.follow = false
	}
	return m, nil
}

// handleLogSearchInput handles keyboard input while the search line is open.
func (m Model) handleLogSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case pressed(msg, m.keys.Confirm):
		query := m.logState.searchInput.Value()
		if query == "" {
			m.logState.searchActive = false
			m.logState.searchInput.Blur()
			return m, nil
		}

		re, err := regexp.Compile("(?i)" + query)
		if err != nil {
			// Invalid pattern: stay in search mode
			return m, nil
		}

		m.logState.searchRegex = re
		m.logState.searchQuery = query
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		m.logState.searchMatchIdx = 0
		m.findSearchMatches()
		m.syncLogViewport()
		m.scrollToSearchMatch()
		return m, nil

	case pressed(msg, m.keys.Escape):
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		m.logState.searchInput.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.logState.searchInput, cmd = m.logState.searchInput.Update(msg)
	return m, cmd
}

func (m *Model) clearLogSearch() {
	m.logState.searchRegex = nil
	m.logState.searchQuery = ""
	m.logState.searchMatches = nil
	m.logState.searchMatchIdx = 0
}

// findSearchMatches records the indices of lines matching the search.
func (m *Model) findSearchMatches() {
	m.logState.searchMatches = nil
	if m.logState.searchRegex == nil {
		return
	}
	for i, line := range m.logState.lines {
		if m.logState.searchRegex.MatchString(line) {
			m.logState.searchMatches = append(m.logState.searchMatches, i)
		}
	}
	if m.logState.searchMatchIdx >= len(m.logState.searchMatches) {
		m.logState.searchMatchIdx = 0
	}
}

func (m *Model) moveSearchMatch(delta int) {
	n := len(m.logState.searchMatches)
	if n == 0 {
		return
	}
	m.logState.searchMatchIdx = (m.logState.searchMatchIdx + delta + n) % n
	m.syncLogViewport()
	m.scrollToSearchMatch()
}

// scrollToSearchMatch centers the active match and stops following.
func (m *Model) scrollToSearchMatch() {
	if len(m.logState.searchMatches) == 0 {
		return
	}
	line := m.logState.searchMatches[m.logState.searchMatchIdx]
	m.logState.follow = false
	m.logViewport.SetYOffset(max(line-m.logViewport.Height/2, 0))
}

// renderLogContent renders the colorized log lines.
func (m Model) renderLogContent() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	width := m.logViewport.Width

	if len(m.logState.lines) == 0 {
		return bg.FillLine(bg.Render("No activity yet", styles.MutedText), width)
	}

	matchSet := make(map[int]bool, len(m.logState.searchMatches))
	for _, idx := range m.logState.searchMatches {
		matchSet[idx] = true
	}
	activeMatchLine := -1
	if len(m.logState.searchMatches) > 0 {
		activeMatchLine = m.logState.searchMatches[m.logState.searchMatchIdx]
	}

	lines := make([]string, 0, len(m.logState.lines))
	for i, line := range m.logState.lines {
		var content string
		switch {
		case i == activeMatchLine:
			content = lipgloss.NewStyle().
				Background(lipgloss.Color(m.theme.Warning)).
				Foreground(lipgloss.Color(m.theme.Background)).
				Render(truncate(line, width))
		case matchSet[i]:
			content = bg.Render(truncate(line, width), styles.AccentText)
		default:
			content = m.colorizeEntry(m.logState.entries[i], width, styles, bg)
		}
		lines = append(lines, bg.FillLine(content, width))
	}
	return strings.Join(lines, "\n")
}

// colorizeEntry styles a parsed log line: faint time, accented source and a
// message colored by level.
func (m Model) colorizeEntry(e activity.Entry, width int, styles Styles, bg BgStyle) string {
	var b strings.Builder
	used := 0
	if !e.Time.IsZero() {
		stamp := e.Time.Format("Jan 02 15:04:05")
		b.WriteString(bg.Render(stamp, styles.FaintText))
		b.WriteString(bg.Space())
		used += len(stamp) + 1
	}

	msg := e.Message
	if e.Source != "" {
		tag := fmt.Sprintf("%-7s", e.Source)
		b.WriteString(bg.Render(tag, styles.AccentText))
		b.WriteString(bg.Space())
		used += len(tag) + 1
		msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, e.Source), ":"))
	}

	msgStyle := styles.Text
	switch e.Level {
	case activity.LevelError:
		msgStyle = styles.DangerText
	case activity.LevelWarn:
		msgStyle = styles.WarningText
	}
	b.WriteString(bg.Render(truncate(msg, max(width-used, 1)), msgStyle))
	return b.String()
}

// renderActivity renders the log box and the status line below it.
func (m Model) renderActivity() string {
	bg := NewBgStyle(m.theme.Background)
	styles := m.theme.Styles()
	height := m.contentHeight() - 1

	vp := m.logViewport
	if m.logState.renderedTheme != m.theme.Name {
		vp.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))
		vp.SetContent(m.renderLogContent())
	}

	title := "Activity"
	if m.logFile != "" {
		title += " · " + truncateMiddle(m.logFile, max(m.width/2, 20))
	}
	box := m.renderTitledBox(title, vp.View(), m.width, height, true)
	return box + "\n" + m.renderLogStatus(styles, bg)
}

func (m Model) renderLogStatus(styles Styles, bg BgStyle) string {
	if m.logState.searchActive {
		return bg.Render("/", styles.AccentText) + m.logState.searchInput.View()
	}

	if m.logState.searchRegex != nil {
		if len(m.logState.searchMatches) == 0 {
			return bg.Render("Pattern not found: "+m.logState.searchQuery, styles.DangerText)
		}
		return bg.Render("/"+m.logState.searchQuery, styles.AccentText) +
			bg.Render(" - ", styles.FaintText) +
			bg.Render(fmt.Sprintf("%d/%d", m.logState.searchMatchIdx+1, len(m.logState.searchMatches)), styles.WarningText) +
			bg.Render(" - Press ", styles.FaintText) +
			bg.Render("n", styles.AccentText) +
			bg.Render(" for next, ", styles.FaintText) +
			bg.Render("N", styles.AccentText) +
			bg.Render(" for previous, ", styles.FaintText) +
			bg.Render("Esc", styles.AccentText) +
			bg.Render(" to clear", styles.FaintText)
	}

	if m.logFile == "" {
		return bg.Render("Logging is disabled", styles.MutedText)
	}
	if m.logState.err != "" {
		return bg.Render("Cannot read log: "+m.logState.err, styles.DangerText)
	}

	follow := ternary(m.logState.follow, "on", "off")
	status := fmt.Sprintf("%d lines auto-tail %s", len(m.logState.lines), follow)
	sep := bg.Space() + bg.Render("•", styles.FaintText) + bg.Space()
	return bg.Render(status, styles.FaintText) + sep + bg.Render("api "+m.apiURL, styles.AccentText)
}
