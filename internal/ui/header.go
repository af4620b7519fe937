package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shelf/internal/library"
)

// renderHeader renders the identity line with the tab strip.
func (m Model) renderHeader() string {
	// Header uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("shelf", styles.Logo)}

	// Tabs
	tabs := m.tabs()
	tabParts := make([]string, 0, len(tabs))
	for i, v := range tabs {
		label := fmt.Sprintf("%d %s", i+1, v.Title())
		if v == m.view {
			tabParts = append(tabParts, lipgloss.NewStyle().
				Background(lipgloss.Color(m.theme.SelectionBg)).
				Foreground(lipgloss.Color(m.theme.SelectionText)).
				Bold(true).
				Padding(0, 1).
				Render(label))
			continue
		}
		tabParts = append(tabParts, bg.Space()+bg.Render(label, styles.MutedText)+bg.Space())
	}
	parts = append(parts, strings.Join(tabParts, bg.Space()))

	// Identity
	if sess, ok := m.currentSession(); ok {
		role := sess.Role()
		parts = append(parts,
			bg.Render(sess.User.Username, styles.Text)+bg.Space()+
				bg.Badge(role.Label(), m.theme.StatusColor(string(role)), m.theme.Background))
		if !compact {
			if exp, ok := m.session.ExpiresAt(); ok {
				parts = append(parts, bg.Pair("token", "expires "+relativeTime(exp), styles.FaintText, styles.MutedText))
			}
		}
	}

	// Offline indicator for the shared loan registry
	if m.lending != nil && m.isLibrarian() {
		if snap := m.lending.Registry().Snapshot(); snap.IsOffline() {
			parts = append(parts, bg.Render("● OFFLINE", styles.DangerText))
		}
	}

	if m.busy(m.view) {
		parts = append(parts, m.spinner.View())
	}

	if m.flash.text != "" {
		style := styles.SuccessText
		if m.flash.isErr {
			style = styles.DangerText
		}
		parts = append(parts, bg.Render(truncate(m.flash.text, max(m.width/3, 20)), style))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

func (m Model) isLibrarian() bool {
	sess, ok := m.currentSession()
	return ok && sess.Role() == library.RoleLibrarian
}

// busy reports whether the coordinator behind v has a call in flight.
func (m Model) busy(v View) bool {
	switch v {
	case ViewCatalog:
		return m.catalog != nil && m.catalog.Busy()
	case ViewMyLoans:
		return m.myLoans != nil && m.myLoans.Busy()
	case ViewBooks:
		return m.books != nil && m.books.Busy()
	case ViewUsers:
		return m.users != nil && m.users.Busy()
	case ViewLending:
		return m.lending != nil && m.lending.Busy()
	}
	return false
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	// Command bar uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.view {
	case ViewCatalog:
		if m.detailOpen {
			commands = []cmd{{"b", "Borrow"}, {"esc", "Close"}}
		} else {
			commands = []cmd{{"enter", "Details"}, {"b", "Borrow"}, {"/", "Filter"}, {"c", "Clear"}, {"r", "Refresh"}}
		}
	case ViewMyLoans:
		commands = []cmd{{"f", m.myLoans.Snapshot().Filter.Status.Label()}, {"j/k", "Navigate"}, {"r", "Refresh"}}
	case ViewBooks:
		commands = []cmd{{"n", "New"}, {"s", "Stock"}, {"d", "Delete"}, {"/", "Filter"}, {"c", "Clear"}, {"r", "Refresh"}}
	case ViewUsers:
		commands = []cmd{{"n", "New"}, {"d", "Delete"}, {"/", "Filter"}, {"c", "Clear"}, {"r", "Refresh"}}
	case ViewLending:
		snap := m.lending.Registry().Snapshot()
		if snap.Selected != nil {
			commands = []cmd{{"x", "Return"}, {"d", "Delete"}, {"esc", "Close"}}
		} else {
			commands = []cmd{{"f", snap.Filter.Status.Label()}, {"s", "Student"}, {"enter", "Details"}, {"x", "Return"}, {"d", "Delete"}, {"r", "Refresh"}}
		}
	case ViewActivity:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		commands = []cmd{{"Space", followLabel}, {"/", "Search"}, {"n/N", "Next/Prev"}}
	}
	commands = append(commands, cmd{"tab", "Tabs"}, cmd{"L", "Logout"}, cmd{"?", "More"})

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	// Show active log search pattern
	if m.view == ViewActivity && m.logState.searchQuery != "" {
		pattern := truncate(m.logState.searchQuery, 18)
		segments = append(segments,
			bg.Render("/"+pattern, styles.AccentText))
	}

	// Add theme indicator
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, sep))
}
