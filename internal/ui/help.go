package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shelf/internal/library"
)

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	sess, _ := m.currentSession()
	sections := helpSections(sess.Role())

	// Build help content
	var b strings.Builder

	// Title
	title := styles.Text.Bold(true).Render("Keyboard Shortcuts")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	for i, section := range sections {
		// Section title
		b.WriteString(styles.AccentText.Bold(true).Render(section.title))
		b.WriteString("\n")

		for _, item := range section.items {
			// Key
			keyStyle := lipgloss.NewStyle().
				Foreground(lipgloss.Color(m.theme.Warning)).
				Width(12)
			b.WriteString(keyStyle.Render(item.key))
			// Description
			b.WriteString(styles.Text.Render(item.desc))
			b.WriteString("\n")
		}

		if i < len(sections)-1 {
			b.WriteString("\n")
		}
	}

	// Build the modal
	content := b.String()

	// Calculate modal dimensions
	modalWidth := 46

	// Modal style
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(modalWidth)

	// Center the modal
	modalContent := modal.Render(content)

	// Create overlay
	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modalContent,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

type helpSection struct {
	title string
	items []helpItem
}

type helpItem struct {
	key  string
	desc string
}

// helpSections lists the shortcuts available to role.
func helpSections(role library.Role) []helpSection {
	sections := []helpSection{
		{
			title: "Navigation",
			items: []helpItem{
				{"tab", "Cycle tabs"},
				{"1-9", "Jump to tab"},
				{"a", "Activity log"},
				{"j/k", "Move up/down"},
				{"g/G", "Go to top/bottom"},
				{"ctrl+d/u", "Half page down/up"},
				{"esc", "Close details"},
			},
		},
	}

	if role == library.RoleLibrarian {
		sections = append(sections,
			helpSection{
				title: "Books & Users",
				items: []helpItem{
					{"n", "New book or user"},
					{"s", "Change book stock"},
					{"d", "Delete"},
					{"/", "Filter"},
					{"c", "Clear filters"},
				},
			},
			helpSection{
				title: "Loans",
				items: []helpItem{
					{"enter", "Open loan"},
					{"x", "Mark returned"},
					{"d", "Delete loan"},
					{"f", "Cycle status filter"},
					{"s", "Cycle student filter"},
					{"esc", "Close loan or dismiss error"},
				},
			},
		)
	} else {
		sections = append(sections, helpSection{
			title: "Catalog & Loans",
			items: []helpItem{
				{"enter", "Book details"},
				{"b", "Borrow book"},
				{"/", "Filter catalog"},
				{"c", "Clear filters"},
				{"f", "Cycle loan status"},
			},
		})
	}

	return append(sections,
		helpSection{
			title: "Activity",
			items: []helpItem{
				{"Space", "Toggle follow mode"},
				{"/", "Search log"},
				{"n/N", "Next/prev match"},
			},
		},
		helpSection{
			title: "General",
			items: []helpItem{
				{"r", "Refresh"},
				{"L", "Log out"},
				{"T", "Cycle theme"},
				{"h/?", "Toggle help"},
				{"e/ctrl+c", "Quit"},
			},
		},
	)
}
