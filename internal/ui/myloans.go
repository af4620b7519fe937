package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shelf/internal/coord"
	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
)

// handleMyLoansKey processes keyboard input for the student's loans.
func (m Model) handleMyLoansKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.moveSelection(msg) {
		return m, nil
	}
	switch {
	case pressed(msg, m.keys.CycleStatus):
		m.myLoans.SetStatus(m.myLoans.Snapshot().Filter.Status.Next())
		m.clampSelection(ViewMyLoans)
		m.saveWorkspace()
	case pressed(msg, m.keys.Refresh):
		return m, m.refreshView(ViewMyLoans)
	}
	return m, nil
}

// loanState classifies a loan for coloring: returned, overdue, due_soon or active.
func loanState(loan library.Loan, due coord.Due, hasDue bool) string {
	switch {
	case loan.Returned():
		return "returned"
	case hasDue && due.Overdue:
		return "overdue"
	case hasDue && due.DueSoon():
		return "due_soon"
	default:
		return "active"
	}
}

// dueLabel renders the due column of a student loan.
func dueLabel(loan library.Loan, due coord.Due, hasDue bool) string {
	switch {
	case loan.Returned():
		return "returned " + shortDate(loan.ParsedReturnedAt())
	case !hasDue:
		return "due date unknown"
	case due.Overdue:
		return "overdue by " + daysLabel(-due.DaysRemaining)
	case due.DaysRemaining == 0:
		return "due today"
	default:
		return "due in " + daysLabel(due.DaysRemaining)
	}
}

// renderMyLoans renders the student's loans with a detail pane on wide screens.
func (m Model) renderMyLoans() string {
	height := m.contentHeight()
	snap := m.myLoans.Snapshot()
	active, total := m.myLoans.Counts()

	summary := ""
	if snap.Filter.Status != listcache.StatusAll && snap.Filter.Status != "" {
		summary = "status " + snap.Filter.Status.Label()
	}
	title := fmt.Sprintf("My Loans · %d active · %d total", active, total)
	st := listState{
		loading:   snap.Loading,
		loaded:    snap.Loaded,
		err:       m.myLoans.ErrMessage(),
		empty:     snap.Empty(),
		noMatches: snap.NoMatches(),
	}

	listWidth := m.width
	showDetail := m.width >= LayoutDetailWidth && len(snap.Visible) > 0
	if showDetail {
		listWidth, _ = m.splitWidths()
	}

	list := m.renderListPane(title, summary, st, "loans", len(snap.Visible), listWidth, height, true,
		func(i, width int, bgColor string, selected bool) string {
			loan := snap.Visible[i]
			due, hasDue := m.myLoans.Due(loan)
			bg := NewBgStyle(bgColor)
			idStyle, textStyle, sepStyle, _ := m.rowStyles(selected)

			label := dueLabel(loan, due, hasDue)
			dueStyle := textStyle
			if !selected {
				dueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(loanState(loan, due, hasDue))))
			}
			titleWidth := max(width-len(label)-12, 8)
			return bg.Render(fmt.Sprintf("#%d", loan.ID), idStyle) + bg.Space() +
				bg.Render(fit(loan.Book.Title, titleWidth), textStyle) +
				bg.Render(" · ", sepStyle) +
				bg.Render(label, dueStyle)
		})

	if !showDetail {
		return list
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, list, m.renderMyLoanDetail(snap.Visible, m.width-listWidth, height))
}

func (m Model) renderMyLoanDetail(visible []library.Loan, width, height int) string {
	idx := m.selected[ViewMyLoans]
	if idx < 0 || idx >= len(visible) {
		return m.renderTitledBox("Loan", "", width, height, false)
	}
	loan := visible[idx]
	due, hasDue := m.myLoans.Due(loan)
	borrowed := loan.ParsedBorrowedAt()

	pairs := [][2]string{
		{"Book", loan.Book.Title},
		{"Author", loan.Book.AuthorName},
		{"", ""},
		{"Borrowed", shortDate(borrowed) + " (" + relativeTime(borrowed) + ")"},
	}
	if loan.Returned() {
		returned := loan.ParsedReturnedAt()
		pairs = append(pairs, [2]string{"Returned", shortDate(returned) + " (" + relativeTime(returned) + ")"})
	} else if hasDue {
		pairs = append(pairs,
			[2]string{"Due", shortDate(due.Date)},
			[2]string{"Status", dueLabel(loan, due, hasDue)},
			[2]string{"Loaned", daysLabel(coord.DaysLoaned(loan, time.Now()))},
		)
	}
	body := m.detailLines(m.theme.SurfaceAlt, width-4, pairs)
	return m.renderTitledBox(fmt.Sprintf("Loan #%d", loan.ID), body, width, height, false)
}
