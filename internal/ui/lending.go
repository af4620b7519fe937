package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shelf/internal/coord"
	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
	"github.com/five82/shelf/internal/loans"
)

// handleLendingKey processes keyboard input for loan administration.
func (m Model) handleLendingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.lending.Registry().Snapshot()

	if pressed(msg, m.keys.Escape) {
		if snap.Selected != nil {
			m.lending.Close()
		} else {
			m.lending.ClearError()
			m.lending.Registry().ClearError()
		}
		return m, nil
	}

	if snap.Selected == nil && m.moveSelection(msg) {
		return m, nil
	}

	switch {
	case pressed(msg, m.keys.Open):
		if loan, ok := m.targetLoan(snap); ok && snap.Selected == nil {
			if !m.lending.Open(loan.ID) {
				m.setFlash(fmt.Sprintf("loan #%d is no longer listed", loan.ID), true)
			}
		}
	case pressed(msg, m.keys.Return):
		loan, ok := m.targetLoan(snap)
		if !ok {
			return m, nil
		}
		if loan.Returned() {
			m.setFlash(fmt.Sprintf("loan #%d is already returned", loan.ID), true)
			return m, nil
		}
		id, title := loan.ID, loan.Book.Title
		m.modal = newConfirmModal("Return Loan",
			fmt.Sprintf("Mark %q returned by %s?", title, loan.Student.FullName()),
			func() tea.Cmd {
				return m.run(ViewLending, fmt.Sprintf("Loan #%d returned", id), func(ctx context.Context) error {
					_, err := m.lending.Return(ctx, id)
					return err
				})
			})
	case pressed(msg, m.keys.Delete):
		loan, ok := m.targetLoan(snap)
		if !ok {
			return m, nil
		}
		id := loan.ID
		m.modal = newConfirmModal("Delete Loan",
			fmt.Sprintf("Delete loan #%d for %q? This removes the record.", id, loan.Book.Title),
			func() tea.Cmd {
				return m.run(ViewLending, fmt.Sprintf("Loan #%d deleted", id), func(ctx context.Context) error {
					return m.lending.Delete(ctx, id)
				})
			})
	case snap.Selected != nil:
		// Detail view only takes the actions above.
	case pressed(msg, m.keys.CycleStatus):
		m.lending.SetStatus(snap.Filter.Status.Next())
		m.clampSelection(ViewLending)
		m.saveWorkspace()
	case pressed(msg, m.keys.CycleStudent):
		students, _ := m.lending.Students()
		m.lending.SetStudent(nextStudent(students, snap.Filter.StudentID))
		m.clampSelection(ViewLending)
	case pressed(msg, m.keys.Refresh):
		return m, m.refreshView(ViewLending)
	}
	return m, nil
}

// targetLoan is the open loan, or the highlighted row when none is open.
func (m Model) targetLoan(snap loans.Snapshot) (library.Loan, bool) {
	if snap.Selected != nil {
		return *snap.Selected, true
	}
	visible := snap.Filtered()
	idx := m.selected[ViewLending]
	if idx < 0 || idx >= len(visible) {
		return library.Loan{}, false
	}
	return visible[idx], true
}

// nextStudent cycles all -> first student -> ... -> last student -> all.
func nextStudent(students []library.User, current *int64) *int64 {
	if len(students) == 0 {
		return nil
	}
	if current == nil {
		id := students[0].ID
		return &id
	}
	for i, s := range students {
		if s.ID == *current {
			if i+1 < len(students) {
				id := students[i+1].ID
				return &id
			}
			return nil
		}
	}
	return nil
}

func studentName(students []library.User, id int64) string {
	for _, s := range students {
		if s.ID == id {
			return s.FullName()
		}
	}
	return fmt.Sprintf("student #%d", id)
}

// lendingSummary describes the registry filter, or "" when nothing is narrowed.
func lendingSummary(f loans.Filter, students []library.User) string {
	var parts []string
	if f.Status != "" && f.Status != listcache.StatusAll {
		parts = append(parts, "status "+f.Status.Label())
	}
	if f.StudentID != nil {
		parts = append(parts, "student "+studentName(students, *f.StudentID))
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + " · " + parts[1]
	}
}

// renderLending renders every loan in the registry.
func (m Model) renderLending() string {
	height := m.contentHeight()
	snap := m.lending.Registry().Snapshot()
	visible := snap.Filtered()
	students, studentsLoading := m.lending.Students()

	if snap.Selected != nil && m.width < LayoutDetailWidth {
		return m.renderLoanDetail(*snap.Selected, m.width, height, true)
	}

	title := fmt.Sprintf("Loans · %d of %d", len(visible), len(snap.Loans))
	if !snap.LastUpdated.IsZero() {
		title += " · updated " + relativeTime(snap.LastUpdated)
	}
	if snap.IsOffline() {
		title += " · offline"
	}
	summary := lendingSummary(snap.Filter, students)
	if studentsLoading {
		summary = ternary(summary == "", "loading students...", summary+" · loading students...")
	}

	errMsg := m.lending.ErrMessage()
	if errMsg == "" && snap.Err != nil {
		errMsg = library.Message(snap.Err)
	}
	st := listState{
		loading:   snap.Loading,
		loaded:    !snap.LastUpdated.IsZero(),
		err:       errMsg,
		empty:     len(snap.Loans) == 0,
		noMatches: len(snap.Loans) > 0 && len(visible) == 0,
	}

	listWidth := m.width
	showDetail := m.width >= LayoutDetailWidth && len(visible) > 0
	if showDetail {
		listWidth, _ = m.splitWidths()
	}

	now := time.Now()
	list := m.renderListPane(title, summary, st, "loans", len(visible), listWidth, height, snap.Selected == nil,
		func(i, width int, bgColor string, selected bool) string {
			loan := visible[i]
			bg := NewBgStyle(bgColor)
			idStyle, textStyle, sepStyle, mutedStyle := m.rowStyles(selected)

			state := ternary(loan.Returned(), "returned", "active")
			label := ternary(loan.Returned(), "returned", daysLabel(coord.DaysLoaned(loan, now)))
			stateStyle := textStyle
			if !selected {
				stateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(state)))
			}
			nameWidth := max(width/3, 8)
			titleWidth := max(width-nameWidth-len(label)-14, 8)
			return bg.Render(fmt.Sprintf("#%-4d", loan.ID), idStyle) + bg.Space() +
				bg.Render(fit(loan.Book.Title, titleWidth), textStyle) +
				bg.Render(" · ", sepStyle) +
				bg.Render(fit(loan.Student.FullName(), nameWidth), mutedStyle) +
				bg.Render(" · ", sepStyle) +
				bg.Render(label, stateStyle)
		})

	if !showDetail {
		return list
	}

	detailWidth := m.width - listWidth
	var detail string
	switch {
	case snap.Selected != nil:
		detail = m.renderLoanDetail(*snap.Selected, detailWidth, height, true)
	default:
		idx := m.selected[ViewLending]
		if idx >= 0 && idx < len(visible) {
			detail = m.renderLoanDetail(visible[idx], detailWidth, height, false)
		} else {
			detail = m.renderTitledBox("Loan", "", detailWidth, height, false)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, list, detail)
}

func (m Model) renderLoanDetail(loan library.Loan, width, height int, focused bool) string {
	bgColor := ternary(focused, m.theme.FocusBg, m.theme.SurfaceAlt)
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles().WithBackground(bgColor)
	borrowed := loan.ParsedBorrowedAt()

	pairs := [][2]string{
		{"Book", loan.Book.Title},
		{"Author", loan.Book.AuthorName},
		{"Genre", loan.Book.GenreName},
		{"", ""},
		{"Student", loan.Student.FullName()},
		{"Username", loan.Student.Username},
		{"", ""},
		{"Borrowed", shortDate(borrowed) + " (" + relativeTime(borrowed) + ")"},
	}
	if loan.Returned() {
		returned := loan.ParsedReturnedAt()
		pairs = append(pairs, [2]string{"Returned", shortDate(returned) + " (" + relativeTime(returned) + ")"})
	} else {
		pairs = append(pairs, [2]string{"Loaned", daysLabel(coord.DaysLoaned(loan, time.Now()))})
	}

	body := m.detailLines(bgColor, width-4, pairs)
	state := ternary(loan.Returned(), "returned", "active")
	body += "\n\n" + bg.Badge(ternary(loan.Returned(), "Returned", "On loan"), m.theme.StatusColor(state), m.theme.Background)
	if focused {
		hint := ternary(loan.Returned(), "d: delete   esc: close", "x: return   d: delete   esc: close")
		body += "\n\n" + bg.Render(hint, styles.FaintText)
	}
	return m.renderTitledBox(fmt.Sprintf("Loan #%d", loan.ID), body, width, height, focused)
}
