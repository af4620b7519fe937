package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
)

// handleCatalogKey processes keyboard input for the student catalog.
func (m Model) handleCatalogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.detailOpen {
		switch {
		case pressed(msg, m.keys.Escape):
			m.detailOpen = false
			return m, m.run(ViewCatalog, "", m.catalog.CloseDetail)
		case pressed(msg, m.keys.Borrow):
			if book, ok := m.detailBook(); ok {
				return m, m.borrowCmd(book)
			}
		}
		return m, nil
	}

	if m.moveSelection(msg) {
		return m, nil
	}

	switch {
	case pressed(msg, m.keys.Open):
		if book, ok := m.selectedBook(); ok {
			m.catalog.Select(book)
			m.detailOpen = true
		}
	case pressed(msg, m.keys.Borrow):
		if book, ok := m.selectedBook(); ok {
			return m, m.borrowCmd(book)
		}
	case pressed(msg, m.keys.Filter):
		m.modal = m.bookFilterForm(m.catalog.Snapshot().Filter, m.catalog.SetFilter)
	case pressed(msg, m.keys.ClearFilter):
		m.catalog.ClearFilters()
		m.clampSelection(ViewCatalog)
	case pressed(msg, m.keys.Refresh):
		return m, m.refreshView(ViewCatalog)
	}
	return m, nil
}

func (m Model) borrowCmd(book library.Book) tea.Cmd {
	return m.run(ViewCatalog, fmt.Sprintf("Borrowed %q", book.Title), func(ctx context.Context) error {
		_, err := m.catalog.Borrow(ctx, book)
		return err
	})
}

// selectedBook returns the book under the cursor.
func (m Model) selectedBook() (library.Book, bool) {
	visible := m.catalog.Snapshot().Visible
	idx := m.selected[ViewCatalog]
	if idx < 0 || idx >= len(visible) {
		return library.Book{}, false
	}
	return visible[idx], true
}

// detailBook returns the open book, refreshed from the latest fetch when it
// is still listed.
func (m Model) detailBook() (library.Book, bool) {
	book, ok := m.catalog.Selected()
	if !ok {
		return library.Book{}, false
	}
	for _, b := range m.catalog.Snapshot().Items {
		if b.ID == book.ID {
			return b, true
		}
	}
	return book, true
}

// bookFilterForm edits a BookFilter in place. Shared by the catalog and book admin.
func (m Model) bookFilterForm(current listcache.BookFilter, apply func(func(*listcache.BookFilter))) *formModal {
	avail := ""
	if current.Available != nil {
		avail = ternary(*current.Available, "yes", "no")
	}
	return newFormModal("Filter Books", "Leave blank to disable a filter. Matching ignores case.",
		func(v formValues) (tea.Cmd, error) {
			available, err := parseAvailability(v["available"])
			if err != nil {
				return nil, err
			}
			apply(func(f *listcache.BookFilter) {
				f.Title = v["title"]
				f.Author = v["author"]
				f.Genre = v["genre"]
				f.Available = available
			})
			return nil, nil
		},
		textField("title", "Title", current.Title, "part of a title"),
		textField("author", "Author", current.Author, "part of an author name"),
		textField("genre", "Genre", current.Genre, "e.g. fantasy"),
		textField("available", "Available", avail, "yes, no or blank"),
	)
}

// parseAvailability maps yes/no/blank to a tri-state filter value.
func parseAvailability(raw string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return nil, nil
	case "y", "yes", "true", "1":
		v := true
		return &v, nil
	case "n", "no", "false", "0":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("available must be yes, no or blank")
}

// bookFilterSummary describes an active BookFilter in one line.
func bookFilterSummary(f listcache.BookFilter) string {
	var parts []string
	if f.Title != "" {
		parts = append(parts, "title~"+f.Title)
	}
	if f.Author != "" {
		parts = append(parts, "author~"+f.Author)
	}
	if f.Genre != "" {
		parts = append(parts, "genre~"+f.Genre)
	}
	if f.Available != nil {
		parts = append(parts, ternary(*f.Available, "available", "unavailable"))
	}
	return strings.Join(parts, "  ")
}

// renderCatalog renders the catalog list with an optional detail pane.
func (m Model) renderCatalog() string {
	height := m.contentHeight()
	snap := m.catalog.Snapshot()

	listWidth := m.width
	if m.detailOpen {
		if m.width < LayoutDetailWidth {
			return m.renderBookDetail(m.width, height)
		}
		listWidth, _ = m.splitWidths()
	}

	title := fmt.Sprintf("Catalog (%d of %d)", len(snap.Visible), len(snap.Items))
	st := listState{
		loading:   snap.Loading,
		loaded:    snap.Loaded,
		err:       m.catalog.ErrMessage(),
		empty:     snap.Empty(),
		noMatches: snap.NoMatches(),
	}
	list := m.renderListPane(title, bookFilterSummary(snap.Filter), st, "books",
		len(snap.Visible), listWidth, height, !m.detailOpen, m.bookRow(snap.Visible, true))

	if !m.detailOpen {
		return list
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, list, m.renderBookDetail(m.width-listWidth, height))
}

// bookRow formats "#ID Title · Author · Year  [badge]".
func (m Model) bookRow(books []library.Book, showAvailability bool) rowFunc {
	return func(i, width int, bgColor string, selected bool) string {
		book := books[i]
		bg := NewBgStyle(bgColor)
		idStyle, textStyle, sepStyle, mutedStyle := m.rowStyles(selected)

		idStr := fmt.Sprintf("#%d", book.ID)
		meta := book.AuthorName
		if book.PublishedYear > 0 {
			meta += " · " + strconv.Itoa(book.PublishedYear)
		}
		if width >= LayoutCompactWidth && book.GenreName != "" {
			meta += " · " + book.GenreName
		}

		status := stockLabel(book.Stock)
		statusKey := "available"
		if !book.IsAvailable || book.Stock <= 0 {
			status = "Unavailable"
			statusKey = "unavailable"
		}

		metaWidth := min(lipgloss.Width(meta), max(width/3, 12))
		titleWidth := max(width-len(idStr)-metaWidth-len(status)-8, 8)

		row := bg.Render(idStr, idStyle) + bg.Space() +
			bg.Render(fit(book.Title, titleWidth), textStyle) +
			bg.Render(" · ", sepStyle) +
			bg.Render(fit(meta, metaWidth), mutedStyle)
		if showAvailability {
			var statusStyle lipgloss.Style
			if selected {
				statusStyle = textStyle
			} else {
				statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(statusKey)))
			}
			row += bg.Space() + bg.Render(status, statusStyle)
		}
		return row
	}
}

// renderBookDetail renders the open book and whether it can be borrowed.
func (m Model) renderBookDetail(width, height int) string {
	book, ok := m.detailBook()
	bgColor := m.theme.FocusBg
	if !ok {
		return m.renderTitledBox("Book", "", width, height, true)
	}
	styles := m.theme.Styles().WithBackground(bgColor)

	availability := "Available"
	if !book.IsAvailable || book.Stock <= 0 {
		availability = "Not available"
	}
	body := m.detailLines(bgColor, width-4, [][2]string{
		{"Title", book.Title},
		{"Author", book.AuthorName},
		{"Genre", book.GenreName},
		{"Published", strconv.Itoa(book.PublishedYear)},
		{"", ""},
		{"Stock", stockLabel(book.Stock)},
		{"Status", availability},
	})

	var action string
	switch {
	case m.catalog.CanBorrow(book):
		action = styles.SuccessText.Render("press b to borrow this book")
	case !book.IsAvailable || book.Stock <= 0:
		action = styles.WarningText.Render("this book is not available for loan")
	default:
		action = styles.MutedText.Render("only students can borrow books")
	}
	if m.catalog.Busy() {
		action = m.spinner.View() + " " + styles.MutedText.Render("working...")
	}

	return m.renderTitledBox(truncate(book.Title, width-8), body+"\n\n"+action, width, height, true)
}
