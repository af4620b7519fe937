package ui

import (
	"context"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
)

// handleBooksKey processes keyboard input for book administration.
func (m Model) handleBooksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.moveSelection(msg) {
		return m, nil
	}
	switch {
	case pressed(msg, m.keys.New):
		m.modal = m.newBookForm()
	case pressed(msg, m.keys.Stock):
		if book, ok := m.selectedAdminBook(); ok {
			m.modal = m.stockForm(book)
		}
	case pressed(msg, m.keys.Delete):
		if book, ok := m.selectedAdminBook(); ok {
			id, title := book.ID, book.Title
			m.modal = newConfirmModal("Delete Book",
				fmt.Sprintf("Delete %q? Its loan history goes with it.", title),
				func() tea.Cmd {
					return m.run(ViewBooks, fmt.Sprintf("Deleted %q", title), func(ctx context.Context) error {
						return m.books.Delete(ctx, id)
					})
				})
		}
	case pressed(msg, m.keys.Filter):
		m.modal = m.bookFilterForm(m.books.Snapshot().Filter, m.books.SetFilter)
	case pressed(msg, m.keys.ClearFilter):
		m.books.SetFilter(func(f *listcache.BookFilter) { *f = listcache.BookFilter{} })
		m.clampSelection(ViewBooks)
	case pressed(msg, m.keys.Refresh):
		return m, m.refreshView(ViewBooks)
	}
	return m, nil
}

func (m Model) selectedAdminBook() (library.Book, bool) {
	visible := m.books.Snapshot().Visible
	idx := m.selected[ViewBooks]
	if idx < 0 || idx >= len(visible) {
		return library.Book{}, false
	}
	return visible[idx], true
}

// newBookForm collects a CreateBookRequest; the coordinator validates it.
func (m Model) newBookForm() *formModal {
	defaults := m.books.DefaultForm()
	stock := ""
	if defaults.Stock != nil {
		stock = strconv.Itoa(*defaults.Stock)
	}
	return newFormModal("New Book", "Author and genre are created on the server if new.",
		func(v formValues) (tea.Cmd, error) {
			year, err := v.Int("year", "published year")
			if err != nil {
				return nil, err
			}
			n, err := v.Int("stock", "stock")
			if err != nil {
				return nil, err
			}
			req := library.CreateBookRequest{
				Title:         v["title"],
				AuthorName:    v["author"],
				GenreName:     v["genre"],
				PublishedYear: year,
				Stock:         &n,
			}
			return m.submit(fmt.Sprintf("Added %q", req.Title), func(ctx context.Context) error {
				_, err := m.books.Create(ctx, req)
				return err
			}), nil
		},
		textField("title", "Title", "", ""),
		textField("author", "Author", "", ""),
		textField("genre", "Genre", "", ""),
		textField("year", "Year", strconv.Itoa(defaults.PublishedYear), ""),
		textField("stock", "Stock", stock, ""),
	)
}

// stockForm sets the copy count of one book.
func (m Model) stockForm(book library.Book) *formModal {
	id := book.ID
	return newFormModal(fmt.Sprintf("Stock · %s", truncate(book.Title, 30)), "Zero copies marks the book unavailable.",
		func(v formValues) (tea.Cmd, error) {
			n, err := v.Int("stock", "stock")
			if err != nil {
				return nil, err
			}
			return m.submit(fmt.Sprintf("Stock set to %d", n), func(ctx context.Context) error {
				return m.books.UpdateStock(ctx, id, n)
			}), nil
		},
		textField("stock", "Copies", strconv.Itoa(book.Stock), ""),
	)
}

// renderBooks renders the librarian's book list.
func (m Model) renderBooks() string {
	snap := m.books.Snapshot()
	title := fmt.Sprintf("Books (%d of %d)", len(snap.Visible), len(snap.Items))
	st := listState{
		loading:   snap.Loading,
		loaded:    snap.Loaded,
		err:       m.books.ErrMessage(),
		empty:     snap.Empty(),
		noMatches: snap.NoMatches(),
	}
	return m.renderListPane(title, bookFilterSummary(snap.Filter), st, "books",
		len(snap.Visible), m.width, m.contentHeight(), true, m.bookRow(snap.Visible, true))
}
