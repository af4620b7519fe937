package coord

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
	"github.com/five82/shelf/internal/validate"
)

// BookGateway is what the book administration screen calls.
type BookGateway interface {
	ListBooks(ctx context.Context, query library.BookQuery) ([]library.Book, error)
	CreateBook(ctx context.Context, req library.CreateBookRequest) (library.Book, error)
	UpdateBook(ctx context.Context, id int64, req library.UpdateBookRequest) (library.Book, error)
	DeleteBook(ctx context.Context, id int64) error
}

// BookAdmin drives the librarian's book list and forms. Every successful
// mutation re-fetches the list.
type BookAdmin struct {
	activity

	gateway BookGateway
	sess    Sessions
	books   *listcache.Cache[library.Book, listcache.BookFilter]
	now     func() time.Time
}

// NewBookAdmin returns a BookAdmin that has not fetched yet.
func NewBookAdmin(gateway BookGateway, sess Sessions) *BookAdmin {
	b := &BookAdmin{gateway: gateway, sess: sess, now: time.Now}
	b.books = listcache.New(func(ctx context.Context) ([]library.Book, error) {
		return gateway.ListBooks(ctx, library.BookQuery{})
	}, listcache.MatchBook)
	return b
}

// DefaultForm returns the initial values of the create form.
func (b *BookAdmin) DefaultForm() library.CreateBookRequest {
	stock := 1
	return library.CreateBookRequest{PublishedYear: b.now().Year(), Stock: &stock}
}

// Start performs the initial fetch once.
func (b *BookAdmin) Start(ctx context.Context) error {
	if !b.markStarted() {
		return nil
	}
	return b.Refresh(ctx)
}

// Refresh re-fetches the book list.
func (b *BookAdmin) Refresh(ctx context.Context) error {
	if err := requireRole(b.sess, library.RoleLibrarian); err != nil {
		return b.fail(err)
	}
	b.begin()
	return b.end(b.books.Load(ctx))
}

// Reset drops the cached books, filter and error.
func (b *BookAdmin) Reset() {
	b.reset()
	b.books.Reset()
}

// Snapshot returns the cached books and the filtered view.
func (b *BookAdmin) Snapshot() listcache.Snapshot[library.Book, listcache.BookFilter] {
	return b.books.Snapshot()
}

// SetFilter changes the view without fetching.
func (b *BookAdmin) SetFilter(patch func(*listcache.BookFilter)) {
	b.books.SetFilter(patch)
}

// Create validates req, creates the book and reloads the list.
func (b *BookAdmin) Create(ctx context.Context, req library.CreateBookRequest) (library.Book, error) {
	if err := requireRole(b.sess, library.RoleLibrarian); err != nil {
		return library.Book{}, b.fail(err)
	}
	if err := validate.Book(req, b.now()); err != nil {
		return library.Book{}, b.fail(err)
	}

	b.begin()
	book, err := b.gateway.CreateBook(ctx, req)
	if err != nil {
		return library.Book{}, b.end(fmt.Errorf("create book: %w", err))
	}
	b.end(nil)
	log.Printf("book %d created: %q", book.ID, book.Title)
	b.reload(ctx)
	return book, nil
}

// UpdateStock sets the number of copies of a book and reloads the list.
func (b *BookAdmin) UpdateStock(ctx context.Context, id int64, stock int) error {
	if err := requireRole(b.sess, library.RoleLibrarian); err != nil {
		return b.fail(err)
	}
	if err := validate.Stock(stock); err != nil {
		return b.fail(err)
	}

	b.begin()
	if _, err := b.gateway.UpdateBook(ctx, id, library.UpdateBookRequest{Stock: &stock}); err != nil {
		return b.end(fmt.Errorf("update book %d: %w", id, err))
	}
	b.end(nil)
	log.Printf("book %d stock set to %d", id, stock)
	b.reload(ctx)
	return nil
}

// Delete removes a book and reloads the list.
func (b *BookAdmin) Delete(ctx context.Context, id int64) error {
	if err := requireRole(b.sess, library.RoleLibrarian); err != nil {
		return b.fail(err)
	}

	b.begin()
	if err := b.gateway.DeleteBook(ctx, id); err != nil {
		return b.end(fmt.Errorf("delete book %d: %w", id, err))
	}
	b.end(nil)
	log.Printf("book %d deleted", id)
	b.reload(ctx)
	return nil
}

// reload re-fetches after a successful mutation. A failed reload is recorded
// but does not turn the mutation into a failure.
func (b *BookAdmin) reload(ctx context.Context) {
	if err := b.Refresh(ctx); err != nil {
		log.Printf("book list reload failed: %v", err)
	}
}
