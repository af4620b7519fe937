package coord

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
	"github.com/five82/shelf/internal/validate"
)

// CatalogGateway is what the catalog screen calls.
type CatalogGateway interface {
	ListBooks(ctx context.Context, query library.BookQuery) ([]library.Book, error)
	CreateLoan(ctx context.Context, req library.CreateLoanRequest) (library.Loan, error)
}

// Catalog drives the book catalog: a locally filtered book list with a detail
// view from which students borrow.
type Catalog struct {
	activity

	gateway CatalogGateway
	sess    Sessions
	books   *listcache.Cache[library.Book, listcache.BookFilter]

	selMu    sync.Mutex
	selected *library.Book
}

// NewCatalog returns a Catalog that has not fetched yet.
func NewCatalog(gateway CatalogGateway, sess Sessions) *Catalog {
	c := &Catalog{gateway: gateway, sess: sess}
	c.books = listcache.New(func(ctx context.Context) ([]library.Book, error) {
		return gateway.ListBooks(ctx, library.BookQuery{})
	}, listcache.MatchBook)
	return c
}

// Start performs the initial fetch once.
func (c *Catalog) Start(ctx context.Context) error {
	if !c.markStarted() {
		return nil
	}
	return c.Refresh(ctx)
}

// Refresh re-fetches the whole catalog.
func (c *Catalog) Refresh(ctx context.Context) error {
	if _, ok := c.sess.Current(); !ok {
		return c.fail(ErrNotSignedIn)
	}
	c.begin()
	return c.end(c.books.Load(ctx))
}

// Reset drops the cached books, filter, selection and error so the next
// Start fetches for whoever signs in next.
func (c *Catalog) Reset() {
	c.reset()
	c.books.Reset()
	c.selMu.Lock()
	c.selected = nil
	c.selMu.Unlock()
}

// Snapshot returns the cached books and the filtered view.
func (c *Catalog) Snapshot() listcache.Snapshot[library.Book, listcache.BookFilter] {
	return c.books.Snapshot()
}

// SetFilter changes the view without fetching.
func (c *Catalog) SetFilter(patch func(*listcache.BookFilter)) {
	c.books.SetFilter(patch)
}

// ClearFilters resets the catalog filter.
func (c *Catalog) ClearFilters() {
	c.books.ClearFilters()
}

// Select opens the detail view for book.
func (c *Catalog) Select(book library.Book) {
	c.selMu.Lock()
	c.selected = &book
	c.selMu.Unlock()
}

// Selected returns the book shown in the detail view.
func (c *Catalog) Selected() (library.Book, bool) {
	c.selMu.Lock()
	defer c.selMu.Unlock()
	if c.selected == nil {
		return library.Book{}, false
	}
	return *c.selected, true
}

// CloseDetail leaves the detail view and reloads the catalog so availability
// reflects any loan made meanwhile.
func (c *Catalog) CloseDetail(ctx context.Context) error {
	c.selMu.Lock()
	c.selected = nil
	c.selMu.Unlock()
	return c.Refresh(ctx)
}

// CanBorrow reports whether the signed-in user may borrow book.
func (c *Catalog) CanBorrow(book library.Book) bool {
	return CanBorrow(c.sess, book)
}

// Borrow creates a loan for book on behalf of the signed-in student and then
// reloads the catalog.
func (c *Catalog) Borrow(ctx context.Context, book library.Book) (library.Loan, error) {
	if err := requireRole(c.sess, library.RoleStudent); err != nil {
		return library.Loan{}, c.fail(err)
	}
	if !book.IsAvailable || book.Stock <= 0 {
		return library.Loan{}, c.fail(&validate.ValidationError{Field: "book", Message: "this book is not available for loan"})
	}

	c.begin()
	loan, err := c.gateway.CreateLoan(ctx, library.CreateLoanRequest{BookID: book.ID})
	if err != nil {
		return library.Loan{}, c.end(fmt.Errorf("borrow %q: %w", book.Title, err))
	}
	c.end(nil)
	log.Printf("loan %d created for book %d", loan.ID, book.ID)

	if err := c.Refresh(ctx); err != nil {
		log.Printf("catalog reload after loan failed: %v", err)
	}
	return loan, nil
}
