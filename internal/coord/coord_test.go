package coord

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
	"github.com/five82/shelf/internal/loans"
	"github.com/five82/shelf/internal/session"
	"github.com/five82/shelf/internal/validate"
)

type staticSession struct {
	sess *session.Session
}

func (s staticSession) Current() (session.Session, bool) {
	if s.sess == nil {
		return session.Session{}, false
	}
	return *s.sess, true
}

func as(role library.Role) staticSession {
	return staticSession{sess: &session.Session{User: library.User{ID: 7, Username: "u", Role: role}, AccessToken: "t"}}
}

// recorder is a gateway fake that records every call by name.
type recorder struct {
	mu    sync.Mutex
	calls []string

	books   []library.Book
	users   []library.User
	loans   []library.Loan
	failOn  map[string]error
	created library.CreateLoanRequest
	stock   *int
}

func (r *recorder) record(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
	return r.failOn[name]
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) ListBooks(ctx context.Context, q library.BookQuery) ([]library.Book, error) {
	if err := r.record("ListBooks"); err != nil {
		return nil, err
	}
	return r.books, nil
}

func (r *recorder) CreateBook(ctx context.Context, req library.CreateBookRequest) (library.Book, error) {
	if err := r.record("CreateBook"); err != nil {
		return library.Book{}, err
	}
	book := library.Book{ID: int64(len(r.books) + 1), Title: req.Title}
	r.books = append(r.books, book)
	return book, nil
}

func (r *recorder) UpdateBook(ctx context.Context, id int64, req library.UpdateBookRequest) (library.Book, error) {
	if err := r.record("UpdateBook"); err != nil {
		return library.Book{}, err
	}
	r.stock = req.Stock
	return library.Book{ID: id}, nil
}

func (r *recorder) DeleteBook(ctx context.Context, id int64) error {
	return r.record("DeleteBook")
}

func (r *recorder) ListUsers(ctx context.Context, role library.Role) ([]library.User, error) {
	if err := r.record("ListUsers"); err != nil {
		return nil, err
	}
	return r.users, nil
}

func (r *recorder) CreateUser(ctx context.Context, req library.CreateUserRequest) (library.User, error) {
	if err := r.record("CreateUser"); err != nil {
		return library.User{}, err
	}
	return library.User{ID: 99, Username: req.Username, Role: req.Role}, nil
}

func (r *recorder) DeleteUser(ctx context.Context, id int64) error {
	return r.record("DeleteUser")
}

func (r *recorder) ListLoans(ctx context.Context, q library.LoanQuery) ([]library.Loan, error) {
	if err := r.record("ListLoans"); err != nil {
		return nil, err
	}
	return r.loans, nil
}

func (r *recorder) GetLoan(ctx context.Context, id int64) (library.Loan, error) {
	if err := r.record("GetLoan"); err != nil {
		return library.Loan{}, err
	}
	return library.Loan{ID: id}, nil
}

func (r *recorder) CreateLoan(ctx context.Context, req library.CreateLoanRequest) (library.Loan, error) {
	if err := r.record("CreateLoan"); err != nil {
		return library.Loan{}, err
	}
	r.created = req
	return library.Loan{ID: 500, Book: library.Book{ID: req.BookID}}, nil
}

func (r *recorder) ReturnLoan(ctx context.Context, id int64) (library.Loan, error) {
	if err := r.record("ReturnLoan"); err != nil {
		return library.Loan{}, err
	}
	return library.Loan{ID: id, IsReturned: true}, nil
}

func (r *recorder) DeleteLoan(ctx context.Context, id int64) error {
	return r.record("DeleteLoan")
}

var ctx = context.Background()

func TestCanBorrow(t *testing.T) {
	book := library.Book{ID: 1, IsAvailable: true, Stock: 1}

	assert.True(t, CanBorrow(as(library.RoleStudent), book))
	assert.False(t, CanBorrow(as(library.RoleLibrarian), book))
	assert.False(t, CanBorrow(staticSession{}, book))
	assert.False(t, CanBorrow(as(library.RoleStudent), library.Book{IsAvailable: false, Stock: 3}))
	assert.False(t, CanBorrow(as(library.RoleStudent), library.Book{IsAvailable: true, Stock: 0}))
}

func TestCatalog_StartIsIdempotentAndFiltersLocally(t *testing.T) {
	rec := &recorder{books: []library.Book{{ID: 1, Title: "Dune"}, {ID: 2, Title: "Emma"}}}
	c := NewCatalog(rec, as(library.RoleStudent))

	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Start(ctx))
	c.SetFilter(func(f *listcache.BookFilter) { f.Title = "emm" })

	assert.Equal(t, []string{"ListBooks"}, rec.Calls())
	visible := c.Snapshot().Visible
	require.Len(t, visible, 1)
	assert.Equal(t, int64(2), visible[0].ID)

	require.NoError(t, c.Refresh(ctx))
	assert.Equal(t, []string{"ListBooks", "ListBooks"}, rec.Calls())
}

func TestCatalog_BorrowCreatesLoanThenReloads(t *testing.T) {
	rec := &recorder{books: []library.Book{{ID: 4, Title: "Dune", IsAvailable: true, Stock: 2}}}
	c := NewCatalog(rec, as(library.RoleStudent))
	require.NoError(t, c.Start(ctx))

	loan, err := c.Borrow(ctx, rec.books[0])

	require.NoError(t, err)
	assert.Equal(t, int64(500), loan.ID)
	assert.Equal(t, int64(4), rec.created.BookID)
	assert.Nil(t, rec.created.StudentID)
	assert.Equal(t, []string{"ListBooks", "CreateLoan", "ListBooks"}, rec.Calls())
	assert.False(t, c.Busy())
}

func TestCatalog_BorrowRefusedLocally(t *testing.T) {
	rec := &recorder{}

	c := NewCatalog(rec, as(library.RoleStudent))
	_, err := c.Borrow(ctx, library.Book{ID: 1, IsAvailable: true, Stock: 0})
	assert.True(t, validate.IsValidation(err))
	assert.Equal(t, "this book is not available for loan", c.ErrMessage())

	c = NewCatalog(rec, as(library.RoleLibrarian))
	_, err = c.Borrow(ctx, library.Book{ID: 1, IsAvailable: true, Stock: 1})
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Empty(t, rec.Calls())
}

func TestCatalog_BorrowFailureKeepsData(t *testing.T) {
	rec := &recorder{
		books:  []library.Book{{ID: 4, IsAvailable: true, Stock: 1}},
		failOn: map[string]error{"CreateLoan": &library.RemoteRequestError{Status: http.StatusBadRequest, Message: "You already have this book"}},
	}
	c := NewCatalog(rec, as(library.RoleStudent))
	require.NoError(t, c.Start(ctx))

	_, err := c.Borrow(ctx, rec.books[0])

	require.Error(t, err)
	assert.Equal(t, "You already have this book", c.ErrMessage())
	assert.Len(t, c.Snapshot().Items, 1)
	assert.False(t, c.Busy())
	assert.Equal(t, []string{"ListBooks", "CreateLoan"}, rec.Calls())
}

func TestCatalog_CloseDetailReloads(t *testing.T) {
	rec := &recorder{books: []library.Book{{ID: 1}}}
	c := NewCatalog(rec, as(library.RoleStudent))
	require.NoError(t, c.Start(ctx))
	c.Select(rec.books[0])
	_, ok := c.Selected()
	require.True(t, ok)

	require.NoError(t, c.CloseDetail(ctx))
	_, ok = c.Selected()
	assert.False(t, ok)
	assert.Equal(t, []string{"ListBooks", "ListBooks"}, rec.Calls())
}

func TestBookAdmin_ValidationNeverCallsGateway(t *testing.T) {
	rec := &recorder{}
	b := NewBookAdmin(rec, as(library.RoleLibrarian))
	b.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

	_, err := b.Create(ctx, library.CreateBookRequest{Title: "", AuthorName: "x", GenreName: "y", PublishedYear: 2000})
	var ve *validate.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "title", ve.Field)

	_, err = b.Create(ctx, library.CreateBookRequest{Title: "t", AuthorName: "x", GenreName: "y", PublishedYear: 2026})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "published_year", ve.Field)

	assert.Error(t, b.UpdateStock(ctx, 1, -1))
	assert.Empty(t, rec.Calls())
}

func TestBookAdmin_MutationsReload(t *testing.T) {
	rec := &recorder{}
	b := NewBookAdmin(rec, as(library.RoleLibrarian))
	b.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, b.Start(ctx))

	form := b.DefaultForm()
	assert.Equal(t, 2025, form.PublishedYear)
	require.NotNil(t, form.Stock)
	assert.Equal(t, 1, *form.Stock)

	form.Title, form.AuthorName, form.GenreName = "Dune", "Herbert", "SF"
	_, err := b.Create(ctx, form)
	require.NoError(t, err)
	assert.Len(t, b.Snapshot().Items, 1)

	require.NoError(t, b.UpdateStock(ctx, 1, 5))
	require.NotNil(t, rec.stock)
	assert.Equal(t, 5, *rec.stock)

	require.NoError(t, b.Delete(ctx, 1))
	assert.Equal(t, []string{
		"ListBooks",
		"CreateBook", "ListBooks",
		"UpdateBook", "ListBooks",
		"DeleteBook", "ListBooks",
	}, rec.Calls())
}

func TestBookAdmin_DeleteFailureSurfacesMessage(t *testing.T) {
	rec := &recorder{
		books:  []library.Book{{ID: 1}},
		failOn: map[string]error{"DeleteBook": &library.RemoteRequestError{Status: 409, Message: "Book has active loans"}},
	}
	b := NewBookAdmin(rec, as(library.RoleLibrarian))
	require.NoError(t, b.Start(ctx))

	require.Error(t, b.Delete(ctx, 1))
	assert.Equal(t, "Book has active loans", b.ErrMessage())
	assert.Len(t, b.Snapshot().Items, 1)

	b.ClearError()
	assert.NoError(t, b.Err())
}

func TestAdminCoordinatorsRequireLibrarian(t *testing.T) {
	rec := &recorder{}
	student := as(library.RoleStudent)

	assert.ErrorIs(t, NewBookAdmin(rec, student).Start(ctx), ErrForbidden)
	assert.ErrorIs(t, NewUserAdmin(rec, student).Start(ctx), ErrForbidden)
	assert.ErrorIs(t, NewLoanAdmin(rec, loans.NewRegistry(rec), student).Start(ctx), ErrForbidden)
	assert.ErrorIs(t, NewBookAdmin(rec, staticSession{}).Start(ctx), ErrNotSignedIn)
	assert.Empty(t, rec.Calls())
}

func TestUserAdmin_CreateValidatesThenReloads(t *testing.T) {
	rec := &recorder{}
	u := NewUserAdmin(rec, as(library.RoleLibrarian))

	req := u.DefaultForm()
	req.Username, req.Email, req.Password = "ana", "ana@uni.edu", "12345"
	_, err := u.Create(ctx, req)
	assert.True(t, validate.IsValidation(err))
	assert.Empty(t, rec.Calls())

	req.Password = "123456"
	user, err := u.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, library.RoleStudent, user.Role)

	require.NoError(t, u.Delete(ctx, user.ID))
	assert.Equal(t, []string{"CreateUser", "ListUsers", "DeleteUser", "ListUsers"}, rec.Calls())
}

func TestMyLoans_CountsAndDue(t *testing.T) {
	returnedAt := "2025-01-05T00:00:00Z"
	rec := &recorder{loans: []library.Loan{
		{ID: 1, BorrowedAt: "2025-01-01T00:00:00Z"},
		{ID: 2, BorrowedAt: "2025-01-01T00:00:00Z", IsReturned: true, ReturnedAt: &returnedAt},
		{ID: 3, BorrowedAt: "2025-01-10T00:00:00Z"},
	}}
	m := NewMyLoans(rec, as(library.RoleStudent))
	m.now = func() time.Time { return time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, m.Start(ctx))

	active, total := m.Counts()
	assert.Equal(t, 2, active)
	assert.Equal(t, 3, total)

	m.SetStatus(listcache.StatusReturned)
	visible := m.Snapshot().Visible
	require.Len(t, visible, 1)
	assert.Equal(t, int64(2), visible[0].ID)

	due, ok := m.Due(rec.loans[0])
	require.True(t, ok)
	assert.True(t, due.Overdue)
	assert.Equal(t, -5, due.DaysRemaining)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), due.Date)

	due, ok = m.Due(rec.loans[2])
	require.True(t, ok)
	assert.False(t, due.Overdue)
	assert.Equal(t, 4, due.DaysRemaining)
	assert.False(t, due.DueSoon())

	_, ok = m.Due(rec.loans[1])
	assert.False(t, ok, "returned loans have no due date")

	assert.Equal(t, 4, DaysLoaned(rec.loans[1], m.now()))
	assert.Equal(t, []string{"ListLoans"}, rec.Calls())
}

func TestMyLoans_LibrarianForbidden(t *testing.T) {
	m := NewMyLoans(&recorder{}, as(library.RoleLibrarian))
	assert.ErrorIs(t, m.Start(ctx), ErrForbidden)
}

func TestLoanAdmin_ReturnUpdatesRegistryWithoutRefetch(t *testing.T) {
	rec := &recorder{
		loans: []library.Loan{
			{ID: 1, Student: library.User{ID: 7}},
			{ID: 2, Student: library.User{ID: 7}},
			{ID: 3, Student: library.User{ID: 9}},
		},
		users: []library.User{
			{ID: 7, Role: library.RoleStudent},
			{ID: 8, Role: library.RoleLibrarian},
			{ID: 9, Role: library.RoleStudent},
		},
	}
	reg := loans.NewRegistry(rec)
	l := NewLoanAdmin(rec, reg, as(library.RoleLibrarian))
	require.NoError(t, l.Start(ctx))

	students, loading := l.Students()
	assert.False(t, loading)
	assert.Len(t, students, 2)

	require.True(t, l.Open(2))
	_, err := l.Return(ctx, 2)
	require.NoError(t, err)

	snap := reg.Snapshot()
	assert.True(t, snap.Loans[1].Returned())
	require.NotNil(t, snap.Selected)
	assert.True(t, snap.Selected.Returned())
	assert.False(t, snap.Loans[0].Returned())

	id := int64(7)
	l.SetStatus(listcache.StatusActive)
	l.SetStudent(&id)
	filtered := reg.Filtered()
	require.Len(t, filtered, 1)
	assert.Equal(t, int64(1), filtered[0].ID)

	l.Close()
	assert.Nil(t, reg.Snapshot().Selected)
	assert.Equal(t, []string{"ListUsers", "ListLoans", "ReturnLoan"}, rec.Calls())
}

func TestLoanAdmin_StudentLoadFailureIsOnlyLogged(t *testing.T) {
	rec := &recorder{failOn: map[string]error{"ListUsers": errors.New("boom")}}
	l := NewLoanAdmin(rec, loans.NewRegistry(rec), as(library.RoleLibrarian))

	require.NoError(t, l.Start(ctx))
	students, _ := l.Students()
	assert.Empty(t, students)
	assert.NoError(t, l.Err())
}

func TestLoanAdmin_DeleteClearsSelectionAndRefetches(t *testing.T) {
	rec := &recorder{loans: []library.Loan{{ID: 1}}}
	reg := loans.NewRegistry(rec)
	l := NewLoanAdmin(rec, reg, as(library.RoleLibrarian))
	require.NoError(t, l.Refresh(ctx))
	require.True(t, l.Open(1))

	require.NoError(t, l.Delete(ctx, 1))
	assert.Nil(t, reg.Snapshot().Selected)
	assert.Equal(t, []string{"ListLoans", "DeleteLoan", "ListLoans"}, rec.Calls())
}
