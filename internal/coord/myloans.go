package coord

import (
	"context"
	"math"
	"time"

	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
)

// LoanPeriod is how long a student may keep a book.
const LoanPeriod = 14 * 24 * time.Hour

// DueSoonDays is the threshold below which a due date is highlighted.
const DueSoonDays = 3

// LoanLister fetches the caller's loans; the server scopes the list to the
// signed-in student.
type LoanLister interface {
	ListLoans(ctx context.Context, query library.LoanQuery) ([]library.Loan, error)
}

// Due describes when an active loan must come back.
type Due struct {
	Date          time.Time
	DaysRemaining int // negative once overdue
	Overdue       bool
}

// DueSoon reports whether the loan is due within DueSoonDays but not overdue.
func (d Due) DueSoon() bool {
	return !d.Overdue && d.DaysRemaining <= DueSoonDays
}

// DueInfo computes the due date of loan relative to now. Days are rounded up.
func DueInfo(loan library.Loan, now time.Time) Due {
	due := loan.ParsedBorrowedAt().Add(LoanPeriod)
	days := int(math.Ceil(due.Sub(now).Hours() / 24))
	return Due{Date: due, DaysRemaining: days, Overdue: days < 0}
}

// DaysLoaned counts the days between borrowing and return, or now for an
// active loan. Days are rounded up.
func DaysLoaned(loan library.Loan, now time.Time) int {
	end := now
	if returned := loan.ParsedReturnedAt(); !returned.IsZero() {
		end = returned
	}
	d := end.Sub(loan.ParsedBorrowedAt())
	if d < 0 {
		d = -d
	}
	return int(math.Ceil(d.Hours() / 24))
}

// MyLoans drives the student's own loan list.
type MyLoans struct {
	activity

	sess  Sessions
	loans *listcache.Cache[library.Loan, listcache.LoanFilter]
	now   func() time.Time
}

// NewMyLoans returns a MyLoans that has not fetched yet.
func NewMyLoans(gateway LoanLister, sess Sessions) *MyLoans {
	m := &MyLoans{sess: sess, now: time.Now}
	m.loans = listcache.New(func(ctx context.Context) ([]library.Loan, error) {
		return gateway.ListLoans(ctx, library.LoanQuery{})
	}, listcache.MatchLoan)
	m.loans.SetFilter(func(f *listcache.LoanFilter) { f.Status = listcache.StatusAll })
	return m
}

// Start performs the initial fetch once.
func (m *MyLoans) Start(ctx context.Context) error {
	if !m.markStarted() {
		return nil
	}
	return m.Refresh(ctx)
}

// Refresh re-fetches the student's loans.
func (m *MyLoans) Refresh(ctx context.Context) error {
	if err := requireRole(m.sess, library.RoleStudent); err != nil {
		return m.fail(err)
	}
	m.begin()
	return m.end(m.loans.Load(ctx))
}

// Reset drops the cached loans and returns the status tab to "all".
func (m *MyLoans) Reset() {
	m.reset()
	m.loans.Reset()
	m.loans.SetFilter(func(f *listcache.LoanFilter) { f.Status = listcache.StatusAll })
}

// SetStatus changes the status tab without fetching.
func (m *MyLoans) SetStatus(status listcache.LoanStatus) {
	m.loans.SetFilter(func(f *listcache.LoanFilter) { f.Status = status })
}

// Snapshot returns the cached loans and the filtered view.
func (m *MyLoans) Snapshot() listcache.Snapshot[library.Loan, listcache.LoanFilter] {
	return m.loans.Snapshot()
}

// Counts returns the number of active loans and the total.
func (m *MyLoans) Counts() (active, total int) {
	items := m.loans.Snapshot().Items
	for _, loan := range items {
		if !loan.Returned() {
			active++
		}
	}
	return active, len(items)
}

// Due returns the due information for an active loan.
func (m *MyLoans) Due(loan library.Loan) (Due, bool) {
	if loan.Returned() || loan.ParsedBorrowedAt().IsZero() {
		return Due{}, false
	}
	return DueInfo(loan, m.now()), true
}
