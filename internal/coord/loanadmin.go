package coord

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
	"github.com/five82/shelf/internal/loans"
)

// LoanAdminGateway is what the loan administration screen calls directly;
// fetches and returns go through the shared registry.
type LoanAdminGateway interface {
	ListUsers(ctx context.Context, role library.Role) ([]library.User, error)
	DeleteLoan(ctx context.Context, id int64) error
}

// LoanAdmin drives the librarian's loan list, which lives in the shared
// loans.Registry, plus the student list used by the student filter.
type LoanAdmin struct {
	activity

	gateway  LoanAdminGateway
	sess     Sessions
	registry *loans.Registry

	studentsMu      sync.Mutex
	students        []library.User
	studentsLoading bool
	studentsGen     uint64 // bumped by Reset
}

// NewLoanAdmin returns a LoanAdmin bound to the shared registry.
func NewLoanAdmin(gateway LoanAdminGateway, registry *loans.Registry, sess Sessions) *LoanAdmin {
	return &LoanAdmin{gateway: gateway, registry: registry, sess: sess}
}

// Registry exposes the shared registry for rendering and subscriptions.
func (l *LoanAdmin) Registry() *loans.Registry {
	return l.registry
}

// Start fetches loans and students once.
func (l *LoanAdmin) Start(ctx context.Context) error {
	if err := requireRole(l.sess, library.RoleLibrarian); err != nil {
		return l.fail(err)
	}
	if !l.markStarted() {
		return nil
	}
	l.LoadStudents(ctx)
	return l.Refresh(ctx)
}

// Refresh re-fetches the loan collection into the registry.
func (l *LoanAdmin) Refresh(ctx context.Context) error {
	if err := requireRole(l.sess, library.RoleLibrarian); err != nil {
		return l.fail(err)
	}
	l.begin()
	return l.end(l.registry.FetchAll(ctx))
}

// LoadStudents fetches the accounts offered by the student filter. Failure is
// logged and leaves the filter empty.
func (l *LoanAdmin) LoadStudents(ctx context.Context) {
	l.studentsMu.Lock()
	l.studentsLoading = true
	gen := l.studentsGen
	l.studentsMu.Unlock()

	users, err := l.gateway.ListUsers(ctx, library.RoleStudent)

	l.studentsMu.Lock()
	defer l.studentsMu.Unlock()
	if gen != l.studentsGen {
		return
	}
	l.studentsLoading = false
	if err != nil {
		log.Printf("could not load students for loan filter: %v", err)
		return
	}
	students := make([]library.User, 0, len(users))
	for _, u := range users {
		if u.Role == library.RoleStudent {
			students = append(students, u)
		}
	}
	l.students = students
}

// Reset empties the shared registry and the student list.
func (l *LoanAdmin) Reset() {
	l.reset()
	l.studentsMu.Lock()
	l.studentsGen++
	l.students = nil
	l.studentsLoading = false
	l.studentsMu.Unlock()
	l.registry.Reset()
}

// Students returns the accounts offered by the student filter.
func (l *LoanAdmin) Students() (students []library.User, loading bool) {
	l.studentsMu.Lock()
	defer l.studentsMu.Unlock()
	out := make([]library.User, len(l.students))
	copy(out, l.students)
	return out, l.studentsLoading
}

// SetStatus changes the status filter.
func (l *LoanAdmin) SetStatus(status listcache.LoanStatus) {
	l.registry.SetFilter(loans.FilterPatch{Status: &status})
}

// SetStudent restricts the list to one student; nil removes the restriction.
func (l *LoanAdmin) SetStudent(id *int64) {
	l.registry.SetFilter(loans.FilterPatch{StudentID: &id})
}

// Open selects the cached loan with id. It reports false if the loan is not
// in the list.
func (l *LoanAdmin) Open(id int64) bool {
	for _, loan := range l.registry.Snapshot().Loans {
		if loan.ID == id {
			l.registry.Select(&loan)
			return true
		}
	}
	return false
}

// Close clears the selection.
func (l *LoanAdmin) Close() {
	l.registry.Select(nil)
}

// Return marks a loan returned. The registry updates the entry in place.
func (l *LoanAdmin) Return(ctx context.Context, id int64) (library.Loan, error) {
	if err := requireRole(l.sess, library.RoleLibrarian); err != nil {
		return library.Loan{}, l.fail(err)
	}
	l.begin()
	loan, err := l.registry.ReturnLoan(ctx, id)
	if err != nil {
		return library.Loan{}, l.end(err)
	}
	l.end(nil)
	log.Printf("loan %d returned", id)
	return loan, nil
}

// Delete removes a loan record and re-fetches the collection.
func (l *LoanAdmin) Delete(ctx context.Context, id int64) error {
	if err := requireRole(l.sess, library.RoleLibrarian); err != nil {
		return l.fail(err)
	}
	l.begin()
	if err := l.gateway.DeleteLoan(ctx, id); err != nil {
		return l.end(fmt.Errorf("delete loan %d: %w", id, err))
	}
	l.end(nil)
	log.Printf("loan %d deleted", id)

	if sel := l.registry.Snapshot().Selected; sel != nil && sel.ID == id {
		l.registry.Select(nil)
	}
	if err := l.Refresh(ctx); err != nil {
		log.Printf("loan list reload failed: %v", err)
	}
	return nil
}
