package listcache

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/five82/shelf/internal/library"
)

// BookFilter narrows the catalog. Empty text fields and a nil Available are
// unconstrained; all set fields must match.
type BookFilter struct {
	Title     string
	Author    string
	Genre     string
	Available *bool
}

// Active reports whether any field constrains the view.
func (f BookFilter) Active() bool {
	return strings.TrimSpace(f.Title) != "" ||
		strings.TrimSpace(f.Author) != "" ||
		strings.TrimSpace(f.Genre) != "" ||
		f.Available != nil
}

// MatchBook is the Predicate for BookFilter.
func MatchBook(book library.Book, f BookFilter) bool {
	if !ContainsFold(book.Title, f.Title) {
		return false
	}
	if !ContainsFold(book.AuthorName, f.Author) {
		return false
	}
	if !ContainsFold(book.GenreName, f.Genre) {
		return false
	}
	if f.Available != nil && book.IsAvailable != *f.Available {
		return false
	}
	return true
}

// LoanStatus selects loans by return state.
type LoanStatus string

const (
	StatusAll      LoanStatus = "all"
	StatusActive   LoanStatus = "active"
	StatusReturned LoanStatus = "returned"
)

// Next cycles all → active → returned → all.
func (s LoanStatus) Next() LoanStatus {
	switch s {
	case StatusAll, "":
		return StatusActive
	case StatusActive:
		return StatusReturned
	default:
		return StatusAll
	}
}

// Valid reports whether s is one of the known statuses.
func (s LoanStatus) Valid() bool {
	return s == StatusAll || s == StatusActive || s == StatusReturned
}

// Label returns the display label.
func (s LoanStatus) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusReturned:
		return "Returned"
	default:
		return "All"
	}
}

// Matches reports whether loan passes the status constraint. The empty
// status behaves like StatusAll.
func (s LoanStatus) Matches(loan library.Loan) bool {
	switch s {
	case StatusActive:
		return !loan.Returned()
	case StatusReturned:
		return loan.Returned()
	default:
		return true
	}
}

// LoanFilter narrows a loan list by status only; used by the student's own loans.
type LoanFilter struct {
	Status LoanStatus
}

// MatchLoan is the Predicate for LoanFilter.
func MatchLoan(loan library.Loan, f LoanFilter) bool {
	return f.Status.Matches(loan)
}

// UserFilter narrows the user list.
type UserFilter struct {
	Query string // matched against username, email and full name
	Role  library.Role
}

// MatchUser is the Predicate for UserFilter.
func MatchUser(user library.User, f UserFilter) bool {
	if f.Role != "" && user.Role != f.Role {
		return false
	}
	if strings.TrimSpace(f.Query) == "" {
		return true
	}
	return ContainsFold(user.Username, f.Query) ||
		ContainsFold(user.Email, f.Query) ||
		ContainsFold(user.FullName(), f.Query)
}

// ContainsFold reports whether needle occurs in haystack under Unicode case
// folding. A blank needle matches everything; otherwise the needle is used
// as typed, surrounding spaces included.
func ContainsFold(haystack, needle string) bool {
	if strings.TrimSpace(needle) == "" {
		return true
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(haystack), fold.String(needle))
}
