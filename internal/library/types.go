package library

import (
	"strings"
	"time"
)

// backendTimestampLayout is used by some deployments that drop the zone suffix.
const backendTimestampLayout = "2006-01-02T15:04:05.999999"

// Role is the account role reported by the backend.
type Role string

const (
	RoleStudent   Role = "student"
	RoleLibrarian Role = "librarian"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleLibrarian
}

// Label returns a display label for the role.
func (r Role) Label() string {
	switch r {
	case RoleStudent:
		return "Student"
	case RoleLibrarian:
		return "Librarian"
	default:
		return "Unknown"
	}
}

// User mirrors the payload returned by /api/users/ and /api/users/me/.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Username
	}
	return name
}

// Book mirrors /api/books/ entries. IsAvailable is derived by the server from Stock.
type Book struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	AuthorName    string `json:"author_name"`
	GenreName     string `json:"genre_name"`
	PublishedYear int    `json:"published_year"`
	Stock         int    `json:"stock"`
	IsAvailable   bool   `json:"is_available"`
}

// Loan mirrors /api/loans/ entries. Student and Book are snapshots taken when
// the loan was retrieved; they are not kept in sync with the book or user lists.
type Loan struct {
	ID         int64   `json:"id"`
	Student    User    `json:"student"`
	Book       Book    `json:"book"`
	BorrowedAt string  `json:"borrowed_at"`
	ReturnedAt *string `json:"returned_at"`
	IsReturned bool    `json:"is_returned"`
}

// Returned reports whether either the flag or the timestamp marks the loan as returned.
func (l Loan) Returned() bool {
	return l.IsReturned || (l.ReturnedAt != nil && strings.TrimSpace(*l.ReturnedAt) != "")
}

// ParsedBorrowedAt returns BorrowedAt as time.Time, or the zero time.
func (l Loan) ParsedBorrowedAt() time.Time {
	return parseTime(l.BorrowedAt)
}

// ParsedReturnedAt returns ReturnedAt as time.Time, or the zero time.
func (l Loan) ParsedReturnedAt() time.Time {
	if l.ReturnedAt == nil {
		return time.Time{}
	}
	return parseTime(*l.ReturnedAt)
}

// LoginRequest is the body of POST /api/token/.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenPair is the response of POST /api/token/.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// CreateUserRequest is the body of POST /api/users/.
type CreateUserRequest struct {
	Username  string `json:"username" validate:"notblank"`
	Email     string `json:"email" validate:"notblank,contains=@"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      Role   `json:"role,omitempty" validate:"omitempty,oneof=student librarian"`
}

// UpdateUserRequest is the body of PATCH /api/users/{id}/. Nil fields are omitted.
type UpdateUserRequest struct {
	Username  *string `json:"username,omitempty"`
	Email     *string `json:"email,omitempty"`
	Password  *string `json:"password,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Role      *Role   `json:"role,omitempty"`
}

// CreateBookRequest is the body of POST /api/books/.
type CreateBookRequest struct {
	Title         string `json:"title" validate:"notblank"`
	AuthorName    string `json:"author_name" validate:"notblank"`
	GenreName     string `json:"genre_name" validate:"notblank"`
	PublishedYear int    `json:"published_year" validate:"gte=1,notfuture"`
	Stock         *int   `json:"stock,omitempty" validate:"omitempty,gte=0"`
}

// UpdateBookRequest is the body of PATCH /api/books/{id}/. Nil fields are omitted.
type UpdateBookRequest struct {
	Title         *string `json:"title,omitempty"`
	AuthorName    *string `json:"author_name,omitempty"`
	GenreName     *string `json:"genre_name,omitempty"`
	PublishedYear *int    `json:"published_year,omitempty"`
	Stock         *int    `json:"stock,omitempty"`
}

// CreateLoanRequest is the body of POST /api/loans/. StudentID defaults to
// the caller on the server when omitted.
type CreateLoanRequest struct {
	BookID    int64  `json:"book_id"`
	StudentID *int64 `json:"student_id,omitempty"`
}

// BookQuery configures server-side filtering of GET /api/books/.
type BookQuery struct {
	Title     string
	Author    string
	Genre     string
	Available *bool
}

// LoanQuery configures server-side filtering of GET /api/loans/.
type LoanQuery struct {
	IsReturned *bool
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(backendTimestampLayout, value, time.Local); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(time.DateOnly, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
