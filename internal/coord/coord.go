package coord

import (
	"errors"
	"sync"

	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
	"github.com/five82/shelf/internal/session"
)

// ErrForbidden is returned when the signed-in role may not use a screen.
var ErrForbidden = errors.New("this screen is not available for your role")

// ErrNotSignedIn is returned by coordinators that need a session when none exists.
var ErrNotSignedIn = errors.New("not signed in")

// Sessions exposes the current session to coordinators.
type Sessions interface {
	Current() (session.Session, bool)
}

// CanBorrow reports whether the signed-in user may create a loan for book:
// students only, and only while the book is available with stock left.
func CanBorrow(sess Sessions, book library.Book) bool {
	current, ok := sess.Current()
	if !ok {
		return false
	}
	return current.Role() == library.RoleStudent && book.IsAvailable && book.Stock > 0
}

func requireRole(sess Sessions, role library.Role) error {
	current, ok := sess.Current()
	if !ok {
		return ErrNotSignedIn
	}
	if current.Role() != role {
		return ErrForbidden
	}
	return nil
}

// activity tracks the in-flight flag and last error of one screen.
type activity struct {
	mu      sync.Mutex
	busy    int
	err     error
	started bool
}

// Busy reports whether a fetch or mutation is in flight.
func (a *activity) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.busy > 0
}

// Err returns the last failure, or nil.
func (a *activity) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// ErrMessage returns the last failure as display text, or "".
func (a *activity) ErrMessage() string {
	return library.Message(a.Err())
}

// ClearError dismisses the last failure.
func (a *activity) ClearError() {
	a.mu.Lock()
	a.err = nil
	a.mu.Unlock()
}

// reset forgets the error and the started flag so the next Start fetches
// again. In-flight calls still decrement busy when they end.
func (a *activity) reset() {
	a.mu.Lock()
	a.err = nil
	a.started = false
	a.mu.Unlock()
}

// markStarted returns true only on the first call.
func (a *activity) markStarted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return false
	}
	a.started = true
	return true
}

func (a *activity) begin() {
	a.mu.Lock()
	a.busy++
	a.err = nil
	a.mu.Unlock()
}

// end records err unless it only means a newer fetch won. It returns err so
// callers can `return a.end(err)`.
func (a *activity) end(err error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.busy > 0 {
		a.busy--
	}
	if err != nil && !errors.Is(err, listcache.ErrSuperseded) {
		a.err = err
	}
	return err
}

// fail records err without touching the busy counter.
func (a *activity) fail(err error) error {
	a.mu.Lock()
	a.err = err
	a.mu.Unlock()
	return err
}
