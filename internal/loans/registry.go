package loans

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
)

// Gateway is the subset of library.Gateway the registry needs.
type Gateway interface {
	ListLoans(ctx context.Context, query library.LoanQuery) ([]library.Loan, error)
	GetLoan(ctx context.Context, id int64) (library.Loan, error)
	ReturnLoan(ctx context.Context, id int64) (library.Loan, error)
}

// Filter narrows the loan list. A nil StudentID is unconstrained.
type Filter struct {
	Status    listcache.LoanStatus
	StudentID *int64
}

// FilterPatch carries the fields SetFilter should change; nil fields are left
// as they are. To clear the student constraint pass a pointer to a nil *int64.
type FilterPatch struct {
	Status    *listcache.LoanStatus
	StudentID **int64
}

// Snapshot represents the registry state at one instant.
type Snapshot struct {
	Loans               []library.Loan
	Selected            *library.Loan
	Filter              Filter
	Loading             bool
	Err                 error
	LastUpdated         time.Time
	ConsecutiveFailures int // number of consecutive FetchAll failures
}

// IsOffline returns true when the API has been unreachable for multiple fetches.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Filtered returns the loans that pass the snapshot's filter.
func (s Snapshot) Filtered() []library.Loan {
	return Apply(s.Loans, s.Filter)
}

// Registry is the process-wide loan cache shared by every loan screen.
type Registry struct {
	gateway Gateway

	mu          sync.Mutex
	loans       []library.Loan
	selected    *library.Loan
	filter      Filter
	inFlight    int // gateway calls not yet finished
	err         error
	lastUpdated time.Time
	failures    int
	generation  uint64 // latest FetchAll
	epoch       uint64 // bumped by Reset
	subscribers []chan struct{}
}

// NewRegistry returns an empty registry with the "all" status filter.
func NewRegistry(gateway Gateway) *Registry {
	return &Registry{
		gateway: gateway,
		filter:  Filter{Status: listcache.StatusAll},
	}
}

// FetchAll replaces the cached collection with the server's. On failure the
// previous loans are kept and the error is recorded. A fetch overtaken by a
// newer one returns listcache.ErrSuperseded and changes nothing.
func (r *Registry) FetchAll(ctx context.Context) error {
	r.mu.Lock()
	r.generation++
	gen := r.generation
	r.mu.Unlock()
	r.begin()

	items, err := r.gateway.ListLoans(ctx, library.LoanQuery{})

	r.mu.Lock()
	r.finish()
	if gen != r.generation {
		r.mu.Unlock()
		r.notify()
		return listcache.ErrSuperseded
	}
	r.lastUpdated = time.Now()
	if err != nil {
		r.err = err
		r.failures++
	} else {
		r.loans = cloneLoans(items)
		r.failures = 0
	}
	r.mu.Unlock()
	r.notify()

	if err != nil {
		return fmt.Errorf("fetch loans: %w", err)
	}
	return nil
}

// FetchByID loads a single loan into the selection. The list is untouched.
func (r *Registry) FetchByID(ctx context.Context, id int64) error {
	epoch := r.begin()
	loan, err := r.gateway.GetLoan(ctx, id)

	r.mu.Lock()
	r.finish()
	switch {
	case epoch != r.epoch:
	case err != nil:
		r.err = err
	default:
		r.selected = &loan
	}
	r.mu.Unlock()
	r.notify()

	if err != nil {
		return fmt.Errorf("fetch loan %d: %w", id, err)
	}
	return nil
}

// ReturnLoan marks a loan returned on the server, then replaces the cached
// entry with the same id and the selection (when it is that loan) in a single
// transition. Other entries are left as they are; nothing is re-fetched.
func (r *Registry) ReturnLoan(ctx context.Context, id int64) (library.Loan, error) {
	epoch := r.begin()
	updated, err := r.gateway.ReturnLoan(ctx, id)

	r.mu.Lock()
	r.finish()
	if err != nil {
		if epoch == r.epoch {
			r.err = err
		}
		r.mu.Unlock()
		r.notify()
		return library.Loan{}, fmt.Errorf("return loan %d: %w", id, err)
	}
	for i := range r.loans {
		if r.loans[i].ID == updated.ID {
			r.loans[i] = updated
			break
		}
	}
	if r.selected != nil && r.selected.ID == updated.ID {
		sel := updated
		r.selected = &sel
	}
	r.mu.Unlock()
	r.notify()
	return updated, nil
}

// Select sets the selected loan, or clears it when loan is nil.
func (r *Registry) Select(loan *library.Loan) {
	r.mu.Lock()
	if loan == nil {
		r.selected = nil
	} else {
		sel := *loan
		r.selected = &sel
	}
	r.mu.Unlock()
	r.notify()
}

// SetFilter merges patch into the current filter.
func (r *Registry) SetFilter(patch FilterPatch) {
	r.mu.Lock()
	if patch.Status != nil {
		r.filter.Status = *patch.Status
	}
	if patch.StudentID != nil {
		r.filter.StudentID = clonePtr(*patch.StudentID)
	}
	r.mu.Unlock()
	r.notify()
}

// ClearError dismisses the current error.
func (r *Registry) ClearError() {
	r.mu.Lock()
	r.err = nil
	r.mu.Unlock()
	r.notify()
}

// Reset forgets everything learned under the previous session: loans,
// selection, filter, error and failure count. Calls still in flight finish
// without touching the new state.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.generation++
	r.epoch++
	r.loans = nil
	r.selected = nil
	r.filter = Filter{Status: listcache.StatusAll}
	r.err = nil
	r.lastUpdated = time.Time{}
	r.failures = 0
	r.mu.Unlock()
	r.notify()
}

// Filtered returns the cached loans after the status and student filters.
func (r *Registry) Filtered() []library.Loan {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Apply(r.loans, r.filter)
}

// Snapshot returns a copy of the current state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Loans:               cloneLoans(r.loans),
		Filter:              Filter{Status: r.filter.Status, StudentID: clonePtr(r.filter.StudentID)},
		Loading:             r.inFlight > 0,
		Err:                 r.err,
		LastUpdated:         r.lastUpdated,
		ConsecutiveFailures: r.failures,
	}
	if r.selected != nil {
		sel := *r.selected
		snap.Selected = &sel
	}
	return snap
}

// Subscribe returns a channel that receives a value after state changes.
// Notifications are coalesced: a slow reader sees one pending signal, not a
// backlog. The returned function stops delivery and closes the channel, so a
// reader blocked on it returns; calling it again is a no-op.
func (r *Registry) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	r.mu.Lock()
	r.subscribers = append(r.subscribers, ch)
	r.mu.Unlock()

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, sub := range r.subscribers {
			if sub == ch {
				r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
				close(ch)
				return
			}
		}
	}
}

// begin marks a gateway call in flight and returns the current epoch.
func (r *Registry) begin() uint64 {
	r.mu.Lock()
	r.inFlight++
	r.err = nil
	epoch := r.epoch
	r.mu.Unlock()
	r.notify()
	return epoch
}

// finish ends a gateway call. Callers hold r.mu.
func (r *Registry) finish() {
	if r.inFlight > 0 {
		r.inFlight--
	}
}

func (r *Registry) notify() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Apply filters by status first, then by student, preserving order.
func Apply(items []library.Loan, f Filter) []library.Loan {
	out := listcache.Apply(items, f.Status, func(loan library.Loan, status listcache.LoanStatus) bool {
		return status.Matches(loan)
	})
	if f.StudentID == nil {
		return out
	}
	id := *f.StudentID
	return listcache.Apply(out, id, func(loan library.Loan, student int64) bool {
		return loan.Student.ID == student
	})
}

func cloneLoans(items []library.Loan) []library.Loan {
	if len(items) == 0 {
		return nil
	}
	dup := make([]library.Loan, len(items))
	copy(dup, items)
	return dup
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
