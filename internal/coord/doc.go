// Package coord holds one coordinator per screen. A coordinator decides when
// its screen fetches, how it reacts to a finished mutation and what busy or
// error state the screen shows.
//
// Policy shared by every coordinator:
//
//   - Start fetches once; later calls are no-ops. Refresh always fetches.
//   - Mutations validate locally first. A *validate.ValidationError never
//     reaches the gateway.
//   - A successful create or delete re-fetches the collection. Returning a
//     loan instead updates the shared loans.Registry in place.
//   - A failure is stored for display and leaves prior data intact.
//   - Administrative screens refuse to run for non-librarians with
//     ErrForbidden.
//
// Coordinators are safe to call from Bubble Tea commands; the screen reads
// their state through Snapshot, Busy and Err on the update goroutine.
package coord
