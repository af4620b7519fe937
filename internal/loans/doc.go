// Package loans holds the loan collection shared by the student and librarian
// loan screens.
//
// Registry is the only loan cache in the process. Every state transition goes
// through one of its methods under a single mutex, and Snapshot hands out
// copies so readers never observe a half-applied change.
//
// Returning a loan does not re-fetch: the server's updated loan replaces the
// cached entry with the same id and, if it is selected, the selection, in one
// transition. FetchAll is fenced by a generation counter the same way as
// listcache.Cache.
//
// Subscribe gives the UI a coalescing signal channel; the UI reacts by reading
// a fresh Snapshot.
package loans
