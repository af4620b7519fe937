// Package listcache keeps the last full fetch of a collection and derives a
// filtered view from it locally.
//
// A Cache is owned by one screen. Load replaces the cached items wholesale;
// SetFilter and ClearFilters only change the view and never touch the network.
// Each Load takes a generation number and its result is discarded with
// ErrSuperseded if a newer Load was issued meanwhile, so a slow response can
// never overwrite a fresher one.
//
// Apply is the pure filter used by every view: it returns the matching subset
// in original order and is idempotent for a fixed filter.
package listcache
