// Package session owns the authenticated identity of the running client.
//
// # Overview
//
// Store holds at most one Session: the user returned by /api/users/me/ and
// the token pair that proved it. The token pair is also written to a
// credentials.Store, which is the only state that survives a restart and the
// only input to Resume.
//
// # Lifecycle
//
//	NewStore()          loading=true, no session
//	   │
//	   ├─ Resume(ctx)   stored token → /api/users/me/ → session
//	   │                any failure  → purge credential, *AuthExpiredError
//	   │
//	   ├─ Login(ctx)    /api/token/ → persist → /api/users/me/ → session
//	   │                gateway errors returned unchanged
//	   │
//	   └─ Logout()      purge credential and session, no network call
//
// Loading stays true from NewStore until the first Resume finishes, so the UI
// can hold back every protected screen until the outcome is known.
//
// # Resume Failures
//
// Resume does not distinguish a rejected token from a network outage: both
// purge the credential. Callers should log the returned *AuthExpiredError and
// continue with the login screen rather than show it.
//
// # Thread Safety
//
// All fields are guarded by a RWMutex; Current returns a copy.
package session
