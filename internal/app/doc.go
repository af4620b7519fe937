// Package app is the composition root for shelf.
//
// # Overview
//
// Bootstrap wires configuration, the activity log, the library API client,
// the credential file, the session store, the shared loan registry and one
// coordinator per screen. Run hands that graph to the TUI; the one-shot CLI
// commands (login, logout, whoami) use Bootstrap directly and never start it.
//
// # Startup
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()         Read ~/.config/shelf/config.toml
//	       ├─────> activity.Setup()      Send log output to the log file
//	       ├─────> library.NewClient()   HTTP client for the library API
//	       ├─────> session.NewStore()    Session backed by credentials.toml
//	       ├─────> loans.NewRegistry()   Shared loan state
//	       ├─────> StartPoller()         Optional loan refresh
//	       └─────> ui.Run()              Start TUI (blocks)
//
// The TUI resumes the stored session itself so it can show a spinner while
// the identity call is in flight. A credential that no longer works is
// logged and the user lands on the login screen.
//
// # Polling
//
// Background refresh is off unless --poll or poll_interval is set. When on,
// it refreshes the loan registry only while a librarian is signed in.
// Consecutive failures back off exponentially up to 30 seconds; the registry
// itself reports offline after two in a row so the UI can say so.
//
// # Error Handling
//
// Fatal (returned from Run or Bootstrap): config parse errors, an unwritable
// log file, an invalid API URL. Everything after startup is shown on screen
// or logged.
package app
