// Package ui provides the terminal interface for shelf.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model holds the screen state and talks to
// the coordinators in internal/coord; it never calls the API directly. Every
// coordinator call runs inside a tea.Cmd and reports back as an actionMsg or
// formResultMsg, so the update loop never blocks on the network.
//
// # Screens
//
// The location (a path such as "/" or "/librarian") is resolved against the
// session by internal/route on every render:
//
//   - Pending: a spinner while the stored token is checked or a sign-in runs
//   - Login: the username and password form
//   - Librarian: Books, Users, Loans and Activity tabs
//   - Student: Catalog, My Loans and Activity tabs
//   - Forbidden: the signed-in role does not own the location
//
// # Package Structure
//
//   - app.go: Model, message types, commands and the Run function
//   - header.go: identity line, tab strip and command bar
//   - panes.go: list and detail boxes shared by every tab
//   - modal.go: form and confirmation dialogs
//   - catalog.go, myloans.go: student tabs
//   - books.go, users.go, lending.go: librarian tabs
//   - activity.go: the log viewer with follow mode and regex search
//   - theme.go, style_helpers.go: color themes and background-safe rendering
//
// # Loan Registry
//
// Librarian screens subscribe to the shared loan registry. A change
// notification arrives as loansChangedMsg and re-renders the Loans tab, which
// is how a loan returned from one place shows up everywhere.
//
// # Key Bindings
//
//   - tab / shift+tab, 1-9: switch tabs
//   - j/k, g/G, ctrl+d/u: move in lists and the log
//   - enter: open details; esc: close them
//   - /: filter the current list, or search the log
//   - r: refresh; L: log out; T: cycle theme; h or ?: help
//   - e or Ctrl+C: exit
package ui
