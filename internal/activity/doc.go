// Package activity owns shelf's log file: it redirects the standard logger
// there while the TUI holds the terminal, and reads the tail back for the
// Activity screen.
//
// Read keeps a ring buffer of the last maxLines lines, so memory stays
// bounded by the tail size rather than the file size. A missing file reads
// as empty.
//
// Parse recognises the standard logger's "2006/01/02 15:04:05" prefix and
// infers a level from the message: failures and 5xx responses are errors,
// expired sessions and 4xx responses are warnings.
package activity
