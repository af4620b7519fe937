// Package route maps a location and the session state to the screen that
// should be shown.
package route

import (
	"strings"

	"github.com/five82/shelf/internal/library"
)

// Locations understood by Resolve.
const (
	Login     = "/login"
	Home      = "/"
	Librarian = "/librarian"
	Student   = "/student"
)

// maxRedirects bounds redirect chains; the table below never needs more than two.
const maxRedirects = 4

// Screen is a terminal routing outcome.
type Screen int

const (
	ScreenPending Screen = iota // session still resolving; show a spinner
	ScreenLogin
	ScreenLibrarian
	ScreenStudent
	ScreenForbidden
)

func (s Screen) String() string {
	switch s {
	case ScreenPending:
		return "pending"
	case ScreenLogin:
		return "login"
	case ScreenLibrarian:
		return "librarian"
	case ScreenStudent:
		return "student"
	case ScreenForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Result is where a location ends up.
type Result struct {
	Screen Screen
	Path   string // final location after redirects
}

// Resolve follows redirects from path until a screen is reached. signedIn and
// role describe the current session; while loading every location is pending.
func Resolve(path string, signedIn bool, role library.Role, loading bool) Result {
	path = normalize(path)
	if loading {
		return Result{Screen: ScreenPending, Path: path}
	}
	for i := 0; i < maxRedirects; i++ {
		screen, next := step(path, signedIn, role)
		if next == "" {
			return Result{Screen: screen, Path: path}
		}
		path = next
	}
	return Result{Screen: ScreenLogin, Path: Login}
}

// step returns either a screen or the location to redirect to.
func step(path string, signedIn bool, role library.Role) (Screen, string) {
	switch path {
	case Login:
		if signedIn {
			return 0, Home
		}
		return ScreenLogin, ""
	case Home:
		if !signedIn {
			return 0, Login
		}
		if role == library.RoleLibrarian {
			return 0, Librarian
		}
		return 0, Student
	case Librarian:
		return gate(signedIn, role, library.RoleLibrarian, ScreenLibrarian)
	case Student:
		return gate(signedIn, role, library.RoleStudent, ScreenStudent)
	default:
		return 0, Home
	}
}

func gate(signedIn bool, have, want library.Role, screen Screen) (Screen, string) {
	if !signedIn {
		return 0, Login
	}
	if have != want {
		return ScreenForbidden, ""
	}
	return screen, ""
}

func normalize(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return Home
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = Home
		}
	}
	return path
}
