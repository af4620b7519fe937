package ui

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shelf/internal/coord"
	"github.com/five82/shelf/internal/credentials"
	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
	"github.com/five82/shelf/internal/loans"
	"github.com/five82/shelf/internal/prefs"
	"github.com/five82/shelf/internal/session"
)

// stubBackend answers identity and loan calls without a network.
type stubBackend struct {
	user    library.User
	loans   []library.Loan
	listErr error
}

func (s *stubBackend) SetToken(string) {}

func (s *stubBackend) Login(ctx context.Context, username, password string) (library.TokenPair, error) {
	return library.TokenPair{Access: "tok"}, nil
}

func (s *stubBackend) CurrentUser(ctx context.Context) (library.User, error) {
	return s.user, nil
}

func (s *stubBackend) ListLoans(ctx context.Context, query library.LoanQuery) ([]library.Loan, error) {
	return s.loans, s.listErr
}

func (s *stubBackend) GetLoan(ctx context.Context, id int64) (library.Loan, error) {
	return library.Loan{}, errors.New("not found")
}

func (s *stubBackend) ReturnLoan(ctx context.Context, id int64) (library.Loan, error) {
	return library.Loan{}, errors.New("not found")
}

func (s *stubBackend) ListBooks(ctx context.Context, query library.BookQuery) ([]library.Book, error) {
	return nil, nil
}

func (s *stubBackend) CreateLoan(ctx context.Context, req library.CreateLoanRequest) (library.Loan, error) {
	return library.Loan{}, errors.New("not available")
}

func (s *stubBackend) ListUsers(ctx context.Context, role library.Role) ([]library.User, error) {
	return nil, nil
}

func (s *stubBackend) DeleteLoan(ctx context.Context, id int64) error {
	return nil
}

// signedInModel returns a sized model whose session is already resumed as user.
func signedInModel(t *testing.T, backend *stubBackend, prefsFile string) Model {
	t.Helper()
	store := session.NewStore(backend, credentials.NewMemory(credentials.Tokens{Access: "tok"}))
	if err := store.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	m := New(Options{
		Session:   store,
		Catalog:   coord.NewCatalog(backend, store),
		MyLoans:   coord.NewMyLoans(backend, store),
		Lending:   coord.NewLoanAdmin(backend, loans.NewRegistry(backend), store),
		PrefsPath: prefsFile,
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model)
}

func prefsFile(t *testing.T, content string) string {
	t.Helper()
	path := t.TempDir() + "/prefs.toml"
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	return path
}

func TestViewSlugsRoundTrip(t *testing.T) {
	for _, v := range []View{ViewCatalog, ViewMyLoans, ViewBooks, ViewUsers, ViewLending, ViewActivity} {
		got, ok := viewFromSlug(v.slug())
		if !ok || got != v {
			t.Fatalf("viewFromSlug(%q) = %v, %v", v.slug(), got, ok)
		}
	}
	if _, ok := viewFromSlug("settings"); ok {
		t.Fatalf("unknown slug resolved")
	}
}

func TestEnterLocation_RestoresStudentWorkspace(t *testing.T) {
	path := prefsFile(t, "[accounts.alice]\ntab = \"myloans\"\nloan_status = \"returned\"\n")
	m := signedInModel(t, &stubBackend{user: library.User{ID: 7, Username: "alice", Role: library.RoleStudent}}, path)

	updated, _ := m.enterLocation()
	m = updated.(Model)

	if m.view != ViewMyLoans {
		t.Fatalf("view = %v, want My Loans", m.view.Title())
	}
	if got := m.myLoans.Snapshot().Filter.Status; got != listcache.StatusReturned {
		t.Fatalf("status = %q, want returned", got)
	}
}

func TestEnterLocation_IgnoresTabOfOtherRole(t *testing.T) {
	path := prefsFile(t, "[accounts.libby]\ntab = \"catalog\"\nloan_status = \"active\"\n")
	m := signedInModel(t, &stubBackend{user: library.User{ID: 1, Username: "libby", Role: library.RoleLibrarian}}, path)

	updated, _ := m.enterLocation()
	m = updated.(Model)
	m.stopLoans()

	if m.view != ViewBooks {
		t.Fatalf("view = %v, want Books", m.view.Title())
	}
	if got := m.lending.Registry().Snapshot().Filter.Status; got != listcache.StatusActive {
		t.Fatalf("registry status = %q, want active", got)
	}
}

func TestWorkspaceIsSavedOnTabAndStatusChange(t *testing.T) {
	path := prefsFile(t, "theme = \"Slate\"\n")
	m := signedInModel(t, &stubBackend{user: library.User{ID: 7, Username: "alice", Role: library.RoleStudent}}, path)
	updated, _ := m.enterLocation()
	m = updated.(Model)

	updated, _ = m.Update(keyRunes("2"))
	m = updated.(Model)
	updated, _ = m.Update(keyRunes("f"))
	m = updated.(Model)

	p, err := prefs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := prefs.Workspace{Tab: "myloans", LoanStatus: "active"}
	if got := p.Workspace("alice"); got != want {
		t.Fatalf("workspace = %+v, want %+v", got, want)
	}
	if p.Theme != "Slate" {
		t.Fatalf("theme = %q, saving the workspace must keep it", p.Theme)
	}
}

func TestCycleTheme_ReportsSaveFailure(t *testing.T) {
	blocker := prefsFile(t, "theme = \"Slate\"\n")
	// A regular file where the prefs directory should be.
	m := signedInModel(t, &stubBackend{user: library.User{ID: 7, Username: "alice", Role: library.RoleStudent}}, blocker+"/prefs.toml")

	updated, _ := m.Update(keyRunes("T"))
	m = updated.(Model)

	if !m.flash.isErr || !strings.Contains(m.flash.text, "Theme not saved") {
		t.Fatalf("flash = %+v, want a save error", m.flash)
	}
}

func TestLending_EscDismissesError(t *testing.T) {
	backend := &stubBackend{
		user:    library.User{ID: 1, Username: "libby", Role: library.RoleLibrarian},
		listErr: errors.New("backend down"),
	}
	m := signedInModel(t, backend, prefsFile(t, ""))
	m.view = ViewLending

	if err := m.lending.Refresh(context.Background()); err == nil {
		t.Fatalf("Refresh succeeded against a failing backend")
	}
	if m.lending.ErrMessage() == "" || m.lending.Registry().Snapshot().Err == nil {
		t.Fatalf("refresh failure was not recorded")
	}

	updated, _ := m.handleLendingKey(keyEsc)
	m = updated.(Model)

	if m.lending.ErrMessage() != "" || m.lending.Registry().Snapshot().Err != nil {
		t.Fatalf("esc left the error: %q / %v", m.lending.ErrMessage(), m.lending.Registry().Snapshot().Err)
	}
}

func TestWaitForLoans_EndsWhenUnsubscribed(t *testing.T) {
	registry := loans.NewRegistry(&stubBackend{})
	ch, cancel := registry.Subscribe()
	cmd := waitForLoans(ch)

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	cancel()

	select {
	case msg := <-done:
		if msg != nil {
			t.Fatalf("msg = %#v, want nil after unsubscribe", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("waitForLoans still blocked after unsubscribe")
	}
}
