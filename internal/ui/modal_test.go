package ui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
)

func TestFormValuesInt(t *testing.T) {
	v := formValues{"year": "1999", "stock": "", "bad": "12a"}
	if n, err := v.Int("year", "published year"); err != nil || n != 1999 {
		t.Fatalf("Int(year) = %d, %v", n, err)
	}
	if _, err := v.Int("stock", "stock"); err == nil || err.Error() != "stock is required" {
		t.Fatalf("Int(blank) error = %v", err)
	}
	if _, err := v.Int("bad", "stock"); err == nil || err.Error() != "stock must be a whole number" {
		t.Fatalf("Int(bad) error = %v", err)
	}
}

func TestFormModal_TypingAndFocus(t *testing.T) {
	keys := DefaultKeyMap()
	f := newFormModal("Test", "", func(formValues) (tea.Cmd, error) { return nil, nil },
		textField("a", "A", "", ""),
		passwordField("b", "B"),
	)

	f.Update(keyRunes("x"), keys)
	f.Update(keyTab, keys)
	f.Update(keyRunes(" p "), keys)

	values := f.Values()
	if values["a"] != "x" {
		t.Fatalf("a = %q, want x", values["a"])
	}
	if values["b"] != " p " {
		t.Fatalf("password was trimmed: %q", values["b"])
	}
	if f.focus != 1 {
		t.Fatalf("focus = %d, want 1", f.focus)
	}
}

func TestFormModal_SubmitClosesWithoutCommand(t *testing.T) {
	keys := DefaultKeyMap()
	f := newFormModal("Test", "", func(formValues) (tea.Cmd, error) { return nil, nil }, textField("a", "A", "v", ""))
	if _, _, closed := f.Update(keyEnter, keys); !closed {
		t.Fatalf("form stayed open after a synchronous submit")
	}
}

func TestFormModal_SubmitErrorKeepsFormOpen(t *testing.T) {
	keys := DefaultKeyMap()
	f := newFormModal("Test", "", func(formValues) (tea.Cmd, error) {
		return nil, errors.New("title is required")
	}, textField("a", "A", "", ""))

	if _, _, closed := f.Update(keyEnter, keys); closed {
		t.Fatalf("form closed on a rejected submit")
	}
	if f.err != "title is required" {
		t.Fatalf("err = %q", f.err)
	}
}

func TestFormModal_PendingIgnoresInputUntilFail(t *testing.T) {
	keys := DefaultKeyMap()
	calls := 0
	f := newFormModal("Test", "", func(formValues) (tea.Cmd, error) {
		calls++
		return func() tea.Msg { return nil }, nil
	}, textField("a", "A", "v", ""))

	_, cmd, closed := f.Update(keyEnter, keys)
	if closed || cmd == nil || !f.pending {
		t.Fatalf("submit with command: closed=%v cmd=%v pending=%v", closed, cmd != nil, f.pending)
	}
	f.Update(keyEnter, keys)
	if calls != 1 {
		t.Fatalf("submit called %d times while pending", calls)
	}

	f.fail("server said no")
	if f.pending || f.err != "server said no" {
		t.Fatalf("fail: pending=%v err=%q", f.pending, f.err)
	}

	if _, _, closed := f.Update(keyEsc, keys); !closed {
		t.Fatalf("esc did not close the form")
	}
}

func TestFormModal_CtrlCClearsFields(t *testing.T) {
	keys := DefaultKeyMap()
	f := newFormModal("Test", "", nil, textField("a", "A", "keep", ""), textField("b", "B", "me", ""))
	if _, _, closed := f.Update(tea.KeyMsg{Type: tea.KeyCtrlC}, keys); closed {
		t.Fatalf("ctrl+c closed the form")
	}
	if v := f.Values(); v["a"] != "" || v["b"] != "" {
		t.Fatalf("fields not cleared: %v", v)
	}
}

func TestConfirmModal(t *testing.T) {
	keys := DefaultKeyMap()
	called := false
	c := newConfirmModal("Delete", "Sure?", func() tea.Cmd {
		called = true
		return nil
	})

	if _, _, closed := c.Update(keyRunes("x"), keys); closed || called {
		t.Fatalf("unrelated key: closed=%v called=%v", closed, called)
	}
	if _, _, closed := c.Update(keyRunes("n"), keys); !closed || called {
		t.Fatalf("no: closed=%v called=%v", closed, called)
	}
	if _, _, closed := c.Update(keyRunes("y"), keys); !closed || !called {
		t.Fatalf("yes: closed=%v called=%v", closed, called)
	}
}

func TestParseAvailability(t *testing.T) {
	if v, err := parseAvailability("  "); err != nil || v != nil {
		t.Fatalf("blank = %v, %v", v, err)
	}
	if v, err := parseAvailability("Yes"); err != nil || v == nil || !*v {
		t.Fatalf("yes = %v, %v", v, err)
	}
	if v, err := parseAvailability("no"); err != nil || v == nil || *v {
		t.Fatalf("no = %v, %v", v, err)
	}
	if _, err := parseAvailability("maybe"); err == nil {
		t.Fatalf("maybe accepted")
	}
}
