package credentials

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestFile_MissingFileIsEmpty(t *testing.T) {
	store, err := NewFile(filepath.Join(t.TempDir(), "credentials.toml"))
	if err != nil {
		t.Fatalf("NewFile returned error: %v", err)
	}
	tokens, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !tokens.Empty() {
		t.Fatalf("Load = %#v, want empty", tokens)
	}
}

func TestFile_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.toml")
	store, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile returned error: %v", err)
	}

	if err := store.Save(Tokens{Access: "acc", Refresh: "ref"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	// A second store instance stands in for a process restart.
	reopened, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile returned error: %v", err)
	}
	tokens, err := reopened.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if tokens.Access != "acc" || tokens.Refresh != "ref" {
		t.Fatalf("Load = %#v, want acc/ref", tokens)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Stat: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
		}
	}

	if err := reopened.Clear(); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if err := reopened.Clear(); err != nil {
		t.Fatalf("second Clear returned error: %v", err)
	}
	tokens, err = store.Load()
	if err != nil || !tokens.Empty() {
		t.Fatalf("Load after Clear = %#v, %v; want empty", tokens, err)
	}
}

func TestFile_UsesFixedKeyNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.toml")
	if err := os.WriteFile(path, []byte("access_token = \" a \"\nrefresh_token = \"r\"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	store, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile returned error: %v", err)
	}
	tokens, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if tokens.Access != "a" || tokens.Refresh != "r" {
		t.Fatalf("Load = %#v, want trimmed a/r", tokens)
	}
}

func TestFile_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.toml")
	if err := os.WriteFile(path, []byte("access_token = ["), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	store, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile returned error: %v", err)
	}
	if _, err := store.Load(); err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
}

func TestNewFile_DefaultPathUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewFile("")
	if err != nil {
		t.Fatalf("NewFile returned error: %v", err)
	}
	want := filepath.Join(home, ".config", "shelf", "credentials.toml")
	if store.Path() != want {
		t.Fatalf("Path = %q, want %q", store.Path(), want)
	}
}

func TestMemory_SaveAndClear(t *testing.T) {
	m := NewMemory(Tokens{Access: "x"})
	if tokens, _ := m.Load(); tokens.Access != "x" {
		t.Fatalf("Load = %#v, want seeded token", tokens)
	}
	_ = m.Clear()
	if tokens, _ := m.Load(); !tokens.Empty() {
		t.Fatalf("Load after Clear = %#v, want empty", tokens)
	}
}
