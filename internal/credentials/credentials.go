// Package credentials persists the API token pair between runs.
// Tokens are stored in ~/.config/shelf/credentials.toml with mode 0600.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// Tokens is the only durable client state: the access and refresh tokens
// keyed by fixed names.
type Tokens struct {
	Access  string `toml:"access_token"`
	Refresh string `toml:"refresh_token"`
}

// Empty reports whether no access token is stored.
func (t Tokens) Empty() bool {
	return strings.TrimSpace(t.Access) == ""
}

// Store reads and writes the persisted token pair.
type Store interface {
	Load() (Tokens, error)
	Save(Tokens) error
	Clear() error
}

const defaultPath = "~/.config/shelf/credentials.toml"

// DefaultPath returns the default credentials file path.
func DefaultPath() string {
	return defaultPath
}

// File is a Store backed by a TOML file.
type File struct {
	path string
}

// NewFile returns a file store at path; empty uses DefaultPath.
func NewFile(path string) (*File, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve credentials path: %w", err)
	}
	return &File{path: resolved}, nil
}

// Path returns the resolved file location.
func (f *File) Path() string {
	return f.path
}

// Load returns the stored tokens. A missing file is not an error.
func (f *File) Load() (Tokens, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Tokens{}, nil
		}
		return Tokens{}, fmt.Errorf("read credentials: %w", err)
	}
	var tokens Tokens
	if err := toml.Unmarshal(raw, &tokens); err != nil {
		return Tokens{}, fmt.Errorf("parse credentials: %w", err)
	}
	tokens.Access = strings.TrimSpace(tokens.Access)
	tokens.Refresh = strings.TrimSpace(tokens.Refresh)
	return tokens, nil
}

// Save writes the tokens, creating the parent directory as needed.
func (f *File) Save(tokens Tokens) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	raw, err := toml.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}

// Clear removes both tokens. Removing a missing file succeeds.
func (f *File) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

// Memory is an in-process Store for tests and --no-persist runs.
type Memory struct {
	mu     sync.Mutex
	tokens Tokens
}

// NewMemory returns a Memory store seeded with tokens.
func NewMemory(tokens Tokens) *Memory {
	return &Memory{tokens: tokens}
}

func (m *Memory) Load() (Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens, nil
}

func (m *Memory) Save(tokens Tokens) error {
	m.mu.Lock()
	m.tokens = tokens
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	m.tokens = Tokens{}
	m.mu.Unlock()
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
