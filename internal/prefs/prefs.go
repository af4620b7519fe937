// Package prefs persists what shelf remembers between runs: the color theme
// and, per account, the tab and loan status filter that were last in use.
// The file lives at ~/.config/shelf/prefs.toml unless overridden.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/shelf/internal/config"
)

const (
	defaultPrefsPath = "~/.config/shelf/prefs.toml"
	defaultTheme     = "Nightfox"
)

// Prefs is the whole preferences file.
type Prefs struct {
	Theme    string               `toml:"theme"`
	Accounts map[string]Workspace `toml:"accounts,omitempty"` // keyed by username
}

// Workspace is restored after an account signs in. Empty fields mean the
// screen defaults.
type Workspace struct {
	Tab        string `toml:"tab,omitempty"`
	LoanStatus string `toml:"loan_status,omitempty"`
}

// Workspace returns the remembered state for username.
func (p Prefs) Workspace(username string) Workspace {
	return p.Accounts[username]
}

// SetWorkspace records w for username. A blank username is ignored.
func (p *Prefs) SetWorkspace(username string, w Workspace) {
	if strings.TrimSpace(username) == "" {
		return
	}
	if p.Accounts == nil {
		p.Accounts = make(map[string]Workspace)
	}
	p.Accounts[username] = w
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads the preferences at path. A missing file yields defaults and no
// error. An unreadable or malformed file also yields defaults, together with
// the error so the caller can log it.
func Load(path string) (Prefs, error) {
	defaults := Prefs{Theme: defaultTheme}

	resolved, err := resolvePath(path)
	if err != nil {
		return defaults, fmt.Errorf("resolve prefs path: %w", err)
	}
	data, err := os.ReadFile(resolved)
	if errors.Is(err, os.ErrNotExist) {
		return defaults, nil
	}
	if err != nil {
		return defaults, fmt.Errorf("read prefs: %w", err)
	}

	var p Prefs
	if err := toml.Unmarshal(data, &p); err != nil {
		return defaults, fmt.Errorf("parse prefs %s: %w", resolved, err)
	}
	if strings.TrimSpace(p.Theme) == "" {
		p.Theme = defaultTheme
	}
	return p, nil
}

// Save writes p to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve prefs path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

// Update loads the file, applies change and writes it back, so saving the
// theme keeps every account's workspace and the reverse. A file that could
// not be parsed is replaced.
func Update(path string, change func(*Prefs)) error {
	p, _ := Load(path)
	change(&p)
	return Save(path, p)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	return config.ExpandPath(path)
}
