package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// formValues holds trimmed field values by key.
type formValues map[string]string

// Int parses the value at key. Blank is an error naming label.
func (v formValues) Int(key, label string) (int, error) {
	raw := strings.TrimSpace(v[key])
	if raw == "" {
		return 0, fmt.Errorf("%s is required", label)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", label)
	}
	return n, nil
}

// submitFunc handles Enter. A nil command with a nil error closes the form
// at once; a command keeps it open until a formResultMsg arrives.
type submitFunc func(values formValues) (tea.Cmd, error)

type formField struct {
	key   string
	label string
	input textinput.Model
}

func textField(key, label, value, placeholder string) formField {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 120
	in.Width = 30
	in.SetValue(value)
	return formField{key: key, label: label, input: in}
}

func passwordField(key, label string) formField {
	f := textField(key, label, "", "")
	f.input.EchoMode = textinput.EchoPassword
	f.input.EchoCharacter = '•'
	return f
}

// formModal is a column of labelled text inputs.
type formModal struct {
	title   string
	hint    string
	fields  []formField
	focus   int
	err     string
	pending bool
	submit  submitFunc
}

func newFormModal(title, hint string, submit submitFunc, fields ...formField) *formModal {
	f := &formModal{title: title, hint: hint, fields: fields, submit: submit}
	if len(f.fields) > 0 {
		f.fields[0].input.Focus()
	}
	return f
}

// Values returns the trimmed field values. Passwords are not trimmed.
func (f *formModal) Values() formValues {
	out := make(formValues, len(f.fields))
	for _, field := range f.fields {
		v := field.input.Value()
		if field.input.EchoMode != textinput.EchoPassword {
			v = strings.TrimSpace(v)
		}
		out[field.key] = v
	}
	return out
}

// fail reports a rejected submission and re-enables input.
func (f *formModal) fail(msg string) {
	f.pending = false
	f.err = msg
}

func (f *formModal) setFocus(idx int) {
	f.fields[f.focus].input.Blur()
	f.focus = (idx + len(f.fields)) % len(f.fields)
	f.fields[f.focus].input.Focus()
}

// Update implements Modal.
func (f *formModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return f, nil, false
	}
	switch {
	case pressed(keyMsg, keys.Escape):
		return f, nil, true

	case f.pending:
		return f, nil, false

	case pressed(keyMsg, keys.Confirm):
		f.err = ""
		cmd, err := f.submit(f.Values())
		if err != nil {
			f.err = err.Error()
			return f, nil, false
		}
		if cmd == nil {
			return f, nil, true
		}
		f.pending = true
		return f, cmd, false

	case pressed(keyMsg, keys.NextField):
		f.setFocus(f.focus + 1)
		return f, nil, false

	case pressed(keyMsg, keys.PrevField):
		f.setFocus(f.focus - 1)
		return f, nil, false

	case keyMsg.String() == "ctrl+c":
		for i := range f.fields {
			f.fields[i].input.SetValue("")
		}
		return f, nil, false
	}

	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(keyMsg)
	return f, cmd, false
}

// body renders the form without the surrounding modal.
func (f *formModal) body(theme Theme, spin string) string {
	styles := theme.Styles()
	var b strings.Builder

	b.WriteString(styles.Text.Bold(true).Render(f.title))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 40)))
	b.WriteString("\n\n")

	if f.hint != "" {
		b.WriteString(styles.MutedText.Render(f.hint))
		b.WriteString("\n\n")
	}

	labelWidth := 0
	for _, field := range f.fields {
		labelWidth = max(labelWidth, len(field.label)+2)
	}
	for i, field := range f.fields {
		label := padRight(field.label+":", labelWidth)
		if i == f.focus {
			label = styles.AccentText.Render(label)
		} else {
			label = styles.MutedText.Render(label)
		}
		b.WriteString(label)
		b.WriteString(field.input.View())
		b.WriteString("\n\n")
	}

	switch {
	case f.pending:
		b.WriteString(spin + " " + styles.MutedText.Render("Working..."))
		b.WriteString("\n\n")
	case f.err != "":
		b.WriteString(styles.DangerText.Render(f.err))
		b.WriteString("\n\n")
	}

	footer := "Enter: Submit  •  Tab: Next  •  Esc: Cancel  •  Ctrl+C: Clear"
	if f.submit == nil {
		// Driven by the caller, as the login screen is.
		footer = "Enter: Sign in  •  Tab: Next  •  Ctrl+C: Quit"
	}
	b.WriteString(styles.FaintText.Render(footer))
	return b.String()
}

// View implements Modal.
func (f *formModal) View(theme Theme, width, height int) string {
	return placeModal(theme, f.body(theme, "…"), 56, width, height)
}

// confirmModal asks a yes/no question before a destructive action.
type confirmModal struct {
	title  string
	prompt string
	onYes  func() tea.Cmd
}

func newConfirmModal(title, prompt string, onYes func() tea.Cmd) *confirmModal {
	return &confirmModal{title: title, prompt: prompt, onYes: onYes}
}

// Update implements Modal.
func (c *confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case pressed(keyMsg, keys.Yes):
		return c, c.onYes(), true
	case pressed(keyMsg, keys.No):
		return c, nil, true
	}
	return c, nil, false
}

// View implements Modal.
func (c *confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.WarningText.Bold(true).Render(c.title))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(c.prompt))
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("y: Yes  •  n/Esc: No"))
	return placeModal(theme, b.String(), 46, width, height)
}

// placeModal centers content in a rounded modal over the background.
func placeModal(theme Theme, content string, modalWidth, width, height int) string {
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(modalWidth)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(content),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
