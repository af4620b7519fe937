package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shelf/internal/validate"
)

func newLoginForm() *formModal {
	return newFormModal("Sign in", "Use your library account.", nil,
		textField("username", "Username", "", "username"),
		passwordField("password", "Password"),
	)
}

// handleLoginKey drives the full-screen login form.
func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case pressed(msg, m.keys.Escape):
		return m, nil
	case pressed(msg, m.keys.Confirm) && m.login.pending:
		return m, nil
	case pressed(msg, m.keys.Confirm):
		values := m.login.Values()
		if err := validate.Login(values["username"], values["password"]); err != nil {
			m.login.fail(err.Error())
			return m, nil
		}
		m.login.err = ""
		m.login.pending = true
		return m, m.loginCmd(values["username"], values["password"])
	}

	modal, cmd, _ := m.login.Update(msg, m.keys)
	m.login = modal.(*formModal)
	return m, cmd
}

func (m Model) loginCmd(username, password string) tea.Cmd {
	ctx := m.ctx
	sess := m.session
	return func() tea.Msg {
		return formResultMsg{login: true, err: sess.Login(ctx, username, password)}
	}
}

// renderLogin renders the sign-in form centered on the screen.
func (m Model) renderLogin() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Logo.Render("shelf"))
	b.WriteString(styles.FaintText.Render("  library desk"))
	b.WriteString("\n\n")
	b.WriteString(m.login.body(m.theme, m.spinner.View()))
	if m.flash.text != "" && m.flash.isErr {
		b.WriteString("\n\n")
		b.WriteString(styles.WarningText.Render(m.flash.text))
	}
	if m.apiURL != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.FaintText.Render("api " + truncateMiddle(m.apiURL, 48)))
	}
	return placeModal(m.theme, b.String(), 56, m.width, m.height)
}
