package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
)

// handleUsersKey processes keyboard input for user administration.
func (m Model) handleUsersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.moveSelection(msg) {
		return m, nil
	}
	switch {
	case pressed(msg, m.keys.New):
		m.modal = m.newUserForm()
	case pressed(msg, m.keys.Delete):
		if user, ok := m.selectedUser(); ok {
			id, name := user.ID, user.Username
			m.modal = newConfirmModal("Delete User",
				fmt.Sprintf("Delete %s? Their loans are removed too.", name),
				func() tea.Cmd {
					return m.run(ViewUsers, "Deleted "+name, func(ctx context.Context) error {
						return m.users.Delete(ctx, id)
					})
				})
		}
	case pressed(msg, m.keys.Filter):
		m.modal = m.userFilterForm()
	case pressed(msg, m.keys.ClearFilter):
		m.users.SetFilter(func(f *listcache.UserFilter) { *f = listcache.UserFilter{} })
		m.clampSelection(ViewUsers)
	case pressed(msg, m.keys.Refresh):
		return m, m.refreshView(ViewUsers)
	}
	return m, nil
}

func (m Model) selectedUser() (library.User, bool) {
	visible := m.users.Snapshot().Visible
	idx := m.selected[ViewUsers]
	if idx < 0 || idx >= len(visible) {
		return library.User{}, false
	}
	return visible[idx], true
}

// parseRole accepts a role name or blank.
func parseRole(raw string) (library.Role, error) {
	role := library.Role(strings.ToLower(strings.TrimSpace(raw)))
	if role == "" || role.Valid() {
		return role, nil
	}
	return "", fmt.Errorf("role must be student or librarian")
}

func (m Model) newUserForm() *formModal {
	defaults := m.users.DefaultForm()
	return newFormModal("New User", "Password needs at least six characters.",
		func(v formValues) (tea.Cmd, error) {
			role, err := parseRole(v["role"])
			if err != nil {
				return nil, err
			}
			req := library.CreateUserRequest{
				Username:  v["username"],
				Email:     v["email"],
				Password:  v["password"],
				FirstName: v["first"],
				LastName:  v["last"],
				Role:      role,
			}
			return m.submit("Created "+req.Username, func(ctx context.Context) error {
				_, err := m.users.Create(ctx, req)
				return err
			}), nil
		},
		textField("username", "Username", "", ""),
		textField("email", "Email", "", "name@example.edu"),
		passwordField("password", "Password"),
		textField("first", "First name", "", "optional"),
		textField("last", "Last name", "", "optional"),
		textField("role", "Role", string(defaults.Role), "student or librarian"),
	)
}

func (m Model) userFilterForm() *formModal {
	current := m.users.Snapshot().Filter
	return newFormModal("Filter Users", "Query matches username, email and name.",
		func(v formValues) (tea.Cmd, error) {
			role, err := parseRole(v["role"])
			if err != nil {
				return nil, err
			}
			m.users.SetFilter(func(f *listcache.UserFilter) {
				f.Query = v["query"]
				f.Role = role
			})
			return nil, nil
		},
		textField("query", "Query", current.Query, ""),
		textField("role", "Role", string(current.Role), "student, librarian or blank"),
	)
}

func userFilterSummary(f listcache.UserFilter) string {
	var parts []string
	if f.Query != "" {
		parts = append(parts, "query~"+f.Query)
	}
	if f.Role != "" {
		parts = append(parts, "role="+string(f.Role))
	}
	return strings.Join(parts, "  ")
}

// renderUsers renders the librarian's user list.
func (m Model) renderUsers() string {
	snap := m.users.Snapshot()
	title := fmt.Sprintf("Users (%d of %d)", len(snap.Visible), len(snap.Items))
	st := listState{
		loading:   snap.Loading,
		loaded:    snap.Loaded,
		err:       m.users.ErrMessage(),
		empty:     snap.Empty(),
		noMatches: snap.NoMatches(),
	}
	return m.renderListPane(title, userFilterSummary(snap.Filter), st, "users",
		len(snap.Visible), m.width, m.contentHeight(), true,
		func(i, width int, bgColor string, selected bool) string {
			user := snap.Visible[i]
			bg := NewBgStyle(bgColor)
			idStyle, textStyle, sepStyle, mutedStyle := m.rowStyles(selected)

			nameWidth := max(width/4, 10)
			emailWidth := max(width-nameWidth-30, 10)
			return bg.Render(fmt.Sprintf("#%d", user.ID), idStyle) + bg.Space() +
				bg.Render(fit(user.Username, 16), textStyle) +
				bg.Render(" · ", sepStyle) +
				bg.Render(fit(user.FullName(), nameWidth), mutedStyle) +
				bg.Render(" · ", sepStyle) +
				bg.Render(fit(user.Email, emailWidth), mutedStyle) + bg.Space() +
				m.roleBadge(bg, user.Role)
		})
}
