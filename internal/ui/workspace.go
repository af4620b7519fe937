package ui

import (
	"log"

	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
	"github.com/five82/shelf/internal/prefs"
)

// slug names v in the preferences file.
func (v View) slug() string {
	switch v {
	case ViewCatalog:
		return "catalog"
	case ViewMyLoans:
		return "myloans"
	case ViewBooks:
		return "books"
	case ViewUsers:
		return "users"
	case ViewLending:
		return "loans"
	case ViewActivity:
		return "activity"
	default:
		return ""
	}
}

func viewFromSlug(s string) (View, bool) {
	for _, v := range []View{ViewCatalog, ViewMyLoans, ViewBooks, ViewUsers, ViewLending, ViewActivity} {
		if v.slug() == s {
			return v, true
		}
	}
	return 0, false
}

// loanStatus is the status filter of the signed-in role's loan list.
func (m Model) loanStatus() listcache.LoanStatus {
	sess, _ := m.currentSession()
	switch {
	case sess.Role() == library.RoleLibrarian && m.lending != nil:
		return m.lending.Registry().Snapshot().Filter.Status
	case sess.Role() == library.RoleStudent && m.myLoans != nil:
		return m.myLoans.Snapshot().Filter.Status
	}
	return ""
}

// restoreWorkspace applies the signed-in account's remembered loan status
// filter and returns the tab to open. Unknown or foreign tabs fall back to the
// role's first tab.
func (m Model) restoreWorkspace() View {
	tabs := m.tabs()
	sess, _ := m.currentSession()
	p, err := prefs.Load(m.prefsPath)
	if err != nil {
		log.Printf("prefs: %v", err)
	}
	ws := p.Workspace(sess.User.Username)

	if status := listcache.LoanStatus(ws.LoanStatus); status.Valid() {
		switch {
		case sess.Role() == library.RoleLibrarian && m.lending != nil:
			m.lending.SetStatus(status)
		case sess.Role() == library.RoleStudent && m.myLoans != nil:
			m.myLoans.SetStatus(status)
		}
	}

	if v, ok := viewFromSlug(ws.Tab); ok {
		for _, tab := range tabs {
			if tab == v {
				return v
			}
		}
	}
	return tabs[0]
}

// saveWorkspace records the current tab and loan status for the signed-in
// account. Failures are logged; the UI keeps working.
func (m Model) saveWorkspace() {
	sess, ok := m.currentSession()
	if !ok {
		return
	}
	ws := prefs.Workspace{Tab: m.view.slug(), LoanStatus: string(m.loanStatus())}
	err := prefs.Update(m.prefsPath, func(p *prefs.Prefs) {
		p.SetWorkspace(sess.User.Username, ws)
	})
	if err != nil {
		log.Printf("prefs: save workspace: %v", err)
	}
}
