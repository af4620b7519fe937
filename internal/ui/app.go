package ui

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shelf/internal/coord"
	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
	"github.com/five82/shelf/internal/prefs"
	"github.com/five82/shelf/internal/route"
	"github.com/five82/shelf/internal/session"
)

// View is one tab of the signed-in screens.
type View int

const (
	ViewCatalog View = iota
	ViewMyLoans
	ViewBooks
	ViewUsers
	ViewLending
	ViewActivity
)

// Title returns the tab label.
func (v View) Title() string {
	switch v {
	case ViewCatalog:
		return "Catalog"
	case ViewMyLoans:
		return "My Loans"
	case ViewBooks:
		return "Books"
	case ViewUsers:
		return "Users"
	case ViewLending:
		return "Loans"
	case ViewActivity:
		return "Activity"
	default:
		return "?"
	}
}

// tabsFor returns the tabs offered to role, in display order.
func tabsFor(role library.Role) []View {
	if role == library.RoleLibrarian {
		return []View{ViewBooks, ViewUsers, ViewLending, ViewActivity}
	}
	return []View{ViewCatalog, ViewMyLoans, ViewActivity}
}

// Options configures the UI.
type Options struct {
	Context context.Context
	Session *session.Store
	Resume  func(ctx context.Context) error // nil uses Session.Resume

	Catalog *coord.Catalog
	MyLoans *coord.MyLoans
	Books   *coord.BookAdmin
	Users   *coord.UserAdmin
	Lending *coord.LoanAdmin

	LogFile   string
	APIURL    string
	ThemeName string
	PrefsPath string
	Path      string // initial location; empty is "/"
}

// flash is a transient status line message.
type flash struct {
	text  string
	isErr bool
	at    time.Time
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	session   *session.Store
	resume    func(ctx context.Context) error
	catalog   *coord.Catalog
	myLoans   *coord.MyLoans
	books     *coord.BookAdmin
	users     *coord.UserAdmin
	lending   *coord.LoanAdmin
	logFile   string
	apiURL    string
	prefsPath string
	keys      keyMap

	// UI state
	theme    Theme
	width    int
	height   int
	ready    bool
	path     string
	view     View
	selected map[View]int
	spinner  spinner.Model
	flash    flash

	// Catalog detail pane
	detailOpen bool

	// Login form, shown full screen while signed out
	login *formModal

	// Overlays
	modal    Modal
	showHelp bool

	// Activity log
	logViewport viewport.Model
	logState    logState

	// Loan registry subscription
	loanEvents  <-chan struct{}
	unsubscribe func()
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	resume := opts.Resume
	if resume == nil && opts.Session != nil {
		resume = opts.Session.Resume
	}

	path := opts.Path
	if strings.TrimSpace(path) == "" {
		path = route.Home
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:       ctx,
		session:   opts.Session,
		resume:    resume,
		catalog:   opts.Catalog,
		myLoans:   opts.MyLoans,
		books:     opts.Books,
		users:     opts.Users,
		lending:   opts.Lending,
		logFile:   opts.LogFile,
		apiURL:    opts.APIURL,
		prefsPath: prefsPath,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(themeName),
		path:      path,
		selected:  make(map[View]int),
		spinner:   sp,
		login:     newLoginForm(),
		logState:  newLogState(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(DefaultUIInterval),
		m.spinner.Tick,
	}
	if m.resume != nil {
		cmds = append(cmds, resumeCmd(m.ctx, m.resume))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.initLogViewport()
		}
		m.ready = true
		m.resizeLogViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case resumeDoneMsg:
		var expired *session.AuthExpiredError
		if msg.err != nil && !errors.As(msg.err, &expired) {
			m.setFlash(library.Message(msg.err), true)
		}
		return m.enterLocation()

	case formResultMsg:
		return m.handleFormResult(msg)

	case actionMsg:
		m.handleAction(msg)
		return m, nil

	case loansChangedMsg:
		m.clampSelection(ViewLending)
		return m, waitForLoans(m.loanEvents)

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	switch m.screen().Screen {
	case route.ScreenPending:
		return m.renderPending()
	case route.ScreenLogin:
		return m.renderLogin()
	case route.ScreenForbidden:
		return m.renderForbidden()
	}

	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

// screen resolves the current location against the session.
func (m Model) screen() route.Result {
	sess, signedIn := m.currentSession()
	loading := m.session != nil && m.session.Loading()
	return route.Resolve(m.path, signedIn, sess.Role(), loading)
}

func (m Model) currentSession() (session.Session, bool) {
	if m.session == nil {
		return session.Session{}, false
	}
	return m.session.Current()
}

// tabs returns the tabs for the signed-in role.
func (m Model) tabs() []View {
	sess, _ := m.currentSession()
	return tabsFor(sess.Role())
}

// enterLocation settles the path after a session change and starts the
// first tab when the result is a signed-in screen.
func (m Model) enterLocation() (tea.Model, tea.Cmd) {
	res := m.screen()
	m.path = res.Path
	m.modal = nil
	switch res.Screen {
	case route.ScreenLibrarian, route.ScreenStudent:
		m.view = m.restoreWorkspace()
		m.detailOpen = false
		m.selected = make(map[View]int)
		cmds := []tea.Cmd{m.startView(m.view)}
		if res.Screen == route.ScreenLibrarian {
			cmds = append(cmds, m.subscribeLoans())
		}
		return m, tea.Batch(cmds...)
	case route.ScreenLogin:
		m.stopLoans()
		m.login = newLoginForm()
	}
	return m, nil
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	// Inside a form ctrl+c clears the fields instead.
	if msg.String() == "ctrl+c" && m.modal == nil {
		return m, tea.Quit
	}

	switch m.screen().Screen {
	case route.ScreenPending:
		return m, nil
	case route.ScreenLogin:
		return m.handleLoginKey(msg)
	case route.ScreenForbidden:
		return m.handleForbiddenKey(msg)
	}

	if m.modal != nil {
		modal, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
			m.clampSelection(m.view)
		} else {
			m.modal = modal
		}
		return m, cmd
	}

	// Search input swallows keys on the activity tab.
	if m.view == ViewActivity && m.logState.searchActive {
		return m.handleLogSearchInput(msg)
	}

	switch {
	case pressed(msg, m.keys.Quit):
		return m, tea.Quit

	case pressed(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case pressed(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		name := m.theme.Name
		if err := prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.Theme = name }); err != nil {
			log.Printf("prefs: save theme: %v", err)
			m.setFlash("Theme not saved: "+err.Error(), true)
		}
		return m, nil

	case pressed(msg, m.keys.Logout):
		m.session.Logout()
		m.path = route.Login
		return m.enterLocation()

	case pressed(msg, m.keys.Tab):
		return m.switchTab(1)

	case pressed(msg, m.keys.ShiftTab):
		return m.switchTab(-1)

	case pressed(msg, m.keys.Activity):
		if m.view != ViewActivity {
			return m.openView(ViewActivity)
		}
		return m, nil
	}

	if idx := tabIndexKey(msg); idx >= 0 {
		if tabs := m.tabs(); idx < len(tabs) {
			return m.openView(tabs[idx])
		}
		return m, nil
	}

	switch m.view {
	case ViewCatalog:
		return m.handleCatalogKey(msg)
	case ViewMyLoans:
		return m.handleMyLoansKey(msg)
	case ViewBooks:
		return m.handleBooksKey(msg)
	case ViewUsers:
		return m.handleUsersKey(msg)
	case ViewLending:
		return m.handleLendingKey(msg)
	case ViewActivity:
		return m.handleActivityKey(msg)
	}
	return m, nil
}

// tabIndexKey maps "1".."9" to a tab index, or -1.
func tabIndexKey(msg tea.KeyMsg) int {
	s := msg.String()
	if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
		return int(s[0] - '1')
	}
	return -1
}

// switchTab moves delta tabs forward or back, wrapping.
func (m Model) switchTab(delta int) (tea.Model, tea.Cmd) {
	tabs := m.tabs()
	current := 0
	for i, v := range tabs {
		if v == m.view {
			current = i
		}
	}
	next := (current + delta + len(tabs)) % len(tabs)
	return m.openView(tabs[next])
}

// openView shows v and triggers its first fetch.
func (m Model) openView(v View) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.view == ViewCatalog && m.detailOpen {
		m.detailOpen = false
		cmds = append(cmds, m.run(ViewCatalog, "", m.catalog.CloseDetail))
	}
	m.view = v
	m.saveWorkspace()
	cmds = append(cmds, m.startView(v))
	return m, tea.Batch(cmds...)
}

// startView returns the command that loads v on first display.
func (m Model) startView(v View) tea.Cmd {
	switch v {
	case ViewCatalog:
		return m.run(v, "", m.catalog.Start)
	case ViewMyLoans:
		return m.run(v, "", m.myLoans.Start)
	case ViewBooks:
		return m.run(v, "", m.books.Start)
	case ViewUsers:
		return m.run(v, "", m.users.Start)
	case ViewLending:
		return m.run(v, "", m.lending.Start)
	case ViewActivity:
		return m.readLogCmd()
	}
	return nil
}

// refreshView re-fetches v.
func (m Model) refreshView(v View) tea.Cmd {
	switch v {
	case ViewCatalog:
		return m.run(v, "", m.catalog.Refresh)
	case ViewMyLoans:
		return m.run(v, "", m.myLoans.Refresh)
	case ViewBooks:
		return m.run(v, "", m.books.Refresh)
	case ViewUsers:
		return m.run(v, "", m.users.Refresh)
	case ViewLending:
		return tea.Batch(
			m.run(v, "", func(ctx context.Context) error {
				m.lending.LoadStudents(ctx)
				return nil
			}),
			m.run(v, "", m.lending.Refresh),
		)
	case ViewActivity:
		return m.readLogCmd()
	}
	return nil
}

// handleTick processes the UI tick.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if !m.flash.at.IsZero() && now.Sub(m.flash.at) > FlashDuration {
		m.flash = flash{}
	}

	if m.view == ViewActivity && m.logState.follow {
		if cmd := m.readLogCmd(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	cmds = append(cmds, tickCmd(DefaultUIInterval))
	return m, tea.Batch(cmds...)
}

// handleAction records the outcome of a coordinator call.
func (m *Model) handleAction(msg actionMsg) {
	m.clampSelection(msg.view)
	switch {
	case msg.err == nil:
		if msg.success != "" {
			m.setFlash(msg.success, false)
		}
	case errors.Is(msg.err, listcache.ErrSuperseded), errors.Is(msg.err, context.Canceled):
	default:
		m.setFlash(library.Message(msg.err), true)
	}
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = flash{text: text, isErr: isErr, at: time.Now()}
}

// handleFormResult finishes a pending form submission.
func (m Model) handleFormResult(msg formResultMsg) (tea.Model, tea.Cmd) {
	if msg.login {
		if msg.err != nil {
			m.login.fail(library.Message(msg.err))
			return m, nil
		}
		m.path = route.Home
		return m.enterLocation()
	}

	form, ok := m.modal.(*formModal)
	if !ok {
		return m, nil
	}
	if msg.err != nil {
		form.fail(library.Message(msg.err))
		return m, nil
	}
	m.modal = nil
	if msg.success != "" {
		m.setFlash(msg.success, false)
	}
	m.clampSelection(m.view)
	return m, nil
}

// renderMain renders the signed-in layout.
func (m Model) renderMain() string {
	var b strings.Builder

	// Header line 1: logo, identity, tabs
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	// Header line 2: command bar
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	b.WriteString(m.renderContent())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.view {
	case ViewCatalog:
		return m.renderCatalog()
	case ViewMyLoans:
		return m.renderMyLoans()
	case ViewBooks:
		return m.renderBooks()
	case ViewUsers:
		return m.renderUsers()
	case ViewLending:
		return m.renderLending()
	case ViewActivity:
		return m.renderActivity()
	default:
		return ""
	}
}

// renderPending shows the spinner while the stored session is checked.
func (m Model) renderPending() string {
	styles := m.theme.Styles()
	label := "Restoring session..."
	if m.path == route.Login {
		label = "Signing in..."
	}
	msg := m.spinner.View() + " " + styles.MutedText.Render(label)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, msg,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

// renderForbidden is shown when the location belongs to the other role.
func (m Model) renderForbidden() string {
	styles := m.theme.Styles()
	sess, _ := m.currentSession()
	content := styles.DangerText.Render("Access denied") + "\n\n" +
		styles.Text.Render(sess.User.Username+" ("+sess.Role().Label()+") cannot open "+m.path) + "\n\n" +
		styles.MutedText.Render("enter: go home   L: log out   e: quit")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) handleForbiddenKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case pressed(msg, m.keys.Quit):
		return m, tea.Quit
	case pressed(msg, m.keys.Logout):
		m.session.Logout()
		m.path = route.Login
		return m.enterLocation()
	case pressed(msg, m.keys.Confirm):
		m.path = route.Home
		return m.enterLocation()
	}
	return m, nil
}

// Registry subscription

func (m *Model) subscribeLoans() tea.Cmd {
	m.stopLoans()
	if m.lending == nil {
		return nil
	}
	m.loanEvents, m.unsubscribe = m.lending.Registry().Subscribe()
	return waitForLoans(m.loanEvents)
}

func (m *Model) stopLoans() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.loanEvents = nil
	m.unsubscribe = nil
}

// Messages

type tickMsg time.Time

type resumeDoneMsg struct{ err error }

// actionMsg reports a finished coordinator call for view.
type actionMsg struct {
	view    View
	success string
	err     error
}

// formResultMsg reports a finished form submission.
type formResultMsg struct {
	login   bool
	success string
	err     error
}

type loansChangedMsg struct{}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func resumeCmd(ctx context.Context, resume func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return resumeDoneMsg{err: resume(ctx)}
	}
}

// run calls fn off the UI goroutine and reports the result for view.
func (m Model) run(view View, success string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionMsg{view: view, success: success, err: fn(ctx)}
	}
}

// submit calls fn off the UI goroutine and reports the result to the open form.
func (m Model) submit(success string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return formResultMsg{success: success, err: fn(ctx)}
	}
}

// waitForLoans blocks until the registry changes. A nil or closed channel
// ends the subscription.
func waitForLoans(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return loansChangedMsg{}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.stopLoans()
	}
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
