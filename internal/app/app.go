package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/five82/shelf/internal/activity"
	"github.com/five82/shelf/internal/config"
	"github.com/five82/shelf/internal/coord"
	"github.com/five82/shelf/internal/credentials"
	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/loans"
	"github.com/five82/shelf/internal/prefs"
	"github.com/five82/shelf/internal/session"
	"github.com/five82/shelf/internal/ui"
)

// Options configure the shelf application.
type Options struct {
	ConfigPath      string
	PrefsPath       string // empty uses default ~/.config/shelf/prefs.toml
	CredentialsPath string // empty uses default ~/.config/shelf/credentials.toml
	APIURL          string // --api flag; empty falls through to env and config
	PollEvery       time.Duration
}

// Services is the wired object graph shared by the TUI and the one-shot
// commands.
type Services struct {
	Config  config.Config
	Client  *library.Client
	Session *session.Store
	Loans   *loans.Registry

	Catalog *coord.Catalog
	MyLoans *coord.MyLoans
	Books   *coord.BookAdmin
	Users   *coord.UserAdmin
	Lending *coord.LoanAdmin

	logCloser io.Closer
}

// Bootstrap loads configuration, redirects logging to the log file and
// builds every component. Callers must Close the result.
func Bootstrap(opts Options) (*Services, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load shelf config: %w", err)
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = config.ClampPoll(opts.PollEvery)
	}

	closer, err := activity.Setup(cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("open activity log: %w", err)
	}

	client, err := library.NewClient(cfg.ResolveAPIURL(opts.APIURL), library.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("init library client: %w", err)
	}

	creds, err := credentials.NewFile(opts.CredentialsPath)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	return newServices(cfg, client, creds, closer), nil
}

// newServices wires the session, the registry and every coordinator, and
// arranges for all cached screen state to be dropped when the session ends.
func newServices(cfg config.Config, client *library.Client, creds credentials.Store, closer io.Closer) *Services {
	sess := session.NewStore(client, creds)
	registry := loans.NewRegistry(client)

	svc := &Services{
		Config:    cfg,
		Client:    client,
		Session:   sess,
		Loans:     registry,
		Catalog:   coord.NewCatalog(client, sess),
		MyLoans:   coord.NewMyLoans(client, sess),
		Books:     coord.NewBookAdmin(client, sess),
		Users:     coord.NewUserAdmin(client, sess),
		Lending:   coord.NewLoanAdmin(client, registry, sess),
		logCloser: closer,
	}
	sess.OnSignOut(svc.resetViews)
	return svc
}

// resetViews forgets lists, filters, selections and errors cached for the
// previous identity. Lending.Reset also empties the shared loan registry.
func (s *Services) resetViews() {
	s.Catalog.Reset()
	s.MyLoans.Reset()
	s.Books.Reset()
	s.Users.Reset()
	s.Lending.Reset()
}

// Resume restores the stored session. An expired or unusable credential is
// logged and leaves the client signed out; it is not an error.
func (s *Services) Resume(ctx context.Context) error {
	err := s.Session.Resume(ctx)
	var expired *session.AuthExpiredError
	if errors.As(err, &expired) {
		log.Printf("session: resume failed, signed out: %v", expired)
		return nil
	}
	return err
}

// Close releases the log file.
func (s *Services) Close() error {
	if s.logCloser == nil {
		return nil
	}
	return s.logCloser.Close()
}

// Run boots the shelf TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	svc, err := Bootstrap(opts)
	if err != nil {
		return err
	}
	defer svc.Close()

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		log.Printf("prefs: using defaults: %v", err)
	}

	StartPoller(ctx, svc.Loans, svc.Session, svc.Config.PollInterval)

	log.Printf("shelf starting against %s", svc.Client.BaseURL())

	return ui.Run(ui.Options{
		Context:   ctx,
		Session:   svc.Session,
		Resume:    svc.Resume,
		Catalog:   svc.Catalog,
		MyLoans:   svc.MyLoans,
		Books:     svc.Books,
		Users:     svc.Users,
		Lending:   svc.Lending,
		LogFile:   svc.Config.LogFile,
		APIURL:    svc.Client.BaseURL(),
		ThemeName: userPrefs.Theme,
		PrefsPath: opts.PrefsPath,
	})
}
