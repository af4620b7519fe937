package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/five82/shelf/internal/credentials"
	"github.com/five82/shelf/internal/library"
)

// Gateway is the subset of the API client the session store needs.
type Gateway interface {
	SetToken(token string)
	Login(ctx context.Context, username, password string) (library.TokenPair, error)
	CurrentUser(ctx context.Context) (library.User, error)
}

// Session is the authenticated identity plus its credential.
type Session struct {
	User         library.User
	AccessToken  string
	RefreshToken string
}

// Role is a shorthand for s.User.Role.
func (s Session) Role() library.Role {
	return s.User.Role
}

// AuthExpiredError reports that a stored credential could not be resumed.
// The store has already purged the credential when this is returned.
type AuthExpiredError struct {
	Err error
}

func (e *AuthExpiredError) Error() string {
	if e.Err == nil {
		return "stored session expired"
	}
	return fmt.Sprintf("stored session expired: %v", e.Err)
}

func (e *AuthExpiredError) Unwrap() error {
	return e.Err
}

// ErrTokenExpired is wrapped by AuthExpiredError when the access token's own
// exp claim is already in the past.
var ErrTokenExpired = errors.New("access token past its expiry")

// Store owns the single Session of the running client. All transitions go
// through its methods under one mutex.
type Store struct {
	gateway Gateway
	creds   credentials.Store
	now     func() time.Time

	mu        sync.RWMutex
	current   *Session
	loading   bool
	onSignOut []func()
}

// NewStore returns a Store in the loading state; call Resume before
// rendering anything that needs an identity.
func NewStore(gateway Gateway, creds credentials.Store) *Store {
	return &Store{
		gateway: gateway,
		creds:   creds,
		now:     time.Now,
		loading: true,
	}
}

// Current returns a copy of the active Session.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// Loading reports whether a resume or login is still running.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Resume restores the Session from the persisted credential. Any failure to
// resolve the identity purges the credential and returns *AuthExpiredError;
// callers log it and continue logged out. No stored credential is not an error.
func (s *Store) Resume(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	tokens, err := s.creds.Load()
	if err != nil {
		s.purge()
		return &AuthExpiredError{Err: err}
	}
	if tokens.Empty() {
		s.purge()
		return nil
	}

	if exp, ok := tokenExpiry(tokens.Access); ok && !exp.After(s.now()) {
		s.purge()
		return &AuthExpiredError{Err: ErrTokenExpired}
	}

	s.gateway.SetToken(tokens.Access)
	user, err := s.gateway.CurrentUser(ctx)
	if err != nil {
		// Transient outages land here too and also log the user out.
		s.purge()
		return &AuthExpiredError{Err: err}
	}

	s.mu.Lock()
	s.current = &Session{User: user, AccessToken: tokens.Access, RefreshToken: tokens.Refresh}
	s.mu.Unlock()
	return nil
}

// Login exchanges credentials for tokens, persists them and resolves the
// identity. Gateway errors are returned unchanged.
func (s *Store) Login(ctx context.Context, username, password string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	pair, err := s.gateway.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := s.creds.Save(credentials.Tokens{Access: pair.Access, Refresh: pair.Refresh}); err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	s.gateway.SetToken(pair.Access)

	user, err := s.gateway.CurrentUser(ctx)
	if err != nil {
		s.purge()
		return err
	}

	s.mu.Lock()
	s.current = &Session{User: user, AccessToken: pair.Access, RefreshToken: pair.Refresh}
	s.mu.Unlock()
	log.Printf("session: logged in as %s (%s)", user.Username, user.Role)
	return nil
}

// Logout drops the Session and the persisted credential. It never calls the API.
func (s *Store) Logout() {
	s.purge()
	log.Printf("session: logged out")
}

// OnSignOut registers fn to run every time the Session is dropped: on Logout
// and whenever a resume or login fails and purges the credential. Hooks run
// after the store is updated, outside its lock.
func (s *Store) OnSignOut(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onSignOut = append(s.onSignOut, fn)
	s.mu.Unlock()
}

// ExpiresAt returns the access token's exp claim when the token is a JWT.
// The signature is not verified; the value is for display only.
func (s *Store) ExpiresAt() (time.Time, bool) {
	sess, ok := s.Current()
	if !ok {
		return time.Time{}, false
	}
	return tokenExpiry(sess.AccessToken)
}

func (s *Store) purge() {
	if err := s.creds.Clear(); err != nil {
		log.Printf("session: clear credentials: %v", err)
	}
	s.gateway.SetToken("")
	s.mu.Lock()
	s.current = nil
	hooks := append([]func(){}, s.onSignOut...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func tokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
