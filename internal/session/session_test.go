package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/shelf/internal/credentials"
	"github.com/five82/shelf/internal/library"
)

type fakeGateway struct {
	mu        sync.Mutex
	token     string
	pair      library.TokenPair
	loginErr  error
	user      library.User
	userErr   error
	userCalls int
	seenToken string
}

func (f *fakeGateway) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeGateway) Login(ctx context.Context, username, password string) (library.TokenPair, error) {
	if f.loginErr != nil {
		return library.TokenPair{}, f.loginErr
	}
	return f.pair, nil
}

func (f *fakeGateway) CurrentUser(ctx context.Context) (library.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls++
	f.seenToken = f.token
	if f.userErr != nil {
		return library.User{}, f.userErr
	}
	return f.user, nil
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestNewStore_StartsLoading(t *testing.T) {
	s := NewStore(&fakeGateway{}, credentials.NewMemory(credentials.Tokens{}))
	assert.True(t, s.Loading())
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestResume_NoCredentialIsNotAnError(t *testing.T) {
	gw := &fakeGateway{}
	s := NewStore(gw, credentials.NewMemory(credentials.Tokens{}))

	require.NoError(t, s.Resume(context.Background()))
	assert.False(t, s.Loading())
	assert.Zero(t, gw.userCalls, "no identity call without a stored token")
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestResume_ValidCredentialPopulatesSession(t *testing.T) {
	gw := &fakeGateway{user: library.User{ID: 3, Username: "lib", Role: library.RoleLibrarian}}
	creds := credentials.NewMemory(credentials.Tokens{Access: "opaque", Refresh: "r"})
	s := NewStore(gw, creds)

	require.NoError(t, s.Resume(context.Background()))

	sess, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, library.RoleLibrarian, sess.Role())
	assert.Equal(t, "opaque", sess.AccessToken)
	assert.Equal(t, "opaque", gw.seenToken, "identity call must carry the stored token")
	assert.False(t, s.Loading())
}

func TestResume_RejectedCredentialIsPurged(t *testing.T) {
	gw := &fakeGateway{userErr: &library.RemoteRequestError{Status: http.StatusUnauthorized, Message: "Token is invalid or expired"}}
	creds := credentials.NewMemory(credentials.Tokens{Access: "stale", Refresh: "r"})
	s := NewStore(gw, creds)

	err := s.Resume(context.Background())

	var expired *AuthExpiredError
	require.ErrorAs(t, err, &expired)
	_, ok := s.Current()
	assert.False(t, ok)
	stored, _ := creds.Load()
	assert.True(t, stored.Empty(), "credential must be purged, not retried")
	assert.Equal(t, 1, gw.userCalls)
	assert.Empty(t, gw.token)
	assert.False(t, s.Loading())
}

func TestResume_TransportFailureAlsoPurges(t *testing.T) {
	gw := &fakeGateway{userErr: &library.TransportError{URL: "http://x", Err: errors.New("dial")}}
	creds := credentials.NewMemory(credentials.Tokens{Access: "tok"})
	s := NewStore(gw, creds)

	err := s.Resume(context.Background())

	var transport *library.TransportError
	assert.ErrorAs(t, err, &transport)
	stored, _ := creds.Load()
	assert.True(t, stored.Empty())
}

func TestResume_ExpiredJWTSkipsNetwork(t *testing.T) {
	gw := &fakeGateway{user: library.User{ID: 1}}
	creds := credentials.NewMemory(credentials.Tokens{Access: signedToken(t, time.Now().Add(-time.Hour))})
	s := NewStore(gw, creds)

	err := s.Resume(context.Background())

	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Zero(t, gw.userCalls)
	stored, _ := creds.Load()
	assert.True(t, stored.Empty())
}

func TestLogin_PersistsTokensAndResolvesIdentity(t *testing.T) {
	access := signedToken(t, time.Now().Add(time.Hour))
	gw := &fakeGateway{
		pair: library.TokenPair{Access: access, Refresh: "ref"},
		user: library.User{ID: 7, Username: "ana", Role: library.RoleStudent},
	}
	creds := credentials.NewMemory(credentials.Tokens{})
	s := NewStore(gw, creds)
	require.NoError(t, s.Resume(context.Background()))

	require.NoError(t, s.Login(context.Background(), "ana", "pw"))

	sess, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, library.RoleStudent, sess.Role())
	stored, _ := creds.Load()
	assert.Equal(t, access, stored.Access)
	assert.Equal(t, "ref", stored.Refresh)
	assert.Equal(t, access, gw.seenToken)

	exp, ok := s.ExpiresAt()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)
}

func TestLogin_PropagatesGatewayErrorUnchanged(t *testing.T) {
	loginErr := &library.RemoteRequestError{Status: http.StatusUnauthorized, Message: "No active account found with the given credentials"}
	gw := &fakeGateway{loginErr: loginErr}
	creds := credentials.NewMemory(credentials.Tokens{})
	s := NewStore(gw, creds)

	err := s.Login(context.Background(), "ana", "bad")

	assert.Same(t, loginErr, err)
	_, ok := s.Current()
	assert.False(t, ok)
	assert.False(t, s.Loading())
}

func TestLogin_IdentityFailureLeavesNoCredential(t *testing.T) {
	gw := &fakeGateway{pair: library.TokenPair{Access: "a", Refresh: "r"}, userErr: errors.New("boom")}
	creds := credentials.NewMemory(credentials.Tokens{})
	s := NewStore(gw, creds)

	require.Error(t, s.Login(context.Background(), "ana", "pw"))
	stored, _ := creds.Load()
	assert.True(t, stored.Empty())
}

func TestLogout_ClearsEverythingWithoutNetwork(t *testing.T) {
	gw := &fakeGateway{user: library.User{ID: 1, Role: library.RoleStudent}}
	creds := credentials.NewMemory(credentials.Tokens{Access: "tok"})
	s := NewStore(gw, creds)
	require.NoError(t, s.Resume(context.Background()))
	calls := gw.userCalls

	s.Logout()

	_, ok := s.Current()
	assert.False(t, ok)
	stored, _ := creds.Load()
	assert.True(t, stored.Empty())
	assert.Empty(t, gw.token)
	assert.Equal(t, calls, gw.userCalls)
}

func TestOnSignOut_RunsOnLogoutAndFailedResume(t *testing.T) {
	gw := &fakeGateway{user: library.User{ID: 1, Role: library.RoleLibrarian}}
	creds := credentials.NewMemory(credentials.Tokens{Access: "tok"})
	s := NewStore(gw, creds)

	var calls int
	var signedIn bool
	s.OnSignOut(func() {
		calls++
		_, signedIn = s.Current()
	})
	s.OnSignOut(nil)

	require.NoError(t, s.Resume(context.Background()))
	assert.Zero(t, calls, "a successful resume is not a sign-out")

	s.Logout()
	assert.Equal(t, 1, calls)
	assert.False(t, signedIn, "hooks see the store already signed out")

	require.NoError(t, creds.Save(credentials.Tokens{Access: "stale"}))
	gw.userErr = &library.RemoteRequestError{Status: http.StatusUnauthorized, Message: "expired"}
	require.Error(t, s.Resume(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestExpiresAt_OpaqueTokenHasNoExpiry(t *testing.T) {
	gw := &fakeGateway{user: library.User{ID: 1}}
	s := NewStore(gw, credentials.NewMemory(credentials.Tokens{Access: "opaque"}))
	require.NoError(t, s.Resume(context.Background()))
	_, ok := s.ExpiresAt()
	assert.False(t, ok)
}
