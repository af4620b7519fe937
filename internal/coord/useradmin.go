package coord

import (
	"context"
	"fmt"
	"log"

	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
	"github.com/five82/shelf/internal/validate"
)

// UserGateway is what the user administration screen calls.
type UserGateway interface {
	ListUsers(ctx context.Context, role library.Role) ([]library.User, error)
	CreateUser(ctx context.Context, req library.CreateUserRequest) (library.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// UserAdmin drives the librarian's user list and create form.
type UserAdmin struct {
	activity

	gateway UserGateway
	sess    Sessions
	users   *listcache.Cache[library.User, listcache.UserFilter]
}

// NewUserAdmin returns a UserAdmin that has not fetched yet.
func NewUserAdmin(gateway UserGateway, sess Sessions) *UserAdmin {
	u := &UserAdmin{gateway: gateway, sess: sess}
	u.users = listcache.New(func(ctx context.Context) ([]library.User, error) {
		return gateway.ListUsers(ctx, "")
	}, listcache.MatchUser)
	return u
}

// DefaultForm returns the initial values of the create form.
func (u *UserAdmin) DefaultForm() library.CreateUserRequest {
	return library.CreateUserRequest{Role: library.RoleStudent}
}

// Start performs the initial fetch once.
func (u *UserAdmin) Start(ctx context.Context) error {
	if !u.markStarted() {
		return nil
	}
	return u.Refresh(ctx)
}

// Refresh re-fetches the user list.
func (u *UserAdmin) Refresh(ctx context.Context) error {
	if err := requireRole(u.sess, library.RoleLibrarian); err != nil {
		return u.fail(err)
	}
	u.begin()
	return u.end(u.users.Load(ctx))
}

// Reset drops the cached users, filter and error.
func (u *UserAdmin) Reset() {
	u.reset()
	u.users.Reset()
}

// Snapshot returns the cached users and the filtered view.
func (u *UserAdmin) Snapshot() listcache.Snapshot[library.User, listcache.UserFilter] {
	return u.users.Snapshot()
}

// SetFilter changes the view without fetching.
func (u *UserAdmin) SetFilter(patch func(*listcache.UserFilter)) {
	u.users.SetFilter(patch)
}

// Create validates req, creates the account and reloads the list.
func (u *UserAdmin) Create(ctx context.Context, req library.CreateUserRequest) (library.User, error) {
	if err := requireRole(u.sess, library.RoleLibrarian); err != nil {
		return library.User{}, u.fail(err)
	}
	if err := validate.User(req); err != nil {
		return library.User{}, u.fail(err)
	}

	u.begin()
	user, err := u.gateway.CreateUser(ctx, req)
	if err != nil {
		return library.User{}, u.end(fmt.Errorf("create user: %w", err))
	}
	u.end(nil)
	log.Printf("user %d created: %s (%s)", user.ID, user.Username, user.Role)
	u.reload(ctx)
	return user, nil
}

// Delete removes an account and reloads the list.
func (u *UserAdmin) Delete(ctx context.Context, id int64) error {
	if err := requireRole(u.sess, library.RoleLibrarian); err != nil {
		return u.fail(err)
	}

	u.begin()
	if err := u.gateway.DeleteUser(ctx, id); err != nil {
		return u.end(fmt.Errorf("delete user %d: %w", id, err))
	}
	u.end(nil)
	log.Printf("user %d deleted", id)
	u.reload(ctx)
	return nil
}

func (u *UserAdmin) reload(ctx context.Context) {
	if err := u.Refresh(ctx); err != nil {
		log.Printf("user list reload failed: %v", err)
	}
}
