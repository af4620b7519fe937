// Package validate checks form input before it is sent to the API. A failed
// check never reaches the network.
//
// The rules live as `validate` struct tags on the library request types and
// are enforced with go-playground/validator. Two rules are registered here:
// notblank (non-empty after trimming spaces) and notfuture (a year no later
// than the current one).
package validate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/five82/shelf/internal/library"
)

// MinPasswordLength is the shortest password accepted when creating a user.
// It matches the min rule on library.CreateUserRequest.Password.
const MinPasswordLength = 6

// ValidationError reports a client-side rejection of one form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type nowKey struct{}

var checker = newChecker()

func newChecker() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their wire names so messages and Field match the API.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidationCtx("notfuture", func(ctx context.Context, fl validator.FieldLevel) bool {
		return fl.Field().Int() <= int64(nowFrom(ctx).Year())
	}); err != nil {
		panic(err)
	}
	return v
}

func nowFrom(ctx context.Context) time.Time {
	if now, ok := ctx.Value(nowKey{}).(time.Time); ok {
		return now
	}
	return time.Now()
}

func fail(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// check runs the struct rules and converts the first failure.
func check(ctx context.Context, s any) error {
	err := checker.StructCtx(ctx, s)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	return describe(errs[0], nowFrom(ctx))
}

// describe turns a failed rule into the message shown under the form.
func describe(fe validator.FieldError, now time.Time) error {
	field := fe.Field()
	switch field + "/" + fe.Tag() {
	case "title/notblank", "author_name/notblank", "genre_name/notblank":
		return fail(field, "%s is required", strings.ReplaceAll(field, "_", " "))
	case "published_year/gte", "published_year/notfuture":
		return yearError(now)
	case "stock/gte":
		return stockError()
	case "username/notblank", "email/notblank":
		return fail("username", "username and email are required")
	case "email/contains":
		return fail("email", "email address is not valid")
	case "password/required":
		return fail("password", "password is required")
	case "password/min":
		return fail("password", "password must be at least %s characters", fe.Param())
	case "role/oneof":
		return fail("role", "role must be %s", strings.ReplaceAll(fe.Param(), " ", " or "))
	}
	return fail(field, "%s is not valid", strings.ReplaceAll(field, "_", " "))
}

func yearError(now time.Time) error {
	return fail("published_year", "published year must be between 1 and %d", now.Year())
}

func stockError() error {
	return fail("stock", "stock cannot be negative")
}

// Book checks a new book. The publication year must lie between 1 and the
// year of now.
func Book(req library.CreateBookRequest, now time.Time) error {
	return check(context.WithValue(context.Background(), nowKey{}, now), req)
}

// Year checks a publication year against the current year.
func Year(year int, now time.Time) error {
	ctx := context.WithValue(context.Background(), nowKey{}, now)
	if err := checker.VarCtx(ctx, year, "gte=1,notfuture"); err != nil {
		return yearError(now)
	}
	return nil
}

// Stock rejects negative copy counts.
func Stock(stock int) error {
	if err := checker.Var(stock, "gte=0"); err != nil {
		return stockError()
	}
	return nil
}

// User checks a new account.
func User(req library.CreateUserRequest) error {
	return check(context.Background(), req)
}

type loginForm struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

// Login checks that both credentials were entered.
func Login(username, password string) error {
	err := check(context.Background(), loginForm{Username: username, Password: password})
	var ve *ValidationError
	if errors.As(err, &ve) && ve.Field == "username" {
		// The account form's shared username/email message does not apply here.
		return fail("username", "username is required")
	}
	return err
}
