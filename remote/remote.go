// Package remote defines the contract with the backend that owns persistence,
// authentication and row ownership.
//
// Implementations live in subpackages: supabase talks to a hosted project over
// HTTP, sqlstore runs the backend in-process on a SQL database and memory keeps
// everything in maps for tests.
package remote

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/model"
)

// Table names as exposed by the backend.
const (
	TablePrograms  = "programs"
	TableExercises = "exercises"
	TableMuscles   = "muscles"
	TableProfiles  = "profiles"
)

// Column names used in filters.
const (
	ColumnID        = "id"
	ColumnCreatedBy = "created_by"
	ColumnCreatedAt = "created_at"
	ColumnUserID    = "user_id"
	ColumnUsername  = "username"
)

// Filter restricts a Select or Delete to rows whose Column equals Value.
type Filter struct {
	Column string
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

func (f Filter) String() string {
	return fmt.Sprintf("%s=eq.%v", f.Column, f.Value)
}

// Table is a row store for T. Rows the session user does not own are invisible
// to every method.
type Table[T any] interface {
	Select(ctx context.Context, filters ...Filter) ([]T, error)
	Insert(ctx context.Context, row T) (T, error)
	// Upsert inserts row or replaces the row with the same id.
	Upsert(ctx context.Context, row T) (T, error)
	Delete(ctx context.Context, filters ...Filter) error
}

// Auth is the identity subsystem.
type Auth interface {
	// CurrentUser returns nil without error when nobody is signed in.
	CurrentUser(ctx context.Context) (*model.User, error)
	SignUp(ctx context.Context, email, password string) (*model.User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*model.User, error)
	// SignInWithOTP emails a one-time code to an existing user.
	SignInWithOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, token string) (*model.User, error)
	UpdatePassword(ctx context.Context, password string) error
	SignOut(ctx context.Context) error
}

// Service is the full backend surface.
type Service interface {
	Auth() Auth
	Programs() Table[model.Program]
	Exercises() Table[model.Exercise]
	Muscles() Table[model.Muscle]
	Profiles() Table[model.Profile]
}

// Error codes attached to backend errors as TextCode.
const (
	CodeNoSession          = "NO_SESSION"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidOTP         = "INVALID_OTP"
	CodeUserExists         = "USER_EXISTS"
	CodeDuplicate          = "DUPLICATE"
	CodeRateLimited        = "RATE_LIMITED"
	CodeRequestFailed      = "REQUEST_FAILED"
)

// NoSession reports an operation that requires a signed-in user.
func NoSession(op string) error {
	return goerrors.New("no active session", goerrors.CategoryAuth).
		WithTextCode(CodeNoSession).
		WithMetadata(map[string]any{"operation": op})
}

// InvalidCredentials reports a failed password or code check.
func InvalidCredentials(msg string) error {
	return goerrors.New(msg, goerrors.CategoryAuth).WithTextCode(CodeInvalidCredentials)
}

// Failed wraps a transport or storage failure. Errors that already carry a
// category pass through unchanged.
func Failed(err error, op string) error {
	if err == nil {
		return nil
	}
	var e *goerrors.Error
	if goerrors.As(err, &e) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryExternal, op).WithTextCode(CodeRequestFailed)
}

// HasCode reports whether err carries the given text code.
func HasCode(err error, code string) bool {
	var e *goerrors.Error
	return goerrors.As(err, &e) && e.TextCode == code
}
