// Package access exposes the workout data the application reads and writes:
// programs, exercises, muscles and the signed-in session.
//
// Every read goes through the query client so repeated reads are served from
// cache, and every successful write invalidates the affected entity kind.
// Failures are reported to the user through a notify.Notifier.
package access

import (
	"context"
	"log/slog"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/model"
	"github.com/goliatone/go-workout-tracker/notify"
	"github.com/goliatone/go-workout-tracker/query"
	"github.com/goliatone/go-workout-tracker/remote"
)

// Entity kinds. Invalidating a kind drops every cached read it owns.
const (
	KindSession  query.Kind = "session"
	KindProgram  query.Kind = "program"
	KindExercise query.Kind = "exercise"
)

// Key scopes.
const (
	ScopeUser      = "get-user"
	ScopeUsername  = "get-username"
	ScopePrograms  = "get-programs"
	ScopeProgram   = "get-program"
	ScopeExercises = "get-exercises"
	ScopeExercise  = "get-exercise"
	ScopeMuscles   = "get-muscles"
)

// NewRegistry returns the registry tying each kind to its scopes. Muscles are
// reference data and belong to no kind.
func NewRegistry() *query.Registry {
	return query.NewRegistry().
		Register(KindSession, ScopeUser, ScopeUsername).
		Register(KindProgram, ScopePrograms, ScopeProgram).
		Register(KindExercise, ScopeExercises, ScopeExercise)
}

// ErrNotAuthenticated is returned by operations that need a signed-in user.
var ErrNotAuthenticated = goerrors.New("You must be logged in!", goerrors.CategoryAuth).
	WithTextCode("NOT_AUTHENTICATED")

// Deps are the collaborators shared by every service in this package.
type Deps struct {
	Remote   remote.Service
	Client   *query.Client
	Notifier notify.Notifier
	Logger   *slog.Logger
	Now      func() time.Time
}

func (d Deps) withDefaults(component string) Deps {
	if d.Notifier == nil {
		d.Notifier = notify.Nop
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	d.Logger = d.Logger.With("component", component)
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// fail reports err to the user under title and logs it.
func (d Deps) fail(ctx context.Context, title string, err error) {
	d.Notifier.Notify(ctx, notify.Failure(title, err))

	var gerr *goerrors.Error
	if goerrors.As(err, &gerr) {
		goerrors.LogBySeverity(d.Logger, gerr)
		return
	}
	d.Logger.ErrorContext(ctx, title, "error", err)
}

func (d Deps) invalidate(ctx context.Context, kinds ...query.Kind) {
	if err := d.Client.Invalidate(ctx, kinds...); err != nil {
		d.Logger.WarnContext(ctx, "invalidation failed", "kinds", kinds, "error", err)
	}
}

// UserSource resolves the signed-in user. A nil user means signed out.
type UserSource interface {
	CurrentUser(ctx context.Context) (*model.User, error)
}
