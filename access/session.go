package access

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/model"
	"github.com/goliatone/go-workout-tracker/notify"
	"github.com/goliatone/go-workout-tracker/query"
	"github.com/goliatone/go-workout-tracker/remote"
)

// Session covers sign up, sign in, password reset and the profile of the
// signed-in user. It is the UserSource of the entity services.
type Session struct {
	deps Deps
}

var _ UserSource = (*Session)(nil)

func NewSession(deps Deps) *Session {
	return &Session{deps: deps.withDefaults("session")}
}

// CurrentUser returns the signed-in user, or nil when signed out.
func (s *Session) CurrentUser(ctx context.Context) (*model.User, error) {
	return query.Fetch(ctx, s.deps.Client, query.NewKey(ScopeUser), func(ctx context.Context) (*model.User, error) {
		return s.deps.Remote.Auth().CurrentUser(ctx)
	})
}

// Username returns the profile username of the signed-in user. It is empty when
// signed out or when no profile exists.
func (s *Session) Username(ctx context.Context) (string, error) {
	u, err := s.CurrentUser(ctx)
	if err != nil || u == nil {
		return "", err
	}

	return query.Fetch(ctx, s.deps.Client, query.NewKey(ScopeUsername, u.ID), func(ctx context.Context) (string, error) {
		rows, err := s.deps.Remote.Profiles().Select(ctx, remote.Eq(remote.ColumnUserID, u.ID))
		if err != nil || len(rows) == 0 {
			return "", err
		}
		return rows[0].Username, nil
	})
}

// SignUp ends any current session, creates the account and its profile. The
// new user stays signed in.
func (s *Session) SignUp(ctx context.Context, username, email, password string) (*model.User, error) {
	const failed = "Failed to create account!"
	auth := s.deps.Remote.Auth()

	if err := auth.SignOut(ctx); err != nil {
		s.deps.Logger.WarnContext(ctx, "sign out before sign up", "error", err)
	}

	u, err := auth.SignUp(ctx, email, password)
	if err == nil && u == nil {
		err = goerrors.New("No user data returned from server", goerrors.CategoryExternal)
	}
	if err != nil {
		s.deps.invalidate(ctx, KindSession)
		s.deps.fail(ctx, failed, err)
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "sign up")
	}
	s.deps.invalidate(ctx, KindSession)

	_, err = s.deps.Remote.Profiles().Insert(ctx, model.Profile{
		UserID:    u.ID,
		Username:  username,
		CreatedAt: s.deps.Now(),
	})
	if err != nil {
		s.deps.fail(ctx, failed, err)
		return u, goerrors.Wrap(err, goerrors.CategoryExternal, "create profile")
	}
	s.deps.invalidate(ctx, KindSession)
	return u, nil
}

// SignIn starts a password session.
func (s *Session) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.deps.Remote.Auth().SignInWithPassword(ctx, email, password)
	if err != nil {
		s.deps.fail(ctx, "Failed to log in!", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "sign in")
	}
	s.deps.Notifier.Notify(ctx, notify.Success("Successfully logged in!"))
	s.deps.invalidate(ctx, KindSession)
	return u, nil
}

// SignOut ends the session and drops every cached read owned by a kind.
func (s *Session) SignOut(ctx context.Context) error {
	err := s.deps.Remote.Auth().SignOut(ctx)
	s.deps.invalidate(ctx, s.deps.Client.Registry().Kinds()...)
	if err != nil {
		s.deps.fail(ctx, "Failed to log out!", err)
		return goerrors.Wrap(err, goerrors.CategoryExternal, "sign out")
	}
	return nil
}

// SendResetCode emails a one-time code to an existing account.
func (s *Session) SendResetCode(ctx context.Context, email string) error {
	if err := s.deps.Remote.Auth().SignInWithOTP(ctx, email); err != nil {
		s.deps.fail(ctx, "Failed to send reset link!", err)
		return goerrors.Wrap(err, goerrors.CategoryExternal, "send reset code")
	}
	return nil
}

// VerifyResetCode exchanges a one-time code for a session.
func (s *Session) VerifyResetCode(ctx context.Context, email, code string) (*model.User, error) {
	u, err := s.deps.Remote.Auth().VerifyOTP(ctx, email, code)
	if err != nil {
		s.deps.fail(ctx, "Failed to verify!", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "verify reset code")
	}
	s.deps.invalidate(ctx, KindSession)
	return u, nil
}

// UpdatePassword sets a new password for the signed-in user.
func (s *Session) UpdatePassword(ctx context.Context, password string) error {
	if err := s.deps.Remote.Auth().UpdatePassword(ctx, password); err != nil {
		s.deps.fail(ctx, "Failed to update password!", err)
		return goerrors.Wrap(err, goerrors.CategoryExternal, "update password")
	}
	s.deps.Notifier.Notify(ctx, notify.Success("Password updated!"))
	return nil
}
