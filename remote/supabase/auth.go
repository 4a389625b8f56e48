package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/model"
	"github.com/goliatone/go-workout-tracker/remote"
	"github.com/golang-jwt/jwt/v5"
)

// refreshLeeway refreshes tokens slightly before they expire.
const refreshLeeway = 30 * time.Second

type session struct {
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	user         model.User
}

type userJSON struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u userJSON) model() *model.User {
	return &model.User{ID: u.ID, Email: u.Email}
}

// tokenResponse is returned by token, verify and signup. Signup returns a bare
// user instead when email confirmation is pending.
type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at"`
	User         *userJSON `json:"user"`
	userJSON
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return c.anonKey
	}
	return c.session.accessToken
}

func (c *Client) currentSession() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Client) setSession(s *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// Token returns the current access token, or "" when signed out.
func (c *Client) Token() string {
	if s := c.currentSession(); s != nil {
		return s.accessToken
	}
	return ""
}

// expiry reads exp from the token without verifying it; the project verifies
// tokens, the client only schedules refreshes.
func (c *Client) expiry(token string, fallback time.Time) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fallback
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback
	}
	return exp.Time
}

func (c *Client) adopt(resp tokenResponse) (*model.User, error) {
	user := resp.User
	if user == nil && resp.ID != "" {
		u := resp.userJSON
		user = &u
	}
	if user == nil {
		return nil, goerrors.New("No user data returned from server", goerrors.CategoryExternal).
			WithTextCode(remote.CodeRequestFailed)
	}
	if resp.AccessToken == "" {
		// Confirmation pending: the account exists but no session was issued.
		return user.model(), nil
	}

	fallback := c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	if resp.ExpiresAt > 0 {
		fallback = time.Unix(resp.ExpiresAt, 0)
	}
	c.setSession(&session{
		accessToken:  resp.AccessToken,
		refreshToken: resp.RefreshToken,
		expiresAt:    c.expiry(resp.AccessToken, fallback),
		user:         *user.model(),
	})
	return user.model(), nil
}

type auth Client

func (a *auth) client() *Client { return (*Client)(a) }

// CurrentUser refreshes an expiring token and asks the project who the token
// belongs to. A rejected token ends the session.
func (a *auth) CurrentUser(ctx context.Context) (*model.User, error) {
	c := a.client()
	s := c.currentSession()
	if s == nil {
		return nil, nil
	}

	if !c.now().Add(refreshLeeway).Before(s.expiresAt) {
		if err := a.refresh(ctx, s); err != nil {
			c.logger.InfoContext(ctx, "session refresh failed", "error", err)
			c.setSession(nil)
			return nil, nil
		}
	}

	var u userJSON
	err := c.do(ctx, "auth.current_user", request{method: http.MethodGet, path: "/auth/v1/user"}, &u)
	if remote.HasCode(err, remote.CodeNoSession) {
		c.setSession(nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u.model(), nil
}

func (a *auth) refresh(ctx context.Context, s *session) error {
	if s.refreshToken == "" {
		return remote.NoSession("auth.refresh")
	}
	var resp tokenResponse
	err := a.client().do(ctx, "auth.refresh", request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": s.refreshToken},
		bearer: a.anonKey,
	}, &resp)
	if err != nil {
		return err
	}
	_, err = a.client().adopt(resp)
	return err
}

func (a *auth) SignUp(ctx context.Context, email, password string) (*model.User, error) {
	var resp tokenResponse
	err := a.client().do(ctx, "auth.sign_up", request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   map[string]string{"email": email, "password": password},
		bearer: a.anonKey,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return a.client().adopt(resp)
}

func (a *auth) SignInWithPassword(ctx context.Context, email, password string) (*model.User, error) {
	var resp tokenResponse
	err := a.client().do(ctx, "auth.sign_in", request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
		bearer: a.anonKey,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return a.client().adopt(resp)
}

// SignInWithOTP does not create accounts for unknown addresses.
func (a *auth) SignInWithOTP(ctx context.Context, email string) error {
	return a.client().do(ctx, "auth.sign_in_otp", request{
		method: http.MethodPost,
		path:   "/auth/v1/otp",
		body:   map[string]any{"email": email, "create_user": false},
		bearer: a.anonKey,
	}, nil)
}

func (a *auth) VerifyOTP(ctx context.Context, email, token string) (*model.User, error) {
	var resp tokenResponse
	err := a.client().do(ctx, "auth.verify_otp", request{
		method: http.MethodPost,
		path:   "/auth/v1/verify",
		body:   map[string]string{"type": "email", "email": email, "token": token},
		bearer: a.anonKey,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return a.client().adopt(resp)
}

func (a *auth) UpdatePassword(ctx context.Context, password string) error {
	if a.client().currentSession() == nil {
		return remote.NoSession("auth.update_password")
	}
	return a.client().do(ctx, "auth.update_password", request{
		method: http.MethodPut,
		path:   "/auth/v1/user",
		body:   map[string]string{"password": password},
	}, nil)
}

// SignOut drops the local session even when the project rejects the call.
func (a *auth) SignOut(ctx context.Context) error {
	c := a.client()
	if c.currentSession() == nil {
		return nil
	}
	err := c.do(ctx, "auth.sign_out", request{method: http.MethodPost, path: "/auth/v1/logout"}, nil)
	c.setSession(nil)
	if remote.HasCode(err, remote.CodeNoSession) {
		return nil
	}
	return err
}
