// Package supabase is a remote.Service backed by a hosted Supabase project. Data
// calls go to PostgREST under /rest/v1 and auth calls to GoTrue under /auth/v1.
//
// The client holds one session at a time, like a browser tab. Its access token
// authorizes every data call so row level security scopes rows to the user.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/model"
	"github.com/goliatone/go-workout-tracker/remote"
)

const maxErrorBody = 2048

// Client talks to one Supabase project.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	session *session

	programs  *table[model.Program]
	exercises *table[model.Exercise]
	muscles   *table[model.Muscle]
	profiles  *table[model.Profile]
}

var _ remote.Service = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithClock replaces time.Now when checking token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New returns a client for the project at baseURL using its anon key.
func New(baseURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "supabase")

	c.programs = &table[model.Program]{c: c, name: remote.TablePrograms}
	c.exercises = &table[model.Exercise]{c: c, name: remote.TableExercises}
	c.muscles = &table[model.Muscle]{c: c, name: remote.TableMuscles}
	c.profiles = &table[model.Profile]{c: c, name: remote.TableProfiles}
	return c
}

func (c *Client) Auth() remote.Auth                      { return (*auth)(c) }
func (c *Client) Programs() remote.Table[model.Program]   { return c.programs }
func (c *Client) Exercises() remote.Table[model.Exercise] { return c.exercises }
func (c *Client) Muscles() remote.Table[model.Muscle]     { return c.muscles }
func (c *Client) Profiles() remote.Table[model.Profile]   { return c.profiles }

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	prefer string
	// bearer overrides the session token, e.g. for refresh calls.
	bearer string
}

// do sends req and decodes a 2xx JSON body into out when out is not nil.
func (c *Client) do(ctx context.Context, op string, req request, out any) error {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, op+": encode body")
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, op+": build request")
	}

	bearer := req.bearer
	if bearer == "" {
		bearer = c.accessToken()
	}
	httpReq.Header.Set("apikey", c.anonKey)
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.prefer != "" {
		httpReq.Header.Set("Prefer", req.prefer)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return remote.Failed(err, op)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := statusError(op, resp.StatusCode, raw)
		c.logger.DebugContext(ctx, "request failed", "op", op, "status", resp.StatusCode, "error", apiErr)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, op+": decode response").
			WithTextCode(remote.CodeRequestFailed)
	}
	return nil
}

// apiError covers the PostgREST and GoTrue error bodies.
type apiError struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Details          string `json:"details"`
	Hint             string `json:"hint"`
}

func (e apiError) message() string {
	for _, m := range []string{e.Message, e.Msg, e.ErrorDescription, e.Error} {
		if m != "" {
			return m
		}
	}
	return ""
}

func (e apiError) code() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	if s, ok := e.Code.(string); ok {
		return s
	}
	return ""
}

// statusError maps an HTTP failure to the remote error taxonomy.
func statusError(op string, status int, raw []byte) error {
	var body apiError
	_ = json.Unmarshal(raw, &body)
	msg := body.message()
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	category, text := goerrors.CategoryExternal, remote.CodeRequestFailed
	switch code := body.code(); {
	case code == "23505" || code == "user_already_exists" || code == "email_exists":
		category, text = goerrors.CategoryConflict, remote.CodeDuplicate
		if strings.HasPrefix(code, "user") || strings.HasPrefix(code, "email") {
			text = remote.CodeUserExists
		}
	case code == "invalid_credentials" || body.Error == "invalid_grant":
		category, text = goerrors.CategoryAuth, remote.CodeInvalidCredentials
	case code == "otp_expired":
		category, text = goerrors.CategoryAuth, remote.CodeInvalidOTP
	case status == http.StatusUnauthorized || status == http.StatusForbidden || code == "42501":
		category, text = goerrors.CategoryAuth, remote.CodeNoSession
	case status == http.StatusNotFound:
		category = goerrors.CategoryNotFound
	case status == http.StatusConflict:
		category, text = goerrors.CategoryConflict, remote.CodeDuplicate
	case status == http.StatusTooManyRequests:
		category, text = goerrors.CategoryRateLimit, remote.CodeRateLimited
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		category = goerrors.CategoryBadInput
	}

	meta := map[string]any{"operation": op, "status": status}
	if body.Details != "" {
		meta["details"] = body.Details
	}
	if body.Hint != "" {
		meta["hint"] = body.Hint
	}
	return goerrors.New(msg, category).
		WithCode(status).
		WithTextCode(text).
		WithMetadata(meta)
}
