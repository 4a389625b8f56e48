// Package memory is an in-process remote.Service. It applies the same ownership
// and auth rules as the hosted backend and lets tests inject failures.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/internal/otp"
	"github.com/goliatone/go-workout-tracker/model"
	"github.com/goliatone/go-workout-tracker/remote"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type account struct {
	user     model.User
	password []byte
}

type pendingCode struct {
	code    string
	expires time.Time
}

// Store is an in-memory backend holding a single client session.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	accounts map[string]*account
	session  *model.User
	codes    map[string]pendingCode
	failures map[string]error
	calls    map[string]int

	programs  *table[model.Program]
	exercises *table[model.Exercise]
	muscles   *table[model.Muscle]
	profiles  *table[model.Profile]
}

var _ remote.Service = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		accounts: make(map[string]*account),
		codes:    make(map[string]pendingCode),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.programs = newTable(s, remote.TablePrograms, ownedRules[model.Program]())
	s.exercises = newTable(s, remote.TableExercises, ownedRules[model.Exercise]())
	s.muscles = newTable(s, remote.TableMuscles, rules[model.Muscle]{
		id:       func(m *model.Muscle) int64 { return m.ID },
		setID:    func(m *model.Muscle, id int64) { m.ID = id },
		readOnly: true,
	})
	s.profiles = newTable(s, remote.TableProfiles, rules[model.Profile]{
		id:         func(p *model.Profile) int64 { return p.ID },
		setID:      func(p *model.Profile, id int64) { p.ID = id },
		owner:      func(p *model.Profile) string { return p.UserID },
		publicRead: true,
		unique: func(a, b *model.Profile) bool {
			return a.UserID == b.UserID || strings.EqualFold(a.Username, b.Username)
		},
	})
	return s
}

func (s *Store) Auth() remote.Auth                      { return (*auth)(s) }
func (s *Store) Programs() remote.Table[model.Program]   { return s.programs }
func (s *Store) Exercises() remote.Table[model.Exercise] { return s.exercises }
func (s *Store) Muscles() remote.Table[model.Muscle]     { return s.muscles }
func (s *Store) Profiles() remote.Table[model.Profile]   { return s.profiles }

// Fail makes every call to op return err until Fail(op, nil) clears it.
// op has the form "<table>.<method>" or "auth.<method>", e.g. "programs.select".
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// SeedMuscles inserts reference rows, bypassing the read-only rule.
func (s *Store) SeedMuscles(titles ...string) []model.Muscle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Muscle, 0, len(titles))
	for _, title := range titles {
		m := model.Muscle{Title: title, CreatedAt: s.now()}
		out = append(out, s.muscles.put(m))
	}
	return out
}

// LastCode returns the most recent unexpired code issued to email.
func (s *Store) LastCode(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.codes[strings.ToLower(email)]
	if !ok || s.now().After(pc.expires) {
		return "", false
	}
	return pc.code, true
}

// enter records a call to op and returns the injected failure, if any.
// Callers must hold s.mu.
func (s *Store) enter(op string) error {
	s.calls[op]++
	if err, ok := s.failures[op]; ok {
		return remote.Failed(err, op)
	}
	return nil
}

type auth Store

func (a *auth) store() *Store { return (*Store)(a) }

func (a *auth) CurrentUser(ctx context.Context) (*model.User, error) {
	s := a.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("auth.current_user"); err != nil {
		return nil, err
	}
	if s.session == nil {
		return nil, nil
	}
	u := *s.session
	return &u, nil
}

func (a *auth) SignUp(ctx context.Context, email, password string) (*model.User, error) {
	s := a.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("auth.sign_up"); err != nil {
		return nil, err
	}

	key := strings.ToLower(email)
	if _, exists := s.accounts[key]; exists {
		return nil, goerrors.New("user already registered", goerrors.CategoryConflict).
			WithTextCode(remote.CodeUserExists)
	}
	if len(password) < 6 {
		return nil, goerrors.NewValidation("password should be at least 6 characters",
			goerrors.FieldError{Field: "password", Message: "too short"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, remote.Failed(err, "hash password")
	}
	acc := &account{user: model.User{ID: uuid.NewString(), Email: email}, password: hash}
	s.accounts[key] = acc

	u := acc.user
	s.session = &u
	return &u, nil
}

func (a *auth) SignInWithPassword(ctx context.Context, email, password string) (*model.User, error) {
	s := a.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("auth.sign_in"); err != nil {
		return nil, err
	}

	acc, ok := s.accounts[strings.ToLower(email)]
	if !ok || bcrypt.CompareHashAndPassword(acc.password, []byte(password)) != nil {
		return nil, remote.InvalidCredentials("invalid login credentials")
	}
	u := acc.user
	s.session = &u
	return &u, nil
}

func (a *auth) SignInWithOTP(ctx context.Context, email string) error {
	s := a.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("auth.sign_in_otp"); err != nil {
		return err
	}

	key := strings.ToLower(email)
	if _, ok := s.accounts[key]; !ok {
		return goerrors.New("signups not allowed for otp", goerrors.CategoryNotFound)
	}
	code, err := otp.Generate()
	if err != nil {
		return remote.Failed(err, "generate otp")
	}
	s.codes[key] = pendingCode{code: code, expires: s.now().Add(otp.TTL)}
	return nil
}

func (a *auth) VerifyOTP(ctx context.Context, email, token string) (*model.User, error) {
	s := a.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("auth.verify_otp"); err != nil {
		return nil, err
	}

	key := strings.ToLower(email)
	pc, ok := s.codes[key]
	if !ok || pc.code != token || s.now().After(pc.expires) {
		return nil, goerrors.New("token has expired or is invalid", goerrors.CategoryAuth).
			WithTextCode(remote.CodeInvalidOTP)
	}
	delete(s.codes, key)

	u := s.accounts[key].user
	s.session = &u
	return &u, nil
}

func (a *auth) UpdatePassword(ctx context.Context, password string) error {
	s := a.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("auth.update_password"); err != nil {
		return err
	}
	if s.session == nil {
		return remote.NoSession("update password")
	}
	if len(password) < 6 {
		return goerrors.NewValidation("password should be at least 6 characters",
			goerrors.FieldError{Field: "password", Message: "too short"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return remote.Failed(err, "hash password")
	}
	s.accounts[strings.ToLower(s.session.Email)].password = hash
	return nil
}

func (a *auth) SignOut(ctx context.Context) error {
	s := a.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("auth.sign_out"); err != nil {
		return err
	}
	s.session = nil
	return nil
}
