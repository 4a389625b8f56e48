package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/internal/otp"
	"github.com/goliatone/go-workout-tracker/model"
	"github.com/goliatone/go-workout-tracker/remote"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	tokenIssuer       = "workout-tracker"
)

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID           string    `bun:"id,pk"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

func (u *userRow) model() model.User {
	return model.User{ID: u.ID, Email: u.Email}
}

// codeRow keeps the hash of the latest code sent to an address.
type codeRow struct {
	bun.BaseModel `bun:"table:otp_codes"`

	Email     string    `bun:"email,pk"`
	Hash      string    `bun:"hash,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Token returns the signed session token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Restore resumes a session from a token issued earlier with the same secret.
func (s *Store) Restore(token string) (*model.User, error) {
	u, err := s.parse(token)
	if err != nil {
		return nil, remote.NoSession("auth.restore")
	}
	s.setToken(token)
	return u, nil
}

func (s *Store) setToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *Store) issue(u model.User) error {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "sign session token")
	}
	s.setToken(signed)
	return nil
}

func (s *Store) parse(token string) (*model.User, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return &model.User{ID: c.Subject, Email: c.Email}, nil
}

// sessionUser returns the token's user. An expired or invalid token ends the
// session.
func (s *Store) sessionUser() *model.User {
	token := s.Token()
	if token == "" {
		return nil
	}
	u, err := s.parse(token)
	if err != nil {
		s.logger.Info("session ended", "error", err)
		s.setToken("")
		return nil
	}
	return u
}

func (s *Store) userByEmail(ctx context.Context, email string) (*userRow, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("email = ?", email).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func weakPassword() error {
	return goerrors.NewValidation("password should be at least 6 characters",
		goerrors.FieldError{Field: "password", Message: "too short"})
}

func invalidOTP() error {
	return goerrors.New("token has expired or is invalid", goerrors.CategoryAuth).
		WithTextCode(remote.CodeInvalidOTP)
}

type auth Store

func (a *auth) store() *Store { return (*Store)(a) }

func (a *auth) CurrentUser(ctx context.Context) (*model.User, error) {
	return a.store().sessionUser(), nil
}

func (a *auth) SignUp(ctx context.Context, email, password string) (*model.User, error) {
	s := a.store()
	const op = "auth.sign_up"
	if len(password) < minPasswordLength {
		return nil, weakPassword()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, remote.Failed(err, "hash password")
	}
	row := userRow{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(email),
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, goerrors.New("user already registered", goerrors.CategoryConflict).
				WithTextCode(remote.CodeUserExists)
		}
		return nil, s.storeError(ctx, err, op)
	}

	u := row.model()
	if err := s.issue(u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (a *auth) SignInWithPassword(ctx context.Context, email, password string) (*model.User, error) {
	s := a.store()
	row, err := s.userByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, s.storeError(ctx, err, "auth.sign_in")
	}
	if row == nil || bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)) != nil {
		return nil, remote.InvalidCredentials("invalid login credentials")
	}

	u := row.model()
	if err := s.issue(u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SignInWithOTP mails a code to an existing account. Unknown addresses are
// rejected rather than registered.
func (a *auth) SignInWithOTP(ctx context.Context, email string) error {
	s := a.store()
	const op = "auth.sign_in_otp"
	email = normalizeEmail(email)

	if !s.limiter.Allow(email) {
		return goerrors.New("email rate limit exceeded", goerrors.CategoryRateLimit).
			WithTextCode(remote.CodeRateLimited)
	}

	row, err := s.userByEmail(ctx, email)
	if err != nil {
		return s.storeError(ctx, err, op)
	}
	if row == nil {
		return goerrors.New("signups not allowed for otp", goerrors.CategoryNotFound)
	}

	code, err := otp.Generate()
	if err != nil {
		return remote.Failed(err, "generate otp")
	}
	hash, err := otp.Hash(code)
	if err != nil {
		return remote.Failed(err, "hash otp")
	}

	pending := codeRow{Email: email, Hash: hash, ExpiresAt: s.now().Add(otp.TTL)}
	_, err = s.db.NewInsert().
		Model(&pending).
		On("CONFLICT (email) DO UPDATE").
		Set("hash = EXCLUDED.hash").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)
	if err != nil {
		return s.storeError(ctx, err, op)
	}

	if err := s.mailer.SendOTP(ctx, email, code); err != nil {
		return remote.Failed(err, op)
	}
	return nil
}

// VerifyOTP signs the user in. A code works once.
func (a *auth) VerifyOTP(ctx context.Context, email, token string) (*model.User, error) {
	s := a.store()
	const op = "auth.verify_otp"
	email = normalizeEmail(email)

	var pending codeRow
	err := s.db.NewSelect().Model(&pending).Where("email = ?", email).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, invalidOTP()
	}
	if err != nil {
		return nil, s.storeError(ctx, err, op)
	}
	if s.now().After(pending.ExpiresAt) || !otp.Check(pending.Hash, token) {
		return nil, invalidOTP()
	}

	if _, err := s.db.NewDelete().Model((*codeRow)(nil)).Where("email = ?", email).Exec(ctx); err != nil {
		return nil, s.storeError(ctx, err, op)
	}

	row, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, s.storeError(ctx, err, op)
	}
	if row == nil {
		return nil, invalidOTP()
	}
	u := row.model()
	if err := s.issue(u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (a *auth) UpdatePassword(ctx context.Context, password string) error {
	s := a.store()
	const op = "auth.update_password"
	u := s.sessionUser()
	if u == nil {
		return remote.NoSession(op)
	}
	if len(password) < minPasswordLength {
		return weakPassword()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return remote.Failed(err, "hash password")
	}
	_, err = s.db.NewUpdate().
		Model((*userRow)(nil)).
		Set("password_hash = ?", string(hash)).
		Where("id = ?", u.ID).
		Exec(ctx)
	return s.storeError(ctx, err, op)
}

func (a *auth) SignOut(ctx context.Context) error {
	a.store().setToken("")
	return nil
}
