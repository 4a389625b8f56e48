package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/internal/otp"
	"github.com/goliatone/go-workout-tracker/model"
	"github.com/goliatone/go-workout-tracker/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var secret = []byte("test-secret")

type outbox struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (o *outbox) SendOTP(ctx context.Context, to, code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	if o.codes == nil {
		o.codes = make(map[string]string)
	}
	o.codes[to] = code
	return nil
}

func (o *outbox) code(to string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.codes[to]
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "tracker.db")
}

func newStore(t *testing.T, dsn string, opts ...Option) *Store {
	t.Helper()
	db, err := Open(DialectSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	opts = append([]Option{WithBcryptCost(bcrypt.MinCost)}, opts...)
	s, err := New(db, secret, opts...)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func signUp(t *testing.T, s *Store, email string) *model.User {
	t.Helper()
	u, err := s.Auth().SignUp(context.Background(), email, "secret1")
	require.NoError(t, err)
	return u
}

func TestOpenRejectsUnknownDialect(t *testing.T) {
	_, err := Open("mysql", "dsn")
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryBadInput))

	_, err = New(nil, secret)
	assert.Error(t, err)
}

func TestAuthLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, openDB(t))

	u := signUp(t, s, "Lifter@Example.com")
	assert.Equal(t, "lifter@example.com", u.Email)
	assert.NotEmpty(t, s.Token())

	cur, err := s.Auth().CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, u, cur)

	require.NoError(t, s.Auth().SignOut(ctx))
	cur, err = s.Auth().CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)

	_, err = s.Auth().SignInWithPassword(ctx, "lifter@example.com", "wrong!!")
	assert.True(t, remote.HasCode(err, remote.CodeInvalidCredentials))

	_, err = s.Auth().SignInWithPassword(ctx, "nobody@example.com", "secret1")
	assert.True(t, remote.HasCode(err, remote.CodeInvalidCredentials))

	again, err := s.Auth().SignInWithPassword(ctx, "LIFTER@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
}

func TestSignUpRejections(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, openDB(t))
	signUp(t, s, "a@example.com")

	_, err := s.Auth().SignUp(ctx, "A@example.com", "secret1")
	assert.True(t, remote.HasCode(err, remote.CodeUserExists))
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryConflict))

	_, err = s.Auth().SignUp(ctx, "b@example.com", "short")
	assert.True(t, goerrors.IsValidation(err))
}

func TestSessionExpires(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newStore(t, openDB(t), WithClock(c.Now), WithSessionTTL(time.Hour))
	signUp(t, s, "a@example.com")

	c.Advance(59 * time.Minute)
	cur, _ := s.Auth().CurrentUser(ctx)
	require.NotNil(t, cur)

	c.Advance(2 * time.Minute)
	cur, _ = s.Auth().CurrentUser(ctx)
	assert.Nil(t, cur)
	assert.Empty(t, s.Token())
}

func TestRestoreSession(t *testing.T) {
	dsn := openDB(t)
	first := newStore(t, dsn)
	u := signUp(t, first, "a@example.com")

	second := newStore(t, dsn)
	got, err := second.Restore(first.Token())
	require.NoError(t, err)
	assert.Equal(t, u, got)

	db, err := Open(DialectSQLite, dsn)
	require.NoError(t, err)
	defer db.Close()
	other, err := New(db, []byte("another-secret"))
	require.NoError(t, err)
	_, err = other.Restore(first.Token())
	assert.True(t, remote.HasCode(err, remote.CodeNoSession))
	assert.Empty(t, other.Token())
}

func TestOwnership(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newStore(t, openDB(t), WithClock(func() time.Time { return now }))

	_, err := s.Programs().Insert(ctx, model.Program{Title: "PPL"})
	assert.True(t, remote.HasCode(err, remote.CodeNoSession))

	alice := signUp(t, s, "alice@example.com")
	p, err := s.Programs().Insert(ctx, model.Program{
		Title: "PPL", CreatedBy: alice.ID, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)

	_, err = s.Programs().Insert(ctx, model.Program{Title: "Theirs", CreatedBy: "someone-else", CreatedAt: now, UpdatedAt: now})
	assert.True(t, goerrors.IsAuth(err))

	require.NoError(t, s.Auth().SignOut(ctx))
	rows, err := s.Programs().Select(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	bob := signUp(t, s, "bob@example.com")
	rows, err = s.Programs().Select(ctx, remote.Eq(remote.ColumnID, p.ID))
	require.NoError(t, err)
	assert.Empty(t, rows, "rows of other users are invisible")

	stolen := p
	stolen.CreatedBy = bob.ID
	stolen.Title = "Mine now"
	_, err = s.Programs().Upsert(ctx, stolen)
	assert.True(t, goerrors.IsAuth(err))

	require.NoError(t, s.Programs().Delete(ctx, remote.Eq(remote.ColumnID, p.ID)))

	_, err = s.Auth().SignInWithPassword(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	rows, err = s.Programs().Select(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "PPL", rows[0].Title)
}

func TestUpsertUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newStore(t, openDB(t), WithClock(c.Now))
	u := signUp(t, s, "a@example.com")

	created := c.Now()
	e, err := s.Exercises().Upsert(ctx, model.Exercise{
		Title:      "Squat",
		TargetType: model.TargetCompound,
		CreatedBy:  u.ID,
		CreatedAt:  created,
		UpdatedAt:  created,
	})
	require.NoError(t, err)
	require.NotZero(t, e.ID)

	c.Advance(time.Hour)
	e.Title = "Front squat"
	e.Notes = model.OptionalString("elbows up")
	e.CreatedAt = c.Now()
	e.UpdatedAt = c.Now()
	_, err = s.Exercises().Upsert(ctx, e)
	require.NoError(t, err)

	rows, err := s.Exercises().Select(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, e.ID, rows[0].ID)
	assert.Equal(t, "Front squat", rows[0].Title)
	assert.Equal(t, "elbows up", model.StringValue(rows[0].Notes))
	assert.True(t, rows[0].CreatedAt.Equal(created), "created_at is kept, got %v", rows[0].CreatedAt)
	assert.True(t, rows[0].UpdatedAt.Equal(c.Now()))
}

func TestDeleteRequiresFilter(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, openDB(t))
	signUp(t, s, "a@example.com")

	err := s.Programs().Delete(ctx)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryBadInput))
}

func TestProfilesArePublicAndUnique(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, openDB(t))

	alice := signUp(t, s, "alice@example.com")
	_, err := s.Profiles().Insert(ctx, model.Profile{UserID: alice.ID, Username: "Lifter", CreatedAt: time.Now()})
	require.NoError(t, err)

	bob := signUp(t, s, "bob@example.com")
	rows, err := s.Profiles().Select(ctx, remote.Eq(remote.ColumnUsername, "Lifter"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, alice.ID, rows[0].UserID)

	_, err = s.Profiles().Insert(ctx, model.Profile{UserID: bob.ID, Username: "lifter", CreatedAt: time.Now()})
	assert.True(t, remote.HasCode(err, remote.CodeDuplicate))

	_, err = s.Profiles().Insert(ctx, model.Profile{UserID: bob.ID, Username: "bob", CreatedAt: time.Now()})
	require.NoError(t, err)
	_, err = s.Profiles().Insert(ctx, model.Profile{UserID: bob.ID, Username: "bobby", CreatedAt: time.Now()})
	assert.True(t, remote.HasCode(err, remote.CodeDuplicate), "one profile per user")
}

func TestMusclesAreReadOnly(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, openDB(t))

	seeded, err := s.SeedMuscles(ctx, "Chest", "Back")
	require.NoError(t, err)
	require.Len(t, seeded, 2)
	seeded, err = s.SeedMuscles(ctx, "Back", "Legs")
	require.NoError(t, err)
	assert.Len(t, seeded, 3)

	rows, err := s.Muscles().Select(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Chest", rows[0].Title)

	signUp(t, s, "a@example.com")
	_, err = s.Muscles().Insert(ctx, model.Muscle{Title: "Calves"})
	assert.True(t, goerrors.IsAuth(err))
	assert.True(t, goerrors.IsAuth(s.Muscles().Delete(ctx, remote.Eq(remote.ColumnID, rows[0].ID))))
}

func TestOTPFlow(t *testing.T) {
	ctx := context.Background()
	box := &outbox{}
	s := newStore(t, openDB(t), WithMailer(box))
	signUp(t, s, "a@example.com")
	require.NoError(t, s.Auth().SignOut(ctx))

	require.NoError(t, s.Auth().SignInWithOTP(ctx, "A@example.com"))
	code := box.code("a@example.com")
	require.Len(t, code, otp.Length)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err := s.Auth().VerifyOTP(ctx, "a@example.com", wrong)
	assert.True(t, remote.HasCode(err, remote.CodeInvalidOTP))

	u, err := s.Auth().VerifyOTP(ctx, "a@example.com", code)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)

	_, err = s.Auth().VerifyOTP(ctx, "a@example.com", code)
	assert.True(t, remote.HasCode(err, remote.CodeInvalidOTP), "codes work once")

	require.NoError(t, s.Auth().UpdatePassword(ctx, "changed1"))
	require.NoError(t, s.Auth().SignOut(ctx))
	_, err = s.Auth().SignInWithPassword(ctx, "a@example.com", "changed1")
	assert.NoError(t, err)
}

func TestOTPExpires(t *testing.T) {
	ctx := context.Background()
	box := &outbox{}
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newStore(t, openDB(t), WithMailer(box), WithClock(c.Now))
	signUp(t, s, "a@example.com")

	require.NoError(t, s.Auth().SignInWithOTP(ctx, "a@example.com"))
	c.Advance(otp.TTL + time.Second)
	_, err := s.Auth().VerifyOTP(ctx, "a@example.com", box.code("a@example.com"))
	assert.True(t, remote.HasCode(err, remote.CodeInvalidOTP))
}

func TestOTPRejections(t *testing.T) {
	ctx := context.Background()
	box := &outbox{}
	s := newStore(t, openDB(t), WithMailer(box), WithLimiter(otp.NewLimiter(time.Hour, 1)))
	signUp(t, s, "a@example.com")

	err := s.Auth().SignInWithOTP(ctx, "nobody@example.com")
	assert.True(t, goerrors.IsNotFound(err))

	require.NoError(t, s.Auth().SignInWithOTP(ctx, "a@example.com"))
	err = s.Auth().SignInWithOTP(ctx, "a@example.com")
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryRateLimit))
	assert.True(t, remote.HasCode(err, remote.CodeRateLimited))
}

func TestOTPMailFailure(t *testing.T) {
	box := &outbox{err: errors.New("smtp down")}
	s := newStore(t, openDB(t), WithMailer(box))
	signUp(t, s, "a@example.com")

	err := s.Auth().SignInWithOTP(context.Background(), "a@example.com")
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryExternal))
	assert.True(t, remote.HasCode(err, remote.CodeRequestFailed))
}

func TestUpdatePasswordRequiresSession(t *testing.T) {
	s := newStore(t, openDB(t))
	err := s.Auth().UpdatePassword(context.Background(), "changed1")
	assert.True(t, remote.HasCode(err, remote.CodeNoSession))
}
