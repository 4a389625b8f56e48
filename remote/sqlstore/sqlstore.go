// Package sqlstore is a self-hosted remote.Service on a SQL database through
// bun. It runs the backend in-process: row ownership, password and OTP auth and
// session tokens are enforced here instead of by a hosted project.
//
// SQLite (mattn/go-sqlite3) and PostgreSQL (lib/pq) are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/internal/mailer"
	"github.com/goliatone/go-workout-tracker/internal/otp"
	"github.com/goliatone/go-workout-tracker/model"
	"github.com/goliatone/go-workout-tracker/remote"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"golang.org/x/crypto/bcrypt"
)

// Supported dialects.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// DefaultSessionTTL is how long an issued session token stays valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Open connects to dsn using the driver for dialect.
func Open(dialect, dsn string) (*bun.DB, error) {
	switch dialect {
	case DialectSQLite:
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "open sqlite database")
		}
		// SQLite serialises writers; one connection avoids "database is locked".
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case DialectPostgres:
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "open postgres database")
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, goerrors.New("unsupported dialect "+dialect, goerrors.CategoryBadInput)
	}
}

// Store holds one client session at a time, like the hosted client does.
type Store struct {
	db      *bun.DB
	logger  *slog.Logger
	now     func() time.Time
	secret  []byte
	ttl     time.Duration
	cost    int
	limiter *otp.Limiter
	mailer  mailer.Mailer

	mu    sync.Mutex
	token string

	programs  *table[model.Program]
	exercises *table[model.Exercise]
	muscles   *table[model.Muscle]
	profiles  *table[model.Profile]
}

var _ remote.Service = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock replaces time.Now for timestamps and token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithLimiter throttles OTP requests per address.
func WithLimiter(l *otp.Limiter) Option {
	return func(s *Store) { s.limiter = l }
}

// WithMailer sets how OTP codes are delivered. Codes are logged by default.
func WithMailer(m mailer.Mailer) Option {
	return func(s *Store) { s.mailer = m }
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Store) { s.cost = cost }
}

// New returns a store on db signing session tokens with secret.
func New(db *bun.DB, secret []byte, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, goerrors.New("sqlstore requires a database", goerrors.CategoryBadInput)
	}
	if len(secret) == 0 {
		return nil, goerrors.New("sqlstore requires a token secret", goerrors.CategoryBadInput)
	}

	s := &Store{
		db:      db,
		logger:  slog.Default(),
		now:     time.Now,
		secret:  secret,
		ttl:     DefaultSessionTTL,
		cost:    bcrypt.DefaultCost,
		limiter: otp.NewLimiter(time.Minute, 3),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "sqlstore")
	if s.mailer == nil {
		s.mailer = mailer.NewLogMailer(s.logger)
	}

	s.programs = &table[model.Program]{s: s, rules: ownedRules[model.Program](
		remote.TablePrograms, "title", "link", "notes", "updated_at",
	)}
	s.exercises = &table[model.Exercise]{s: s, rules: ownedRules[model.Exercise](
		remote.TableExercises, "title", "link", "notes", "primary_muscle", "target_type", "updated_at",
	)}
	s.muscles = &table[model.Muscle]{s: s, rules: rules[model.Muscle]{
		name:     remote.TableMuscles,
		id:       func(m *model.Muscle) int64 { return m.ID },
		readOnly: true,
	}}
	s.profiles = &table[model.Profile]{s: s, rules: rules[model.Profile]{
		name:       remote.TableProfiles,
		id:         func(p *model.Profile) int64 { return p.ID },
		ownerCol:   remote.ColumnUserID,
		owner:      func(p *model.Profile) string { return p.UserID },
		publicRead: true,
		updates:    []string{remote.ColumnUsername},
		unique:     uniqueUsername,
	}}
	return s, nil
}

func (s *Store) Auth() remote.Auth                      { return (*auth)(s) }
func (s *Store) Programs() remote.Table[model.Program]   { return s.programs }
func (s *Store) Exercises() remote.Table[model.Exercise] { return s.exercises }
func (s *Store) Muscles() remote.Table[model.Muscle]     { return s.muscles }
func (s *Store) Profiles() remote.Table[model.Profile]   { return s.profiles }

// DB exposes the underlying handle.
func (s *Store) DB() *bun.DB { return s.db }

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{
		(*userRow)(nil),
		(*codeRow)(nil),
		(*model.Profile)(nil),
		(*model.Muscle)(nil),
		(*model.Program)(nil),
		(*model.Exercise)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "create tables")
		}
	}
	return nil
}

// SeedMuscles inserts the titles not yet present and returns every muscle.
func (s *Store) SeedMuscles(ctx context.Context, titles ...string) ([]model.Muscle, error) {
	for _, title := range titles {
		exists, err := s.db.NewSelect().Model((*model.Muscle)(nil)).Where("title = ?", title).Exists(ctx)
		if err != nil {
			return nil, remote.Failed(err, "muscles.seed")
		}
		if exists {
			continue
		}
		m := model.Muscle{Title: title, CreatedAt: s.now()}
		if _, err := s.db.NewInsert().Model(&m).Exec(ctx); err != nil {
			return nil, remote.Failed(err, "muscles.seed")
		}
	}

	var out []model.Muscle
	if err := s.db.NewSelect().Model(&out).Order("id ASC").Scan(ctx); err != nil {
		return nil, remote.Failed(err, "muscles.seed")
	}
	return out, nil
}

// storeError maps driver errors onto the remote taxonomy.
func (s *Store) storeError(ctx context.Context, err error, op string) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		err = duplicate(op)
	}
	err = remote.Failed(err, op)
	s.logger.DebugContext(ctx, "store call failed", "op", op, "error", err)
	return err
}

func isUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func duplicate(op string) error {
	return goerrors.New("duplicate key value violates unique constraint", goerrors.CategoryConflict).
		WithTextCode(remote.CodeDuplicate).
		WithMetadata(map[string]any{"operation": op})
}
