// Package di wires the application's services from a config.Config.
package di

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/access"
	"github.com/goliatone/go-workout-tracker/cache"
	"github.com/goliatone/go-workout-tracker/config"
	"github.com/goliatone/go-workout-tracker/internal/mailer"
	"github.com/goliatone/go-workout-tracker/internal/otp"
	"github.com/goliatone/go-workout-tracker/notify"
	"github.com/goliatone/go-workout-tracker/query"
	"github.com/goliatone/go-workout-tracker/remote"
	"github.com/goliatone/go-workout-tracker/remote/memory"
	"github.com/goliatone/go-workout-tracker/remote/sqlstore"
	"github.com/goliatone/go-workout-tracker/remote/supabase"
	"github.com/goliatone/go-workout-tracker/routes"
)

// DefaultMuscles seeds the reference table of self-hosted backends.
var DefaultMuscles = []string{
	"Chest", "Back", "Shoulders", "Biceps", "Triceps",
	"Quadriceps", "Hamstrings", "Glutes", "Calves", "Abs",
}

// Container holds one instance of every service built from a configuration.
type Container struct {
	config   config.Config
	logger   *slog.Logger
	now      func() time.Time
	cache    cache.CacheService
	keys     cache.KeySerializer
	client   *query.Client
	remote   remote.Service
	mailer   mailer.Mailer
	notifier notify.Notifier
	routes   *routes.Table

	session   *access.Session
	programs  *access.Programs
	exercises *access.Exercises
	muscles   *access.Muscles

	closers []func() error
}

// Option customizes NewContainer.
type Option func(*Container)

// WithLogger replaces the text logger built from Config.LogLevel.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) { c.logger = logger }
}

// WithNotifier receives notifications in addition to the log.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Container) { c.notifier = n }
}

// WithRemote skips backend construction and uses svc.
func WithRemote(svc remote.Service) Option {
	return func(c *Container) { c.remote = svc }
}

// WithMailer replaces the mailer chosen from Config.SendGridAPIKey.
func WithMailer(m mailer.Mailer) Option {
	return func(c *Container) { c.mailer = m }
}

func WithClock(now func() time.Time) Option {
	return func(c *Container) { c.now = now }
}

// NewContainer validates cfg and builds every service. Close releases the
// database handle of SQL backends.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	}

	cacheService, err := cache.NewCacheService(cfg.Cache)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid cache configuration")
	}
	c.cache = cacheService
	c.keys = cache.NewDefaultKeySerializer()
	c.client = query.NewClient(cacheService, access.NewRegistry(),
		query.WithLogger(c.logger),
		query.WithKeySerializer(c.keys),
	)

	if c.mailer == nil {
		c.mailer = c.newMailer()
	}
	if c.remote == nil {
		if c.remote, err = c.newRemote(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
	}

	c.notifier = notify.Multi(notify.NewLogNotifier(c.logger), c.notifier)
	c.routes = routes.New()

	deps := access.Deps{
		Remote:   c.remote,
		Client:   c.client,
		Notifier: c.notifier,
		Logger:   c.logger,
		Now:      c.now,
	}
	c.session = access.NewSession(deps)
	c.programs = access.NewPrograms(deps, c.session)
	c.exercises = access.NewExercises(deps, c.session)
	c.muscles = access.NewMuscles(deps)
	return c, nil
}

// NewContainerWithDefaults builds an in-memory container, useful for demos.
func NewContainerWithDefaults(ctx context.Context, opts ...Option) (*Container, error) {
	return NewContainer(ctx, config.Config{
		Backend:    config.BackendMemory,
		SessionTTL: sqlstore.DefaultSessionTTL,
		OTPEvery:   time.Minute,
		OTPBurst:   3,
		LogLevel:   slog.LevelInfo,
		Cache:      cache.DefaultConfig(),
	}, opts...)
}

func (c *Container) newMailer() mailer.Mailer {
	if c.config.SendGridAPIKey == "" {
		return mailer.NewLogMailer(c.logger)
	}
	return mailer.NewSendGrid(c.config.SendGridAPIKey, c.config.MailFromName, c.config.MailFromAddress, c.logger)
}

func (c *Container) newRemote(ctx context.Context) (remote.Service, error) {
	cfg := c.config
	switch cfg.Backend {
	case config.BackendSupabase:
		return supabase.New(cfg.SupabaseURL, cfg.SupabaseAnonKey,
			supabase.WithLogger(c.logger),
			supabase.WithClock(c.now),
		), nil

	case config.BackendSQLite, config.BackendPostgres:
		dialect := sqlstore.DialectSQLite
		if cfg.Backend == config.BackendPostgres {
			dialect = sqlstore.DialectPostgres
		}
		db, err := sqlstore.Open(dialect, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, db.Close)

		store, err := sqlstore.New(db, []byte(cfg.JWTSecret),
			sqlstore.WithLogger(c.logger),
			sqlstore.WithClock(c.now),
			sqlstore.WithSessionTTL(cfg.SessionTTL),
			sqlstore.WithLimiter(otp.NewLimiter(cfg.OTPEvery, cfg.OTPBurst)),
			sqlstore.WithMailer(c.mailer),
		)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		if _, err := store.SeedMuscles(ctx, DefaultMuscles...); err != nil {
			return nil, err
		}
		return store, nil

	default:
		store := memory.New(memory.WithClock(c.now))
		store.SeedMuscles(DefaultMuscles...)
		return store, nil
	}
}

// Close releases resources held by the backend.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Container) Config() config.Config { return c.config }

func (c *Container) Logger() *slog.Logger { return c.logger }

// CacheService returns the shared cache backend.
func (c *Container) CacheService() cache.CacheService { return c.cache }

func (c *Container) KeySerializer() cache.KeySerializer { return c.keys }

// Client returns the query client every service reads through.
func (c *Container) Client() *query.Client { return c.client }

func (c *Container) Remote() remote.Service { return c.remote }

func (c *Container) Mailer() mailer.Mailer { return c.mailer }

func (c *Container) Notifier() notify.Notifier { return c.notifier }

func (c *Container) Routes() *routes.Table { return c.routes }

func (c *Container) Session() *access.Session { return c.session }

func (c *Container) Programs() *access.Programs { return c.programs }

func (c *Container) Exercises() *access.Exercises { return c.exercises }

func (c *Container) Muscles() *access.Muscles { return c.muscles }

// NewUsernameChecker returns a debounced checker reporting to onResult.
func (c *Container) NewUsernameChecker(onResult func(username string, result access.Uniqueness)) *access.UsernameChecker {
	return access.NewUsernameChecker(access.Deps{
		Remote:   c.remote,
		Client:   c.client,
		Notifier: c.notifier,
		Logger:   c.logger,
		Now:      c.now,
	}, access.UsernameDebounce, onResult)
}
