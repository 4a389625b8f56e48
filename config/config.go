// Package config loads application settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/cache"
	"github.com/joho/godotenv"
)

// Backend selects the remote.Service implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendSupabase Backend = "supabase"
)

type Config struct {
	Backend     Backend
	DatabaseURL string

	SupabaseURL     string
	SupabaseAnonKey string

	// JWTSecret signs sessions issued by the SQL backend.
	JWTSecret  string
	SessionTTL time.Duration

	SendGridAPIKey  string
	MailFromName    string
	MailFromAddress string

	// OTPEvery and OTPBurst limit how often codes are mailed per address.
	OTPEvery time.Duration
	OTPBurst int

	LogLevel slog.Level
	Cache    cache.Config
}

// LookupFunc reads one variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads files into the environment, skipping missing ones, then parses
// the environment. With no files it tries ".env".
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "read env file "+f)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup parses and validates settings read through lookup.
func FromLookup(lookup LookupFunc) (Config, error) {
	env := reader{lookup: lookup}
	cacheCfg := cache.DefaultConfig()

	cfg := Config{
		Backend:         Backend(strings.ToLower(env.str("WORKOUT_BACKEND", string(BackendMemory)))),
		DatabaseURL:     env.str("DATABASE_URL", ""),
		SupabaseURL:     strings.TrimRight(env.str("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey: env.str("SUPABASE_ANON_KEY", ""),
		JWTSecret:       env.str("JWT_SECRET", ""),
		SessionTTL:      env.duration("SESSION_TTL", 7*24*time.Hour),
		SendGridAPIKey:  env.str("SENDGRID_API_KEY", ""),
		MailFromName:    env.str("MAIL_FROM_NAME", "Workout Tracker"),
		MailFromAddress: env.str("MAIL_FROM_ADDRESS", ""),
		OTPEvery:        env.duration("OTP_EVERY", time.Minute),
		OTPBurst:        env.integer("OTP_BURST", 3),
		LogLevel:        env.level("LOG_LEVEL", slog.LevelInfo),
		Cache: cache.Config{
			Capacity:           env.integer("CACHE_CAPACITY", cacheCfg.Capacity),
			NumShards:          env.integer("CACHE_SHARDS", cacheCfg.NumShards),
			TTL:                env.duration("CACHE_TTL", cacheCfg.TTL),
			EvictionPercentage: env.integer("CACHE_EVICTION_PERCENTAGE", cacheCfg.EvictionPercentage),
			EvictionInterval:   env.duration("CACHE_EVICTION_INTERVAL", cacheCfg.EvictionInterval),
		},
	}
	if env.err != nil {
		return Config{}, env.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c Config) Validate() error {
	sql := c.Backend == BackendSQLite || c.Backend == BackendPostgres
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(BackendMemory, BackendSQLite, BackendPostgres, BackendSupabase)),
		validation.Field(&c.DatabaseURL, validation.When(sql, validation.Required)),
		validation.Field(&c.JWTSecret, validation.When(sql, validation.Required, validation.Length(16, 0))),
		validation.Field(&c.SupabaseURL, validation.When(c.Backend == BackendSupabase, validation.Required)),
		validation.Field(&c.SupabaseAnonKey, validation.When(c.Backend == BackendSupabase, validation.Required)),
		validation.Field(&c.MailFromAddress, validation.When(c.SendGridAPIKey != "", validation.Required)),
		validation.Field(&c.OTPBurst, validation.Required, validation.Min(1)),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid configuration")
	}
	if err := c.Cache.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid cache configuration")
	}
	return nil
}

type reader struct {
	lookup LookupFunc
	err    error
}

func (r *reader) str(key, fallback string) string {
	if v, ok := r.lookup(key); ok && v != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (r *reader) integer(key string, fallback int) int {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		r.fail(key, raw, err)
		return fallback
	}
	return n
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		r.fail(key, raw, err)
		return fallback
	}
	return d
}

func (r *reader) level(key string, fallback slog.Level) slog.Level {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		r.fail(key, raw, err)
		return fallback
	}
	return lvl
}

func (r *reader) fail(key, raw string, err error) {
	if r.err != nil {
		return
	}
	r.err = goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid value for "+key).
		WithMetadata(map[string]any{"key": key, "value": raw})
}
