package config

import (
	"log/slog"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/cache"
	"github.com/goliatone/go-workout-tracker/pkg/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupMap(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := FromLookup(lookupMap(nil))
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, cache.DefaultConfig(), cfg.Cache)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 3, cfg.OTPBurst)
	assert.Equal(t, "Workout Tracker", cfg.MailFromName)
}

func TestSQLiteFixture(t *testing.T) {
	cfg, err := FromLookup(testsupport.EnvFixture(t, testsupport.FixturePath("sqlite.env")))
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "file:workouts.db?cache=shared", cfg.DatabaseURL)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.OTPEvery)
	assert.Equal(t, 2, cfg.OTPBurst)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 500, cfg.Cache.Capacity)
	assert.Equal(t, 4, cfg.Cache.NumShards)
}

func TestSupabaseFixtureNeedsSender(t *testing.T) {
	_, err := FromLookup(testsupport.EnvFixture(t, testsupport.FixturePath("supabase.env")))
	require.Error(t, err)
	assert.True(t, goerrors.IsValidation(err))

	var gerr *goerrors.Error
	require.True(t, goerrors.As(err, &gerr))
	assert.Contains(t, gerr.ValidationMap(), "MailFromAddress")
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name string
		vars map[string]string
	}{
		{"unknown backend", map[string]string{"WORKOUT_BACKEND": "mongo"}},
		{"sql without url", map[string]string{"WORKOUT_BACKEND": "postgres", "JWT_SECRET": "0123456789abcdef"}},
		{"sql short secret", map[string]string{"WORKOUT_BACKEND": "sqlite", "DATABASE_URL": "x.db", "JWT_SECRET": "short"}},
		{"supabase without key", map[string]string{"WORKOUT_BACKEND": "supabase", "SUPABASE_URL": "https://x.test"}},
		{"zero burst", map[string]string{"OTP_BURST": "0"}},
		{"negative burst", map[string]string{"OTP_BURST": "-2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromLookup(lookupMap(tc.vars))
			require.Error(t, err)
			assert.True(t, goerrors.IsValidation(err))
		})
	}
}

func TestInvalidCacheConfig(t *testing.T) {
	_, err := FromLookup(lookupMap(map[string]string{"CACHE_SHARDS": "-1"}))
	require.Error(t, err)
	assert.True(t, goerrors.IsValidation(err))
}

func TestMalformedValues(t *testing.T) {
	for key, raw := range map[string]string{
		"CACHE_TTL":      "forever",
		"CACHE_CAPACITY": "lots",
		"LOG_LEVEL":      "loud",
	} {
		_, err := FromLookup(lookupMap(map[string]string{key: raw}))
		require.Error(t, err, key)
		assert.True(t, goerrors.IsCategory(err, goerrors.CategoryBadInput), key)
	}
}

func TestLoadMissingFileFallsBackToEnvironment(t *testing.T) {
	t.Setenv("WORKOUT_BACKEND", "memory")
	cfg, err := Load("testdata/does-not-exist.env")
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
}
