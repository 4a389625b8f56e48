package cache

import (
	"context"
	"testing"
)

func TestDefaultConfigBuildsService(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	svc, err := NewCacheService(cfg)
	if err != nil {
		t.Fatalf("NewCacheService() error = %v", err)
	}

	ctx := context.Background()
	calls := 0
	fetch := func(ctx context.Context) (string, error) {
		calls++
		return "chest", nil
	}
	for i := 0; i < 2; i++ {
		got, err := GetOrFetch(ctx, svc, "get-muscles", fetch)
		if err != nil || got != "chest" {
			t.Fatalf("GetOrFetch() = %q, %v", got, err)
		}
	}
	if calls != 1 {
		t.Errorf("expected one fetch, got %d", calls)
	}
}

func TestConfigValidateRejectsZeroTTL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TTL = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero TTL")
	}
	if _, err := NewCacheService(cfg); err == nil {
		t.Fatal("expected NewCacheService to reject invalid config")
	}
}
