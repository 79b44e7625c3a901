package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_DRIVER", "REPORT_CACHE_TTL_SECONDS", "ACCESS_TOKEN_TTL_MINUTES", "LOGIN_RATE", "SHOP_TIMEZONE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Address() != ":8080" || cfg.DatabaseDriver != "pgx" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.ReportCacheTTLSeconds != 30 || cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("unexpected ttl defaults %+v", cfg)
	}
	if cfg.LoginRate != "5-M" || cfg.ShopTimezone != "Asia/Manila" {
		t.Fatalf("unexpected login rate or timezone %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("REPORT_CACHE_TTL_SECONDS", "-4")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "60")
	t.Setenv("REDIS_DB", "2")

	cfg := Load()
	if cfg.DatabaseDriver != "sqlite" {
		t.Fatalf("expected lowercased driver, got %q", cfg.DatabaseDriver)
	}
	if cfg.ReportCacheTTLSeconds != 30 {
		t.Fatalf("expected invalid ttl to fall back, got %d", cfg.ReportCacheTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 60 || cfg.RedisDB != 2 {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
}
