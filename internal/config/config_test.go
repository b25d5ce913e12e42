package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.StoreDriver != "mongo" {
		t.Fatalf("expected mongo store by default, got %q", cfg.StoreDriver)
	}
	if cfg.AccessTokenKey == "" || cfg.RefreshTokenKey == "" {
		t.Fatalf("expected default token keys")
	}
	if cfg.AccessTokenKey == cfg.RefreshTokenKey {
		t.Fatalf("expected distinct token keys")
	}
	if !cfg.CookieSecure {
		t.Fatalf("expected secure cookies by default")
	}
	if cfg.RateLimitBurst <= 0 || cfg.RateLimitRPS <= 0 {
		t.Fatalf("expected positive rate limit defaults")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	t.Setenv("ACCESS_TOKEN_PRIVATE_KEY", "access")
	t.Setenv("REFRESH_TOKEN_PRIVATE_KEY", "refresh")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("MEDIA_DRIVER", "s3")
	t.Setenv("S3_USE_PATH_STYLE", "true")
	t.Setenv("RATE_LIMIT_BURST", "3")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.StoreDriver != "postgres" || cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" || cfg.RedisPassword != "hunter2" {
		t.Fatalf("expected override redis")
	}
	if cfg.AccessTokenKey != "access" || cfg.RefreshTokenKey != "refresh" {
		t.Fatalf("expected override token keys")
	}
	if cfg.CookieSecure {
		t.Fatalf("expected insecure cookie override")
	}
	if cfg.MediaDriver != "s3" || !cfg.S3UsePathStyle {
		t.Fatalf("expected override media")
	}
	if cfg.RateLimitBurst != 3 {
		t.Fatalf("expected override burst")
	}
}
