package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StoreDriver != "memory" {
		t.Errorf("StoreDriver = %q, want memory", cfg.StoreDriver)
	}
	if cfg.MongoCollection != "EcoStop" {
		t.Errorf("MongoCollection = %q", cfg.MongoCollection)
	}
	if cfg.ResolveMaxRedirects != 10 || cfg.ResolveTimeout != 8*time.Second {
		t.Errorf("unexpected resolver bounds %d / %v", cfg.ResolveMaxRedirects, cfg.ResolveTimeout)
	}
	if cfg.ResolveTimeout >= cfg.WriteTimeout {
		t.Errorf("resolver timeout %v must be below write timeout %v", cfg.ResolveTimeout, cfg.WriteTimeout)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/stops.db")
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("RENDER_WAIT", "750ms")
	t.Setenv("RATE_LIMIT_WHITELIST", " 10.0.0.1 , ,127.0.0.1")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.254")
	t.Setenv("PUBLIC_BASE_URL", "https://stopdesk.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StoreDriver != "sqlite" || cfg.SQLitePath != "/tmp/stops.db" {
		t.Errorf("unexpected store config %q %q", cfg.StoreDriver, cfg.SQLitePath)
	}
	if cfg.LogLevel != slog.LevelWarn {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.RenderWait != 750*time.Millisecond {
		t.Errorf("RenderWait = %v", cfg.RenderWait)
	}
	if len(cfg.RateLimitWhitelist) != 2 || cfg.RateLimitWhitelist[1] != "127.0.0.1" {
		t.Errorf("unexpected whitelist %v", cfg.RateLimitWhitelist)
	}
	if len(cfg.TrustedProxies) != 1 || cfg.TrustedProxies[0] != "10.0.0.254" {
		t.Errorf("unexpected trusted proxies %v", cfg.TrustedProxies)
	}
	if cfg.PublicBaseURL != "https://stopdesk.example.com" {
		t.Errorf("PublicBaseURL = %q", cfg.PublicBaseURL)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "postgres"}},
		{"zero redirects", map[string]string{"RESOLVE_MAX_REDIRECTS": "0"}},
		{"bad amqp url", map[string]string{"AMQP_URL": "not a url"}},
		{"negative redis db", map[string]string{"REDIS_DB": "-1"}},
		{"trusted proxy not an ip", map[string]string{"TRUSTED_PROXIES": "10.0.0.1,proxy.local"}},
		{"resolve timeout equals write timeout", map[string]string{"RESOLVE_TIMEOUT": "10s", "WRITE_TIMEOUT": "10s"}},
		{"resolve timeout above write timeout", map[string]string{"RESOLVE_TIMEOUT": "15s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
