package configs

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "LOG_FILE", "BACKEND_URL", "DATA_DIR", "HTTP_TIMEOUT", "PORT", "ALLOWED_ORIGINS", "DATABASE_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("expected development environment, got %q", cfg.Environment)
	}
	if cfg.BackendURL != "http://localhost:8080" {
		t.Fatalf("unexpected backend url: %q", cfg.BackendURL)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Fatalf("unexpected http timeout: %s", cfg.HTTPTimeout)
	}
	if cfg.Port != 8080 {
		t.Fatalf("unexpected port: %d", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("expected no allowed origins, got %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("BACKEND_URL", "https://chat.example.com/")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example.com , ,https://b.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.IsDevelopment() {
		t.Fatalf("expected production environment")
	}
	if cfg.BackendURL != "https://chat.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.BackendURL)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("unexpected http timeout: %s", cfg.HTTPTimeout)
	}
	if cfg.Port != 9090 {
		t.Fatalf("unexpected port: %d", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("unexpected allowed origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"bad scheme":   {"BACKEND_URL", "ftp://example.com"},
		"bad timeout":  {"HTTP_TIMEOUT", "soon"},
		"zero timeout": {"HTTP_TIMEOUT", "0s"},
		"bad port":     {"PORT", "eighty"},
		"privileged":   {"PORT", "80"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("BACKEND_URL", "")
			t.Setenv("HTTP_TIMEOUT", "")
			t.Setenv("PORT", "")
			t.Setenv(kv[0], kv[1])

			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s=%q", kv[0], kv[1])
			}
		})
	}
}
