package config

import (
	"testing"
	"time"
)

func TestServerConfig_Timeouts_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-32-characters-long!")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"ReadTimeout", cfg.Server.ReadTimeout, 15 * time.Second},
		{"WriteTimeout", cfg.Server.WriteTimeout, 15 * time.Second},
		{"IdleTimeout", cfg.Server.IdleTimeout, 60 * time.Second},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}
}

func TestServerConfig_Timeouts_CustomValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	t.Setenv("SERVER_READ_TIMEOUT", "30s")
	t.Setenv("SERVER_WRITE_TIMEOUT", "45s")
	t.Setenv("SERVER_IDLE_TIMEOUT", "120s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout: got %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 45*time.Second {
		t.Errorf("WriteTimeout: got %v, want 45s", cfg.Server.WriteTimeout)
	}
	if cfg.Server.IdleTimeout != 120*time.Second {
		t.Errorf("IdleTimeout: got %v, want 120s", cfg.Server.IdleTimeout)
	}
}

func TestServerConfig_Timeouts_InvalidDuration(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	// Invalid duration should fall back to default
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout with invalid value: got %v, want %v", cfg.Server.ReadTimeout, 15*time.Second)
	}
}

func TestTokenConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-32-characters-long!")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Token.TTL != 24*time.Hour {
		t.Errorf("TTL: got %v, want 24h", cfg.Token.TTL)
	}
	if cfg.Token.KeyPrefix != "dept_token:" {
		t.Errorf("KeyPrefix: got %q, want %q", cfg.Token.KeyPrefix, "dept_token:")
	}
	if cfg.Token.StoreBackend != BackendRedis {
		t.Errorf("StoreBackend: got %q, want %q", cfg.Token.StoreBackend, BackendRedis)
	}
	if cfg.Token.StoreTimeout != 3*time.Second {
		t.Errorf("StoreTimeout: got %v, want 3s", cfg.Token.StoreTimeout)
	}
	if cfg.Redis.URL != "redis://127.0.0.1:6379/1" {
		t.Errorf("Redis.URL: got %q", cfg.Redis.URL)
	}
	if cfg.Server.RateLimitPerMinute != 30 {
		t.Errorf("RateLimitPerMinute: got %d, want 30", cfg.Server.RateLimitPerMinute)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics should be enabled by default")
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{
			name:    "missing secret",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name:    "short secret",
			env:     map[string]string{"JWT_SECRET": "short"},
			wantErr: true,
		},
		{
			name:    "short secret in production",
			env:     map[string]string{"JWT_SECRET": "twenty-characters-ok", "ENV": "production", "ADMIN_API_KEY_HASH": "x"},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"JWT_SECRET": "test-secret-32-characters-long!", "STORE_BACKEND": "etcd"},
			wantErr: true,
		},
		{
			name:    "postgres without password",
			env:     map[string]string{"JWT_SECRET": "test-secret-32-characters-long!", "STORE_BACKEND": "postgres"},
			wantErr: true,
		},
		{
			name:    "postgres with password",
			env:     map[string]string{"JWT_SECRET": "test-secret-32-characters-long!", "STORE_BACKEND": "postgres", "DB_PASSWORD": "pw"},
			wantErr: false,
		},
		{
			name:    "memory store in production",
			env:     map[string]string{"JWT_SECRET": "a-production-secret-of-32-chars!!", "ENV": "production", "STORE_BACKEND": "memory", "ADMIN_API_KEY_HASH": "x"},
			wantErr: true,
		},
		{
			name:    "production without admin key",
			env:     map[string]string{"JWT_SECRET": "a-production-secret-of-32-chars!!", "ENV": "production"},
			wantErr: true,
		},
		{
			name:    "non-positive ttl",
			env:     map[string]string{"JWT_SECRET": "test-secret-32-characters-long!", "TOKEN_TTL": "0s"},
			wantErr: true,
		},
		{
			name:    "negative cleanup interval",
			env:     map[string]string{"JWT_SECRET": "test-secret-32-characters-long!", "TOKEN_CLEANUP_INTERVAL": "-1m"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseAllowedOrigins_Production(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://erp.example.com, https://admin.example.com")

	origins := parseAllowedOrigins("production")
	if len(origins) != 2 {
		t.Fatalf("got %d origins, want 2", len(origins))
	}
	if origins[1] != "https://admin.example.com" {
		t.Errorf("origin not trimmed: %q", origins[1])
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"10.0.0.0/8", 1},
		{"10.0.0.0/8, ,172.16.0.0/12,", 2},
	}

	for _, tt := range tests {
		if got := parseList(tt.input); len(got) != tt.want {
			t.Errorf("parseList(%q) = %v, want %d items", tt.input, got, tt.want)
		}
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,192.168.0.0/16")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Server.TrustedProxies) != 2 || cfg.Server.TrustedProxies[1] != "192.168.0.0/16" {
		t.Errorf("TrustedProxies = %v", cfg.Server.TrustedProxies)
	}
}
