package config

import (
	"strings"
	"testing"
	"time"
)

// validConfig returns a config that passes Validate.
func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
		Upload:  UploadConfig{MaxFileSize: 1, MaxFiles: 1, MaxConcurrent: 1, MaxWaitTime: time.Second},
		Session: SessionConfig{TTL: time.Hour, CleanupInterval: time.Minute, CookieName: "sid", MaxSessions: 1},
		Preview: PreviewConfig{Rows: 5, ChartMaxPoints: 10},
		Rate:    RateLimitConfig{Enabled: true, RequestsPerMinute: 100, UploadLimit: 10},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Upload.MaxFileSize != 52428800 {
		t.Errorf("Upload.MaxFileSize = %d, want 52428800", cfg.Upload.MaxFileSize)
	}
	if cfg.Upload.MaxFiles != 20 {
		t.Errorf("Upload.MaxFiles = %d, want 20", cfg.Upload.MaxFiles)
	}
	if cfg.Session.TTL != time.Hour {
		t.Errorf("Session.TTL = %v, want 1h", cfg.Session.TTL)
	}
	if cfg.Session.CookieName != "datasweeper_session" {
		t.Errorf("Session.CookieName = %q", cfg.Session.CookieName)
	}
	if cfg.Preview.Rows != 5 {
		t.Errorf("Preview.Rows = %d, want 5", cfg.Preview.Rows)
	}
	if !cfg.Security.EnableCSP {
		t.Error("Security.EnableCSP should default to true")
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("UPLOAD_MAX_CONCURRENT", "10")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Upload.MaxConcurrent != 10 {
		t.Errorf("Upload.MaxConcurrent = %d, want 10", cfg.Upload.MaxConcurrent)
	}
	if !cfg.Session.CookieSecure {
		t.Error("Session.CookieSecure = false, want true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	t.Setenv("PORT", "3000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000 from PORT", cfg.Server.Port)
	}

	t.Setenv("SERVER_PORT", "4000")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, SERVER_PORT should win over PORT", cfg.Server.Port)
	}
}

func TestLoad_Duration(t *testing.T) {
	t.Setenv("SESSION_TTL", "45m")
	t.Setenv("UPLOAD_MAX_WAIT_TIME", "1m30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Session.TTL != 45*time.Minute {
		t.Errorf("Session.TTL = %v, want 45m", cfg.Session.TTL)
	}
	if cfg.Upload.MaxWaitTime != 90*time.Second {
		t.Errorf("Upload.MaxWaitTime = %v, want 1m30s", cfg.Upload.MaxWaitTime)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name, env, value string
	}{
		{"bad integer", "SERVER_PORT", "eighty"},
		{"bad duration", "SESSION_TTL", "forever"},
		{"bad bool", "RATE_LIMIT_ENABLED", "sometimes"},
		{"fails validation", "PREVIEW_ROWS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			_, err := Load()
			if err == nil {
				t.Fatalf("Load() with %s=%q expected error", tt.env, tt.value)
			}
			if !strings.Contains(err.Error(), tt.env) {
				t.Errorf("error should mention %s: %v", tt.env, err)
			}
		})
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.0/12 , ,192.168.0.0/16")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	if strings.Join(cfg.Security.TrustedProxies, "|") != strings.Join(want, "|") {
		t.Errorf("TrustedProxies = %v, want %v", cfg.Security.TrustedProxies, want)
	}
	if len(cfg.Security.AllowedOrigins) != 1 || cfg.Security.AllowedOrigins[0] != "https://a.example" {
		t.Errorf("AllowedOrigins = %v", cfg.Security.AllowedOrigins)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		mention string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 99999 }, "SERVER_PORT"},
		{"no max files", func(c *Config) { c.Upload.MaxFiles = 0 }, "UPLOAD_MAX_FILES"},
		{"no session ttl", func(c *Config) { c.Session.TTL = 0 }, "SESSION_TTL"},
		{"blank cookie name", func(c *Config) { c.Session.CookieName = " " }, "SESSION_COOKIE_NAME"},
		{"rate limit zero", func(c *Config) { c.Rate.RequestsPerMinute = 0 }, "RATE_LIMIT_REQUESTS_PER_MINUTE"},
		{"bad proxy", func(c *Config) { c.Security.TrustedProxies = []string{"10.0.0.1"} }, "TRUSTED_PROXIES"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("validConfig().Validate() = %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.mention) {
				t.Errorf("error should mention %s: %v", tt.mention, err)
			}
		})
	}
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Preview.Rows = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"SERVER_PORT", "PREVIEW_ROWS"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestValidate_RateLimitDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Rate = RateLimitConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled rate limit should not need limits: %v", err)
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"", 8080, ":8080"},
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"localhost", 443, "localhost:443"},
		{"::1", 8080, "[::1]:8080"},
	}

	for _, tt := range tests {
		cfg := &ServerConfig{Host: tt.host, Port: tt.port}
		if got := cfg.Addr(); got != tt.want {
			t.Errorf("Addr() host=%q port=%d = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestConfigString(t *testing.T) {
	str := validConfig().String()
	for _, want := range []string{"MaxFiles: 1", `Level: "info"`, "Rate: {Enabled: true"} {
		if !strings.Contains(str, want) {
			t.Errorf("String() = %s, missing %q", str, want)
		}
	}
}
