package config

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("NODE_ENV", "")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.IsDev {
		t.Fatalf("expected production mode by default")
	}
	if cfg.Identity.BaseURL != "http://localhost:8000" {
		t.Fatalf("unexpected identity base url: %q", cfg.Identity.BaseURL)
	}
	if cfg.Identity.Timeout != 10*time.Second {
		t.Fatalf("unexpected identity timeout: %v", cfg.Identity.Timeout)
	}
	if cfg.TokenStore.Backend != TokenStoreFile {
		t.Fatalf("unexpected token store backend: %q", cfg.TokenStore.Backend)
	}
	if cfg.TokenStore.Key != "access_token" {
		t.Fatalf("unexpected token key: %q", cfg.TokenStore.Key)
	}
	if filepath.Base(cfg.TokenStore.Path) != "session.json" {
		t.Fatalf("unexpected token path: %q", cfg.TokenStore.Path)
	}
	if cfg.HTTP.Addr != "127.0.0.1:8080" {
		t.Fatalf("unexpected http addr: %q", cfg.HTTP.Addr)
	}
	if cfg.Observability.Logging.Format != "json" {
		t.Fatalf("expected json logs outside dev mode, got %q", cfg.Observability.Logging.Format)
	}
}

func TestAppConfig_ParseIdentityEnv(t *testing.T) {
	t.Setenv("IDENTITY_BASE_URL", " https://id.example.com/ ")
	t.Setenv("IDENTITY_TIMEOUT", "3s")
	t.Setenv("IDENTITY_INSPECT_JWT", "false")
	t.Setenv("IDENTITY_EXPIRY_LEEWAY", "-5s")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Identity.Sanitize()

	expected := IdentityConfig{
		BaseURL:      "https://id.example.com",
		Timeout:      3 * time.Second,
		UserAgent:    "felix-portal",
		InspectJWT:   false,
		ExpiryLeeway: 0,
	}
	if !reflect.DeepEqual(cfg.Identity, expected) {
		t.Fatalf("unexpected identity configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Identity)
	}
}

func TestAppConfig_ParseTokenStoreEnv(t *testing.T) {
	t.Setenv("TOKEN_STORE_BACKEND", "Redis")
	t.Setenv("TOKEN_STORE_PATH", "/var/lib/felix/session.json")
	t.Setenv("FELIX_TOKEN_KEY", "portal_token")
	t.Setenv("TOKEN_STORE_REDIS_PREFIX", "portal:")
	t.Setenv("TOKEN_STORE_REDIS_TTL", "12h")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.TokenStore.Sanitize()

	expected := TokenStoreConfig{
		Backend:     TokenStoreRedis,
		Path:        "/var/lib/felix/session.json",
		Key:         "portal_token",
		RedisPrefix: "portal:",
		RedisTTL:    12 * time.Hour,
	}
	if !reflect.DeepEqual(cfg.TokenStore, expected) {
		t.Fatalf("unexpected token store configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.TokenStore)
	}
}

func TestTokenStoreBackend_UnmarshalText(t *testing.T) {
	tests := []struct {
		input   string
		want    TokenStoreBackend
		wantErr bool
	}{
		{input: "file", want: TokenStoreFile},
		{input: " MEMORY ", want: TokenStoreMemory},
		{input: "redis", want: TokenStoreRedis},
		{input: "sqlite", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var b TokenStoreBackend
			err := b.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, b)
			}
		})
	}
}

func TestAppConfig_InvalidBackendFailsParse(t *testing.T) {
	t.Setenv("TOKEN_STORE_BACKEND", "etcd")

	var cfg AppConfig
	err := env.Parse(&cfg)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if !strings.Contains(err.Error(), "TokenStoreBackend") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAppConfig_DetectDevMode(t *testing.T) {
	tests := []struct {
		name    string
		dev     string
		nodeEnv string
		want    bool
	}{
		{name: "DEV flag", dev: "true", want: true},
		{name: "NODE_ENV development", nodeEnv: "development", want: true},
		{name: "NODE_ENV dev", nodeEnv: "Dev", want: true},
		{name: "NODE_ENV production", nodeEnv: "production", want: false},
		{name: "nothing set", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DEV", tt.dev)
			t.Setenv("NODE_ENV", tt.nodeEnv)

			var cfg AppConfig
			if err := env.Parse(&cfg); err != nil {
				t.Fatalf("parse config: %v", err)
			}
			cfg.Sanitize()
			if cfg.IsDev != tt.want {
				t.Fatalf("expected IsDev=%v, got %v", tt.want, cfg.IsDev)
			}
		})
	}
}

func TestRedisConfig_Sanitize(t *testing.T) {
	cfg := RedisConfig{
		URI:           " redis://cache:6379/0 ",
		DB:            -1,
		SentinelNodes: []string{" s1:26379", "", "s2:26379 "},
		ClusterNodes:  []string{"  "},
	}
	cfg.Sanitize()

	if cfg.URI != "redis://cache:6379/0" {
		t.Fatalf("unexpected uri: %q", cfg.URI)
	}
	if cfg.DB != 0 {
		t.Fatalf("expected negative db to reset, got %d", cfg.DB)
	}
	if !reflect.DeepEqual(cfg.SentinelNodes, []string{"s1:26379", "s2:26379"}) {
		t.Fatalf("unexpected sentinel nodes: %#v", cfg.SentinelNodes)
	}
	if len(cfg.ClusterNodes) != 0 {
		t.Fatalf("expected blank cluster nodes to be dropped, got %#v", cfg.ClusterNodes)
	}
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	cfg := HTTPConfig{Addr: "  ", ReadTimeout: -1}
	cfg.Sanitize()

	if cfg.Addr != "127.0.0.1:8080" {
		t.Fatalf("unexpected addr: %q", cfg.Addr)
	}
	if cfg.ReadTimeout != 30*time.Second || cfg.WriteTimeout != 30*time.Second {
		t.Fatalf("unexpected timeouts: read=%v write=%v", cfg.ReadTimeout, cfg.WriteTimeout)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected shutdown timeout: %v", cfg.ShutdownTimeout)
	}
}

func TestLoggingConfig_Sanitize(t *testing.T) {
	cfg := LoggingConfig{Level: "LOUD", Format: "xml"}
	cfg.Sanitize(true)

	if cfg.Level != "info" {
		t.Fatalf("expected unknown level to fall back to info, got %q", cfg.Level)
	}
	if cfg.Format != "text" {
		t.Fatalf("expected dev mode to default to text, got %q", cfg.Format)
	}

	cfg = LoggingConfig{Level: " Debug "}
	cfg.Sanitize(false)
	if cfg.Level != "debug" || cfg.SlogLevel().String() != "DEBUG" {
		t.Fatalf("unexpected level: %q", cfg.Level)
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Namespace: "   "}
	cfg.Sanitize()

	if cfg.Namespace != defaultMetricsNamespace {
		t.Fatalf("expected namespace fallback to %q, got %q", defaultMetricsNamespace, cfg.Namespace)
	}
}

func TestDevIdentityConfig_Sanitize(t *testing.T) {
	t.Setenv("DEV_IDENTITY_TOKEN_TTL", "0s")
	t.Setenv("DEV_IDENTITY_ADDR", "")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.DevIdentity.Sanitize()

	if cfg.DevIdentity.TokenTTL != 8*time.Hour {
		t.Fatalf("unexpected ttl: %v", cfg.DevIdentity.TokenTTL)
	}
	if cfg.DevIdentity.Addr != "127.0.0.1:8000" {
		t.Fatalf("unexpected addr: %q", cfg.DevIdentity.Addr)
	}
	if cfg.DevIdentity.Users != "admin:admin123:admin" {
		t.Fatalf("unexpected users: %q", cfg.DevIdentity.Users)
	}
}
