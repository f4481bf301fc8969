package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// IdentityConfig configures the identity service client.
type IdentityConfig struct {
	// BaseURL of the identity service REST API.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8000"`
	// Timeout bounds every identity request.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
	// UserAgent is sent with every identity request.
	UserAgent string `env:"USER_AGENT" envDefault:"felix-portal"`
	// InspectJWT enables the local expiry check of stored JWT credentials at bootstrap.
	InspectJWT bool `env:"INSPECT_JWT" envDefault:"true"`
	// ExpiryLeeway tolerates clock skew in the local expiry check.
	ExpiryLeeway time.Duration `env:"EXPIRY_LEEWAY" envDefault:"30s"`
}

// Sanitize applies guardrails to identity client values.
func (c *IdentityConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.ExpiryLeeway < 0 {
		c.ExpiryLeeway = 0
	}
}

// TokenStoreBackend selects where the credential is persisted.
type TokenStoreBackend string

const (
	// TokenStoreFile keeps the credential in a JSON document on disk.
	TokenStoreFile TokenStoreBackend = "file"
	// TokenStoreRedis keeps the credential in Redis.
	TokenStoreRedis TokenStoreBackend = "redis"
	// TokenStoreMemory keeps the credential for the life of the process only.
	TokenStoreMemory TokenStoreBackend = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for TokenStoreBackend.
func (b *TokenStoreBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch TokenStoreBackend(v) {
	case TokenStoreFile, TokenStoreRedis, TokenStoreMemory:
		*b = TokenStoreBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid TokenStoreBackend: %q (valid options: file, redis, memory)", v)
	}
}

// TokenStoreConfig controls credential persistence.
type TokenStoreConfig struct {
	Backend TokenStoreBackend `env:"TOKEN_STORE_BACKEND" envDefault:"file"`
	// Path of the session document. Defaults to <UserConfigDir>/felix/session.json.
	Path string `env:"TOKEN_STORE_PATH"`
	// Key is the well-known storage key of the credential.
	Key string `env:"FELIX_TOKEN_KEY" envDefault:"access_token"`
	// EncryptionKey is a base64 AES-256 key sealing the credential at rest (file backend).
	EncryptionKey string `env:"TOKEN_STORE_ENCRYPTION_KEY"`
	// RedisPrefix namespaces the credential key in Redis.
	RedisPrefix string `env:"TOKEN_STORE_REDIS_PREFIX" envDefault:"felix:token:"`
	// RedisTTL expires the stored credential; zero keeps it until cleared.
	RedisTTL time.Duration `env:"TOKEN_STORE_REDIS_TTL" envDefault:"0s"`
}

// Sanitize applies guardrails to token store values.
func (c *TokenStoreConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = TokenStoreFile
	}
	c.Key = strings.TrimSpace(c.Key)
	if c.Key == "" {
		c.Key = "access_token"
	}
	c.EncryptionKey = strings.TrimSpace(c.EncryptionKey)
	c.Path = strings.TrimSpace(c.Path)
	if c.Path == "" {
		c.Path = DefaultTokenPath()
	}
	if c.RedisTTL < 0 {
		c.RedisTTL = 0
	}
}

// DefaultTokenPath is <UserConfigDir>/felix/session.json, falling back to the
// working directory when the platform has no config dir.
func DefaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".felix", "session.json")
	}
	return filepath.Join(dir, "felix", "session.json")
}

// DevIdentityConfig controls the development identity service.
type DevIdentityConfig struct {
	Addr string `env:"ADDR" envDefault:"127.0.0.1:8000"`
	// Users is "username:password:role" entries separated by ";".
	Users string `env:"USERS" envDefault:"admin:admin123:admin"`
	// Secret signs issued tokens. A random secret is generated when empty.
	Secret   string        `env:"SECRET"`
	Issuer   string        `env:"ISSUER"    envDefault:"felix-dev-identity"`
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"8h"`
}

// Sanitize applies guardrails to dev identity values.
func (c *DevIdentityConfig) Sanitize() {
	c.Addr = strings.TrimSpace(c.Addr)
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8000"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 8 * time.Hour
	}
}
