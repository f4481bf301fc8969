package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: identity service, token store and dev identity configuration
//   - redis.go: Redis connection for the shared token store
//   - http.go: portal HTTP server configuration
//   - observability.go: logging and metrics
type AppConfig struct {
	// IsDev controls development mode behavior (text logs, dev identity defaults).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Identity service client configuration
	Identity IdentityConfig `envPrefix:"IDENTITY_"`

	// Credential persistence
	TokenStore TokenStoreConfig

	// Redis connection, used when TOKEN_STORE_BACKEND=redis
	Redis RedisConfig `envPrefix:"REDIS_"`

	// Portal HTTP server configuration
	HTTP HTTPConfig

	// Development identity service (felix dev-identity)
	DevIdentity DevIdentityConfig `envPrefix:"DEV_IDENTITY_"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.detectDevMode()

	c.Identity.Sanitize()
	c.TokenStore.Sanitize()
	c.Redis.Sanitize()
	c.HTTP.Sanitize()
	c.DevIdentity.Sanitize()
	c.Observability.Sanitize(c.IsDev)
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
