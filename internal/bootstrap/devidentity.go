package bootstrap

import (
	"crypto/rand"
	"fmt"
	"log/slog"

	"github.com/almazgeobur/felix-portal/config"
	"github.com/almazgeobur/felix-portal/internal/adapters/devidentity"
)

// BuildDevIdentity builds the development identity service from config.
// A random signing secret is generated when none is configured, so issued
// tokens do not survive a restart.
func BuildDevIdentity(cfg config.DevIdentityConfig, logger *slog.Logger) (*devidentity.Server, error) {
	users, err := devidentity.ParseUsers(cfg.Users)
	if err != nil {
		return nil, fmt.Errorf("dev identity users: %w", err)
	}

	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err = rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate dev identity secret: %w", err)
		}
		if logger != nil {
			logger.Warn("DEV_IDENTITY_SECRET is empty, using an ephemeral signing secret")
		}
	}

	return devidentity.NewServer(devidentity.Config{
		Users:    users,
		Secret:   secret,
		Issuer:   cfg.Issuer,
		TokenTTL: cfg.TokenTTL,
		Logger:   logger,
	})
}
