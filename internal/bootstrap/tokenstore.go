package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/almazgeobur/felix-portal/config"
	redisadapter "github.com/almazgeobur/felix-portal/internal/adapters/redis"
	"github.com/almazgeobur/felix-portal/internal/adapters/tokenstore"
	"github.com/almazgeobur/felix-portal/internal/ports"
)

// TokenStoreDeps contains what BuildTokenStore needs.
type TokenStoreDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger
}

// BuildTokenStore opens the configured credential store. The returned close
// function releases backend connections and is never nil.
//
//nolint:ireturn // the backend is chosen at runtime.
func BuildTokenStore(ctx context.Context, deps TokenStoreDeps) (ports.TokenStore, func() error, error) {
	noop := func() error { return nil }
	if deps.Config == nil {
		return nil, noop, errors.New("token store: config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config.TokenStore

	switch cfg.Backend {
	case config.TokenStoreMemory:
		logger.WarnContext(ctx, "using in-memory token store, the session ends with the process")
		return tokenstore.NewMemoryStore(""), noop, nil

	case config.TokenStoreRedis:
		client, err := ConnectRedis(ctx, RedisConfig{Redis: deps.Config.Redis, Logger: logger})
		if err != nil {
			return nil, noop, fmt.Errorf("token store: %w", err)
		}
		store := redisadapter.NewTokenStore(client, redisadapter.TokenStoreOptions{
			Prefix: cfg.RedisPrefix,
			Key:    cfg.Key,
			TTL:    cfg.RedisTTL,
		})
		return store, client.Close, nil

	case config.TokenStoreFile, "":
		store, err := tokenstore.NewFileStore(tokenstore.FileConfig{
			Path:   cfg.Path,
			Key:    cfg.Key,
			Sealer: CreateSealer(cfg.EncryptionKey, logger),
		})
		if err != nil {
			return nil, noop, fmt.Errorf("token store: %w", err)
		}
		logger.DebugContext(ctx, "using file token store", "path", store.Path())
		return store, noop, nil

	default:
		return nil, noop, fmt.Errorf("token store: unsupported backend %q", cfg.Backend)
	}
}
