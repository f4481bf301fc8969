package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/almazgeobur/felix-portal/config"
	"github.com/redis/go-redis/v9"
)

// RedisConfig contains configuration for the Redis connection.
type RedisConfig struct {
	Redis  config.RedisConfig
	Logger *slog.Logger
}

// ConnectRedis establishes a connection to Redis and verifies it with a ping.
//
//nolint:ireturn // returning redis.UniversalClient lets us pick single, sentinel, or cluster clients at runtime.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (redis.UniversalClient, error) {
	client, addrDesc, err := newRedisClient(cfg.Redis)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "redis connected", "addr", redactAddr(addrDesc))
	}
	return client, nil
}

// newRedisClient picks cluster, sentinel or a single node from the config.
// The returned description is for logs and may still carry credentials.
//
//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newRedisClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	switch {
	case cfg.UseCluster:
		addrs := cfg.ClusterNodes
		opts := &redis.ClusterOptions{Password: cfg.Password}
		if len(addrs) == 0 && cfg.URI != "" {
			node, err := parseRedisNode(cfg)
			if err != nil {
				return nil, "", fmt.Errorf("parse redis cluster url: %w", err)
			}
			addrs = []string{node.Addr}
			opts.Username = node.Username
			opts.Password = node.Password
			opts.TLSConfig = node.TLSConfig
		}
		if len(addrs) == 0 {
			return nil, "", errors.New("redis cluster configuration requires at least one address")
		}
		opts.Addrs = addrs
		return redis.NewClusterClient(opts), "cluster:" + strings.Join(addrs, ","), nil

	case cfg.UseSentinel:
		if len(cfg.SentinelNodes) == 0 {
			return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
		}
		return redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       cfg.SentinelMasterName,
			SentinelAddrs:    cfg.SentinelNodes,
			Password:         cfg.Password,
			SentinelPassword: cfg.SentinelPassword,
			DB:               cfg.DB,
		}), "sentinel:" + cfg.SentinelMasterName, nil

	default:
		if cfg.URI == "" {
			return nil, "", errors.New("redis direct configuration requires a URI")
		}
		node, err := parseRedisNode(cfg)
		if err != nil {
			return nil, "", fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(node), cfg.URI, nil
	}
}

// parseRedisNode accepts either a redis:// URL or a bare host:port.
func parseRedisNode(cfg config.RedisConfig) (*redis.Options, error) {
	if !isRedisURL(cfg.URI) {
		return &redis.Options{Addr: cfg.URI, Password: cfg.Password, DB: cfg.DB}, nil
	}
	opt, err := redis.ParseURL(cfg.URI)
	if err != nil {
		return nil, err
	}
	if opt.Password == "" {
		opt.Password = cfg.Password
	}
	return opt, nil
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}

// redactAddr strips credentials from a connection description.
func redactAddr(addr string) string {
	if u, err := url.Parse(addr); err == nil && u.User != nil {
		u.User = url.User("*")
		return u.Redacted()
	}
	if i := strings.LastIndex(addr, "@"); i > -1 {
		return addr[i+1:]
	}
	return addr
}
